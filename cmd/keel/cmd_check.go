package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FryrAI/keel/internal/check"
	"github.com/FryrAI/keel/internal/discover"
	"github.com/FryrAI/keel/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check <hash|name>",
	Short: "pre-edit risk summary: callers, current violations, risk bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, _, err := discover.Resolve(a.store, args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		callers, err := a.store.Edges(n.ID, store.DirectionIn)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		files := map[string]bool{}
		modules := map[string]bool{}
		for _, e := range callers {
			files[e.FilePath] = true
			if caller, err := a.store.GetNodeByID(e.SourceID); err == nil && caller != nil {
				modules[caller.ModuleID] = true
			}
		}
		delete(modules, n.ModuleID)

		violationCount, err := a.store.ViolationCountForHash(n.Hash)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		risk := check.ScoreRisk(len(callers), len(files), violationCount, len(modules))

		fmt.Printf("%s %s:%d\n", n.Name, n.FilePath, n.LineStart)
		fmt.Printf("risk: %s\n", risk.Level)
		fmt.Printf("callers: %s\n", risk.Summary)
		fmt.Printf("current violations: %d\n", risk.ViolationCount)
		fmt.Printf("fan-out modules: %d\n", len(modules))
		os.Exit(0)
		return nil
	},
}
