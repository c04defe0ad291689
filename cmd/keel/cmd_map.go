package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FryrAI/keel/internal/engine"
	"github.com/FryrAI/keel/internal/store"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "full re-parse of every workspace file into the graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.engine.Compile(context.Background(), engine.Options{
			Command: "map",
			Verbose: verbose,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		nodes, _ := a.store.AllNodes()
		edgeCount, _ := a.store.CountEdges()
		profiles, _ := a.store.AllModuleProfiles()
		if err := store.WriteManifest(manifestPath(a.root, a.cfg), store.NewManifest(len(nodes), edgeCount, len(profiles))); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}

		render(result, a.resultMaxTokens())
		return nil
	},
}
