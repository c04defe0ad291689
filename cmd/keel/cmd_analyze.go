package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FryrAI/keel/internal/analyze"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "structural smells (monolith, oversize, isolation) and refactor suggestions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := analyze.Analyze(a.store, args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		if len(report.Smells) == 0 {
			fmt.Println("no structural smells found")
			os.Exit(0)
		}
		for _, s := range report.Smells {
			fmt.Printf("[%s] %s\n", s.Kind, s.Message)
			if s.Suggestion != "" {
				fmt.Printf("  suggestion: %s\n", s.Suggestion)
			}
		}
		os.Exit(0)
		return nil
	},
}
