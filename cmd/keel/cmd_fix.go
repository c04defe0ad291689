package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FryrAI/keel/internal/engine"
	"github.com/FryrAI/keel/internal/fix"
	"github.com/FryrAI/keel/internal/graph"
)

var fixApply bool

var fixCmd = &cobra.Command{
	Use:   "fix [files...]",
	Short: "generate a fix plan from current violations, optionally apply safe edits",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		opts := engine.Options{Command: "fix", Files: args, MaxTokens: a.resultMaxTokens(), Verbose: verbose}
		result, err := a.engine.Compile(context.Background(), opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		violations := append(append([]graph.Violation{}, result.Errors...), result.Warnings...)
		plan := fix.BuildPlan(violations)

		if len(plan.Actions) == 0 {
			fmt.Println("no violations to fix")
			os.Exit(0)
		}

		for _, act := range plan.Actions {
			marker := " "
			if act.Kind == fix.ActionDocstringStub {
				marker = "*"
			}
			fmt.Printf("%s [%s] %s\n", marker, act.Violation.Code, act.Summary)
		}

		if !fixApply {
			fmt.Println("\nrun with --apply to write the docstring stubs marked with *")
			os.Exit(0)
		}

		applied, err := fix.Apply(plan)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Printf("\napplied %d insertion(s); recompiling\n", applied)

		result, err = a.engine.Compile(context.Background(), opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		renderAndExit(result, a.resultMaxTokens())
		return nil
	},
}

func init() {
	fixCmd.Flags().BoolVar(&fixApply, "apply", false, "write the automatable insertions to disk and recompile")
}
