package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FryrAI/keel/internal/naming"
)

var nameModule string

var nameCmd = &cobra.Command{
	Use:   "name <description...>",
	Short: "suggest a name matching a module's naming convention and vocabulary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if nameModule == "" {
			fmt.Fprintln(os.Stderr, "keel: --module is required (which file/hash/name the suggestion should match)")
			os.Exit(2)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		description := strings.Join(args, " ")
		suggestion, err := naming.Suggest(a.store, nameModule, description)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		fmt.Printf("%s (%s)\n", suggestion.Name, suggestion.Convention)
		fmt.Printf("confidence: %.2f\n", suggestion.Confidence)
		fmt.Printf("rationale: %s\n", suggestion.Rationale)
		os.Exit(0)
		return nil
	},
}

func init() {
	nameCmd.Flags().StringVar(&nameModule, "module", "", "hash/name/file-path of the module the name should fit")
}
