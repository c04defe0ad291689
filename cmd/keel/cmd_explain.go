package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FryrAI/keel/internal/discover"
)

var explainDepth int

var codeExplanations = map[string]string{
	"E001": "broken_caller: the callee's signature changed; each hop below is a caller whose call site may no longer match",
	"E002": "missing_type_hints: the node lacks required parameter/return type annotations",
	"E003": "missing_docstring: the node is public but undocumented",
	"E004": "function_removed: the node was deleted while callers below still reference it",
	"E005": "arity_mismatch: a call site's argument count doesn't match the callee's declared parameters",
	"W001": "placement: the node's name/keywords fit a different module's profile better than its own",
	"W002": "duplicate_name: another declaration with the same name exists elsewhere in the graph",
}

var explainCmd = &cobra.Command{
	Use:   "explain <code> <hash>",
	Short: "show the resolution chain behind a violation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, hash := args[0], args[1]

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, renamed, err := a.store.GetNode(hash)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if n == nil {
			fmt.Fprintf(os.Stderr, "explain: no node with hash %s\n", hash)
			os.Exit(2)
		}

		res, err := discover.Adjacency(a.store, n, renamed, explainDepth)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		if msg, ok := codeExplanations[code]; ok {
			fmt.Println(msg)
		} else {
			fmt.Printf("%s: no known explanation template; showing resolution chain only\n", code)
		}
		fmt.Printf("%s %s:%d (tier %s)\n", n.Name, n.FilePath, n.LineStart, n.ResolutionTier)

		chain := res.Callers
		if code == "E005" || code == "W001" {
			chain = res.Callees
		}
		for _, adj := range chain {
			fmt.Printf("  hop %d: %s %s:%d tier=%s confidence=%.2f\n",
				adj.Depth, adj.Node.Name, adj.Node.FilePath, adj.Node.LineStart, adj.Node.ResolutionTier, adj.Edge.Confidence)
		}
		if len(chain) == 0 {
			fmt.Println("  (no further resolution chain recorded)")
		}
		os.Exit(0)
		return nil
	},
}

func init() {
	explainCmd.Flags().IntVar(&explainDepth, "depth", discover.MaxDepth, "how many resolution hops to show")
}
