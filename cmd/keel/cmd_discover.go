package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/FryrAI/keel/internal/discover"
	"github.com/FryrAI/keel/internal/graph"
)

var (
	discoverDepth    int
	discoverByName   bool
	discoverContext  int
	searchLimit      int
)

var discoverCmd = &cobra.Command{
	Use:   "discover <hash|name|file-path>",
	Short: "show a node's callers, callees, and module context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var res *discover.Result
		if discoverByName {
			n, nerr := discover.ResolveByName(a.store, args[0])
			if nerr != nil {
				fmt.Fprintln(os.Stderr, nerr)
				os.Exit(2)
			}
			res, err = discover.Adjacency(a.store, n, false, discoverDepth)
		} else {
			res, err = discover.Discover(a.store, args[0], discoverDepth)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}

		if discoverContext > 0 {
			if content, readErr := os.ReadFile(res.Node.FilePath); readErr == nil {
				discover.WithContext(res, content, discoverContext)
			}
		}

		printDiscoverResult(res)
		os.Exit(0)
		return nil
	},
}

var whereCmd = &cobra.Command{
	Use:        "where <hash>",
	Short:      "resolve a hash to file:line (deprecated, use `discover --name`)",
	Deprecated: "use `keel discover --name` instead",
	Args:       cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, renamed, err := discover.Resolve(a.store, args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		tag := ""
		if renamed {
			tag = " (RENAMED)"
		}
		fmt.Printf("%s %s:%d%s\n", n.Name, n.FilePath, n.LineStart, tag)
		os.Exit(0)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "graph-wide name search with substring fallback",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		nodes, err := discover.Search(a.store, args[0], searchLimit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		if len(nodes) == 0 {
			fmt.Println("no matches")
			os.Exit(0)
		}
		for _, n := range nodes {
			fmt.Printf("%s %s %s:%d\n", n.Kind, n.Name, n.FilePath, n.LineStart)
		}
		os.Exit(0)
		return nil
	},
}

func init() {
	discoverCmd.Flags().IntVar(&discoverDepth, "depth", 1, "adjacency hops to walk (0-3)")
	discoverCmd.Flags().BoolVar(&discoverByName, "name", false, "selector is a bare name, not a hash or file path")
	discoverCmd.Flags().IntVar(&discoverContext, "context", 0, "lines of source context to include around the node")

	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum matches to return")
}

func printDiscoverResult(res *discover.Result) {
	n := res.Node
	tag := ""
	if res.Renamed {
		tag = " (RENAMED)"
	}
	fmt.Printf("%s %s %s:%d%s\n", n.Kind, n.Name, n.FilePath, n.LineStart, tag)
	if res.ModuleContext != nil {
		fmt.Printf("  module: %s (%d fn, %d class)\n", res.ModuleContext.ModuleID, res.ModuleContext.FunctionCount, res.ModuleContext.ClassCount)
	}
	printAdjacent("callers", res.Callers)
	printAdjacent("callees", res.Callees)
	for _, line := range res.Snippet {
		fmt.Println("  | " + line)
	}
}

func printAdjacent(label string, adj []discover.Adjacent) {
	if len(adj) == 0 {
		return
	}
	fmt.Printf("  %s (%d):\n", label, len(adj))
	for _, a := range adj {
		conf := ""
		if a.Edge.IsLowConfidence() {
			conf = fmt.Sprintf(" [confidence %.2f]", a.Edge.Confidence)
		}
		kindTag := ""
		if a.Node.Kind != graph.KindFunction {
			kindTag = " (" + string(a.Node.Kind) + ")"
		}
		fmt.Printf("    %s%s %s:%d%s\n", a.Node.Name, kindTag, a.Node.FilePath, a.Node.LineStart, conf)
	}
}
