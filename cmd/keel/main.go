// Package main implements the keel CLI.
//
// Command implementations are split across cmd_*.go files, one per
// subcommand family:
//
//   - main.go          - entry point, rootCmd, global flags, init()
//   - app.go           - workspace/store/engine bootstrap shared by every command
//   - cmd_init.go      - initCmd
//   - cmd_map.go       - mapCmd
//   - cmd_compile.go   - compileCmd, --watch wiring
//   - cmd_discover.go  - discoverCmd, whereCmd, searchCmd
//   - cmd_explain.go   - explainCmd
//   - cmd_check.go     - checkCmd (pre-edit risk)
//   - cmd_analyze.go   - analyzeCmd
//   - cmd_fix.go       - fixCmd
//   - cmd_name.go      - nameCmd
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FryrAI/keel/internal/logging"
)

var (
	workspace  string
	verbose    bool
	jsonOutput bool
	llmOutput  bool
	humanFlag  bool
	maxTokens  int

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "keel",
	Short: "keel maintains a structural graph of a repository and enforces contracts on code edits",
	Long: `keel builds an incrementally-updated structural graph of a source repository
and checks LLM-produced edits against it at generation time: broken callers,
missing type hints and docstrings, arity mismatches, naming/placement drift.

Run 'keel init' once per repository, then 'keel compile' after every edit.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("keel: initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace root (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "include diagnostic info in output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&llmOutput, "llm", false, "LLM-compact output")
	rootCmd.PersistentFlags().BoolVar(&humanFlag, "human", false, "human-readable colored output (default when no other format is requested)")
	rootCmd.PersistentFlags().IntVar(&maxTokens, "max-tokens", 0, "token budget for --llm output (default 10000)")

	rootCmd.AddCommand(
		initCmd,
		mapCmd,
		compileCmd,
		discoverCmd,
		whereCmd,
		searchCmd,
		explainCmd,
		checkCmd,
		analyzeCmd,
		fixCmd,
		nameCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
