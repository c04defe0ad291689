package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FryrAI/keel/internal/engine"
	"github.com/FryrAI/keel/internal/watch"
)

var (
	compileChanged    bool
	compileSince      string
	compileBatchStart bool
	compileBatchEnd   bool
	compileDelta      bool
	compileDepth      int
	compileWatch      bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [files...]",
	Short: "incrementally validate changed files against the stored graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		opts := engine.Options{
			Command:    "compile",
			Files:      args,
			Changed:    compileChanged,
			Since:      compileSince,
			Depth:      compileDepth,
			BatchStart: compileBatchStart,
			BatchEnd:   compileBatchEnd,
			Delta:      compileDelta,
			MaxTokens:  a.resultMaxTokens(),
			Verbose:    verbose,
		}

		if compileWatch {
			return runWatch(a, opts)
		}

		result, err := a.engine.Compile(context.Background(), opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		renderAndExit(result, a.resultMaxTokens())
		return nil
	},
}

func init() {
	compileCmd.Flags().BoolVar(&compileChanged, "changed", false, "compile files changed vs HEAD (git diff)")
	compileCmd.Flags().StringVar(&compileSince, "since", "", "compile files changed since <ref>")
	compileCmd.Flags().BoolVar(&compileBatchStart, "batch-start", false, "begin a batch-mode deferral scope")
	compileCmd.Flags().BoolVar(&compileBatchEnd, "batch-end", false, "end the batch-mode deferral scope and surface everything deferred")
	compileCmd.Flags().BoolVar(&compileDelta, "delta", false, "bucket violations as NEW/FIXED/PRE-EXISTING against the last run")
	compileCmd.Flags().IntVar(&compileDepth, "depth", 1, "fan-out hop count (not applied: caller re-validation always fans out one hop)")
	compileCmd.Flags().BoolVar(&compileWatch, "watch", false, "watch the workspace and recompile on change")
}

// runWatch drives repeated compiles from filesystem events until
// interrupted. Each recompile re-evaluates its file set from the changed
// paths reported since the last run (watch debounce policy itself is not
// this command's concern, §1).
func runWatch(a *app, base engine.Options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w, err := watch.New(a.root, func(ctx context.Context, changed []string) error {
		opts := base
		opts.Files = changed
		result, err := a.engine.Compile(ctx, opts)
		if err != nil {
			return err
		}
		render(result, a.resultMaxTokens())
		return nil
	})
	if err != nil {
		return fmt.Errorf("keel: start watcher: %w", err)
	}
	defer w.Close()

	fmt.Fprintf(os.Stderr, "keel: watching %s (ctrl-c to stop)\n", a.root)
	err = w.Run(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}
