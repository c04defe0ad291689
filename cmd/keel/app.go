package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/FryrAI/keel/internal/config"
	"github.com/FryrAI/keel/internal/engine"
	"github.com/FryrAI/keel/internal/output"
	"github.com/FryrAI/keel/internal/store"
)

// app bundles the config, store, and engine handles every command beyond
// `init` needs, opened once and closed on the way out.
type app struct {
	root   string
	cfg    config.Config
	store  *store.GraphStore
	engine *engine.Engine
}

func resolveWorkspace() (string, error) {
	if workspace == "" {
		return os.Getwd()
	}
	return filepath.Abs(workspace)
}

func configPath(root string) string {
	return filepath.Join(root, ".keel", "config.yaml")
}

func dbPath(root string, cfg config.Config) string {
	return filepath.Join(root, cfg.Workspace.StateDir, "graph.db")
}

func manifestPath(root string, cfg config.Config) string {
	return filepath.Join(root, cfg.Workspace.StateDir, "manifest.json")
}

// openApp loads config, opens the graph store, and wires an Engine. It
// returns a clear error directing the user to `keel init` when the store
// hasn't been created yet, rather than a raw sqlite error.
func openApp() (*app, error) {
	root, err := resolveWorkspace()
	if err != nil {
		return nil, fmt.Errorf("keel: resolve workspace: %w", err)
	}

	cfg, err := config.Load(configPath(root))
	if err != nil {
		return nil, fmt.Errorf("keel: load config: %w", err)
	}

	s, err := store.Open(dbPath(root, cfg))
	if err != nil {
		return nil, fmt.Errorf("keel: open graph store (run `keel init` first): %w", err)
	}

	return &app{root: root, cfg: cfg, store: s, engine: engine.New(root, s, cfg)}, nil
}

// Close releases the engine's grammar resources and the store handle.
func (a *app) Close() {
	a.engine.Close()
	a.store.Close()
}

// resultMaxTokens resolves the effective LLM-compact token budget: the
// --max-tokens flag if set, else the loaded config's default.
func (a *app) resultMaxTokens() int {
	if maxTokens > 0 {
		return maxTokens
	}
	return a.cfg.Output.MaxTokens
}

// renderAndExit writes r in whichever output format the global flags select
// (--json, --llm, else human) and exits with r's contract-defined code
// (§6: 0 clean, 1 violations, 2 internal error).
func renderAndExit(r output.Result, maxTok int) {
	switch {
	case jsonOutput:
		data, err := output.RenderMachine(r)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Println(string(data))
	case llmOutput:
		fmt.Print(output.RenderCompact(r, maxTok))
	default:
		fmt.Print(output.RenderHuman(r, colorEnabled()))
	}
	os.Exit(r.ExitCode())
}

// render writes r in the selected output format without exiting, for
// commands whose own exit-code contract doesn't follow output.Result's
// default 0/1/2 clean/violations/error mapping (`map` is 0 success / 2
// internal regardless of violations found, §6).
func render(r output.Result, maxTok int) {
	switch {
	case jsonOutput:
		data, err := output.RenderMachine(r)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Println(string(data))
	case llmOutput:
		fmt.Print(output.RenderCompact(r, maxTok))
	default:
		fmt.Print(output.RenderHuman(r, colorEnabled()))
	}
}

// colorEnabled reports whether human output should carry ANSI color: on
// whenever human rendering is the active format, which is the default when
// neither --json nor --llm was requested.
func colorEnabled() bool {
	return humanFlag || (!jsonOutput && !llmOutput)
}
