// Package engine implements keel's compile pipeline (§4.6): the orchestrator
// that turns a file-set selector into parsed files, resolved edges, graph
// deltas, violations, and a rendered output.Result. It is the one package
// that imports every other internal package — by design, since it wires
// them together rather than owning any of their domain logic itself.
package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/FryrAI/keel/internal/batch"
	"github.com/FryrAI/keel/internal/breaker"
	"github.com/FryrAI/keel/internal/check"
	"github.com/FryrAI/keel/internal/config"
	"github.com/FryrAI/keel/internal/logging"
	"github.com/FryrAI/keel/internal/parser"
	"github.com/FryrAI/keel/internal/store"
)

// Engine holds everything a compile invocation needs that should persist
// across invocations within one process: the grammar set (expensive to
// build), the store handle, and the session-scoped breaker/batch state
// (§5, §9 "Global mutable state" — both explicitly do not persist across
// restarts).
type Engine struct {
	Root     string
	Store    *store.GraphStore
	Grammars *parser.GrammarSet
	Breaker  *breaker.Breaker
	Batch    *batch.Batch
	Checker  *check.Checker
	Config   config.Config
}

// New wires an Engine from an already-open store and config (§4.6, §5).
func New(root string, s *store.GraphStore, cfg config.Config) *Engine {
	policy := check.Policy{
		ProgressiveAdoption: cfg.Policy.ProgressiveAdoption,
		Suppressions:        cfg.Policy.Suppressions,
	}
	return &Engine{
		Root:     root,
		Store:    s,
		Grammars: parser.NewGrammarSet(),
		Breaker:  breaker.New(),
		Batch:    batch.New(),
		Checker:  check.New(s, policy),
		Config:   cfg,
	}
}

// Close releases the engine's tree-sitter grammar resources. The store is
// owned by the caller and is not closed here.
func (e *Engine) Close() {
	e.Grammars.Close()
}

// Options configures one compile invocation (§4.6 "Inputs").
type Options struct {
	Command   string // "compile" | "map" | "check" | ...
	Files     []string
	Changed   bool   // git diff vs HEAD
	Since     string // git diff vs <ref>
	Depth     int    // set from --depth; Compile does not read it, fan-out is always one hop
	BatchStart bool
	BatchEnd   bool
	Delta      bool
	MaxTokens  int
	Verbose    bool
}

func absPath(root, rel string) string {
	return filepath.Join(root, rel)
}

func logger() *logging.Logger {
	return logging.Get(logging.CategoryEngine)
}

// ensureCtx returns a background context when ctx is nil, so internal
// helpers taking a context never need a nil check of their own.
func ensureCtx(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func unixToTime(u int64) time.Time {
	return time.Unix(u, 0)
}
