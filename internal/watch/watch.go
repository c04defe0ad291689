// Package watch implements the thin filesystem-watching driver behind
// `compile --watch` (§6): it notices changed files and asks the caller to
// recompile. Debounce policy is explicitly out of scope for the core (§1);
// this package only guarantees the one invariant §4.6's "Cancellation &
// timeouts" section calls out regardless of debounce strategy — never two
// concurrent commits, and a request that arrives mid-compile re-evaluates
// its file set from scratch once the in-flight compile finishes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/FryrAI/keel/internal/fsscan"
	"github.com/FryrAI/keel/internal/logging"
)

// skipDirs names directories never worth a watch descriptor, mirroring
// fsscan's own walk exclusions.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, ".keel": true, "vendor": true,
	"target": true, "dist": true, "build": true, "__pycache__": true,
}

// CompileFunc runs one compile invocation over the given changed files.
type CompileFunc func(ctx context.Context, changed []string) error

// Watcher drives CompileFunc from fsnotify events under root.
type Watcher struct {
	root    string
	compile CompileFunc
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	pending map[string]bool
}

// New creates a Watcher rooted at root. It adds every directory under root
// (skipping ignored paths per .keelignore/.gitignore, §1) to the underlying
// fsnotify watcher, since fsnotify does not watch recursively on its own.
func New(root string, compile CompileFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: new watcher: %w", err)
	}

	scanner, err := fsscan.New(root)
	if err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{root: root, compile: compile, fsw: fsw, pending: map[string]bool{}}
	if err := w.addTree(scanner); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addTree(scanner *fsscan.Scanner) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr == nil && rel != "." && scanner.Ignored(rel) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run blocks, dispatching compiles until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.Get(logging.CategoryWatch)
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch: fsnotify error: %v", err)
		}
	}
}

// relevant filters fsnotify noise down to events that could change the
// graph: content writes, creations, and removals. Chmod-only events carry
// no source change.
func relevant(event fsnotify.Event) bool {
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// schedule either starts a compile immediately (no compile currently
// in-flight) or records path for the next run. Only one compile runs at a
// time; a second request arriving mid-compile is folded into the pending
// set and starts a fresh compile over the accumulated files once the
// current one returns, re-evaluating from scratch rather than queuing a
// second concurrent commit.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	if w.running {
		w.pending[path] = true
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.runLoop(ctx, []string{path})
}

func (w *Watcher) runLoop(ctx context.Context, changed []string) {
	log := logging.Get(logging.CategoryWatch)
	for {
		if err := w.compile(ctx, changed); err != nil {
			log.Warn("watch: compile failed: %v", err)
		}

		w.mu.Lock()
		if len(w.pending) == 0 {
			w.running = false
			w.mu.Unlock()
			return
		}
		changed = make([]string, 0, len(w.pending))
		for p := range w.pending {
			changed = append(changed, p)
		}
		w.pending = map[string]bool{}
		w.mu.Unlock()
	}
}
