package parser

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/FryrAI/keel/internal/logging"
)

// FileInput is one unit of work for the parallel parse pool: a path plus its
// already-read content (reading is the caller's responsibility, so IO errors
// surface before the pool is scheduled).
type FileInput struct {
	Path    string
	Content []byte
}

// Result pairs a parsed file with the error from parsing it, if any. A
// failure on one file never aborts the others (§4.3 Failure, §7).
type Result struct {
	Path   string
	Parsed *ParsedFile
	Err    error
}

// ParseAll parses every input in parallel, bounded at min(len(inputs),
// CPU_count) concurrent workers (§4.3 "Parallelism"). The first worker parses
// with grammars; every other worker builds and closes its own GrammarSet,
// since parser state is not safe to share between goroutines.
// Results are returned in the same order as inputs, not completion order, so
// callers can zip them back against a caller-held file list deterministically.
func ParseAll(grammars *GrammarSet, inputs []FileInput) []Result {
	results := make([]Result, len(inputs))
	if len(inputs) == 0 {
		return results
	}

	workers := runtime.NumCPU()
	if workers > len(inputs) {
		workers = len(inputs)
	}
	if workers < 1 {
		workers = 1
	}

	timer := logging.StartTimer(logging.CategoryParser, "parse_all")
	defer timer.Stop()

	jobs := make(chan int)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		gs := grammars
		if w > 0 {
			gs = NewGrammarSet()
		}
		g.Go(func() error {
			if gs != grammars {
				defer gs.Close()
			}
			for idx := range jobs {
				in := inputs[idx]
				pf, err := ParseFile(gs, in.Path, in.Content)
				results[idx] = Result{Path: in.Path, Parsed: pf, Err: err}
				if err != nil {
					logging.Get(logging.CategoryParser).Warn("parse error for %s: %v", in.Path, err)
				}
			}
			return nil
		})
	}

	for idx := range inputs {
		jobs <- idx
	}
	close(jobs)
	_ = g.Wait() // workers never return a non-nil error; per-file errors live in Result

	return results
}
