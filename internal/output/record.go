// Package output implements keel's Output Assembler (§4.9): three render
// shapes (machine JSON, LLM-compact, human) derived from one internal
// Result record, with budget-aware deterministic truncation.
package output

import "github.com/FryrAI/keel/internal/graph"

// Info carries diagnostic detail only surfaced under --verbose or alongside
// a non-clean result (§4.6 "Clean-output contract").
type Info struct {
	NodesUpdated  int      `json:"nodes_updated"`
	EdgesUpdated  int      `json:"edges_updated"`
	HashesChanged []string `json:"hashes_changed"`
}

// Result is the single internal record every render shape derives from
// (§4.9, §6 "Machine output shape").
type Result struct {
	Version       string           `json:"version"`
	Command       string           `json:"command"`
	Status        string           `json:"status"`
	FilesAnalyzed []string         `json:"files_analyzed"`
	Errors        []graph.Violation `json:"errors"`
	Warnings      []graph.Violation `json:"warnings"`
	Info          *Info            `json:"info,omitempty"`
	Verbose       bool             `json:"-"`
}

// Statuses used on Result.Status.
const (
	StatusClean      = "clean"
	StatusViolations = "violations"
	StatusError      = "error"
)

// New builds a Result, deriving Status from whether any error/warning is
// present (§8 "Clean-output contract": errors.len()+warnings.len() == 0 iff
// primary output is empty, across all three shapes).
func New(command string, filesAnalyzed []string, errs, warns []graph.Violation, info *Info) Result {
	status := StatusClean
	if len(errs) > 0 || len(warns) > 0 {
		status = StatusViolations
	}
	return Result{
		Version:       "1",
		Command:       command,
		Status:        status,
		FilesAnalyzed: filesAnalyzed,
		Errors:        errs,
		Warnings:      warns,
		Info:          info,
	}
}

// IsClean reports whether the result carries zero errors and zero warnings
// (§8 testable property).
func (r Result) IsClean() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

// ExitCode maps a Result to the process exit code contract in §6: 0 clean,
// 1 violations (errors or warnings present), 2 reserved for internal errors
// (never produced from a Result — those abort before one is assembled).
func (r Result) ExitCode() int {
	if r.Status == StatusError {
		return 2
	}
	if r.IsClean() {
		return 0
	}
	return 1
}
