// Package analyze implements keel's structural-smell detection (the
// `analyze <file>` command, §6): monolith, oversize, and isolation smells
// computed from stored ModuleProfiles and node adjacency, rather than any
// fresh parse — it reads the graph as of the last compile.
package analyze

import (
	"fmt"
	"sort"

	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/store"
)

// SmellKind classifies a structural smell.
type SmellKind string

const (
	SmellMonolith  SmellKind = "monolith"
	SmellOversize  SmellKind = "oversize"
	SmellIsolation SmellKind = "isolation"
)

// MonolithFactor is how many times the median a module's function_count,
// class_count, or line_count must exceed to be flagged (§6 "monolith").
const MonolithFactor = 3.0

// OversizeLines flags a single function/class whose body exceeds this many
// lines (§6 "oversize").
const OversizeLines = 150

// Smell is one finding from analyzing a file.
type Smell struct {
	Kind       SmellKind
	Node       *graph.Node // nil for a module-level monolith smell
	Message    string
	Suggestion string
}

// Report is the full set of smells found for one file.
type Report struct {
	FilePath string
	Smells   []Smell
}

// Analyze loads filePath's module profile and node set, compares the module
// against the population median (monolith), each function/class against
// OversizeLines (oversize), and flags each public function that has no
// recorded incoming or outgoing edge (isolation).
func Analyze(s *store.GraphStore, filePath string) (*Report, error) {
	nodes, err := s.NodesByFile(filePath)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("analyze: no nodes recorded for %s; run compile first", filePath)
	}

	var moduleID string
	for _, n := range nodes {
		if n.Kind == graph.KindModule {
			moduleID = n.ID
			break
		}
	}

	allProfiles, err := s.AllModuleProfiles()
	if err != nil {
		return nil, err
	}

	var profile *graph.ModuleProfile
	for i := range allProfiles {
		if allProfiles[i].ModuleID == moduleID {
			profile = &allProfiles[i]
			break
		}
	}

	report := &Report{FilePath: filePath}

	if profile != nil {
		report.Smells = append(report.Smells, monolithSmells(*profile, allProfiles)...)
	}

	for i := range nodes {
		n := nodes[i]
		if n.Kind == graph.KindModule {
			continue
		}
		if lines := n.LineEnd - n.LineStart; lines > OversizeLines {
			report.Smells = append(report.Smells, Smell{
				Kind:       SmellOversize,
				Node:       &nodes[i],
				Message:    fmt.Sprintf("%s spans %d lines (limit %d)", n.Name, lines, OversizeLines),
				Suggestion: fmt.Sprintf("split %s into smaller functions along its distinct responsibilities", n.Name),
			})
		}

		in, err := s.Edges(n.ID, store.DirectionIn)
		if err != nil {
			return nil, err
		}
		out, err := s.Edges(n.ID, store.DirectionOut)
		if err != nil {
			return nil, err
		}
		if n.Kind == graph.KindFunction && n.IsPublic && len(in) == 0 && len(out) == 0 {
			report.Smells = append(report.Smells, Smell{
				Kind:       SmellIsolation,
				Node:       &nodes[i],
				Message:    fmt.Sprintf("%s is public but has no recorded callers or callees", n.Name),
				Suggestion: fmt.Sprintf("confirm %s is still reachable, or consider removing it", n.Name),
			})
		}
	}

	return report, nil
}

// monolithSmells compares profile's function_count, class_count, and
// line_count against the median across allProfiles, flagging any metric that
// exceeds the median by MonolithFactor (a module with zero peers has no
// median to compare against and is never flagged).
func monolithSmells(profile graph.ModuleProfile, allProfiles []graph.ModuleProfile) []Smell {
	if len(allProfiles) < 2 {
		return nil
	}

	funcMedian := median(collect(allProfiles, func(p graph.ModuleProfile) int { return p.FunctionCount }))
	classMedian := median(collect(allProfiles, func(p graph.ModuleProfile) int { return p.ClassCount }))
	lineMedian := median(collect(allProfiles, func(p graph.ModuleProfile) int { return p.LineCount }))

	var smells []Smell
	check := func(metric string, value int, median float64) {
		if median <= 0 || float64(value) <= median*MonolithFactor {
			return
		}
		smells = append(smells, Smell{
			Kind:       SmellMonolith,
			Message:    fmt.Sprintf("module %s has %s %d, more than %.0fx the workspace median of %.0f", profile.ModuleID, metric, value, MonolithFactor, median),
			Suggestion: fmt.Sprintf("split module %s along its responsibility_keywords", profile.ModuleID),
		})
	}
	check("function_count", profile.FunctionCount, funcMedian)
	check("class_count", profile.ClassCount, classMedian)
	check("line_count", profile.LineCount, lineMedian)
	return smells
}

func collect(profiles []graph.ModuleProfile, f func(graph.ModuleProfile) int) []int {
	out := make([]int, len(profiles))
	for i, p := range profiles {
		out[i] = f(p)
	}
	return out
}

func median(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return float64(sorted[mid])
}
