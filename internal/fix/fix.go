// Package fix implements keel's fix-plan generation (the `fix [--apply]`
// command, §6): turning a batch of violations into an ordered plan of
// concrete actions, with an optional conservative write-back limited to
// purely additive, mechanically-safe edits (docstring stubs). Anything that
// would require resolving a value or choosing a type is left to the editor
// per the Non-goals around runtime/value inference.
package fix

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/FryrAI/keel/internal/graph"
)

// ActionKind classifies how automatable a FixAction is.
type ActionKind string

const (
	// ActionDocstringStub inserts a minimal docstring placeholder; safe to
	// apply automatically since it only adds a comment line.
	ActionDocstringStub ActionKind = "docstring_stub"
	// ActionManual names work that needs a human decision (a type to pick,
	// a call site to update, a module to move code into).
	ActionManual ActionKind = "manual"
)

// FixAction is one step of a fix plan, grounded on a single violation.
type FixAction struct {
	Violation graph.Violation
	Kind      ActionKind
	Summary   string
	Insert    *Insertion // non-nil only for ActionDocstringStub
}

// Insertion describes a single-line text insertion directly above Line.
type Insertion struct {
	File string
	Line int
	Text string
}

// Plan is an ordered list of fix actions for a set of violations.
type Plan struct {
	Actions []FixAction
}

// codeOrder ranks violation codes the way a fix run should address them:
// structural breakage first (callers need to stop failing before cosmetic
// gaps get attention), then the rest in the order §4.5 lists them.
var codeOrder = map[string]int{
	"E001": 0, "E004": 1, "E005": 2,
	"E002": 3, "E003": 4, "W001": 5, "W002": 6, "S001": 7,
}

// BuildPlan aggregates violations into an ordered plan. Violations are
// sorted by codeOrder, then file, then line, so the plan reads top-to-bottom
// the way a reviewer would want to apply it.
func BuildPlan(violations []graph.Violation) Plan {
	sorted := make([]graph.Violation, len(violations))
	copy(sorted, violations)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if oa, ob := codeOrder[a.Code], codeOrder[b.Code]; oa != ob {
			return oa < ob
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})

	plan := Plan{}
	for _, v := range sorted {
		plan.Actions = append(plan.Actions, actionFor(v))
	}
	return plan
}

func actionFor(v graph.Violation) FixAction {
	switch v.Code {
	case "E003":
		return FixAction{
			Violation: v,
			Kind:      ActionDocstringStub,
			Summary:   fmt.Sprintf("insert a docstring stub at %s:%d", v.File, v.Line),
			Insert:    &Insertion{File: v.File, Line: v.Line, Text: docstringStub(v)},
		}
	default:
		summary := v.FixHint
		if summary == "" {
			summary = v.Message
		}
		return FixAction{Violation: v, Kind: ActionManual, Summary: summary}
	}
}

// docstringStub renders a minimal placeholder docstring. It names the
// function so the stub is at least greppable, and leaves the actual
// description to the author.
func docstringStub(v graph.Violation) string {
	name := v.Message
	if idx := strings.Index(name, " is public"); idx >= 0 {
		name = name[:idx]
	}
	if name == "" {
		name = "this function"
	}
	prefix := "//"
	if strings.HasSuffix(v.File, ".py") {
		prefix = "#"
	}
	return fmt.Sprintf("%s TODO: describe %s.", prefix, name)
}

// Apply writes every ActionDocstringStub insertion in the plan to disk,
// skipping ActionManual entries entirely. Insertions within the same file
// are applied bottom-to-top so earlier line numbers stay valid as later
// ones shift the file. Returns how many insertions were written.
func Apply(plan Plan) (int, error) {
	byFile := map[string][]*Insertion{}
	for i := range plan.Actions {
		a := &plan.Actions[i]
		if a.Kind != ActionDocstringStub || a.Insert == nil {
			continue
		}
		byFile[a.Insert.File] = append(byFile[a.Insert.File], a.Insert)
	}

	applied := 0
	for file, insertions := range byFile {
		sort.Slice(insertions, func(i, j int) bool { return insertions[i].Line > insertions[j].Line })

		content, err := os.ReadFile(file)
		if err != nil {
			return applied, fmt.Errorf("fix: apply: read %s: %w", file, err)
		}
		lines := strings.Split(string(content), "\n")

		for _, ins := range insertions {
			idx := ins.Line - 1
			if idx < 0 || idx > len(lines) {
				continue
			}
			indent := leadingWhitespace(lines, idx)
			lines = append(lines[:idx], append([]string{indent + ins.Text}, lines[idx:]...)...)
			applied++
		}

		if err := os.WriteFile(file, []byte(strings.Join(lines, "\n")), 0644); err != nil {
			return applied, fmt.Errorf("fix: apply: write %s: %w", file, err)
		}
	}
	return applied, nil
}

func leadingWhitespace(lines []string, idx int) string {
	if idx < 0 || idx >= len(lines) {
		return ""
	}
	line := lines[idx]
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}
