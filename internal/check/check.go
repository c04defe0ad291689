// Package check implements keel's violation checkers (§4.5): E001-E005,
// W001-W002, and the S001 suppression marker, over a pre-update graph
// (G_before) and the current file's freshly parsed/enhanced state.
package check

import (
	"fmt"
	"strings"

	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/parser"
	"github.com/FryrAI/keel/internal/store"
)

// Checker runs the violation rules against a GraphStore under a Policy.
type Checker struct {
	Store  *store.GraphStore
	Policy Policy
}

// New builds a Checker bound to a store and policy.
func New(s *store.GraphStore, p Policy) *Checker {
	return &Checker{Store: s, Policy: p}
}

// CheckSignatureChange implements E001 broken_caller: a function's signature
// changed (hash differs at the same name/location) and G_before has In edges
// from callers whose call-site shape may no longer match. Node identity is
// stable across a hash change (§3), so "edges to the previous hash" is
// expressed here as the node's current In edges, which still point at the
// same node ID regardless of the hash change.
func (c *Checker) CheckSignatureChange(nc store.NodeChange) (*graph.Violation, error) {
	if nc.Kind != store.ChangeUpdated || nc.OldHash == "" || nc.OldHash == nc.Node.Hash {
		return nil, nil
	}
	if nc.Node.Kind != graph.KindFunction {
		return nil, nil
	}

	callers, err := c.Store.Edges(nc.Node.ID, store.DirectionIn)
	if err != nil {
		return nil, fmt.Errorf("check: E001 fetch callers: %w", err)
	}
	var affected []graph.AffectedRef
	for _, e := range callers {
		if e.Kind != graph.EdgeCalls {
			continue
		}
		caller, err := c.Store.GetNodeByID(e.SourceID)
		if err != nil {
			return nil, err
		}
		name := e.SourceID
		if caller != nil {
			name = caller.Name
		}
		affected = append(affected, graph.AffectedRef{Hash: e.SourceID, Name: name, File: e.FilePath, Line: e.Line})
	}
	if len(affected) == 0 {
		return nil, nil
	}

	v := &graph.Violation{
		Code:           "E001",
		Severity:       graph.SeverityError,
		Category:       "broken_caller",
		Message:        fmt.Sprintf("%s's signature changed; %d caller(s) may no longer match", nc.Node.Name, len(affected)),
		File:           nc.Node.FilePath,
		Line:           nc.Node.LineStart,
		Hash:           nc.Node.Hash,
		NodeID:         nc.Node.ID,
		Confidence:     1.0,
		ResolutionTier: nc.Node.ResolutionTier,
		FixHint:        fixHintForCallers(nc.Node.Name, affected),
		Affected:       affected,
	}
	return v, nil
}

// CheckUnexportedReference implements E001 broken_caller for a cross-package
// reference to an unexported symbol (§4.3 Go scenario 4): the reference
// never resolves to a target node, so there is no callee-side signature to
// compare against — the call site itself is invalid the moment it's made.
// caller is the enclosing definition (or the module node, for a top-level
// call) that contains ref.
func (c *Checker) CheckUnexportedReference(ref parser.Reference, caller graph.Node) *graph.Violation {
	return &graph.Violation{
		Code:           "E001",
		Severity:       graph.SeverityError,
		Category:       "broken_caller",
		Message:        fmt.Sprintf("%s references an unexported symbol across packages", ref.CalleeExpression),
		File:           ref.FilePath,
		Line:           ref.Line,
		Hash:           caller.Hash,
		NodeID:         caller.ID,
		Confidence:     1.0,
		ResolutionTier: caller.ResolutionTier,
		FixHint:        "exported symbol required",
	}
}

// CheckMissingTypeHints implements E002: the node's language requires type
// annotations and any parameter or return lacks one.
func (c *Checker) CheckMissingTypeHints(n graph.Node) *graph.Violation {
	if n.Kind != graph.KindFunction || n.TypeHintsPresent {
		return nil
	}
	return &graph.Violation{
		Code:           "E002",
		Severity:       graph.SeverityError,
		Category:       "missing_type_hints",
		Message:        fmt.Sprintf("%s is missing parameter or return type annotations", n.Name),
		File:           n.FilePath,
		Line:           n.LineStart,
		Hash:           n.Hash,
		NodeID:         n.ID,
		Confidence:     1.0,
		ResolutionTier: n.ResolutionTier,
		FixHint:        fmt.Sprintf("add type annotations to %s at %s:%d", n.Name, n.FilePath, n.LineStart),
	}
}

// CheckMissingDocstring implements E003: a public node lacks a docstring.
func (c *Checker) CheckMissingDocstring(n graph.Node) *graph.Violation {
	if !n.IsPublic || n.HasDocstring {
		return nil
	}
	return &graph.Violation{
		Code:           "E003",
		Severity:       graph.SeverityError,
		Category:       "missing_docstring",
		Message:        fmt.Sprintf("%s is public but has no docstring", n.Name),
		File:           n.FilePath,
		Line:           n.LineStart,
		Hash:           n.Hash,
		NodeID:         n.ID,
		Confidence:     1.0,
		ResolutionTier: n.ResolutionTier,
		FixHint:        fmt.Sprintf("add a docstring to %s at %s:%d", n.Name, n.FilePath, n.LineStart),
	}
}

// CheckRemoved implements E004 function_removed: a node present in G_before
// is gone from the re-parsed set, and G_before has In edges that still
// reference it. The caller must snapshot removedEdges before the node's
// edges are deleted by the commit (§3 Lifecycle).
func (c *Checker) CheckRemoved(removed graph.Node, removedEdgesIn []graph.Edge) *graph.Violation {
	var affected []graph.AffectedRef
	for _, e := range removedEdgesIn {
		if e.Kind != graph.EdgeCalls {
			continue
		}
		affected = append(affected, graph.AffectedRef{Hash: e.SourceID, File: e.FilePath, Line: e.Line})
	}
	if len(affected) == 0 {
		return nil
	}
	return &graph.Violation{
		Code:           "E004",
		Severity:       graph.SeverityError,
		Category:       "function_removed",
		Message:        fmt.Sprintf("%s was removed but still has %d caller(s)", removed.Name, len(affected)),
		File:           removed.FilePath,
		Line:           removed.LineStart,
		Hash:           removed.Hash,
		NodeID:         removed.ID,
		Confidence:     1.0,
		ResolutionTier: removed.ResolutionTier,
		FixHint:        fixHintForCallers(removed.Name, affected),
		Affected:       affected,
	}
}

// CheckArity implements E005: the caller's argument count at a call site
// does not match the callee's declared parameter arity (after defaults and
// a trailing rest/variadic parameter).
func (c *Checker) CheckArity(ref parser.Reference, callee graph.Node) *graph.Violation {
	min, max, ok := ParamArity(callee.Signature)
	if !ok {
		return nil
	}
	if ref.ArgCount >= min && (max < 0 || ref.ArgCount <= max) {
		return nil
	}
	return &graph.Violation{
		Code:           "E005",
		Severity:       graph.SeverityError,
		Category:       "arity_mismatch",
		Message:        fmt.Sprintf("call to %s passes %d argument(s), expected %s", callee.Name, ref.ArgCount, arityDescription(min, max)),
		File:           ref.FilePath,
		Line:           ref.Line,
		Hash:           callee.Hash,
		NodeID:         callee.ID,
		Confidence:     1.0,
		ResolutionTier: callee.ResolutionTier,
		FixHint:        fmt.Sprintf("update the call at %s:%d to pass %s argument(s) matching %s", ref.FilePath, ref.Line, arityDescription(min, max), callee.Name),
		Affected:       []graph.AffectedRef{{Hash: callee.Hash, Name: callee.Name, File: callee.FilePath, Line: callee.LineStart}},
	}
}

// CheckPlacement implements W001: a new/moved function's name/keywords
// match a different module's profile better than its current module.
func (c *Checker) CheckPlacement(n graph.Node, currentProfile *graph.ModuleProfile, allProfiles []graph.ModuleProfile) *graph.Violation {
	if n.Kind != graph.KindFunction {
		return nil
	}
	currentScore := 0
	if currentProfile != nil {
		currentScore = scoreNameAgainstProfile(n.Name, *currentProfile)
	}

	best := currentProfile
	bestScore := currentScore
	for i := range allProfiles {
		p := allProfiles[i]
		if p.ModuleID == n.ModuleID {
			continue
		}
		s := scoreNameAgainstProfile(n.Name, p)
		if s > bestScore {
			bestScore = s
			best = &p
		}
	}
	if best == nil || best.ModuleID == n.ModuleID || bestScore <= currentScore {
		return nil
	}

	return &graph.Violation{
		Code:           "W001",
		Severity:       graph.SeverityWarn,
		Category:       "placement",
		Message:        fmt.Sprintf("%s reads like it belongs in module %s rather than %s", n.Name, best.ModuleID, n.ModuleID),
		File:           n.FilePath,
		Line:           n.LineStart,
		Hash:           n.Hash,
		NodeID:         n.ID,
		Confidence:     0.6,
		ResolutionTier: n.ResolutionTier,
		FixHint:        fmt.Sprintf("consider moving %s to %s", n.Name, best.ModuleID),
	}
}

// CheckDuplicateName implements W002: another node with the same name and
// kind exists in a different file and is not a re-export.
func (c *Checker) CheckDuplicateName(n graph.Node) (*graph.Violation, error) {
	others, err := c.Store.FindNodesByName(n.Name, n.Kind, n.FilePath)
	if err != nil {
		return nil, fmt.Errorf("check: W002 find duplicates: %w", err)
	}
	if len(others) == 0 {
		return nil, nil
	}
	var affected []graph.AffectedRef
	for _, o := range others {
		affected = append(affected, graph.AffectedRef{Hash: o.Hash, Name: o.Name, File: o.FilePath, Line: o.LineStart})
	}
	return &graph.Violation{
		Code:           "W002",
		Severity:       graph.SeverityWarn,
		Category:       "duplicate_name",
		Message:        fmt.Sprintf("%s is also declared in %d other file(s)", n.Name, len(others)),
		File:           n.FilePath,
		Line:           n.LineStart,
		Hash:           n.Hash,
		NodeID:         n.ID,
		Confidence:     0.8,
		ResolutionTier: n.ResolutionTier,
		FixHint:        fmt.Sprintf("rename one of the %d declarations of %s, or confirm the duplication is intentional", len(others)+1, n.Name),
		Affected:       affected,
	}, nil
}

func fixHintForCallers(name string, affected []graph.AffectedRef) string {
	var locs []string
	for i, a := range affected {
		if i >= 3 {
			locs = append(locs, fmt.Sprintf("and %d more", len(affected)-3))
			break
		}
		locs = append(locs, fmt.Sprintf("%s:%d", a.File, a.Line))
	}
	return fmt.Sprintf("update caller(s) of %s at %s", name, strings.Join(locs, ", "))
}

func arityDescription(min, max int) string {
	if max < 0 {
		return fmt.Sprintf("at least %d", min)
	}
	if min == max {
		return fmt.Sprintf("%d", min)
	}
	return fmt.Sprintf("%d-%d", min, max)
}

// scoreNameAgainstProfile is a small lexical heuristic: counts how many of a
// module's responsibility keywords / name prefixes appear as a substring of
// the candidate name.
func scoreNameAgainstProfile(name string, p graph.ModuleProfile) int {
	lower := strings.ToLower(name)
	score := 0
	for _, kw := range p.ResponsibilityKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			score++
		}
	}
	for _, pre := range p.NamePrefixes {
		if pre != "" && strings.HasPrefix(lower, strings.ToLower(pre)) {
			score += 2
		}
	}
	return score
}
