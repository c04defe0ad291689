// Package enhance implements keel's Tier 2 per-language enhancers (§4.4):
// cross-file resolvers that turn each unresolved parser.Reference into a
// graph.Edge with a resolved target and confidence, or leave it unresolved
// (an Edge with an empty TargetID). Enhancers never invent a target.
package enhance

import (
	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/parser"
)

// Resolved is the outcome of attempting to resolve one parser.Reference.
type Resolved struct {
	Edge       graph.Edge
	Annotation string // e.g. "interface dispatch", set for dynamic-dispatch edges
}

// Enhancer resolves references within files of one language against the
// workspace-wide Index built from every currently-parsed file.
type Enhancer interface {
	Language() parser.Language
	Enhance(pf *parser.ParsedFile, idx *Index) []Resolved
}

// UnresolvedConfidence is the confidence assigned to a reference an enhancer
// could not resolve at all. The Resolved entry carries a Calls edge with an
// empty TargetID; the engine tries its store fallback on it and does not
// persist it if that also finds no target. An unresolved reference produces
// no warning of its own.
const UnresolvedConfidence = 0.0

// ForLanguage returns the enhancer for a parsed file's language, or nil if
// the language has no Tier 2 enhancer (never happens for the four supported
// languages, but kept total for defensiveness at call sites).
func ForLanguage(lang parser.Language) Enhancer {
	switch lang {
	case parser.LangTypeScript, parser.LangJavaScript:
		return &TSEnhancer{}
	case parser.LangPython:
		return NewPythonEnhancer()
	case parser.LangGo:
		return &GoEnhancer{}
	case parser.LangRust:
		return &RustEnhancer{}
	default:
		return nil
	}
}
