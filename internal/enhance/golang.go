package enhance

import (
	"strings"

	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/parser"
)

// GoEnhancer resolves Go references using tree-sitter heuristics alone
// (§4.4 "Go"): import-alias lookup for qualified calls, exported-vs-unexported
// enforcement, interface-dispatch and struct-embedding confidence bands. It
// builds no package index from go.mod: a qualified call whose qualifier is an
// import alias resolves to the first definition with that name anywhere in
// the Index, without checking which package declares it.
type GoEnhancer struct{}

func (e *GoEnhancer) Language() parser.Language { return parser.LangGo }

const (
	ConfidenceGoDirectPackage    = 0.92
	ConfidenceGoInterfaceDispatch = 0.55
	ConfidenceGoEmbeddedPromoted  = 0.75
)

func (e *GoEnhancer) Enhance(pf *parser.ParsedFile, idx *Index) []Resolved {
	var out []Resolved

	aliasToPkg := map[string]string{}
	for _, imp := range pf.Imports {
		pkgName := imp.Source
		if slash := strings.LastIndexByte(pkgName, '/'); slash >= 0 {
			pkgName = pkgName[slash+1:]
		}
		alias := imp.Alias
		if alias == "" {
			alias = pkgName
		}
		aliasToPkg[alias] = imp.Source
	}

	for _, ref := range pf.Refs {
		if ref.Kind != parser.RefCall {
			continue
		}
		qualifier, ident, qualified := splitQualified(ref.CalleeExpression)
		if !qualified {
			// Unqualified call: resolve within the same file/package only.
			def := findDefByName(idx.InFile(pf.Path), ident)
			if def == nil {
				for _, cand := range idx.ByName(ident) {
					if dirOf(cand.FilePath) == dirOf(pf.Path) {
						c := cand
						def = &c
						break
					}
				}
			}
			edge := graph.Edge{Kind: graph.EdgeCalls, FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceGoDirectPackage}
			if def != nil {
				edge.TargetID = def.NodeID
				out = append(out, Resolved{Edge: edge})
			} else {
				out = append(out, unresolvedCall(ref))
			}
			continue
		}

		if _, isPkg := aliasToPkg[qualifier]; !isPkg {
			// Not a package alias - likely a receiver variable; treat as
			// potential interface dispatch (dynamic dispatch gating, §9):
			// always a low-confidence edge, never elided.
			candidates := idx.ByName(ident)
			edge := graph.Edge{Kind: graph.EdgeCalls, FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceGoInterfaceDispatch}
			if len(candidates) > 0 {
				edge.TargetID = candidates[0].NodeID
			}
			out = append(out, Resolved{Edge: edge, Annotation: "interface dispatch"})
			continue
		}

		if !isExportedGo(ident) {
			// Cross-package unexported reference: flagged, not resolved
			// (§4.3 scenario: "E001 broken_caller ... exported symbol
			// required"). engine.runAnnotatedChecks reads this annotation
			// off the Resolved entry and turns it into an E001 through
			// check.Checker.CheckUnexportedReference.
			out = append(out, Resolved{
				Edge:       graph.Edge{Kind: graph.EdgeCalls, FilePath: ref.FilePath, Line: ref.Line, Confidence: UnresolvedConfidence},
				Annotation: "unexported cross-package reference",
			})
			continue
		}

		candidates := idx.ByName(ident)
		edge := graph.Edge{Kind: graph.EdgeCalls, FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceGoDirectPackage}
		if len(candidates) > 0 {
			edge.TargetID = candidates[0].NodeID
		}
		out = append(out, Resolved{Edge: edge})
	}

	for _, ref := range pf.Refs {
		if ref.Kind != parser.RefInherit {
			continue
		}
		// Embedded struct field: promoted-method resolution at 0.75 (§4.4).
		candidates := idx.ByName(ref.CalleeExpression)
		edge := graph.Edge{Kind: graph.EdgeInherits, FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceGoEmbeddedPromoted}
		if len(candidates) > 0 {
			edge.TargetID = candidates[0].NodeID
		}
		out = append(out, Resolved{Edge: edge})
	}

	return out
}

func splitQualified(expr string) (qualifier, ident string, ok bool) {
	dot := strings.IndexByte(expr, '.')
	if dot < 0 {
		return "", expr, false
	}
	return expr[:dot], expr[dot+1:], true
}

func isExportedGo(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}
