package engine

import (
	"github.com/FryrAI/keel/internal/enhance"
	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/parser"
)

// storeFallbackConfidence is used when a reference is resolved against the
// persisted graph rather than the current compile's in-memory Index: it is
// one indexed FindNodesByName query per unresolved reference (§4.2
// performance envelope still holds - this runs only for references the
// in-memory Index could not already satisfy, not for every reference).
const storeFallbackConfidence = 0.5

// resolveWithStoreFallback fills in TargetID for call edges the per-file
// Index left unresolved (a call into a file untouched by this compile) by
// querying the GraphStore by the reference's bare identifier, at reduced
// confidence since the candidate was not disambiguated against the
// caller's actual imports the way the in-memory Index resolution is.
// Resolved entries are correlated back to their source parser.Reference by
// (file, line), which every enhancer sets verbatim from ref.FilePath/ref.Line.
func (e *Engine) resolveWithStoreFallback(refs []parser.Reference, resolved []enhance.Resolved) ([]enhance.Resolved, error) {
	type locKey struct {
		file string
		line int
	}
	byLoc := make(map[locKey]parser.Reference, len(refs))
	for _, r := range refs {
		if r.Kind == parser.RefCall {
			byLoc[locKey{r.FilePath, r.Line}] = r
		}
	}

	for i := range resolved {
		if resolved[i].Edge.TargetID != "" || resolved[i].Edge.Kind != graph.EdgeCalls {
			continue
		}
		ref, ok := byLoc[locKey{resolved[i].Edge.FilePath, resolved[i].Edge.Line}]
		if !ok {
			continue
		}
		ident := bareIdentifier(ref.CalleeExpression)
		if ident == "" {
			continue
		}
		candidates, err := e.Store.FindNodesByName(ident, graph.KindFunction, "")
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			continue
		}
		resolved[i].Edge.TargetID = candidates[0].ID
		resolved[i].Edge.Confidence = storeFallbackConfidence
	}
	return resolved, nil
}

// bareIdentifier strips a qualifier (pkg.Func, obj.method, Type::func) down
// to the trailing identifier, for a name-only store lookup.
func bareIdentifier(expr string) string {
	cut := -1
	for i := len(expr) - 1; i >= 0; i-- {
		if expr[i] == '.' || expr[i] == ':' {
			cut = i
			break
		}
	}
	if cut >= 0 {
		expr = expr[cut+1:]
	}
	for len(expr) > 0 && expr[0] == ':' {
		expr = expr[1:]
	}
	return expr
}
