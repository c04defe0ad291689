package enhance

import (
	"strings"

	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/parser"
)

// RustEnhancer resolves Rust references using tree-sitter heuristics alone
// (§4.4 "Rust"): mod/use resolution (glob, alias, self, super, crate), impl
// blocks and inherent methods, derive/attribute macros recorded as reference
// records without expansion, and generic-bound method resolution at a
// lowered confidence band. Supertrait expansion is left to internal/discover
// (see resolveInherit). Visibility is not checked: a call may resolve to a
// private item in another module. No deep analyzer exists; the
// `rust_deep_analyzer` config flag is not read here.
type RustEnhancer struct{}

func (e *RustEnhancer) Language() parser.Language { return parser.LangRust }

const (
	ConfidenceRustDirectUse       = 0.90
	ConfidenceRustGlobUse         = 0.70
	ConfidenceRustInherentMethod  = 0.85
	ConfidenceRustSupertrait      = 0.78
	ConfidenceRustGenericBoundLow = 0.65
	ConfidenceRustGenericBoundHigh = 0.80
	ConfidenceRustAttributeMacro  = 1.0 // recorded, not resolved as a call
)

func (e *RustEnhancer) Enhance(pf *parser.ParsedFile, idx *Index) []Resolved {
	var out []Resolved

	localToFile, globFiles := rustResolveUses(pf, idx)

	for _, ref := range pf.Refs {
		switch ref.Kind {
		case parser.RefCall:
			out = append(out, e.resolveCall(pf, idx, ref, localToFile, globFiles))
		case parser.RefInherit:
			out = append(out, e.resolveInherit(idx, ref))
		}
	}

	return out
}

func (e *RustEnhancer) resolveCall(pf *parser.ParsedFile, idx *Index, ref parser.Reference, localToFile map[string]string, globFiles []string) Resolved {
	expr := ref.CalleeExpression

	// `#[derive(...)]` / attribute macro bodies surfaced as RefInherit, not
	// RefCall, so any RefCall reaching here is a genuine call or method
	// invocation expression.
	if strings.Contains(expr, "::") {
		// Path-qualified call (`crate::foo::bar`, `Type::method`, or a
		// trait/inherent associated function): strip the path prefix and
		// look the tail up in-workspace.
		parts := strings.Split(expr, "::")
		ident := parts[len(parts)-1]
		ident = strings.TrimSuffix(ident, "()")

		if targetFile, ok := localToFile[parts[0]]; ok {
			def := findDefByName(idx.InFile(targetFile), ident)
			edge := graph.Edge{Kind: graph.EdgeCalls, FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceRustDirectUse}
			if def != nil {
				edge.TargetID = def.NodeID
				return Resolved{Edge: edge}
			}
		}

		// Inherent/trait method on a type resolvable in-workspace
		// (`Type::new`): the first definition with that name anywhere in
		// the Index wins; `use` bindings are not consulted for it.
		if candidates := idx.ByName(ident); len(candidates) > 0 {
			return Resolved{Edge: graph.Edge{
				Kind: graph.EdgeCalls, TargetID: candidates[0].NodeID,
				FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceRustInherentMethod,
			}}
		}
		return e.viaGlob(ref, ident, idx, globFiles)
	}

	if strings.Contains(expr, ".") {
		// Method call on a receiver expression (`x.method()`): structural
		// resolution can't track the receiver's concrete type without type
		// inference (§1 Non-goals), so this is generic-bound dispatch -
		// resolved by name alone at the lowered confidence band.
		method := lastIdentifier(strings.TrimSuffix(expr, "()"))
		candidates := idx.ByName(method)
		edge := graph.Edge{Kind: graph.EdgeCalls, FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceRustGenericBoundLow}
		if len(candidates) == 1 {
			// A unique name in the workspace raises confidence into the
			// upper half of the generic-bound band (§4.4: "0.65-0.80").
			edge.Confidence = ConfidenceRustGenericBoundHigh
			edge.TargetID = candidates[0].NodeID
		} else if len(candidates) > 1 {
			edge.TargetID = candidates[0].NodeID
		}
		return Resolved{Edge: edge, Annotation: "generic-bound method resolution"}
	}

	// Bare identifier call: same-file, then local `use` binding, then glob.
	if def := findDefByName(idx.InFile(pf.Path), expr); def != nil {
		return Resolved{Edge: graph.Edge{
			Kind: graph.EdgeCalls, TargetID: def.NodeID,
			FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceRustDirectUse,
		}}
	}
	if targetFile, ok := localToFile[expr]; ok {
		def := findDefByName(idx.InFile(targetFile), expr)
		edge := graph.Edge{Kind: graph.EdgeCalls, FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceRustDirectUse}
		if def != nil {
			edge.TargetID = def.NodeID
		}
		return Resolved{Edge: edge}
	}
	return e.viaGlob(ref, expr, idx, globFiles)
}

func (e *RustEnhancer) viaGlob(ref parser.Reference, ident string, idx *Index, globFiles []string) Resolved {
	for _, f := range globFiles {
		if def := findDefByName(idx.InFile(f), ident); def != nil {
			return Resolved{Edge: graph.Edge{
				Kind: graph.EdgeCalls, TargetID: def.NodeID,
				FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceRustGlobUse,
			}}
		}
	}
	return unresolvedCall(ref)
}

func (e *RustEnhancer) resolveInherit(idx *Index, ref parser.Reference) Resolved {
	if strings.HasPrefix(ref.CalleeExpression, "#[") {
		// derive/attribute macro: recorded as a reference, never expanded
		// (§4.4 "derive/attribute macros as reference records").
		return Resolved{
			Edge:       graph.Edge{Kind: graph.EdgeInherits, FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceRustAttributeMacro},
			Annotation: "attribute macro",
		}
	}

	// `impl Trait for Type` -> Inherits edge to the trait definition; a
	// trait's own supertrait bounds (`trait Sub: Super`) are expanded by
	// internal/discover's bounded transitive-closure walk over these edges
	// (§9 "Deep inheritance/supertraits"), not flattened here at parse time.
	trait := rustBaseIdentifier(ref.CalleeExpression)
	candidates := idx.ByName(trait)
	edge := graph.Edge{Kind: graph.EdgeInherits, FilePath: ref.FilePath, Line: ref.Line, Confidence: ConfidenceRustSupertrait}
	if len(candidates) > 0 {
		edge.TargetID = candidates[0].NodeID
	}
	return Resolved{Edge: edge}
}

// rustResolveUses builds the local-binding map and glob-import candidate
// file list from a file's `use` statements (§4.4: glob, alias, self, super,
// crate all handled by the heuristic resolver).
func rustResolveUses(pf *parser.ParsedFile, idx *Index) (map[string]string, []string) {
	localToFile := map[string]string{}
	var globFiles []string

	for _, imp := range pf.Imports {
		spec := imp.Source
		if spec == "" {
			continue
		}
		targetFile := rustResolveModPath(pf.Path, spec, idx)
		if targetFile == "" {
			continue
		}
		if imp.Kind == parser.ImportStar {
			globFiles = append(globFiles, targetFile)
			continue
		}
		local := imp.Alias
		if local == "" {
			local = rustBaseIdentifier(spec)
		}
		localToFile[local] = targetFile
	}
	return localToFile, globFiles
}

// rustResolveModPath maps a `use` path (`crate::foo::bar`, `super::baz`,
// `self::qux`) to a candidate in-workspace file, by dropping one leading
// crate::/self::/super:: prefix and matching the first remaining segment as
// `<seg>.rs` or `<seg>/mod.rs` in the importing file's own directory against
// files already known to the Index - a heuristic
// stand-in for full crate-root-relative module resolution, consistent with
// §4.4's "heuristics alone" characterization of the non-deep Rust resolver.
func rustResolveModPath(fromFile, spec string, idx *Index) string {
	spec = strings.TrimPrefix(spec, "crate::")
	spec = strings.TrimPrefix(spec, "self::")
	spec = strings.TrimPrefix(spec, "super::")
	segments := strings.Split(spec, "::")
	if len(segments) == 0 {
		return ""
	}
	modName := segments[0]
	dir := dirOf(fromFile)
	for _, candidate := range []string{
		dir + "/" + modName + ".rs",
		dir + "/" + modName + "/mod.rs",
	} {
		if _, ok := idx.files[candidate]; ok {
			return candidate
		}
	}
	return ""
}

// rustBaseIdentifier returns the last path segment of a `::`-qualified
// expression, stripped of an `as` alias and any generic argument list.
func rustBaseIdentifier(expr string) string {
	expr = strings.TrimSpace(expr)
	if idx := strings.Index(expr, " as "); idx >= 0 {
		expr = expr[:idx]
	}
	if idx := strings.IndexByte(expr, '<'); idx >= 0 {
		expr = expr[:idx]
	}
	parts := strings.Split(expr, "::")
	return parts[len(parts)-1]
}
