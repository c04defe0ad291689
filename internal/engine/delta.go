package engine

import (
	"sort"

	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/hash"
	"github.com/FryrAI/keel/internal/parser"
	"github.com/FryrAI/keel/internal/store"
)

// built is the fresh node set computed for one parsed file, keyed by the
// stable NodeID so the delta pass can diff it against what the store
// already has for that file.
type built struct {
	moduleID string
	nodes    map[string]graph.Node // NodeID -> Node
	defs     map[string]parser.Definition
}

// buildNodes computes every node a freshly parsed file implies, assigning
// each its content hash (§4.1) and stable NodeID (identity across hash
// changes, internal/hash.NodeID). Every file gets exactly one Module node;
// if the language's Tier 1 extractor didn't synthesize one (only Go's
// does, see lang_go.go syntheticModule), the engine synthesizes it here so
// downstream module-profile and placement logic is language-uniform.
func buildNodes(pf *parser.ParsedFile) built {
	b := built{nodes: make(map[string]graph.Node), defs: make(map[string]parser.Definition)}

	var moduleDef *parser.Definition
	for i := range pf.Defs {
		if pf.Defs[i].Kind == graph.KindModule {
			moduleDef = &pf.Defs[i]
			break
		}
	}
	if moduleDef == nil {
		synthetic := parser.Definition{
			Kind:      graph.KindModule,
			Name:      pf.Path,
			Signature: "module " + pf.Path,
			FilePath:  pf.Path,
			IsPublic:  true,
		}
		moduleDef = &synthetic
	}

	moduleID := hash.NodeID(string(graph.KindModule), pf.Path, "", moduleDef.Name)
	b.moduleID = moduleID

	for _, d := range pf.Defs {
		kind := d.Kind
		name := d.Name
		if kind == graph.KindModule {
			name = moduleDef.Name
		}
		nodeID := hash.NodeID(string(kind), d.FilePath, d.Parent, name)
		h := hash.Hash(hash.Input{CanonicalSignature: d.Signature, NormalizedBody: d.Body, Docstring: d.Docstring})

		n := graph.Node{
			ID:                nodeID,
			Hash:              h,
			Kind:              kind,
			Name:              name,
			Signature:         d.Signature,
			FilePath:          d.FilePath,
			LineStart:         d.LineStart,
			LineEnd:           d.LineEnd,
			Docstring:         d.Docstring,
			IsPublic:          d.IsPublic,
			TypeHintsPresent:  d.TypeHintsPresent,
			HasDocstring:      d.HasDocstring,
			ResolutionTier:    graph.TierAST,
			ExternalEndpoints: d.Endpoints,
		}
		if kind != graph.KindModule {
			n.ModuleID = moduleID
		}
		b.nodes[nodeID] = n
		b.defs[nodeID] = d
	}

	if _, ok := b.nodes[moduleID]; !ok {
		h := hash.Hash(hash.Input{CanonicalSignature: moduleDef.Signature, NormalizedBody: moduleChildSummary(b.nodes)})
		b.nodes[moduleID] = graph.Node{
			ID: moduleID, Hash: h, Kind: graph.KindModule, Name: moduleDef.Name,
			Signature: moduleDef.Signature, FilePath: pf.Path, IsPublic: true,
			ResolutionTier: graph.TierAST,
		}
	}
	return b
}

// moduleChildSummary folds every child node's stable NodeID into the
// module's hash input, so the module node's hash changes whenever its
// membership changes (a function added/removed), without needing its own
// body/signature text.
func moduleChildSummary(nodes map[string]graph.Node) string {
	ids := make([]string, 0, len(nodes))
	for id, n := range nodes {
		if n.Kind != graph.KindModule {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := ""
	for _, id := range ids {
		out += id + ","
	}
	return out
}

// diffNodes compares a file's previously stored nodes against its freshly
// built set and produces the Added | Updated | Moved | Removed delta (§4.6
// step 6). Updated means the hash changed; Moved means the hash is stable but
// the line range changed. A node whose hash and line range are both unchanged
// is emitted as Added, a no-op upsert of the same values.
func diffNodes(existing []graph.Node, fresh built) (changes []store.NodeChange, removed []graph.Node) {
	existingByID := make(map[string]graph.Node, len(existing))
	for _, n := range existing {
		existingByID[n.ID] = n
	}

	for id, n := range fresh.nodes {
		old, ok := existingByID[id]
		switch {
		case !ok:
			changes = append(changes, store.NodeChange{Kind: store.ChangeAdded, Node: n})
		case old.Hash != n.Hash:
			changes = append(changes, store.NodeChange{Kind: store.ChangeUpdated, Node: n, OldHash: old.Hash})
		case old.LineStart != n.LineStart || old.LineEnd != n.LineEnd:
			changes = append(changes, store.NodeChange{Kind: store.ChangeMoved, Node: n})
		default:
			changes = append(changes, store.NodeChange{Kind: store.ChangeAdded, Node: n}) // no-op upsert, same values
		}
	}
	for id, old := range existingByID {
		if _, ok := fresh.nodes[id]; !ok {
			removed = append(removed, old)
		}
	}
	return changes, removed
}

// computeModuleProfile builds a module's placement/naming summary from its
// current child node set (§3 ModuleProfile, used by W001 and `naming`).
func computeModuleProfile(moduleID, filePath string, children []graph.Node) graph.ModuleProfile {
	p := graph.ModuleProfile{ModuleID: moduleID}
	seenPrefix := map[string]bool{}
	seenKeyword := map[string]bool{}
	for _, n := range children {
		switch n.Kind {
		case graph.KindFunction:
			p.FunctionCount++
			if pre := namePrefix(n.Name); pre != "" && !seenPrefix[pre] {
				seenPrefix[pre] = true
				p.NamePrefixes = append(p.NamePrefixes, pre)
			}
			for _, kw := range splitWords(n.Name) {
				if !seenKeyword[kw] {
					seenKeyword[kw] = true
					p.ResponsibilityKeywords = append(p.ResponsibilityKeywords, kw)
				}
			}
		case graph.KindClass:
			p.ClassCount++
			p.PrimaryTypes = append(p.PrimaryTypes, n.Name)
		}
		p.LineCount += n.LineEnd - n.LineStart
	}
	return p
}

func namePrefix(name string) string {
	for i, r := range name {
		if r == '_' {
			return name[:i]
		}
		if i > 0 && r >= 'A' && r <= 'Z' {
			return name[:i]
		}
	}
	return ""
}

func splitWords(name string) []string {
	var words []string
	start := 0
	for i := 1; i < len(name); i++ {
		if name[i] == '_' || (name[i] >= 'A' && name[i] <= 'Z' && name[i-1] >= 'a' && name[i-1] <= 'z') {
			if i > start {
				words = append(words, lower(name[start:i]))
			}
			start = i
			if name[i] == '_' {
				start = i + 1
			}
		}
	}
	if start < len(name) {
		words = append(words, lower(name[start:]))
	}
	return words
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
