// Package discover implements keel's adjacency traversal (`discover`, `where`,
// `search`): resolving a hash/name/file-path selector to a node and walking
// its caller/callee edges to a bounded depth, with previous_hashes rename
// fallback and optional source-snippet context.
package discover

import (
	"fmt"
	"strings"

	"github.com/FryrAI/keel/internal/graph"
	"github.com/FryrAI/keel/internal/store"
)

// MaxDepth bounds adjacency traversal (§4.6 fan-out reasoning applies here
// too: unbounded BFS over a dense call graph is an O(N) walk per invocation).
const MaxDepth = 3

// Adjacent is one node reached while walking callers or callees, tagged with
// the edge that reached it and how many hops away it is.
type Adjacent struct {
	Node  graph.Node
	Edge  graph.Edge
	Depth int
}

// Result is the full answer to a `discover` query.
type Result struct {
	Node          graph.Node
	Renamed       bool // selector matched via previous_hashes, not the current hash
	Callers       []Adjacent
	Callees       []Adjacent
	ModuleContext *graph.ModuleProfile
	Snippet       []string // populated only when context lines are requested
}

// Resolve maps a selector to a node: first as a content hash (with
// previous_hashes rename fallback via GetNode), then as a bare name, then as
// a file path (its Module node).
func Resolve(s *store.GraphStore, selector string) (*graph.Node, bool, error) {
	if n, renamed, err := s.GetNode(selector); err != nil {
		return nil, false, err
	} else if n != nil {
		return n, renamed, nil
	}

	byName, err := s.FindNodesByName(selector, "", "")
	if err != nil {
		return nil, false, err
	}
	if len(byName) > 0 {
		return &byName[0], false, nil
	}

	byFile, err := s.NodesByFile(selector)
	if err != nil {
		return nil, false, err
	}
	for i := range byFile {
		if byFile[i].Kind == graph.KindModule {
			return &byFile[i], false, nil
		}
	}
	if len(byFile) > 0 {
		return &byFile[0], false, nil
	}

	return nil, false, fmt.Errorf("discover: no node matches %q", selector)
}

// Discover resolves selector and walks its adjacency to depth (clamped to
// [0, MaxDepth]).
func Discover(s *store.GraphStore, selector string, depth int) (*Result, error) {
	n, renamed, err := Resolve(s, selector)
	if err != nil {
		return nil, err
	}
	return Adjacency(s, n, renamed, depth)
}

// ResolveByName resolves selector as a bare name only, skipping the hash and
// file-path lookups Resolve otherwise tries first (the `discover --name`
// flag's contract: the caller already knows the selector is a name, not a
// hash that happens to collide with one).
func ResolveByName(s *store.GraphStore, name string) (*graph.Node, error) {
	nodes, err := s.FindNodesByName(name, "", "")
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("discover: no node named %q", name)
	}
	return &nodes[0], nil
}

// Adjacency walks n's callers/callees to depth (clamped to [0, MaxDepth])
// and attaches its module context, given an already-resolved node.
func Adjacency(s *store.GraphStore, n *graph.Node, renamed bool, depth int) (*Result, error) {
	if depth < 0 {
		depth = 0
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}

	res := &Result{Node: *n, Renamed: renamed}
	var err error
	res.Callers, err = walk(s, n.ID, store.DirectionIn, depth)
	if err != nil {
		return nil, err
	}
	res.Callees, err = walk(s, n.ID, store.DirectionOut, depth)
	if err != nil {
		return nil, err
	}

	if n.ModuleID != "" {
		profile, err := s.GetModuleProfile(n.ModuleID)
		if err != nil {
			return nil, err
		}
		res.ModuleContext = profile
	}
	return res, nil
}

// WithContext attaches a source snippet of contextLines before and after the
// node's declaration, read from content the caller already has on disk
// (discover never opens files itself beyond what its caller supplies).
func WithContext(res *Result, fullFileContent []byte, contextLines int) {
	if contextLines <= 0 {
		return
	}
	lines := strings.Split(string(fullFileContent), "\n")
	start := res.Node.LineStart - 1 - contextLines
	if start < 0 {
		start = 0
	}
	end := res.Node.LineEnd + contextLines
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return
	}
	res.Snippet = lines[start:end]
}

// walk performs a breadth-first adjacency traversal up to depth hops,
// visiting each node at most once (a node reachable by two paths keeps its
// first, shallowest Adjacent entry).
func walk(s *store.GraphStore, rootID string, dir store.EdgeDirection, depth int) ([]Adjacent, error) {
	if depth == 0 {
		return nil, nil
	}

	visited := map[string]bool{rootID: true}
	frontier := []string{rootID}
	var out []Adjacent

	for hop := 1; hop <= depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			edges, err := s.Edges(id, dir)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				otherID := e.TargetID
				if dir == store.DirectionIn {
					otherID = e.SourceID
				}
				if visited[otherID] {
					continue
				}
				visited[otherID] = true

				other, err := s.GetNodeByID(otherID)
				if err != nil || other == nil {
					continue
				}
				out = append(out, Adjacent{Node: *other, Edge: e, Depth: hop})
				next = append(next, otherID)
			}
		}
		frontier = next
	}
	return out, nil
}

// Search performs a graph-wide name search: exact matches first, then a
// substring fallback over every node name if exact matching found nothing,
// capped at limit results (`search --limit N`).
func Search(s *store.GraphStore, term string, limit int) ([]graph.Node, error) {
	exact, err := s.FindNodesByName(term, "", "")
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return capNodes(exact, limit), nil
	}

	all, err := s.AllNodes()
	if err != nil {
		return nil, err
	}
	var matched []graph.Node
	lowerTerm := strings.ToLower(term)
	for _, n := range all {
		if strings.Contains(strings.ToLower(n.Name), lowerTerm) {
			matched = append(matched, n)
			if limit > 0 && len(matched) >= limit {
				break
			}
		}
	}
	return matched, nil
}

func capNodes(nodes []graph.Node, limit int) []graph.Node {
	if limit > 0 && len(nodes) > limit {
		return nodes[:limit]
	}
	return nodes
}
