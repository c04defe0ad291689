package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FryrAI/keel/internal/graph"
)

func openTestStore(t *testing.T) *GraphStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestApplyAndGetNode(t *testing.T) {
	s := openTestStore(t)

	mod := graph.Node{ID: "mod:a.go", Hash: "M0000000001", Kind: graph.KindModule, Name: "a.go", FilePath: "a.go"}
	fn := graph.Node{ID: "fn:login", Hash: "H0000000001", Kind: graph.KindFunction, Name: "login", FilePath: "a.go", ModuleID: mod.ID}

	err := s.Apply([]NodeChange{
		{Kind: ChangeAdded, Node: fn},
		{Kind: ChangeAdded, Node: mod},
	}, nil)
	require.NoError(t, err)

	got, renamed, err := s.GetNode("H0000000001")
	require.NoError(t, err)
	require.False(t, renamed)
	require.Equal(t, "login", got.Name)
}

func TestRenameTrackingViaPreviousHashes(t *testing.T) {
	s := openTestStore(t)

	fn := graph.Node{ID: "fn:login", Hash: "OLD0000001", Kind: graph.KindFunction, Name: "login", FilePath: "a.go"}
	require.NoError(t, s.Apply([]NodeChange{{Kind: ChangeAdded, Node: fn}}, nil))

	updated := fn
	updated.Hash = "NEW0000001"
	require.NoError(t, s.Apply([]NodeChange{{Kind: ChangeUpdated, Node: updated, OldHash: "OLD0000001"}}, nil))

	got, renamed, err := s.GetNode("OLD0000001")
	require.NoError(t, err)
	require.True(t, renamed)
	require.Equal(t, "NEW0000001", got.Hash)

	hashes, err := s.PreviousHashes(fn.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"OLD0000001"}, hashes)
}

func TestPreviousHashesCapped(t *testing.T) {
	s := openTestStore(t)
	fn := graph.Node{ID: "fn:x", Hash: "H0", Kind: graph.KindFunction, Name: "x", FilePath: "a.go"}
	require.NoError(t, s.Apply([]NodeChange{{Kind: ChangeAdded, Node: fn}}, nil))

	hashes := []string{"H0", "H1", "H2", "H3", "H4"}
	for i := 1; i < len(hashes); i++ {
		updated := fn
		updated.Hash = hashes[i]
		require.NoError(t, s.Apply([]NodeChange{{Kind: ChangeUpdated, Node: updated, OldHash: hashes[i-1]}}, nil))
	}

	got, err := s.PreviousHashes(fn.ID)
	require.NoError(t, err)
	require.Len(t, got, graph.MaxPreviousHashes)
}

func TestEdgesDirection(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Apply(nil, []EdgeChange{
		{Kind: ChangeAdded, Edge: graph.Edge{SourceID: "a", TargetID: "b", Kind: graph.EdgeCalls, FilePath: "a.go", Line: 1, Confidence: 0.9}},
	}))

	out, err := s.Edges("a", DirectionOut)
	require.NoError(t, err)
	require.Len(t, out, 1)

	in, err := s.Edges("b", DirectionIn)
	require.NoError(t, err)
	require.Len(t, in, 1)
}

func TestDiffSnapshotBuckets(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.WriteSnapshot("run1", []graph.Violation{
		{Hash: "H1", Code: "E002"},
		{Hash: "H2", Code: "E003"},
	}, 1000))

	buckets, err := s.DiffSnapshot("run1", []graph.Violation{
		{Hash: "H1", Code: "E002"},
		{Hash: "H3", Code: "E001"},
	})
	require.NoError(t, err)
	require.Len(t, buckets[DeltaPreExisting], 1)
	require.Len(t, buckets[DeltaNew], 1)
	require.Len(t, buckets[DeltaFixed], 1)
}
