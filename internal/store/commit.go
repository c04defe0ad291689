package store

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/FryrAI/keel/internal/graph"
)

// NodeChange describes one node-level mutation produced by the engine's
// delta computation (§4.6 step 6: Added | Updated | Removed | Moved).
type NodeChange struct {
	Kind    ChangeKind
	Node    graph.Node
	OldHash string // set for Updated, used to push previous_hashes
}

// EdgeChange describes one edge-level mutation. Stale edges for re-parsed
// files are deleted before insertion (§3 Lifecycle).
type EdgeChange struct {
	Kind ChangeKind
	Edge graph.Edge
}

// ChangeKind enumerates the delta states from §4.6 step 6.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeRemoved ChangeKind = "removed"
	ChangeMoved   ChangeKind = "moved"
)

// Apply commits a batch of node and edge changes atomically: either the
// whole batch lands or none does (§4.2). Module nodes are sorted before
// their children to satisfy the foreign-key invariant that a node's Contains
// parent exists at commit time (§3).
func (s *GraphStore) Apply(nodeChanges []NodeChange, edgeChanges []EdgeChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sortModulesFirst(nodeChanges)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	for _, nc := range nodeChanges {
		if err := applyNodeChange(tx, nc); err != nil {
			return fmt.Errorf("store: apply node %s: %w", nc.Node.ID, err)
		}
	}

	// Stale edges for files in the re-parsed set are deleted before
	// insertion (§3 Lifecycle) - callers are expected to have already issued
	// ChangeRemoved entries for the previous edge set of each touched file;
	// this loop just executes them in file-then-insert order.
	for _, ec := range edgeChanges {
		if ec.Kind != ChangeRemoved {
			continue
		}
		if err := deleteEdge(tx, ec.Edge); err != nil {
			return fmt.Errorf("store: delete edge: %w", err)
		}
	}
	for _, ec := range edgeChanges {
		if ec.Kind == ChangeRemoved {
			continue
		}
		if err := insertEdge(tx, ec.Edge); err != nil {
			return fmt.Errorf("store: insert edge: %w", err)
		}
	}

	return tx.Commit()
}

func sortModulesFirst(changes []NodeChange) {
	sort.SliceStable(changes, func(i, j int) bool {
		iMod := changes[i].Node.Kind == graph.KindModule
		jMod := changes[j].Node.Kind == graph.KindModule
		if iMod == jMod {
			return false
		}
		return iMod
	})
}

func applyNodeChange(tx *sql.Tx, nc NodeChange) error {
	switch nc.Kind {
	case ChangeRemoved:
		_, err := tx.Exec(`DELETE FROM nodes WHERE id = ?`, nc.Node.ID)
		return err

	case ChangeUpdated:
		if nc.OldHash != "" && nc.OldHash != nc.Node.Hash {
			if err := pushPreviousHash(tx, nc.Node.ID, nc.OldHash); err != nil {
				return err
			}
		}
		fallthrough
	case ChangeAdded, ChangeMoved:
		_, err := tx.Exec(`INSERT INTO nodes
			(id, hash, kind, name, signature, file_path, line_start, line_end,
			 docstring, is_public, type_hints_present, has_docstring, module_id, resolution_tier)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET
				hash=excluded.hash, kind=excluded.kind, name=excluded.name,
				signature=excluded.signature, file_path=excluded.file_path,
				line_start=excluded.line_start, line_end=excluded.line_end,
				docstring=excluded.docstring, is_public=excluded.is_public,
				type_hints_present=excluded.type_hints_present,
				has_docstring=excluded.has_docstring, module_id=excluded.module_id,
				resolution_tier=excluded.resolution_tier`,
			nc.Node.ID, nc.Node.Hash, string(nc.Node.Kind), nc.Node.Name, nc.Node.Signature,
			nc.Node.FilePath, nc.Node.LineStart, nc.Node.LineEnd, nc.Node.Docstring,
			nc.Node.IsPublic, nc.Node.TypeHintsPresent, nc.Node.HasDocstring, nc.Node.ModuleID,
			string(nc.Node.ResolutionTier))
		return err
	}
	return fmt.Errorf("unknown change kind %q", nc.Kind)
}

func pushPreviousHash(tx *sql.Tx, nodeID, oldHash string) error {
	rows, err := tx.Query(`SELECT hash FROM previous_hashes WHERE node_id = ? ORDER BY rank ASC`, nodeID)
	if err != nil {
		return err
	}
	var existing []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, h)
	}
	rows.Close()

	updated := append([]string{oldHash}, existing...)
	if len(updated) > graph.MaxPreviousHashes {
		updated = updated[:graph.MaxPreviousHashes]
	}

	if _, err := tx.Exec(`DELETE FROM previous_hashes WHERE node_id = ?`, nodeID); err != nil {
		return err
	}
	for rank, h := range updated {
		if _, err := tx.Exec(`INSERT INTO previous_hashes(node_id, hash, rank) VALUES (?,?,?)`, nodeID, h, rank); err != nil {
			return err
		}
	}
	return nil
}

func insertEdge(tx *sql.Tx, e graph.Edge) error {
	_, err := tx.Exec(`INSERT INTO edges(source_id, target_id, kind, file_path, line, confidence)
		VALUES (?,?,?,?,?,?)`, e.SourceID, e.TargetID, string(e.Kind), e.FilePath, e.Line, e.Confidence)
	return err
}

func deleteEdge(tx *sql.Tx, e graph.Edge) error {
	_, err := tx.Exec(`DELETE FROM edges WHERE source_id = ? AND target_id = ? AND kind = ? AND file_path = ?`,
		e.SourceID, e.TargetID, string(e.Kind), e.FilePath)
	return err
}

// DeleteEdgesForFile removes every edge recorded against filePath, used by
// the engine before re-inserting a freshly-parsed file's edges (§3
// Lifecycle: "stale edges for files in the re-parsed set are deleted before
// insertion").
func (s *GraphStore) DeleteEdgesForFile(filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM edges WHERE file_path = ?`, filePath)
	return err
}

// NewRunID mints a fresh identifier for a compile invocation, used to key
// violation snapshots and fingerprint first-seen records (§B: google/uuid
// wiring). Schema migrations use no run id.
func NewRunID() string {
	return uuid.NewString()
}
