// Package store implements keel's GraphStore (§4.2): a sqlite-backed
// persistent store for nodes, edges, module profiles, the resolution cache,
// and previous-hash rename history, with indexed queries so incremental
// compile work stays O(affected files).
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/FryrAI/keel/internal/graph"
)

// GraphStore is the single-writer, concurrent-reader persistent graph.
// Matches the teacher's bootstrap shape in internal/store/local_core.go:
// one *sql.DB, a single open connection (sqlite has no useful concurrent
// writers), WAL journal mode, and a busy timeout instead of an app-level
// write queue.
type GraphStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open creates or opens the graph store at dbPath, creating parent
// directories as needed, and ensures the schema is current (running
// migrations if the on-disk schema_version is older, per §4.2 "Failure
// modes").
func Open(dbPath string) (*GraphStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &GraphStore{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying sqlite connection.
func (s *GraphStore) Close() error {
	return s.db.Close()
}

// GetNode looks up a node by its current hash, falling back to a
// previous_hashes match (a caller in an as-yet-unrecompiled file resolving to
// a renamed target, §3 Lifecycle). The returned bool's second value reports
// whether the match came from a rename (so callers can annotate RENAMED).
func (s *GraphStore) GetNode(hash string) (*graph.Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n, err := s.queryNodeByHash(hash); err != nil {
		return nil, false, err
	} else if n != nil {
		return n, false, nil
	}

	row := s.db.QueryRow(`SELECT node_id FROM previous_hashes WHERE hash = ? ORDER BY rank ASC LIMIT 1`, hash)
	var nodeID string
	if err := row.Scan(&nodeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: previous_hashes lookup: %w", err)
	}
	n, err := s.queryNodeByID(nodeID)
	if err != nil {
		return nil, false, err
	}
	return n, n != nil, nil
}

// GetNodeByID looks up a node by its stable NodeID (the edges table's
// source_id/target_id columns, §4.2), as opposed to GetNode's lookup by
// content hash.
func (s *GraphStore) GetNodeByID(id string) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryNodeByID(id)
}

func (s *GraphStore) queryNodeByHash(hash string) (*graph.Node, error) {
	row := s.db.QueryRow(nodeSelectColumns+` FROM nodes WHERE hash = ?`, hash)
	return scanNode(row)
}

func (s *GraphStore) queryNodeByID(id string) (*graph.Node, error) {
	row := s.db.QueryRow(nodeSelectColumns+` FROM nodes WHERE id = ?`, id)
	return scanNode(row)
}

const nodeSelectColumns = `SELECT id, hash, kind, name, signature, file_path, line_start, line_end, docstring, is_public, type_hints_present, has_docstring, module_id, resolution_tier`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*graph.Node, error) {
	var n graph.Node
	var docstring sql.NullString
	var moduleID sql.NullString
	err := row.Scan(&n.ID, &n.Hash, &n.Kind, &n.Name, &n.Signature, &n.FilePath,
		&n.LineStart, &n.LineEnd, &docstring, &n.IsPublic, &n.TypeHintsPresent,
		&n.HasDocstring, &moduleID, &n.ResolutionTier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan node: %w", err)
	}
	n.Docstring = docstring.String
	n.ModuleID = moduleID.String
	return &n, nil
}

// FindNodesByName looks up nodes by name, optionally filtered by kind, and
// optionally excluding one file path (for duplicate-name checks). Empty
// kind/fileExclude act as wildcards (§4.2).
func (s *GraphStore) FindNodesByName(name string, kind graph.NodeKind, fileExclude string) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := nodeSelectColumns + ` FROM nodes WHERE name = ?`
	args := []interface{}{name}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	if fileExclude != "" {
		query += ` AND file_path != ?`
		args = append(args, fileExclude)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: find_nodes_by_name: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func scanNodes(rows *sql.Rows) ([]graph.Node, error) {
	var out []graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// NodesByFile returns every node declared in filePath, using the indexed
// file_path column (§4.6 step 3: "pre-fetch every node currently stored for
// each file in one indexed query").
func (s *GraphStore) NodesByFile(filePath string) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(nodeSelectColumns+` FROM nodes WHERE file_path = ?`, filePath)
	if err != nil {
		return nil, fmt.Errorf("store: nodes_by_file: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// AllNodes returns every node in the store, used by `search`'s substring
// fallback when an exact name match finds nothing (§6 "substring fallback").
func (s *GraphStore) AllNodes() ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(nodeSelectColumns + ` FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("store: all_nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// FindModulesByPrefix returns module nodes whose file_path starts with
// pathPrefix, using the file_path index (§4.2).
func (s *GraphStore) FindModulesByPrefix(pathPrefix string) ([]graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(nodeSelectColumns+` FROM nodes WHERE kind = ? AND file_path LIKE ?`,
		string(graph.KindModule), pathPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("store: find_modules_by_prefix: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// EdgeDirection selects which side of an edge a node-id query matches.
type EdgeDirection string

const (
	DirectionIn   EdgeDirection = "in"
	DirectionOut  EdgeDirection = "out"
	DirectionBoth EdgeDirection = "both"
)

// Edges returns edges touching nodeID in the given direction (§4.2), using
// the indexed source_id/target_id columns.
func (s *GraphStore) Edges(nodeID string, direction EdgeDirection) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var query string
	switch direction {
	case DirectionIn:
		query = `SELECT source_id, target_id, kind, file_path, line, confidence FROM edges WHERE target_id = ?`
	case DirectionOut:
		query = `SELECT source_id, target_id, kind, file_path, line, confidence FROM edges WHERE source_id = ?`
	default:
		query = `SELECT source_id, target_id, kind, file_path, line, confidence FROM edges WHERE source_id = ? OR target_id = ?`
	}

	var rows *sql.Rows
	var err error
	if direction == DirectionBoth {
		rows, err = s.db.Query(query, nodeID, nodeID)
	} else {
		rows, err = s.db.Query(query, nodeID)
	}
	if err != nil {
		return nil, fmt.Errorf("store: edges: %w", err)
	}
	defer rows.Close()

	var out []graph.Edge
	for rows.Next() {
		var e graph.Edge
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Kind, &e.FilePath, &e.Line, &e.Confidence); err != nil {
			return nil, fmt.Errorf("store: scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEdges returns the total number of stored edges, used to populate the
// human-readable manifest after `map`/`init` (§6 "Persistent state layout").
func (s *GraphStore) CountEdges() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM edges`)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count_edges: %w", err)
	}
	return n, nil
}

// GetModuleProfile returns the stored profile for a module, or nil if absent.
func (s *GraphStore) GetModuleProfile(moduleID string) (*graph.ModuleProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT module_id, function_count, class_count, line_count,
		name_prefixes, primary_types, import_sources, export_targets, responsibility_keywords
		FROM module_profiles WHERE module_id = ?`, moduleID)

	var p graph.ModuleProfile
	var namePrefixes, primaryTypes, importSources, exportTargets, keywords string
	err := row.Scan(&p.ModuleID, &p.FunctionCount, &p.ClassCount, &p.LineCount,
		&namePrefixes, &primaryTypes, &importSources, &exportTargets, &keywords)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get_module_profile: %w", err)
	}
	p.NamePrefixes = splitCSV(namePrefixes)
	p.PrimaryTypes = splitCSV(primaryTypes)
	p.ImportSources = splitCSV(importSources)
	p.ExportTargets = splitCSV(exportTargets)
	p.ResponsibilityKeywords = splitCSV(keywords)
	return &p, nil
}

// PreviousHashes returns the rename-history hashes for a node, most-recent
// first, capped at graph.MaxPreviousHashes (§3 invariant, persisted across
// sessions per the Open Question decision in DESIGN.md).
func (s *GraphStore) PreviousHashes(nodeID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT hash FROM previous_hashes WHERE node_id = ? ORDER BY rank ASC`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("store: previous_hashes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func joinCSV(vals []string) string {
	out := ""
	for i, v := range vals {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}
