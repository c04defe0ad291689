package store

import (
	"database/sql"
	"fmt"
)

// schemaVersion is the current schema generation. Bump on any additive or
// breaking table change; see migrate() for the minor-vs-major policy
// (§4.2 "Failure modes", elaborated in SPEC_FULL.md §C).
const schemaVersion = 3

// migration is one ordered, idempotent schema step.
type migration struct {
	version int
	apply   func(tx *sql.Tx) error
}

var migrations = []migration{
	{version: 1, apply: migrateV1},
	{version: 2, apply: migrateV2},
	{version: 3, apply: migrateV3},
}

// migrate brings the on-disk schema up to schemaVersion. A minor bump runs
// the new ALTER-style steps in order. Every step in the current list is
// additive; there is no major-bump path, which per SPEC_FULL.md §C would be a
// full re-parse with `keel map` instead.
func (s *GraphStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}

	current := 0
	row := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`)
	var v string
	if err := row.Scan(&v); err == nil {
		fmt.Sscanf(v, "%d", &current)
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO meta(key, value) VALUES ('schema_version', ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprintf("%d", m.version)); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func migrateV1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			hash TEXT NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			signature TEXT NOT NULL,
			file_path TEXT NOT NULL,
			line_start INTEGER NOT NULL,
			line_end INTEGER NOT NULL,
			docstring TEXT,
			is_public INTEGER NOT NULL,
			type_hints_present INTEGER NOT NULL,
			has_docstring INTEGER NOT NULL,
			module_id TEXT,
			resolution_tier TEXT NOT NULL DEFAULT 'tier1_ast'
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_hash ON nodes(hash)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_name_kind ON nodes(name, kind)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_file_path ON nodes(file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_module_id ON nodes(module_id)`,

		`CREATE TABLE IF NOT EXISTS previous_hashes (
			node_id TEXT NOT NULL,
			hash TEXT NOT NULL,
			rank INTEGER NOT NULL,
			PRIMARY KEY (node_id, rank)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_previous_hashes_hash ON previous_hashes(hash)`,

		`CREATE TABLE IF NOT EXISTS edges (
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			file_path TEXT NOT NULL,
			line INTEGER NOT NULL,
			confidence REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_file_path ON edges(file_path)`,

		`CREATE TABLE IF NOT EXISTS module_profiles (
			module_id TEXT PRIMARY KEY,
			function_count INTEGER NOT NULL DEFAULT 0,
			class_count INTEGER NOT NULL DEFAULT 0,
			line_count INTEGER NOT NULL DEFAULT 0,
			name_prefixes TEXT NOT NULL DEFAULT '',
			primary_types TEXT NOT NULL DEFAULT '',
			import_sources TEXT NOT NULL DEFAULT '',
			export_targets TEXT NOT NULL DEFAULT '',
			responsibility_keywords TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS resolution_cache (
			fingerprint TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			resolved_node_id TEXT,
			confidence REAL NOT NULL,
			tier TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resolution_cache_file ON resolution_cache(file_path)`,

		`CREATE TABLE IF NOT EXISTS violation_snapshots (
			run_id TEXT NOT NULL,
			hash TEXT NOT NULL,
			code TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (hash, code)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_violation_snapshots_run ON violation_snapshots(run_id)`,

		`CREATE TABLE IF NOT EXISTS fingerprints (
			file_path TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			first_seen_run_id TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// migrateV2 adds the bookkeeping progressive-adoption needs (§4.5 "if a
// violation's source is in code that existed before keel was initialized
// for the repo, severity is downgraded"): a per-node first-observed
// timestamp, and the repo-level keel-init timestamp it is compared against.
// Additive-only ALTER-style evolution, per §4.2's minor-bump policy.
func migrateV2(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS node_first_seen (
			node_id TEXT PRIMARY KEY,
			first_seen_unix INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// migrateV3 adds persistent storage for detected framework endpoints (§4.3
// Endpoint detection), so `map`/`discover`/`analyze` can report a function's
// HTTP/gRPC/GraphQL/MessageQueue bindings across runs, not just within the
// compile invocation that detected them.
func migrateV3(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS endpoints (
			node_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			direction TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_endpoints_node ON endpoints(node_id)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
