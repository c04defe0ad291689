package store

import (
	"database/sql"
	"fmt"

	"github.com/FryrAI/keel/internal/graph"
)

// GetResolutionCache looks up a memoized call-site resolution by its
// fingerprint (§3 ResolutionCache, §4.4 "Each enhancer writes to
// resolution_cache keyed on the call-site fingerprint to avoid recomputation
// on unchanged files"). No enhancer or engine step calls it or
// PutResolutionCache, so the table stays empty during compile.
func (s *GraphStore) GetResolutionCache(fingerprint string) (*graph.ResolutionCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT fingerprint, file_path, resolved_node_id, confidence, tier
		FROM resolution_cache WHERE fingerprint = ?`, fingerprint)

	var entry graph.ResolutionCacheEntry
	var resolvedNodeID sql.NullString
	err := row.Scan(&entry.Fingerprint, &entry.FilePath, &resolvedNodeID, &entry.Confidence, &entry.Tier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get_resolution_cache: %w", err)
	}
	entry.ResolvedNodeID = resolvedNodeID.String
	return &entry, nil
}

// PutResolutionCache stores or replaces a memoized call-site resolution.
func (s *GraphStore) PutResolutionCache(entry graph.ResolutionCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO resolution_cache(fingerprint, file_path, resolved_node_id, confidence, tier)
		VALUES (?,?,?,?,?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			file_path=excluded.file_path,
			resolved_node_id=excluded.resolved_node_id,
			confidence=excluded.confidence,
			tier=excluded.tier`,
		entry.Fingerprint, entry.FilePath, entry.ResolvedNodeID, entry.Confidence, string(entry.Tier))
	return err
}

// InvalidateResolutionCacheForFile drops cached resolutions derived from a
// file now being re-parsed, so enhancers recompute rather than reuse stale
// call-site resolutions (§4.4).
func (s *GraphStore) InvalidateResolutionCacheForFile(filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM resolution_cache WHERE file_path = ?`, filePath)
	return err
}

// GetFingerprint returns the last-recorded content fingerprint for a file,
// used to decide whether it needs re-parsing (§4.3 "Incremental strategy").
func (s *GraphStore) GetFingerprint(filePath string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT fingerprint FROM fingerprints WHERE file_path = ?`, filePath)
	var fp string
	err := row.Scan(&fp)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get_fingerprint: %w", err)
	}
	return fp, true, nil
}

// PutFingerprint records a file's current content fingerprint after a
// successful parse.
func (s *GraphStore) PutFingerprint(filePath, fingerprint, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO fingerprints(file_path, fingerprint, first_seen_run_id)
		VALUES (?,?,?)
		ON CONFLICT(file_path) DO UPDATE SET fingerprint = excluded.fingerprint`,
		filePath, fingerprint, runID)
	return err
}
