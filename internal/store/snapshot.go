package store

import "github.com/FryrAI/keel/internal/graph"

// DeltaBucket classifies a violation against the prior snapshot for
// `compile --delta` (§4.6 step 10).
type DeltaBucket string

const (
	DeltaNew         DeltaBucket = "NEW"
	DeltaFixed       DeltaBucket = "FIXED"
	DeltaPreExisting DeltaBucket = "PRE-EXISTING"
)

// WriteSnapshot records the (hash, code) pairs of the current violation set
// under runID, so the next `--delta` compile can diff against it. The table
// is keyed on (hash, code): a pair already recorded under an earlier run is
// moved to runID, so an earlier run keeps only the pairs that did not recur.
// The compile pipeline diffs against the previous run before writing, while
// that run still holds its full set.
func (s *GraphStore) WriteSnapshot(runID string, violations []graph.Violation, nowUnix int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, v := range violations {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO violation_snapshots(run_id, hash, code, created_at)
			VALUES (?,?,?,?)`, runID, v.Hash, v.Code, nowUnix); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LastRunID returns the run_id of the most recent snapshot prior to
// excludeRunID, or "" if there is none (first compile ever).
func (s *GraphStore) LastRunID(excludeRunID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT run_id FROM violation_snapshots
		WHERE run_id != ? ORDER BY created_at DESC LIMIT 1`, excludeRunID)
	var runID string
	if err := row.Scan(&runID); err != nil {
		return "", nil
	}
	return runID, nil
}

// ViolationCountForHash counts how many violations the most recent snapshot
// recorded against hash, used by `check`'s pre-edit risk scoring (§4.5).
// Returns 0 when no snapshot has ever been written.
func (s *GraphStore) ViolationCountForHash(hash string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runID string
	row := s.db.QueryRow(`SELECT run_id FROM violation_snapshots ORDER BY created_at DESC LIMIT 1`)
	if err := row.Scan(&runID); err != nil {
		return 0, nil
	}

	var n int
	row = s.db.QueryRow(`SELECT COUNT(*) FROM violation_snapshots WHERE run_id = ? AND hash = ?`, runID, hash)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DiffSnapshot buckets the current violation set against a previous run's
// snapshot (§4.6 step 10, §GLOSSARY "Delta compile").
func (s *GraphStore) DiffSnapshot(previousRunID string, current []graph.Violation) (map[DeltaBucket][]graph.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prior := map[string]bool{}
	if previousRunID != "" {
		rows, err := s.db.Query(`SELECT hash, code FROM violation_snapshots WHERE run_id = ?`, previousRunID)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var hash, code string
			if err := rows.Scan(&hash, &code); err != nil {
				rows.Close()
				return nil, err
			}
			prior[hash+"\x00"+code] = true
		}
		rows.Close()
	}

	buckets := map[DeltaBucket][]graph.Violation{}
	seenNow := map[string]bool{}
	for _, v := range current {
		key := v.Hash + "\x00" + v.Code
		seenNow[key] = true
		if prior[key] {
			buckets[DeltaPreExisting] = append(buckets[DeltaPreExisting], v)
		} else {
			buckets[DeltaNew] = append(buckets[DeltaNew], v)
		}
	}

	// FIXED: present in the prior snapshot but absent from the current set.
	// We only have (hash, code) pairs for those, not full Violation records,
	// since a fixed violation's original message/fix_hint is no longer
	// derivable from the fresh parse. Callers that need a display string for
	// FIXED entries render from hash+code alone.
	if previousRunID != "" {
		rows, err := s.db.Query(`SELECT hash, code FROM violation_snapshots WHERE run_id = ?`, previousRunID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var hash, code string
			if err := rows.Scan(&hash, &code); err != nil {
				return nil, err
			}
			key := hash + "\x00" + code
			if !seenNow[key] {
				buckets[DeltaFixed] = append(buckets[DeltaFixed], graph.Violation{Hash: hash, Code: code})
			}
		}
	}

	return buckets, nil
}
