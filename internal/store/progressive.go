package store

import "database/sql"

// PutKeelInitAt records the moment `keel init` set up this repo's state
// directory, persisted in the `meta` table (§4.5 progressive adoption,
// §8 "a violation on a node whose initial commit predates keel-init").
func (s *GraphStore) PutKeelInitAt(unixSeconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO meta(key, value) VALUES ('keel_init_at', ?)
		ON CONFLICT(key) DO NOTHING`, formatInt(unixSeconds))
	return err
}

// KeelInitAt returns the repo's init timestamp, or (0, false) if `keel init`
// has never recorded one (e.g. a store opened directly by tests).
func (s *GraphStore) KeelInitAt() (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'keel_init_at'`)
	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	return parseInt(v), true, nil
}

// RecordNodeFirstSeen stamps a node's first-observed time the first time its
// ID appears; later calls for the same node are no-ops, so the timestamp
// reflects when the node first entered the graph, not its last update.
func (s *GraphStore) RecordNodeFirstSeen(nodeID string, unixSeconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO node_first_seen(node_id, first_seen_unix) VALUES (?, ?)
		ON CONFLICT(node_id) DO NOTHING`, nodeID, unixSeconds)
	return err
}

// NodeFirstSeen returns when nodeID first entered the graph, or (0, false)
// if unrecorded (treated as "new", i.e. not pre-existing, by callers).
func (s *GraphStore) NodeFirstSeen(nodeID string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`SELECT first_seen_unix FROM node_first_seen WHERE node_id = ?`, nodeID)
	var v int64
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, err
	}
	return v, true, nil
}

func formatInt(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func parseInt(s string) int64 {
	var v int64
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v
}
