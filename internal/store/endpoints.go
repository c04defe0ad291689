package store

import "github.com/FryrAI/keel/internal/graph"

// PutEndpoints replaces the stored endpoint set for nodeID with eps,
// called by the engine after committing a node whose parsed Definition
// carried ExternalEndpoints (§4.3).
func (s *GraphStore) PutEndpoints(nodeID string, eps []graph.ExternalEndpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM endpoints WHERE node_id = ?`, nodeID); err != nil {
		return err
	}
	for _, e := range eps {
		if _, err := tx.Exec(`INSERT INTO endpoints(node_id, kind, method, path, direction) VALUES (?,?,?,?,?)`,
			nodeID, e.Kind, e.Method, e.Path, e.Direction); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Endpoints returns the stored endpoint set for nodeID.
func (s *GraphStore) Endpoints(nodeID string) ([]graph.ExternalEndpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT kind, method, path, direction FROM endpoints WHERE node_id = ?`, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []graph.ExternalEndpoint
	for rows.Next() {
		var e graph.ExternalEndpoint
		if err := rows.Scan(&e.Kind, &e.Method, &e.Path, &e.Direction); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// HasAnyEndpoints reports whether nodeID owns at least one endpoint, used by
// the LLM-compact module map's per-function "E" marker without fetching the
// full endpoint list.
func (s *GraphStore) HasAnyEndpoints(nodeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT 1 FROM endpoints WHERE node_id = ? LIMIT 1`, nodeID)
	var one int
	err := row.Scan(&one)
	if err != nil {
		return false, nil
	}
	return true, nil
}
