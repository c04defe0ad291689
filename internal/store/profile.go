package store

import "github.com/FryrAI/keel/internal/graph"

// PutModuleProfile upserts a module's placement/naming summary (§3
// ModuleProfile), recomputed by the engine whenever a module's file set
// changes.
func (s *GraphStore) PutModuleProfile(p graph.ModuleProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO module_profiles
		(module_id, function_count, class_count, line_count, name_prefixes,
		 primary_types, import_sources, export_targets, responsibility_keywords)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(module_id) DO UPDATE SET
			function_count=excluded.function_count,
			class_count=excluded.class_count,
			line_count=excluded.line_count,
			name_prefixes=excluded.name_prefixes,
			primary_types=excluded.primary_types,
			import_sources=excluded.import_sources,
			export_targets=excluded.export_targets,
			responsibility_keywords=excluded.responsibility_keywords`,
		p.ModuleID, p.FunctionCount, p.ClassCount, p.LineCount,
		joinCSV(p.NamePrefixes), joinCSV(p.PrimaryTypes), joinCSV(p.ImportSources),
		joinCSV(p.ExportTargets), joinCSV(p.ResponsibilityKeywords))
	return err
}

// AllModuleProfiles returns every stored module profile, used by W001
// placement scoring to compare a candidate function against every module's
// keyword/type fingerprint.
func (s *GraphStore) AllModuleProfiles() ([]graph.ModuleProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT module_id, function_count, class_count, line_count,
		name_prefixes, primary_types, import_sources, export_targets, responsibility_keywords
		FROM module_profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []graph.ModuleProfile
	for rows.Next() {
		var p graph.ModuleProfile
		var namePrefixes, primaryTypes, importSources, exportTargets, keywords string
		if err := rows.Scan(&p.ModuleID, &p.FunctionCount, &p.ClassCount, &p.LineCount,
			&namePrefixes, &primaryTypes, &importSources, &exportTargets, &keywords); err != nil {
			return nil, err
		}
		p.NamePrefixes = splitCSV(namePrefixes)
		p.PrimaryTypes = splitCSV(primaryTypes)
		p.ImportSources = splitCSV(importSources)
		p.ExportTargets = splitCSV(exportTargets)
		p.ResponsibilityKeywords = splitCSV(keywords)
		out = append(out, p)
	}
	return out, rows.Err()
}
