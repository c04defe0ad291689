package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/FryrAI/keel/internal/logging"
)

// manifestSchema validates the on-disk human-readable manifest (§6
// "Persistent state layout"). Guards against hand-edited corrupt manifests
// (§4.2 "Corruption -> surface a fatal error").
const manifestSchemaJSON = `{
	"type": "object",
	"required": ["schema_version", "generated_at", "node_count", "edge_count", "module_count"],
	"properties": {
		"schema_version": {"type": "integer", "minimum": 1},
		"generated_at": {"type": "string"},
		"node_count": {"type": "integer", "minimum": 0},
		"edge_count": {"type": "integer", "minimum": 0},
		"module_count": {"type": "integer", "minimum": 0}
	}
}`

// Manifest is the human-readable node/edge/module summary written alongside
// the graph store (§6).
type Manifest struct {
	SchemaVersion int    `json:"schema_version"`
	GeneratedAt   string `json:"generated_at"`
	NodeCount     int    `json:"node_count"`
	EdgeCount     int    `json:"edge_count"`
	ModuleCount   int    `json:"module_count"`
}

func compileManifestSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("manifest.json", strings.NewReader(manifestSchemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile("manifest.json")
}

// WriteManifest serializes and writes the manifest to manifestPath.
func WriteManifest(manifestPath string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	return os.WriteFile(manifestPath, data, 0644)
}

// ReadManifest reads and validates the manifest at manifestPath against
// manifestSchemaJSON. A schema violation is treated as corruption: the
// error tells the user to run `keel map`, the full re-parse (§4.2).
func ReadManifest(manifestPath string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: read: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("manifest: corrupt JSON, run `keel map` to rebuild: %w", err)
	}

	schema, err := compileManifestSchema()
	if err != nil {
		return nil, fmt.Errorf("manifest: compile schema: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		logging.Get(logging.CategoryStore).Error("manifest schema validation failed: %v", err)
		return nil, fmt.Errorf("manifest: corrupt, run `keel map` to rebuild: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: unmarshal: %w", err)
	}
	return &m, nil
}

// NewManifest builds a manifest snapshot for the current moment. The engine
// supplies the counts after a completed commit.
func NewManifest(nodeCount, edgeCount, moduleCount int) Manifest {
	return Manifest{
		SchemaVersion: schemaVersion,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		NodeCount:     nodeCount,
		EdgeCount:     edgeCount,
		ModuleCount:   moduleCount,
	}
}
