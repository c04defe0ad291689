// Package config loads keel's on-disk project configuration (.keel/config.yaml),
// following the teacher's internal/config shape: several typed sub-configs
// assembled into one Config, loaded once, with environment-variable
// overrides for CI use — trimmed to the concerns keel actually has (no
// shard/LLM/jit/memory sub-configs).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full assembled configuration for one keel-managed workspace.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Ignore    IgnoreConfig    `yaml:"ignore"`
	Output    OutputConfig    `yaml:"output"`
	Policy    PolicyConfig    `yaml:"policy"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Batch     BatchConfig     `yaml:"batch"`
	Languages LanguagesConfig `yaml:"languages"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// WorkspaceConfig locates keel's persistent state relative to the repo root.
type WorkspaceConfig struct {
	StateDir string `yaml:"state_dir"` // default ".keel"
}

// IgnoreConfig controls the .keelignore ∪ .gitignore union (§6, SPEC_FULL §C).
type IgnoreConfig struct {
	KeelIgnoreFile string `yaml:"keelignore_file"` // default ".keelignore"
	UnionGitignore bool   `yaml:"union_gitignore"`  // default true
}

// OutputConfig holds the LLM-compact token budget default (§4.9).
type OutputConfig struct {
	MaxTokens int  `yaml:"max_tokens"` // default 10000
	Color     bool `yaml:"color"`      // default true
}

// PolicyConfig holds checker severity policy (§4.5, §9).
type PolicyConfig struct {
	ProgressiveAdoption bool              `yaml:"progressive_adoption"` // default true
	Suppressions        map[string]bool   `yaml:"suppressions"`
}

// BreakerConfig holds circuit-breaker tuning (§4.7). The 3-failure
// escalation threshold itself is fixed by spec, not configurable; only
// session-scoping behavior is.
type BreakerConfig struct {
	ScopeToBatch bool `yaml:"scope_to_batch"` // default true, §4.8
}

// BatchConfig holds batch-mode timing (§4.8).
type BatchConfig struct {
	ExpireAfterSeconds int `yaml:"expire_after_seconds"` // default 60
}

// LanguagesConfig enables/disables per-language parsing and tier-2 options
// (§4.3, §4.4).
type LanguagesConfig struct {
	TypeScript        bool          `yaml:"typescript"`
	Python            bool          `yaml:"python"`
	Go                bool          `yaml:"go"`
	Rust              bool          `yaml:"rust"`
	PythonTypeChecker string        `yaml:"python_type_checker"` // binary name, default "pyright"
	PythonDeadline    time.Duration `yaml:"python_deadline"`     // default 5s
	RustDeepAnalyzer  bool          `yaml:"rust_deep_analyzer"`  // default false
}

// LoggingConfig has the same fields as internal/logging's config.json shape.
// internal/logging reads only config.json, so this YAML section (and its
// environment override) does not switch file logging on.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// Default returns keel's built-in defaults, used when no config.yaml exists
// yet (a freshly `keel init`-ed repo) and as the base that Load merges onto.
func Default() Config {
	return Config{
		Workspace: WorkspaceConfig{StateDir: ".keel"},
		Ignore:    IgnoreConfig{KeelIgnoreFile: ".keelignore", UnionGitignore: true},
		Output:    OutputConfig{MaxTokens: 10_000, Color: true},
		Policy:    PolicyConfig{ProgressiveAdoption: true, Suppressions: map[string]bool{}},
		Breaker:   BreakerConfig{ScopeToBatch: true},
		Batch:     BatchConfig{ExpireAfterSeconds: 60},
		Languages: LanguagesConfig{
			TypeScript: true, Python: true, Go: true, Rust: true,
			PythonTypeChecker: "pyright", PythonDeadline: 5 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads and parses path, falling back to Default() (not an error) when
// the file does not exist yet (§4.2 "Schema version mismatch/Corruption"
// distinguishes config absence, which is normal pre-init state, from actual
// corruption, which Load surfaces as an error).
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes cfg as YAML to path. The parent directory must already exist.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides lets CI pipelines override a handful of high-value
// settings without touching the checked-in config.yaml (SPEC_FULL §A.3).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KEEL_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Output.MaxTokens = n
		}
	}
	if v := os.Getenv("KEEL_DEBUG"); v != "" {
		cfg.Logging.DebugMode = v == "1" || v == "true"
	}
	if v := os.Getenv("KEEL_PROGRESSIVE_ADOPTION"); v != "" {
		cfg.Policy.ProgressiveAdoption = v == "1" || v == "true"
	}
}
