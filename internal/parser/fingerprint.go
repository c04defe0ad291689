package parser

import "github.com/cespare/xxhash/v2"

// ContentFingerprint computes the 64-bit content fingerprint stored per file
// for incremental re-parse decisions (§4.3 "Incremental strategy"). Two calls
// on identical bytes always agree (determinism, §8).
func ContentFingerprint(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// ConfigFiles are the per-language/per-workspace configuration files that
// IsConfigFile recognizes. Nothing in the compile pipeline calls
// IsConfigFile: a change to one of these files does not re-parse its domain.
var ConfigFiles = map[string]bool{
	"tsconfig.json": true,
	"go.mod":        true,
	".keelignore":   true,
}

// IsConfigFile reports whether a base file name is a domain-invalidating
// config file.
func IsConfigFile(baseName string) bool {
	return ConfigFiles[baseName]
}
