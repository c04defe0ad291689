// Package parser implements keel's Tier 1 universal AST-query extraction
// (§4.3): pure, per-file parsing of TypeScript/JavaScript, Python, Go, and
// Rust into definitions, references and imports, with no cross-file
// resolution (that is Tier 2, package enhance). No language parser fills
// Definition.Endpoints or ParsedFile.Endpoints: framework route detection is
// not implemented, so every endpoint list is empty.
package parser

import "github.com/FryrAI/keel/internal/graph"

// Definition is a pre-hash observation of a Module/Class/Function declaration.
// The engine turns these into graph.Node values once enhancement and hashing
// have run.
type Definition struct {
	Kind             graph.NodeKind
	Name             string
	Signature        string
	Body             string // normalized body text, used as hash input
	RawBody          string // verbatim body, used for snippet/context display
	Docstring        string
	FilePath         string
	LineStart        int
	LineEnd          int
	IsPublic         bool
	TypeHintsPresent bool
	HasDocstring     bool
	Parent           string // enclosing class/struct name, empty for top-level
	Endpoints        []graph.ExternalEndpoint
}

// ReferenceKind distinguishes call references from inheritance references
// (base classes, embedded structs, `impl Trait for Type`, Rust attributes)
// before Tier 2 resolves them to a target node.
type ReferenceKind string

const (
	RefCall    ReferenceKind = "call"
	RefInherit ReferenceKind = "inherit"
)

// Reference is an unresolved call or inheritance site. Tier 2 enhancers turn
// these into graph.Edge values with a resolved target and confidence.
type Reference struct {
	Kind             ReferenceKind
	CalleeExpression string // raw text of the call/base-class expression
	ArgCount         int    // positional argument count at the call site, for E005
	FromName         string // name of the enclosing definition, if any
	FilePath         string
	Line             int
}

// ImportKind distinguishes the shapes an import/use statement can take.
type ImportKind string

const (
	ImportNamed     ImportKind = "named"
	ImportDefault   ImportKind = "default"
	ImportNamespace ImportKind = "namespace"
	ImportStar      ImportKind = "star"
	ImportSideEffect ImportKind = "side_effect"
)

// ImportRef is a raw import/use/require statement, retained for Tier 2
// module resolution.
type ImportRef struct {
	Kind       ImportKind
	Source     string // module specifier / package path / mod path
	Imported   []string // bindings as written (TS default/namespace included, "*" for a Python star import); empty for side-effect, Python `import x`, Go and Rust imports
	Alias      string
	IsRelative bool
	FilePath   string
	Line       int
}

// Fingerprint is the ParsedFile callee-site key used by the resolution cache
// (§3 ResolutionCache): hash(file + line + callee_expression).
type Fingerprint = string

// ParsedFile is the pure output of parsing a single source file (§4.3).
type ParsedFile struct {
	Path       string
	Language   Language
	Defs       []Definition
	Refs       []Reference
	Imports    []ImportRef
	Endpoints  []graph.ExternalEndpoint
	IsBarrel   bool // TS/JS only: top-level is dominantly re-exports
	Fingerprint uint64 // 64-bit content fingerprint for incremental re-parse
}

// Language identifies the grammar used to parse a file.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangUnknown    Language = "unknown"
)

// LanguageForPath selects a grammar by file extension, per §4.3.
func LanguageForPath(path string) Language {
	switch ext(path) {
	case ".tsx", ".ts":
		return LangTypeScript
	case ".jsx", ".js":
		return LangJavaScript
	case ".py":
		return LangPython
	case ".go":
		return LangGo
	case ".rs":
		return LangRust
	default:
		return LangUnknown
	}
}

func ext(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	return ""
}
