package enhance

import (
	"strings"

	"github.com/FryrAI/keel/internal/parser"
)

// DefRecord pairs a parsed Definition with the node ID its file/name
// resolves to once hashed, so enhancers can emit edges without depending on
// internal/hash directly (the engine hashes defs before enhancement runs
// and populates this index with the resulting IDs).
type DefRecord struct {
	parser.Definition
	NodeID string
}

// Index is the view enhancers resolve references against, built fresh each
// run from the files parsed in this compile invocation (selected files and
// fan-out neighbors). It holds no definitions from the GraphStore; calls into
// untouched files are resolved afterwards by the engine's store fallback.
type Index struct {
	byName    map[string][]DefRecord
	byFile    map[string][]DefRecord
	files     map[string]*parser.ParsedFile
	barrels   map[string]bool
}

// NewIndex builds an Index from the parsed files and definitions supplied
// by the caller.
func NewIndex(parsed map[string]*parser.ParsedFile, defs []DefRecord) *Index {
	idx := &Index{
		byName:  make(map[string][]DefRecord),
		byFile:  make(map[string][]DefRecord),
		files:   make(map[string]*parser.ParsedFile),
		barrels: make(map[string]bool),
	}
	for path, pf := range parsed {
		idx.files[path] = pf
		if pf.IsBarrel {
			idx.barrels[path] = true
		}
	}
	for _, d := range defs {
		idx.byName[d.Name] = append(idx.byName[d.Name], d)
		idx.byFile[d.FilePath] = append(idx.byFile[d.FilePath], d)
	}
	return idx
}

// ByName returns every known definition with the given name across the
// workspace (candidates for a call/import resolution).
func (idx *Index) ByName(name string) []DefRecord {
	return idx.byName[name]
}

// InFile returns every known definition declared in filePath.
func (idx *Index) InFile(filePath string) []DefRecord {
	return idx.byFile[filePath]
}

// IsBarrel reports whether filePath was flagged as a barrel re-export file
// during Tier 1 parsing.
func (idx *Index) IsBarrel(filePath string) bool {
	return idx.barrels[filePath]
}

// ResolveRelativeImport maps a relative import specifier (e.g. "./crypto")
// against the importing file's directory to a candidate source file path.
// Extension-less specifiers try each of the supported extensions in turn.
func ResolveRelativeImport(fromFile, spec string) []string {
	dir := dirOf(fromFile)
	joined := joinPath(dir, spec)
	if hasKnownExt(joined) {
		return []string{joined}
	}
	var candidates []string
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		candidates = append(candidates, joined+ext)
	}
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		candidates = append(candidates, joined+"/index"+ext)
	}
	return candidates
}

func hasKnownExt(p string) bool {
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx", ".py", ".go", ".rs"} {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

func dirOf(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return ""
	}
	return p[:idx]
}

func joinPath(dir, spec string) string {
	for strings.HasPrefix(spec, "./") {
		spec = spec[2:]
	}
	for strings.HasPrefix(spec, "../") {
		spec = spec[3:]
		dir = dirOf(dir)
	}
	if dir == "" {
		return spec
	}
	return dir + "/" + spec
}
