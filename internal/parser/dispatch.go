package parser

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/FryrAI/keel/internal/logging"
)

// GrammarSet holds one *sitter.Parser per language. A parser carries mutable
// parse state, so one GrammarSet is used by one goroutine at a time; ParseAll
// gives every worker past the first its own set. The grammar (language)
// objects passed to SetLanguage are the shared part (§5).
type GrammarSet struct {
	goParser     *sitter.Parser
	pyParser     *sitter.Parser
	rustParser   *sitter.Parser
	jsParser     *sitter.Parser
	tsParser     *sitter.Parser
	tsxParser    *sitter.Parser
}

// NewGrammarSet constructs one parser instance per supported language. The
// engine builds one per instance and hands it to ParseAll.
func NewGrammarSet() *GrammarSet {
	return &GrammarSet{
		goParser:   sitter.NewParser(),
		pyParser:   sitter.NewParser(),
		rustParser: sitter.NewParser(),
		jsParser:   sitter.NewParser(),
		tsParser:   sitter.NewParser(),
		tsxParser:  sitter.NewParser(),
	}
}

// Close releases the tree-sitter grammar resources.
func (g *GrammarSet) Close() {
	g.goParser.Close()
	g.pyParser.Close()
	g.rustParser.Close()
	g.jsParser.Close()
	g.tsParser.Close()
	g.tsxParser.Close()
}

// ParseError wraps a per-file parse failure. A file that panics the grammar
// is reported with one of these and skipped; other files continue (§4.3
// Failure, §7 propagation policy).
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed for %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFile parses a single file, selecting its grammar by extension (§4.3).
// Grammar panics are recovered here and turned into a *ParseError rather than
// propagating, so a single malformed file cannot abort a parallel batch.
func ParseFile(g *GrammarSet, path string, content []byte) (pf *ParsedFile, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryParser).Error("grammar panic on %s: %v", path, r)
			err = &ParseError{Path: path, Err: fmt.Errorf("grammar panic: %v", r)}
			pf = nil
		}
	}()

	lang := LanguageForPath(path)
	var result *ParsedFile

	switch lang {
	case LangGo:
		result, err = parseGo(g, path, content)
	case LangPython:
		result, err = parsePython(g, path, content)
	case LangRust:
		result, err = parseRust(g, path, content)
	case LangTypeScript, LangJavaScript:
		result, err = parseTSFamily(g, path, content, lang)
	default:
		return nil, &ParseError{Path: path, Err: fmt.Errorf("unsupported extension")}
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	result.Fingerprint = ContentFingerprint(content)
	return result, nil
}

// tsGrammarForPath returns the go-tree-sitter TypeScript language for path,
// resolving TSX vs TS by file extension.
func tsGrammarForPath(path string) *sitter.Language {
	if len(path) >= 4 && path[len(path)-4:] == ".tsx" {
		return tsx.GetLanguage()
	}
	return typescript.GetLanguage()
}
