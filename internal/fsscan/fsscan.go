// Package fsscan selects the file set a compile invocation walks: every
// tracked source file under a workspace root, minus the union of
// .keelignore and the nearest .gitignore chain (SPEC_FULL §C). Matching
// uses doublestar for gitignore-style ** and brace patterns, the same
// choice the pack makes for format-parsing concerns over hand-rolled globs.
package fsscan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/FryrAI/keel/internal/parser"
)

// Scanner walks a workspace root, filtering by the ignore-file union and by
// whether the extension has a known language (§4.3).
type Scanner struct {
	root     string
	patterns []pattern
}

type pattern struct {
	glob    string
	negate  bool
}

// New builds a Scanner for root, loading .keelignore and then every
// .gitignore under root. A nested .gitignore's patterns apply only beneath
// its own directory; patterns are applied in discovery order and a later
// match wins, so patterns closer to a file take precedence (gitignore
// semantics).
func New(root string) (*Scanner, error) {
	s := &Scanner{root: root}
	if err := s.loadIgnoreFile(filepath.Join(root, ".keelignore")); err != nil {
		return nil, err
	}
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Base(path) == ".gitignore" {
			return s.loadIgnoreFile(path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return s, nil
}

// Walk returns every source file under root not excluded by the ignore
// union and whose extension maps to a supported language.
func (s *Scanner) Walk() ([]string, error) {
	var out []string
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if shouldSkipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			rel = path
		}
		if parser.LanguageForPath(path) == parser.LangUnknown {
			return nil
		}
		if s.Ignored(rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out, err
}

// Ignored reports whether relPath matches the ignore-pattern union, the
// last matching pattern in load order winning (gitignore re-include
// semantics, SPEC_FULL §C). Go `_test.go` files are always ignored.
func (s *Scanner) Ignored(relPath string) bool {
	ignored := false
	relPath = filepath.ToSlash(relPath)
	if strings.HasSuffix(relPath, "_test.go") {
		return true
	}
	for _, p := range s.patterns {
		ok, _ := doublestar.Match(p.glob, relPath)
		if !ok {
			ok, _ = doublestar.Match(p.glob, filepath.Base(relPath))
		}
		if ok {
			ignored = !p.negate
		}
	}
	return ignored
}

func (s *Scanner) loadIgnoreFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		negate := strings.HasPrefix(line, "!")
		if negate {
			line = line[1:]
		}
		glob := line
		if !strings.Contains(glob, "*") && !strings.HasSuffix(glob, "/") {
			glob = glob + "{,/**}"
		} else if strings.HasSuffix(glob, "/") {
			glob = glob + "**"
		}
		if dir, relErr := filepath.Rel(s.root, filepath.Dir(path)); relErr == nil && dir != "." {
			glob = filepath.ToSlash(dir) + "/**/" + glob
		}
		s.patterns = append(s.patterns, pattern{glob: glob, negate: negate})
	}
	return scanner.Err()
}

func shouldSkipDir(name string) bool {
	switch name {
	case ".git", "node_modules", ".keel", "vendor", "target", "dist", "build", "__pycache__":
		return true
	default:
		return false
	}
}
