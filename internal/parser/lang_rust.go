package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/FryrAI/keel/internal/graph"
)

// parseRust extracts definitions, references and imports from a Rust source
// file (§4.3 "Rust"). `mod foo;` resolution and `use` retention are left for
// Tier 2; this pass records the raw `use`/`mod` statements, visibility, and
// `impl Trait for Type` as an Inherits reference, plus derive/attribute
// macros as reference records without expanding macro bodies.
func parseRust(g *GrammarSet, path string, content []byte) (*ParsedFile, error) {
	g.rustParser.SetLanguage(rust.GetLanguage())
	tree, err := g.rustParser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	pf := &ParsedFile{Path: path, Language: LangRust}
	pf.Defs = append(pf.Defs, syntheticModule(path))

	getText := func(n *sitter.Node) string { return n.Content(content) }

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_item":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := getText(nameNode)
			params := n.ChildByFieldName("parameters")
			retType := n.ChildByFieldName("return_type")
			sig := "fn " + name
			hasHints := true
			if params != nil {
				sig += getText(params)
				hasHints = strings.Contains(getText(params), ":")
			}
			if retType != nil {
				sig += " -> " + getText(retType)
			}
			doc := rustDocComment(n, getText)
			pf.Defs = append(pf.Defs, Definition{
				Kind:             graph.KindFunction,
				Name:             name,
				Signature:        sig,
				Body:             normalizeBody(n, getText),
				RawBody:          getText(n),
				Docstring:        doc,
				FilePath:         path,
				LineStart:        int(n.StartPoint().Row) + 1,
				LineEnd:          int(n.EndPoint().Row) + 1,
				IsPublic:         rustHasPubVisibility(n, getText),
				TypeHintsPresent: hasHints,
				HasDocstring:     doc != "",
			})

		case "struct_item", "enum_item", "trait_item":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := getText(nameNode)
			doc := rustDocComment(n, getText)
			pf.Defs = append(pf.Defs, Definition{
				Kind:         graph.KindClass,
				Name:         name,
				Signature:    n.Type() + " " + name,
				Body:         normalizeBody(n, getText),
				RawBody:      getText(n),
				Docstring:    doc,
				FilePath:     path,
				LineStart:    int(n.StartPoint().Row) + 1,
				LineEnd:      int(n.EndPoint().Row) + 1,
				IsPublic:     rustHasPubVisibility(n, getText),
				HasDocstring: doc != "",
			})

		case "impl_item":
			traitNode := n.ChildByFieldName("trait")
			typeNode := n.ChildByFieldName("type")
			if traitNode != nil && typeNode != nil {
				pf.Refs = append(pf.Refs, Reference{
					Kind:             RefInherit,
					CalleeExpression: getText(traitNode),
					FromName:         getText(typeNode),
					FilePath:         path,
					Line:             int(n.StartPoint().Row) + 1,
				})
			}

		case "mod_item":
			nameNode := n.ChildByFieldName("name")
			if nameNode != nil && n.ChildByFieldName("body") == nil {
				// `mod foo;` (no inline body) resolves to foo.rs / foo/mod.rs.
				pf.Imports = append(pf.Imports, ImportRef{
					Kind: ImportDefault, Source: getText(nameNode),
					IsRelative: true, FilePath: path, Line: int(n.StartPoint().Row) + 1,
				})
			}

		case "use_declaration":
			pf.Imports = append(pf.Imports, rustUseImports(n, path, getText)...)

		case "attribute_item":
			pf.Refs = append(pf.Refs, Reference{
				Kind:             RefInherit,
				CalleeExpression: getText(n),
				FilePath:         path,
				Line:             int(n.StartPoint().Row) + 1,
			})

		case "call_expression":
			fn := n.ChildByFieldName("function")
			if fn != nil {
				pf.Refs = append(pf.Refs, Reference{
					Kind:             RefCall,
					CalleeExpression: getText(fn),
					ArgCount:         rustArgCount(n.ChildByFieldName("arguments")),
					FilePath:         path,
					Line:             int(n.StartPoint().Row) + 1,
				})
			}
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())

	return pf, nil
}

// rustHasPubVisibility scans the declaration's direct children for a
// visibility_modifier ("pub", "pub(crate)", "pub(super)", "pub(in path)").
func rustHasPubVisibility(n *sitter.Node, getText func(*sitter.Node) string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "visibility_modifier" {
			return strings.HasPrefix(getText(child), "pub")
		}
	}
	return false
}

func rustDocComment(n *sitter.Node, getText func(*sitter.Node) string) string {
	prev := n.PrevSibling()
	var lines []string
	for prev != nil && (prev.Type() == "line_comment" || prev.Type() == "block_comment") {
		text := getText(prev)
		if strings.HasPrefix(text, "///") || strings.HasPrefix(text, "/**") {
			lines = append([]string{strings.TrimSpace(strings.TrimLeft(text, "/*"))}, lines...)
		}
		prev = prev.PrevSibling()
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func rustUseImports(n *sitter.Node, path string, getText func(*sitter.Node) string) []ImportRef {
	raw := getText(n)
	kind := ImportNamed
	if strings.Contains(raw, "::*") {
		kind = ImportStar
	}
	alias := ""
	if idx := strings.Index(raw, " as "); idx >= 0 {
		alias = strings.TrimSuffix(strings.TrimSpace(raw[idx+4:]), ";")
	}
	isRelative := strings.Contains(raw, "self::") || strings.Contains(raw, "super::")
	return []ImportRef{{
		Kind:       kind,
		Source:     strings.TrimSuffix(strings.TrimPrefix(raw, "use "), ";"),
		Alias:      alias,
		IsRelative: isRelative,
		FilePath:   path,
		Line:       int(n.StartPoint().Row) + 1,
	}}
}

func rustArgCount(args *sitter.Node) int {
	if args == nil {
		return 0
	}
	count := 0
	for i := 0; i < int(args.ChildCount()); i++ {
		t := args.Child(i).Type()
		if t == "(" || t == ")" || t == "," {
			continue
		}
		count++
	}
	return count
}
