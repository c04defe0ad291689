package parser

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/FryrAI/keel/internal/graph"
)

// parseTSFamily extracts definitions, references and imports from a
// TypeScript/JavaScript source file (§4.3 "TypeScript/JavaScript"). `.tsx`
// files use the TSX grammar. An `index.ts`/`index.js` file whose top level
// is dominantly re-export statements is flagged as a barrel for Tier 2.
// Ambient declaration files (`.d.ts`) parse for definitions but produce no
// call edges.
func parseTSFamily(g *GrammarSet, path string, content []byte, lang Language) (*ParsedFile, error) {
	isTSX := strings.HasSuffix(path, ".tsx")
	isAmbient := strings.HasSuffix(path, ".d.ts")

	var p *sitter.Parser
	switch {
	case isTSX:
		p = g.tsxParser
		p.SetLanguage(tsx.GetLanguage())
	case lang == LangTypeScript:
		p = g.tsParser
		p.SetLanguage(typescript.GetLanguage())
	default:
		p = g.jsParser
		p.SetLanguage(javascript.GetLanguage())
	}

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	pf := &ParsedFile{Path: path, Language: lang}
	pf.Defs = append(pf.Defs, syntheticModule(path))

	getText := func(n *sitter.Node) string { return n.Content(content) }

	isIndexFile := strings.HasPrefix(filepath.Base(path), "index.")
	topLevelCount := 0
	reExportCount := 0

	var walk func(n *sitter.Node, depth int)
	walk = func(n *sitter.Node, depth int) {
		if depth == 1 {
			topLevelCount++
		}
		switch n.Type() {
		case "class_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := getText(nameNode)
			pf.Defs = append(pf.Defs, Definition{
				Kind:      graph.KindClass,
				Name:      name,
				Signature: "class " + name,
				Body:      normalizeBody(n, getText),
				RawBody:   getText(n),
				FilePath:  path,
				LineStart: int(n.StartPoint().Row) + 1,
				LineEnd:   int(n.EndPoint().Row) + 1,
				IsPublic:  tsHasExport(n),
			})
			if heritage := n.ChildByFieldName("heritage"); heritage != nil {
				pf.Refs = append(pf.Refs, Reference{
					Kind: RefInherit, CalleeExpression: getText(heritage),
					FromName: name, FilePath: path, Line: int(heritage.StartPoint().Row) + 1,
				})
			}

		case "interface_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode != nil {
				name := getText(nameNode)
				pf.Defs = append(pf.Defs, Definition{
					Kind: graph.KindClass, Name: name, Signature: "interface " + name,
					Body: normalizeBody(n, getText), RawBody: getText(n),
					FilePath: path, LineStart: int(n.StartPoint().Row) + 1, LineEnd: int(n.EndPoint().Row) + 1,
					IsPublic: tsHasExport(n),
				})
			}

		case "function_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := getText(nameNode)
			params := n.ChildByFieldName("parameters")
			retType := n.ChildByFieldName("return_type")
			sig := "function " + name
			hasHints := false
			if params != nil {
				sig += getText(params)
				hasHints = strings.Contains(getText(params), ":")
			}
			if retType != nil {
				sig += " " + getText(retType)
				hasHints = hasHints && true
			} else {
				hasHints = false
			}
			pf.Defs = append(pf.Defs, Definition{
				Kind: graph.KindFunction, Name: name, Signature: sig,
				Body: normalizeBody(n, getText), RawBody: getText(n),
				FilePath: path, LineStart: int(n.StartPoint().Row) + 1, LineEnd: int(n.EndPoint().Row) + 1,
				IsPublic: tsHasExport(n), TypeHintsPresent: hasHints,
			})

		case "lexical_declaration":
			// `const foo = (..) => {...}` arrow-function assignment.
			for i := 0; i < int(n.ChildCount()); i++ {
				decl := n.Child(i)
				if decl.Type() != "variable_declarator" {
					continue
				}
				valueNode := decl.ChildByFieldName("value")
				nameNode := decl.ChildByFieldName("name")
				if valueNode == nil || nameNode == nil || valueNode.Type() != "arrow_function" {
					continue
				}
				name := getText(nameNode)
				params := valueNode.ChildByFieldName("parameters")
				sig := "const " + name + " = "
				hasHints := false
				if params != nil {
					sig += getText(params)
					hasHints = strings.Contains(getText(params), ":")
				}
				sig += " =>"
				pf.Defs = append(pf.Defs, Definition{
					Kind: graph.KindFunction, Name: name, Signature: sig,
					Body: normalizeBody(valueNode, getText), RawBody: getText(n),
					FilePath: path, LineStart: int(n.StartPoint().Row) + 1, LineEnd: int(n.EndPoint().Row) + 1,
					IsPublic: tsHasExport(n), TypeHintsPresent: hasHints,
				})
			}

		case "import_statement":
			pf.Imports = append(pf.Imports, tsImportStatement(n, path, getText)...)

		case "export_statement":
			if isIndexFile {
				if src := n.ChildByFieldName("source"); src != nil {
					reExportCount++
					pf.Imports = append(pf.Imports, ImportRef{
						Kind: ImportStar, Source: strings.Trim(getText(src), `"'`),
						IsRelative: strings.HasPrefix(strings.Trim(getText(src), `"'`), "."),
						FilePath:   path, Line: int(n.StartPoint().Row) + 1,
					})
				}
			}

		case "call_expression":
			if isAmbient {
				break
			}
			fn := n.ChildByFieldName("function")
			if fn != nil {
				pf.Refs = append(pf.Refs, Reference{
					Kind:             RefCall,
					CalleeExpression: getText(fn),
					ArgCount:         tsArgCount(n.ChildByFieldName("arguments")),
					FilePath:         path,
					Line:             int(n.StartPoint().Row) + 1,
				})
			}
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), depth+1)
		}
	}
	walk(tree.RootNode(), 0)

	if isIndexFile && topLevelCount > 0 && reExportCount*2 >= topLevelCount {
		pf.IsBarrel = true
	}

	return pf, nil
}

func tsHasExport(n *sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Type() == "export_statement"
}

func tsImportStatement(n *sitter.Node, path string, getText func(*sitter.Node) string) []ImportRef {
	srcNode := n.ChildByFieldName("source")
	if srcNode == nil {
		return nil
	}
	source := strings.Trim(getText(srcNode), `"'`)
	isRelative := strings.HasPrefix(source, ".")

	clause := n.NamedChild(0)
	if clause == nil || clause.Type() != "import_clause" {
		return []ImportRef{{Kind: ImportSideEffect, Source: source, IsRelative: isRelative, FilePath: path, Line: int(n.StartPoint().Row) + 1}}
	}

	var names []string
	kind := ImportNamed
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case "identifier":
			kind = ImportDefault
			names = append(names, getText(child))
		case "namespace_import":
			kind = ImportNamespace
			names = append(names, getText(child))
		case "named_imports":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() == "import_specifier" {
					names = append(names, getText(spec))
				}
			}
		}
	}
	return []ImportRef{{Kind: kind, Source: source, Imported: names, IsRelative: isRelative, FilePath: path, Line: int(n.StartPoint().Row) + 1}}
}

func tsArgCount(args *sitter.Node) int {
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
