package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/FryrAI/keel/internal/graph"
)

// parsePython extracts definitions, references and imports from a Python
// source file (§4.3 "Python"). Visibility follows the `_`/`__` leading-
// underscore convention. A literal-list `__all__` is read while walking but
// is not recorded on the ParsedFile, so star imports are not filtered by it.
func parsePython(g *GrammarSet, path string, content []byte) (*ParsedFile, error) {
	g.pyParser.SetLanguage(python.GetLanguage())
	tree, err := g.pyParser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	pf := &ParsedFile{Path: path, Language: LangPython}
	pf.Defs = append(pf.Defs, syntheticModule(path))

	getText := func(n *sitter.Node) string { return n.Content(content) }

	var dunderAll []string
	var walk func(n *sitter.Node, parentClass string)
	walk = func(n *sitter.Node, parentClass string) {
		switch n.Type() {
		case "class_definition":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := getText(nameNode)
			bodyNode := n.ChildByFieldName("body")
			doc := pythonDocstring(bodyNode, getText)
			pf.Defs = append(pf.Defs, Definition{
				Kind:             graph.KindClass,
				Name:             name,
				Signature:        "class " + name,
				Body:             normalizeBody(n, getText),
				RawBody:          getText(n),
				Docstring:        doc,
				FilePath:         path,
				LineStart:        int(n.StartPoint().Row) + 1,
				LineEnd:          int(n.EndPoint().Row) + 1,
				IsPublic:         pythonIsPublic(name),
				HasDocstring:     doc != "",
				TypeHintsPresent: true,
			})
			if superclasses := n.ChildByFieldName("superclasses"); superclasses != nil {
				for i := 0; i < int(superclasses.ChildCount()); i++ {
					arg := superclasses.Child(i)
					if arg.Type() == "identifier" || arg.Type() == "attribute" {
						pf.Refs = append(pf.Refs, Reference{
							Kind:             RefInherit,
							CalleeExpression: getText(arg),
							FromName:         name,
							FilePath:         path,
							Line:             int(arg.StartPoint().Row) + 1,
						})
					}
				}
			}
			if bodyNode != nil {
				for i := 0; i < int(bodyNode.ChildCount()); i++ {
					walk(bodyNode.Child(i), name)
				}
			}
			return

		case "function_definition":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := getText(nameNode)
			paramsNode := n.ChildByFieldName("parameters")
			retNode := n.ChildByFieldName("return_type")
			sig := "def " + name
			hasHints := true
			if paramsNode != nil {
				sig += getText(paramsNode)
				hasHints = strings.Contains(getText(paramsNode), ":")
			}
			if retNode != nil {
				sig += " -> " + getText(retNode)
			} else {
				hasHints = hasHints && false
			}
			bodyNode := n.ChildByFieldName("body")
			doc := pythonDocstring(bodyNode, getText)
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
				IsPublic:         pythonIsPublic(name),
				TypeHintsPresent: hasHints,
				HasDocstring:     doc != "",
				Parent:           parentClass,
			})

		case "import_statement":
			pf.Imports = append(pf.Imports, pythonImportStatement(n, path, getText)...)

		case "import_from_statement":
			pf.Imports = append(pf.Imports, pythonImportFrom(n, path, getText, &dunderAll)...)

		case "call":
			fn := n.ChildByFieldName("function")
			if fn != nil {
				argsNode := n.ChildByFieldName("arguments")
				pf.Refs = append(pf.Refs, Reference{
					Kind:             RefCall,
					CalleeExpression: getText(fn),
					ArgCount:         pythonArgCount(argsNode),
					FromName:         parentClass,
					FilePath:         path,
					Line:             int(n.StartPoint().Row) + 1,
				})
			}

		case "assignment":
			// Detect `__all__ = [...]` literal lists.
			left := n.ChildByFieldName("left")
			right := n.ChildByFieldName("right")
			if left != nil && getText(left) == "__all__" && right != nil && right.Type() == "list" {
				for i := 0; i < int(right.ChildCount()); i++ {
					item := right.Child(i)
					if item.Type() == "string" {
						dunderAll = append(dunderAll, strings.Trim(getText(item), `"'`))
					}
				}
			}
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), parentClass)
		}
	}
	walk(tree.RootNode(), "")

	return pf, nil
}

func pythonIsPublic(name string) bool {
	return !strings.HasPrefix(name, "_")
}

func pythonDocstring(body *sitter.Node, getText func(*sitter.Node) string) string {
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str.Type() != "string" {
		return ""
	}
	return strings.Trim(strings.TrimSpace(getText(str)), `"'`)
}

func pythonImportStatement(n *sitter.Node, path string, getText func(*sitter.Node) string) []ImportRef {
	var out []ImportRef
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "dotted_name":
			out = append(out, ImportRef{Kind: ImportDefault, Source: getText(child), FilePath: path, Line: int(n.StartPoint().Row) + 1})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode != nil {
				out = append(out, ImportRef{
					Kind: ImportDefault, Source: getText(nameNode),
					Alias: textOrEmpty(aliasNode, getText), FilePath: path, Line: int(n.StartPoint().Row) + 1,
				})
			}
		}
	}
	return out
}

func pythonImportFrom(n *sitter.Node, path string, getText func(*sitter.Node) string, dunderAll *[]string) []ImportRef {
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode == nil {
		return nil
	}
	module := getText(moduleNode)
	isRelative := strings.HasPrefix(module, ".")

	var names []string
	kind := ImportNamed
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "wildcard_import":
			kind = ImportStar
			names = append(names, "*")
		case "dotted_name":
			if child != moduleNode {
				names = append(names, getText(child))
			}
		case "aliased_import":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				names = append(names, getText(nameNode))
			}
		}
	}
	return []ImportRef{{
		Kind:       kind,
		Source:     module,
		Imported:   names,
		IsRelative: isRelative,
		FilePath:   path,
		Line:       int(n.StartPoint().Row) + 1,
	}}
}

func pythonArgCount(args *sitter.Node) int {
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

func textOrEmpty(n *sitter.Node, getText func(*sitter.Node) string) string {
	if n == nil {
		return ""
	}
	return getText(n)
}
