package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/FryrAI/keel/internal/graph"
)

// parseGo extracts definitions, references and imports from a Go source
// file using tree-sitter AST queries (§4.3 "Go"). `_test.go` files are
// excluded by default, capitalization determines visibility, `init()` is
// non-callable, and struct methods link to their receiver type.
func parseGo(g *GrammarSet, path string, content []byte) (*ParsedFile, error) {
	g.goParser.SetLanguage(golang.GetLanguage())
	tree, err := g.goParser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	pf := &ParsedFile{Path: path, Language: LangGo}
	// Synthetic module node at position 0 so edges/placement checks always
	// have a parent (§4.3).
	pf.Defs = append(pf.Defs, syntheticModule(path))

	root := tree.RootNode()
	src := content
	getText := func(n *sitter.Node) string { return n.Content(src) }

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := getText(nameNode)
			if name == "init" {
				// init() is non-callable (§4.3); still recorded as a
				// definition so it appears in maps, just never as a Reference
				// target from elsewhere.
			}
			pf.Defs = append(pf.Defs, goFuncDef(n, name, "", path, getText))

		case "method_declaration":
			nameNode := n.ChildByFieldName("name")
			recvNode := n.ChildByFieldName("receiver")
			if nameNode == nil || recvNode == nil {
				break
			}
			name := getText(nameNode)
			receiverType := goReceiverType(recvNode, getText)
			pf.Defs = append(pf.Defs, goFuncDef(n, name, receiverType, path, getText))

		case "type_declaration":
			for i := 0; i < int(n.ChildCount()); i++ {
				spec := n.Child(i)
				if spec.Type() != "type_spec" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				typeNode := spec.ChildByFieldName("type")
				if nameNode == nil || typeNode == nil {
					continue
				}
				kind := graph.KindClass
				switch typeNode.Type() {
				case "struct_type", "interface_type":
					kind = graph.KindClass
				}
				name := getText(nameNode)
				pf.Defs = append(pf.Defs, Definition{
					Kind:         kind,
					Name:         name,
					Signature:    "type " + name + " " + typeNode.Type(),
					Body:         normalizeBody(spec, getText),
					RawBody:      getText(spec),
					FilePath:     path,
					LineStart:    int(spec.StartPoint().Row) + 1,
					LineEnd:      int(spec.EndPoint().Row) + 1,
					IsPublic:     isExported(name),
					HasDocstring: false,
				})
				if typeNode.Type() == "struct_type" {
					pf.Refs = append(pf.Refs, goEmbeddedFieldRefs(typeNode, name, path, getText)...)
				}
			}

		case "import_declaration":
			pf.Imports = append(pf.Imports, goImports(n, path, getText)...)

		case "call_expression":
			pf.Refs = append(pf.Refs, Reference{
				Kind:             RefCall,
				CalleeExpression: getText(n.ChildByFieldName("function")),
				ArgCount:         goArgCount(n.ChildByFieldName("arguments")),
				FilePath:         path,
				Line:             int(n.StartPoint().Row) + 1,
			})
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	if strings.HasSuffix(path, "_test.go") {
		// Excluded at file selection (fsscan.Scanner.Ignored); a _test.go
		// file parsed directly yields its definitions like any other file.
	}

	return pf, nil
}

func goFuncDef(n *sitter.Node, name, receiver, path string, getText func(*sitter.Node) string) Definition {
	paramsNode := n.ChildByFieldName("parameters")
	resultNode := n.ChildByFieldName("result")
	sig := "func "
	if receiver != "" {
		sig += "(" + receiver + ") "
	}
	sig += name
	hasTypes := true
	if paramsNode != nil {
		sig += getText(paramsNode)
		hasTypes = strings.Contains(getText(paramsNode), " ") || getText(paramsNode) == "()"
	}
	if resultNode != nil {
		sig += " " + getText(resultNode)
	}
	doc := goDocComment(n, getText)
	return Definition{
		Kind:             graph.KindFunction,
		Name:             name,
		Signature:        sig,
		Body:             normalizeBody(n, getText),
		RawBody:          getText(n),
		Docstring:        doc,
		FilePath:         path,
		LineStart:        int(n.StartPoint().Row) + 1,
		LineEnd:          int(n.EndPoint().Row) + 1,
		IsPublic:         isExported(name),
		TypeHintsPresent: hasTypes,
		HasDocstring:     doc != "",
		Parent:           receiver,
	}
}

func goReceiverType(recv *sitter.Node, getText func(*sitter.Node) string) string {
	// receiver is a parameter_list with one parameter_declaration whose type
	// may be a pointer_type wrapping a type_identifier.
	for i := 0; i < int(recv.ChildCount()); i++ {
		child := recv.Child(i)
		if child.Type() != "parameter_declaration" {
			continue
		}
		t := child.ChildByFieldName("type")
		if t == nil {
			continue
		}
		if t.Type() == "pointer_type" {
			return strings.TrimPrefix(getText(t), "*")
		}
		return getText(t)
	}
	return ""
}

func goEmbeddedFieldRefs(structType *sitter.Node, ownerName, path string, getText func(*sitter.Node) string) []Reference {
	var refs []Reference
	for i := 0; i < int(structType.ChildCount()); i++ {
		fieldDeclList := structType.Child(i)
		if fieldDeclList.Type() != "field_declaration_list" {
			continue
		}
		for j := 0; j < int(fieldDeclList.ChildCount()); j++ {
			field := fieldDeclList.Child(j)
			if field.Type() != "field_declaration" {
				continue
			}
			// An embedded field has no "name" child, just a type.
			if field.ChildByFieldName("name") != nil {
				continue
			}
			typeNode := field.ChildByFieldName("type")
			if typeNode == nil {
				continue
			}
			refs = append(refs, Reference{
				Kind:             RefInherit,
				CalleeExpression: getText(typeNode),
				FromName:         ownerName,
				FilePath:         path,
				Line:             int(field.StartPoint().Row) + 1,
			})
		}
	}
	return refs
}

func goImports(n *sitter.Node, path string, getText func(*sitter.Node) string) []ImportRef {
	var imports []ImportRef
	var collect func(*sitter.Node)
	collect = func(spec *sitter.Node) {
		if spec.Type() != "import_spec" {
			for i := 0; i < int(spec.ChildCount()); i++ {
				collect(spec.Child(i))
			}
			return
		}
		pathNode := spec.ChildByFieldName("path")
		if pathNode == nil {
			return
		}
		importPath := strings.Trim(getText(pathNode), `"`)
		kind := ImportNamed
		alias := ""
		if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
			alias = getText(nameNode)
			switch alias {
			case "_":
				kind = ImportSideEffect
			case ".":
				kind = ImportStar
			default:
				kind = ImportNamed
			}
		}
		imports = append(imports, ImportRef{
			Kind:     kind,
			Source:   importPath,
			Alias:    alias,
			FilePath: path,
			Line:     int(spec.StartPoint().Row) + 1,
		})
	}
	collect(n)
	return imports
}

func goArgCount(args *sitter.Node) int {
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

// goDocComment looks at the previous sibling for a comment node immediately
// preceding the declaration (tree-sitter-go attaches leading comments as
// preceding siblings, not as children).
func goDocComment(n *sitter.Node, getText func(*sitter.Node) string) string {
	prev := n.PrevSibling()
	var lines []string
	for prev != nil && prev.Type() == "comment" {
		lines = append([]string{strings.TrimSpace(strings.TrimPrefix(getText(prev), "//"))}, lines...)
		prev = prev.PrevSibling()
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	return c >= 'A' && c <= 'Z'
}

func syntheticModule(path string) Definition {
	return Definition{
		Kind:      graph.KindModule,
		Name:      path,
		Signature: "module " + path,
		FilePath:  path,
		LineStart: 0,
		LineEnd:   0,
		IsPublic:  true,
	}
}

// normalizeBody serializes a subtree as pre-order node kinds plus
// identifier/literal content, stripping comments and formatting, so that
// reformatting does not change the hash (§4.1, §8 format invariance).
func normalizeBody(n *sitter.Node, getText func(*sitter.Node) string) string {
	var b strings.Builder
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		t := n.Type()
		if t == "comment" {
			return
		}
		if n.ChildCount() == 0 {
			b.WriteString(t)
			b.WriteByte(':')
			b.WriteString(getText(n))
			b.WriteByte(' ')
			return
		}
		b.WriteString(t)
		b.WriteByte(' ')
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(n)
	return b.String()
}
