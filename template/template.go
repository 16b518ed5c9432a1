package template

import "github.com/ctxtpl/ctxtpl/ast"

// Template is a Soy template's parse tree, including its preceeding soydoc.
type Template struct {
	*ast.SoyDocNode // this template's SoyDoc

	Node      *ast.TemplateNode  // this template's node
	Namespace *ast.NamespaceNode // this template's namespace
}
