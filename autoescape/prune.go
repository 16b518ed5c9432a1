package autoescape

import (
	"github.com/ctxtpl/ctxtpl/ast"
	"github.com/ctxtpl/ctxtpl/builtin"
	"github.com/ctxtpl/ctxtpl/check"
	"github.com/ctxtpl/ctxtpl/template"
	"github.com/ctxtpl/ctxtpl/types"
)

// Prune removes print directives that Strict assigned but that are already
// satisfied by a printed value's statically-known content kind, e.g. a
// value typed kind="html" printed into an HTML-text slot doesn't need
// |escapeHtml re-applied on top of it. It runs after Strict has committed
// its directive edits to the tree; ann is the annotation table check.Checker
// populated. A nil ann, or a print whose argument has no recorded content
// kind, leaves the directive chain untouched.
func Prune(reg *template.Registry, ann *ast.Annotations) {
	if ann == nil {
		return
	}
	for _, t := range reg.Templates {
		pruneNode(t.Node.Body, ann)
	}
}

func pruneNode(n ast.Node, ann *ast.Annotations) {
	if n == nil {
		return
	}
	if p, ok := n.(*ast.PrintNode); ok {
		prunePrint(p, ann)
	}
	if parent, ok := n.(ast.ParentNode); ok {
		for _, child := range parent.Children() {
			pruneNode(child, ann)
		}
	}
}

// prunePrint elides the directives in n.Directives that builtin.
// IsSafeForContext reports as already satisfied by n.Arg's static content
// kind, preserving the relative order of whatever remains.
func prunePrint(n *ast.PrintNode, ann *ast.Annotations) {
	t, ok := check.TypeOf(ann, n.Arg)
	if !ok {
		return
	}
	ck, ok := t.(types.ContentKind)
	if !ok {
		return
	}
	var kept = n.Directives[:0:0]
	for _, d := range n.Directives {
		if builtin.IsSafeForContext(d.Name, ck.Name) {
			continue
		}
		kept = append(kept, d)
	}
	n.Directives = kept
}
