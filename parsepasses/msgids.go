package parsepasses

import (
	"regexp"

	"github.com/ctxtpl/ctxtpl/ast"
	"github.com/ctxtpl/ctxtpl/soymsg"
	"github.com/ctxtpl/ctxtpl/template"
)

// ProcessMessages rewrites every {msg} block's body into placeholder form
// (wrapping embedded prints, calls, and html tags in MsgPlaceholderNode) and
// then calculates the message id and placeholder names for {msg} nodes,
// setting that information on the node.
func ProcessMessages(reg template.Registry) {
	for _, t := range reg.Templates {
		processTemplateMsgs(t.Node)
	}
}

func processTemplateMsgs(node ast.Node) {
	switch node := node.(type) {
	case *ast.MsgNode:
		node.Body = rewriteMsgBody(node.Body)
		soymsg.SetPlaceholdersAndID(node)
	default:
		if parent, ok := node.(ast.ParentNode); ok {
			for _, child := range parent.Children() {
				processTemplateMsgs(child)
			}
		}
	}
}

// htmlTagPattern recognizes a literal HTML start/end tag within a msg
// block's raw text, so it can be split out into its own MsgHtmlTagNode
// placeholder the way soymsg/placeholder.go's genBasePlaceholderNameFromHtml
// expects.
var htmlTagPattern = regexp.MustCompile(`</?[A-Za-z][^<>]*/?>`)

// rewriteMsgBody walks a msg block's raw parsed body (a flat list of
// RawTextNode/PrintNode/CallNode as produced by parse.parseMsg) and wraps
// every child that isn't plain translatable text in a MsgPlaceholderNode, so
// soymsg's placeholder-naming pass has stable nodes to name. MsgPluralNode
// children pass through unwrapped; parse.parseMsg does not produce them.
func rewriteMsgBody(body ast.ParentNode) ast.ParentNode {
	list, ok := body.(*ast.ListNode)
	if !ok {
		return body
	}
	var out = &ast.ListNode{Pos: list.Pos}
	for _, child := range list.Nodes {
		switch child := child.(type) {
		case *ast.RawTextNode:
			out.Nodes = append(out.Nodes, splitHtmlTags(child)...)
		case *ast.MsgPluralNode:
			out.Nodes = append(out.Nodes, child)
		default:
			out.Nodes = append(out.Nodes, &ast.MsgPlaceholderNode{Pos: child.Position(), Body: child})
		}
	}
	return out
}

func splitHtmlTags(n *ast.RawTextNode) []ast.Node {
	var locs = htmlTagPattern.FindAllIndex(n.Text, -1)
	if locs == nil {
		return []ast.Node{n}
	}
	var nodes []ast.Node
	var pos = 0
	for _, loc := range locs {
		if loc[0] > pos {
			nodes = append(nodes, &ast.RawTextNode{Pos: n.Pos, Text: n.Text[pos:loc[0]]})
		}
		var tagText = append([]byte(nil), n.Text[loc[0]:loc[1]]...)
		nodes = append(nodes, &ast.MsgPlaceholderNode{
			Pos:  n.Pos,
			Body: &ast.MsgHtmlTagNode{Pos: n.Pos, Text: tagText},
		})
		pos = loc[1]
	}
	if pos < len(n.Text) {
		nodes = append(nodes, &ast.RawTextNode{Pos: n.Pos, Text: n.Text[pos:]})
	}
	return nodes
}
