// Package autoescape provides template rewriters that apply escaping rules.
package autoescape

import (
	"fmt"

	"github.com/ctxtpl/ctxtpl/ast"
	"github.com/ctxtpl/ctxtpl/check"
	"github.com/ctxtpl/ctxtpl/data"
	"github.com/ctxtpl/ctxtpl/soyhtml"
	"github.com/ctxtpl/ctxtpl/template"
	"github.com/ctxtpl/ctxtpl/types"
)

// Strict rewrites all templates in the given registry to add
// contextually-appropriate escaping directives to all print commands.
//
// Instead of specifying an escaping routine to use for a dynamic value, specify
// the "kind" of the data (text, html, css, uri, js, attributes) and the correct
// escaping routines will be used for the kind of data and the context in which
// it's used.
//
// It implements Strict Autoescaping as documented on the official
// site. It does not consult a template's autoescape attribute: every template
// reachable from a root is escaped contextually, including one marked
// autoescape="false". A template's kind selects its start context, and
// {if}, {switch}, {for}, {let} and {call} are followed through.
//
// NOTE: There are some differences in the escaping behavior from the official
// implementation. Roughly, this implementation is a little more conservative.
// Here is a partial list
//
//  +----------------+------+-----------+---------+
//  | Context        | From | To (Java) | To (Go) |
//  +----------------+------+-----------+---------+
//  | Attributes     | '    | '         | &#34;   |
//  | JS             | <    | &lt;      | \u003c  |
//  | JS             | >    | &gt;      | \u003e  |
//  | JS String      | /    | /         | \/      |
//  | JS String      | '    | \'        | \x27    |
//  | JS String      | "    | \"        | \x22    |
//  +----------------+------+-----------+---------+
//
// ann, if non-nil, is the type checker's annotation table (see
// check.TypeOf); it lets Strict enforce StrictEscapeRequired for
// trusted-resource-uri slots. Passing nil skips that enforcement, which
// callers that never ran the checker (e.g. ad hoc rewriting of a single
// template in isolation) may legitimately want.
func Strict(reg *template.Registry, ann *ast.Annotations) (err error) {
	var currentTemplate string
	defer func() {
		if err2 := recover(); err2 != nil {
			err = fmt.Errorf("template %v: %v", currentTemplate, err2)
		}
	}()

	e := newEscaper(reg, ann)

	var callGraph = newCallGraph(reg)
	for _, root := range callGraph.roots() {
		currentTemplate = root.Node.Name
		c := e.escape(context{state: startStateForKind(kind(root.Node.Kind))}, root.Node)
		if c.err != nil {
			c.err.Name = root.Node.Name
			return c.err
		}
	}

	e.commit()
	return nil
}

func startStateForKind(k kind) state {
	switch k {
	case kindCSS:
		return stateCSS
	case kindNone, kindHTML:
		return stateText
	case kindAttr:
		return stateTag
	case kindJS:
		return stateJS
	case kindURL:
		return stateURL
	case kindText:
		// Plain text output is never re-entered as markup; treat it the
		// same as PCDATA for start-context purposes since no nested
		// elements/attributes can appear.
		return stateText
	default:
		panic("unknown kind: " + string(k))
	}
}

// funcMap maps command names to functions that render their inputs safe.
// missing: filterHtmlAttributes
var funcMap = map[string]func(value data.Value, args []data.Value) data.Value{
	"escapeHtmlAttribute":        attrEscaper,
	"escapeCssString":            cssEscaper,
	"filterCssValue":             cssValueFilter,
	"filterHtmlElementName":      htmlNameFilter,
	"escapeHtml":                 htmlEscaper,
	"escapeJsRegex":              jsRegexpEscaper,
	"escapeJsString":             jsStrEscaper,
	"escapeJsValue":              jsValEscaper,
	"escapeHtmlAttributeNospace": htmlNospaceEscaper,
	"escapeHtmlRcdata":           rcdataEscaper,
	"escapeUri":                  urlEscaper,
	"filterNormalizeUri":         urlFilter,
	"normalizeUri":               urlNormalizer,
}

func init() {
	for k, v := range funcMap {
		soyhtml.PrintDirectives[k] = soyhtml.PrintDirective{v, []int{0}, true}
	}
}

// kindToDirectivesSafe maps a directive that escapePrint would otherwise
// insert to the content kinds whose values are already safe against it --
// i.e. a {call} to a template of that kind doesn't need the directive
// run over its output to land safely at a print site that would
// otherwise require it. This mirrors, at the granularity of the
// contextual directives registered in funcMap, what the Soy "kind"
// system is for: a value typed as kind="js" is trusted to already look
// like a well-formed JS value/string/regex wherever one is expected, a
// kind="uri" value is trusted to already be a well-formed URI, and so
// on. Structural kinds (attributes) never satisfy a value-position
// directive, since their content isn't a value at all.
var kindToDirectivesSafe = map[string][]string{
	"html": {"escapeHtml", "escapeHtmlRcdata"},
	"js":   {"escapeJsValue", "escapeJsString", "escapeJsRegex"},
	"uri":  {"escapeUri", "normalizeUri", "filterNormalizeUri"},
	"css":  {"filterCssValue", "escapeCssString"},
}

func kindSatisfiesDirective(k, directive string) bool {
	for _, d := range kindToDirectivesSafe[k] {
		if d == directive {
			return true
		}
	}
	return false
}

// escaper collects type inferences about templates and changes needed to make
// templates injection safe.
type escaper struct {
	reg *template.Registry
	// xxxNodeEdits are the accumulated edits to apply during commit.
	// Such edits are not applied immediately in case a template set
	// executes a given template in different escaping contexts.
	printNodeEdits map[*ast.PrintNode][]string
	// calleeDone remembers, for each (template name, start context) pair
	// already escaped, the context the callee leaves its caller in. This
	// both memoizes repeated {call}s to a shared template and guards
	// against infinite recursion for (mutually) recursive templates: a
	// template re-entered with a start context already in progress is
	// assumed, optimistically, to return to that same start context.
	calleeDone map[calleeKey]context
	inProgress map[calleeKey]bool
	// ann is the type checker's annotation table, used only to enforce
	// StrictEscapeRequired for trusted-resource-uri slots; may be nil.
	ann *ast.Annotations
}

type calleeKey struct {
	name  string
	start context
}

// newEscaper creates a blank escaper for the given set.
func newEscaper(reg *template.Registry, ann *ast.Annotations) *escaper {
	return &escaper{
		reg:            reg,
		printNodeEdits: make(map[*ast.PrintNode][]string),
		calleeDone:     make(map[calleeKey]context),
		inProgress:     make(map[calleeKey]bool),
		ann:            ann,
	}
}

// filterFailsafe is an innocuous word that is emitted in place of unsafe values
// by sanitizer functions. It is not a keyword in any programming language,
// contains no special characters, is not empty, and when it appears in output
// it is distinct enough that a developer can find the source of the problem
// via a search engine.
const filterFailsafe = data.String("zSoyz")

// escape escapes a template node.
func (e *escaper) escape(c context, n ast.Node) context {
	switch n := n.(type) {
	case *ast.TemplateNode:
		return e.escape(c, n.Body)
	case *ast.ListNode:
		return e.escapeList(c, n.Nodes)
	case *ast.RawTextNode:
		return escapeText(c, n)
	case *ast.PrintNode:
		return e.escapePrint(c, n)
	case *ast.LiteralNode:
		// {literal} text is not parsed as markup by the Soy compiler and
		// is emitted byte for byte; it carries no dynamic value, so it
		// can't introduce an escaping hole, but it also isn't validated
		// against the surrounding context the way RawTextNode is.
		return nudge(c)
	case *ast.CssNode:
		return e.escapeCss(c, n)
	case *ast.LogNode:
		return e.escapeLog(c, n)
	case *ast.DebuggerNode:
		return c
	case *ast.LetValueNode:
		// The let's Expr is a data expression, not document text; it has
		// no effect on the surrounding HTML/CSS/JS context.
		return c
	case *ast.LetContentNode:
		return e.escapeLetContent(c, n)
	case *ast.MsgNode:
		return e.escape(c, n.Body)
	case *ast.MsgPlaceholderNode:
		return e.escape(c, n.Body)
	case *ast.MsgHtmlTagNode:
		return escapeText(c, &ast.RawTextNode{Pos: n.Pos, Text: n.Text})
	case *ast.MsgPluralNode:
		return e.escapeMsgPlural(c, n)
	case *ast.IfNode:
		return e.escapeIf(c, n)
	case *ast.SwitchNode:
		return e.escapeSwitch(c, n)
	case *ast.ForNode:
		return e.escapeFor(c, n)
	case *ast.CallNode:
		return e.escapeCall(c, n)
	}
	panic("escaping " + n.String() + " is unimplemented")
}

// escapeList escapes a list of nodes that provide sequential content.
func (e *escaper) escapeList(c context, nodes []ast.Node) context {
	for _, m := range nodes {
		c = e.escape(c, m)
	}
	return c
}

// escapeCss escapes a {css} command. Its output is a (possibly
// rename-mapped) CSS class identifier: renaming never introduces markup
// metacharacters, so the command can't open an injection hole and the
// surrounding context passes through unchanged, aside from the usual
// nudge past a bare tag/attribute name.
func (e *escaper) escapeCss(c context, n *ast.CssNode) context {
	return nudge(c)
}

// escapeLog escapes a {log}...{/log} block. Its body is rendered to the
// logger, never to the document, so it has no bearing on the document's
// escaping context; it is still walked so that any print directives it
// contains get the chance to be validated/escaped for its own sake.
func (e *escaper) escapeLog(c context, n *ast.LogNode) context {
	e.escape(c, n.Body)
	return c
}

// escapeLetContent escapes a {let $x kind="..."}...{/let} block. The
// block is rendered into an isolated buffer (see soyhtml renderBlock)
// whose content must be well formed on its own terms, starting fresh at
// its declared kind; it does not thread into, or get threaded from, the
// context surrounding the {let}.
func (e *escaper) escapeLetContent(c context, n *ast.LetContentNode) context {
	var start = context{state: startStateForKind(kind(n.Kind))}
	var end = e.escape(start, n.Body)
	if end.err != nil {
		return end
	}
	if !isEndOfScopeContext(end, start) {
		return context{
			state: stateError,
			err:   errorf(ErrEndContext, 0, "{let %s}: ends in a different context than it starts: %s", n.Name, end),
		}
	}
	return c
}

// isEndOfScopeContext reports whether end is an acceptable resting place
// for content of the given starting context: either back at start itself
// (for contexts like CSS/JS/attributes that never "close"), or back in
// stateText (for markup whose tags/elements have all been closed).
func isEndOfScopeContext(end, start context) bool {
	if contextsEqual(end, start) {
		return true
	}
	return start.state == stateText && end.state == stateText
}

func contextsEqual(a, b context) bool {
	return a.state == b.state && a.delim == b.delim && a.urlPart == b.urlPart &&
		a.jsCtx == b.jsCtx && a.attr == b.attr && a.element == b.element
}

// escapeIf escapes an {if}/{elseif}/{else} chain. Every branch is
// escaped independently from the same entering context; since exactly
// one branch executes at render time, they must all agree on the
// context they leave the document in, or a later node couldn't be
// escaped correctly regardless of which branch actually ran. A chain
// with no {else} implicitly has a branch that does nothing, so the
// unmodified entering context must also be one of the converged-on
// contexts.
func (e *escaper) escapeIf(c context, n *ast.IfNode) context {
	var hasElse bool
	var result context
	var resultSet bool
	for _, cond := range n.Conds {
		if cond.Cond == nil {
			hasElse = true
		}
		var branchEnd = e.escape(c, cond.Body)
		if branchEnd.err != nil {
			return branchEnd
		}
		if !resultSet {
			result, resultSet = branchEnd, true
			continue
		}
		if !contextsEqual(result, branchEnd) {
			return context{state: stateError, err: errorf(ErrBranchEnd, 0,
				"{if}: branches end in different contexts: %s and %s", result, branchEnd)}
		}
	}
	if !hasElse {
		if !resultSet {
			return c
		}
		if !contextsEqual(result, c) {
			return context{state: stateError, err: errorf(ErrBranchEnd, 0,
				"{if}: branches end in different contexts: %s and %s", result, c)}
		}
	}
	return result
}

// escapeSwitch escapes a {switch}/{case}/{default} chain using the same
// branch-join rule as escapeIf: every case must leave the document in
// the same context, and a chain without a default case implicitly has a
// do-nothing branch that must agree with the others.
func (e *escaper) escapeSwitch(c context, n *ast.SwitchNode) context {
	var hasDefault bool
	var result context
	var resultSet bool
	for _, caseNode := range n.Cases {
		if len(caseNode.Values) == 0 {
			hasDefault = true
		}
		var branchEnd = e.escape(c, caseNode.Body)
		if branchEnd.err != nil {
			return branchEnd
		}
		if !resultSet {
			result, resultSet = branchEnd, true
			continue
		}
		if !contextsEqual(result, branchEnd) {
			return context{state: stateError, err: errorf(ErrBranchEnd, 0,
				"{switch}: cases end in different contexts: %s and %s", result, branchEnd)}
		}
	}
	if !hasDefault {
		if !resultSet {
			return c
		}
		if !contextsEqual(result, c) {
			return context{state: stateError, err: errorf(ErrBranchEnd, 0,
				"{switch}: cases end in different contexts: %s and %s", result, c)}
		}
	}
	return result
}

// escapeMsgPlural escapes a {plural} selection nested in a {msg} block. Every
// case, plus the required default, must end in the same context, the same
// way {switch} cases must agree.
func (e *escaper) escapeMsgPlural(c context, n *ast.MsgPluralNode) context {
	var result context
	var resultSet bool
	for _, caseNode := range n.Cases {
		var branchEnd = e.escape(c, caseNode.Body)
		if branchEnd.err != nil {
			return branchEnd
		}
		if !resultSet {
			result, resultSet = branchEnd, true
			continue
		}
		if !contextsEqual(result, branchEnd) {
			return context{state: stateError, err: errorf(ErrBranchEnd, 0,
				"{plural}: cases end in different contexts: %s and %s", result, branchEnd)}
		}
	}
	var defaultEnd = e.escape(c, n.Default)
	if defaultEnd.err != nil {
		return defaultEnd
	}
	if resultSet && !contextsEqual(result, defaultEnd) {
		return context{state: stateError, err: errorf(ErrBranchEnd, 0,
			"{plural}: cases end in different contexts: %s and %s", result, defaultEnd)}
	}
	return defaultEnd
}

// escapeFor escapes a {for}/{ifempty} loop. The loop body may run zero
// or more times, so its end context must equal its start context (a
// fixed point); otherwise the context after the second iteration would
// differ from the context after the first. The {ifempty} branch, which
// runs instead of the body when the list is empty, must leave the same
// context as running the body zero times would, i.e. the loop's own
// start context.
func (e *escaper) escapeFor(c context, n *ast.ForNode) context {
	var bodyEnd = e.escape(c, n.Body)
	if bodyEnd.err != nil {
		return bodyEnd
	}
	if !contextsEqual(bodyEnd, c) {
		return context{state: stateError, err: errorf(ErrRangeLoopReentry, 0,
			"{for %s}: loop body does not end in the context it starts in: %s vs %s", n.Var, c, bodyEnd)}
	}
	if n.IfEmpty != nil {
		var emptyEnd = e.escape(c, n.IfEmpty)
		if emptyEnd.err != nil {
			return emptyEnd
		}
		if !contextsEqual(emptyEnd, c) {
			return context{state: stateError, err: errorf(ErrBranchEnd, 0,
				"{ifempty}: ends in a different context than the loop body: %s vs %s", c, emptyEnd)}
		}
	}
	return c
}

// escapeCall escapes a {call}. A called template's output is not a
// dynamic value substituted through a print directive chain -- it is
// produced by walking the callee's own, separately-escaped body -- so a
// call is handled like splicing in a block of content of the callee's
// declared kind, the same way a {let kind="..."} block is. The callee is
// escaped (once per distinct starting context, memoized) as if it were
// itself a root template starting in its own kind's start state, then
// the call site checks that content of that kind is actually safe to
// land in the surrounding context.
func (e *escaper) escapeCall(c context, n *ast.CallNode) context {
	c = nudge(c)
	if c.state == stateError {
		return c
	}
	callee, ok := e.reg.Template(n.Name)
	if !ok {
		return context{state: stateError, err: errorf(ErrNoSuchTemplate, 0, "{call %s}: no such template", n.Name)}
	}
	var calleeKindStr = callee.Node.Kind
	if calleeKindStr == "" {
		calleeKindStr = "html"
	}

	var directives, end, derr = e.directivesForValue(c, n)
	if derr != nil {
		return context{state: stateError, err: derr}
	}
	for _, d := range directives {
		if !kindSatisfiesDirective(calleeKindStr, d) {
			return context{state: stateError, err: errorf(ErrOutputContext, 0,
				"{call %s}: produces %s content, which is not known-safe for the surrounding context (would need %v)",
				n.Name, calleeKindStr, directives)}
		}
	}

	var key = calleeKey{name: callee.Node.Name, start: context{state: startStateForKind(kind(callee.Node.Kind))}}
	if _, done := e.calleeDone[key]; !done && !e.inProgress[key] {
		e.inProgress[key] = true
		var calleeEnd = e.escape(key.start, callee.Node.Body)
		delete(e.inProgress, key)
		if calleeEnd.err != nil {
			return calleeEnd
		}
		e.calleeDone[key] = calleeEnd
	}
	return end
}

// directivesForValue computes the print-directive chain, and resulting
// context, that substituting a dynamic value of unknown kind at c would
// require. It is shared by escapePrint (which can attach the directives
// to a node) and escapeCall (which can only use it to validate that the
// callee's declared kind already satisfies what the chain would do).
func (e *escaper) directivesForValue(c context, n ast.Node) ([]string, context, *Error) {
	if c.attr == attrTrustedResourceURL {
		if pn, ok := n.(*ast.PrintNode); ok && !e.hasTrustedResourceKind(pn.Arg) {
			return nil, context{}, errorf(ErrStrictEscapeRequired, 0,
				"%s: a value of unknown content kind may not be printed into a trusted-resource-uri slot; "+
					"it must be kind=\"trusted_resource_uri\"", n)
		}
	}
	s := make([]string, 0, 3)
	switch c.state {
	case stateError:
		return nil, c, nil
	case stateURL, stateCSSDqStr, stateCSSSqStr, stateCSSDqURL, stateCSSSqURL, stateCSSURL:
		switch c.urlPart {
		case urlPartNone:
			s = append(s, "filterNormalizeUri")
			fallthrough
		case urlPartPreQuery:
			switch c.state {
			case stateCSSDqStr, stateCSSSqStr:
				s = append(s, "escapeCssString")
			default:
				s = append(s, "normalizeUri")
			}
		case urlPartQueryOrFrag:
			s = append(s, "escapeUri")
		case urlPartUnknown:
			return nil, context{}, errorf(ErrAmbigContext, 0, "%s appears in an ambiguous URL context", n)
		default:
			panic(c.urlPart.String())
		}
	case stateJS:
		s = append(s, "escapeJsValue")
		// A slash after a value starts a div operator.
		c.jsCtx = jsCtxDivOp
	case stateJSDqStr, stateJSSqStr:
		s = append(s, "escapeJsString")
	case stateJSRegexp:
		s = append(s, "escapeJsRegex")
	case stateCSS:
		s = append(s, "filterCssValue")
	case stateText:
		s = append(s, "escapeHtml")
	case stateRCDATA:
		s = append(s, "escapeHtmlRcdata")
	case stateAttr:
		// Handled below in delim check.
	case stateAttrName, stateTag:
		c.state = stateAttrName
		s = append(s, "filterHtmlElementName")
	default:
		if isComment(c.state) {
			return nil, context{}, errorf(ErrBadHTML, 0, "may not {print} or {call} within a comment")
		}
		panic("unexpected state " + c.state.String())
	}
	switch c.delim {
	case delimNone:
		// No extra-escaping needed for raw text content.
	case delimSpaceOrTagEnd:
		s = append(s, "escapeHtmlAttributeNospace")
	default:
		s = append(s, "escapeHtmlAttribute")
	}
	return s, c, nil
}

// hasTrustedResourceKind reports whether arg's statically-known content
// kind is trusted_resource_uri. With no annotation table available (e.ann
// nil, or the checker never ran over arg), it reports true so that
// StrictEscapeRequired is only enforced when the checker's result is
// actually on hand to distinguish "declared safe" from "unknown kind".
func (e *escaper) hasTrustedResourceKind(arg ast.Node) bool {
	if e.ann == nil {
		return true
	}
	t, ok := check.TypeOf(e.ann, arg)
	if !ok {
		return true
	}
	ck, ok := t.(types.ContentKind)
	if !ok {
		return false
	}
	return ck.Name == types.KindTrustedResourceURI
}

func (e *escaper) escapePrint(c context, n *ast.PrintNode) context {
	c = nudge(c)
	s, end, err := e.directivesForValue(c, n)
	if err != nil {
		return context{state: stateError, err: err}
	}
	if end.state == stateError {
		return end
	}
	e.editPrintNode(n, s)
	return end
}

// editPrintNode records a change to a print node
func (e *escaper) editPrintNode(n *ast.PrintNode, directives []string) {
	if _, ok := e.printNodeEdits[n]; ok {
		panic(fmt.Sprintf("node %s already edited", n))
	}
	e.printNodeEdits[n] = directives
}

// commit applies changes to print nodes
func (e *escaper) commit() {
	for node, directives := range e.printNodeEdits {
		for _, directive := range directives {
			node.Directives = append(node.Directives, &ast.PrintDirectiveNode{node.Pos, directive, nil})
		}
	}
}
