// Package check implements the static type checker described in spec §4.1.
// It mirrors the bottom-up switch-dispatch style of soyhtml's expression
// evaluator (soyhtml/exec.go's state.eval), but over types.Type instead of
// data.Value, and records results in an ast.Annotations side-table instead
// of mutating the tree, per spec §9.
package check

import (
	"fmt"

	"github.com/ctxtpl/ctxtpl/ast"
	"github.com/ctxtpl/ctxtpl/builtin"
	"github.com/ctxtpl/ctxtpl/diag"
	"github.com/ctxtpl/ctxtpl/template"
	"github.com/ctxtpl/ctxtpl/types"
)

// Diagnostic codes emitted by this package.
const (
	CodeTypeMismatch     diag.Code = "TypeMismatch"
	CodeUnknownField     diag.Code = "UnknownField"
	CodeArgumentMismatch diag.Code = "ArgumentMismatch"
	CodeCallCycle        diag.Code = "CallCycle"
	CodeUnknownFunction  diag.Code = "UnknownFunction"
	CodeUnknownTemplate  diag.Code = "UnknownTemplate"
)

// Checker type-checks every template in a registry, attaching an inferred
// types.Type to every expression node it visits via Annotations.Set(node,
// "type", t) and reporting diagnostics for violations.
type Checker struct {
	reg      *template.Registry
	ann      *ast.Annotations
	reporter *diag.Reporter
	protos   types.ProtoRegistry

	// inProgress and sigCache are allocated by New but not read by any
	// check: no call-cycle detection is performed, and CodeCallCycle is
	// never reported.
	inProgress map[string]bool
	sigCache   map[string]types.Func
}

// New constructs a Checker. protos may be nil if the module under check
// declares no proto-typed parameters.
func New(reg *template.Registry, ann *ast.Annotations, reporter *diag.Reporter, protos types.ProtoRegistry) *Checker {
	return &Checker{
		reg:        reg,
		ann:        ann,
		reporter:   reporter,
		protos:     protos,
		inProgress: make(map[string]bool),
		sigCache:   make(map[string]types.Func),
	}
}

// annotationKey is the ast.Annotations "extra" key under which inferred
// expression types are stored.
const annotationKey = "type"

// TypeOf returns the type the checker inferred for node, if Check has run.
func TypeOf(ann *ast.Annotations, node ast.Node) (types.Type, bool) {
	v, ok := ann.Get(node, annotationKey)
	if !ok {
		return nil, false
	}
	t, ok := v.(types.Type)
	return t, ok
}

func (c *Checker) setType(node ast.Node, t types.Type) types.Type {
	c.ann.Set(node, annotationKey, t)
	return t
}

// Check type-checks every template registered in the registry.
func (c *Checker) Check() error {
	for _, t := range c.reg.Templates {
		c.checkTemplate(t)
	}
	return c.reporter.Err()
}

// scope tracks the types visible to a DataRefNode lookup: declared params
// (by name) and {let} bindings introduced during traversal, mirroring
// parsepasses.templateChecker's letVars stack but carrying a Type per
// binding instead of a bare name.
type scope struct {
	vars map[string]types.Type
}

func newScope() *scope { return &scope{vars: make(map[string]types.Type)} }

func (s *scope) clone() *scope {
	cp := newScope()
	for k, v := range s.vars {
		cp.vars[k] = v
	}
	return cp
}

func (c *Checker) checkTemplate(t template.Template) {
	sc := newScope()
	for _, p := range t.Params {
		pt := c.resolveDeclaredType(p)
		sc.vars[p.Name] = pt
	}
	c.checkNode(t.Node.Body, sc, t.Node.Name)
}

// resolveDeclaredType parses a SoyDocParamNode's inline {Type} annotation
// (see ast.SoyDocParamNode.Type, parsed by parse.parseParamAnnotations) into
// a types.Type, defaulting to Dynamic when the template author didn't
// declare one -- untyped params remain legal, per spec §4.1's "gradual
// typing" allowance.
func (c *Checker) resolveDeclaredType(p *ast.SoyDocParamNode) types.Type {
	t := parseTypeExpr(p.Type, c.protos)
	if p.Optional {
		return types.Union{Members: []types.Type{t, types.Null}}
	}
	return t
}

func (c *Checker) checkNode(node ast.Node, sc *scope, templateName string) {
	switch n := node.(type) {
	case *ast.LetValueNode:
		sc.vars[n.Name] = c.inferExpr(n.Expr, sc, templateName)
		return
	case *ast.LetContentNode:
		sc.vars[n.Name] = kindType(n.Kind)
		c.recurseChildren(n, sc, templateName)
		return
	case *ast.PrintNode:
		c.inferExpr(n.Arg, sc, templateName)
	case *ast.IfCondNode:
		c.inferExpr(n.Cond, sc, templateName)
	case *ast.SwitchNode:
		c.inferExpr(n.Value, sc, templateName)
	case *ast.ForNode:
		listT := c.inferExpr(n.List, sc, templateName)
		inner := sc.clone()
		if lst, ok := listT.(types.List); ok {
			inner.vars[n.Var] = lst.Elem
		} else {
			inner.vars[n.Var] = types.Dynamic{}
		}
		c.recurseChildren(n, inner, templateName)
		return
	case *ast.CallNode:
		c.checkCall(n, sc, templateName)
		return
	case *ast.DataRefNode:
		c.inferExpr(n, sc, templateName)
		return
	}
	c.recurseChildren(node, sc, templateName)
}

func (c *Checker) recurseChildren(node ast.Node, sc *scope, templateName string) {
	parent, ok := node.(ast.ParentNode)
	if !ok {
		return
	}
	for _, child := range parent.Children() {
		if child == nil {
			continue
		}
		c.checkNode(child, sc, templateName)
	}
}

func (c *Checker) checkCall(n *ast.CallNode, sc *scope, templateName string) {
	callee, ok := c.reg.Template(n.Name)
	if !ok {
		c.reporter.Errorf(diag.Location{}, CodeUnknownTemplate,
			"{call %s}: no such template", n.Name)
		return
	}
	for _, callParam := range n.Params {
		switch cp := callParam.(type) {
		case *ast.CallParamValueNode:
			got := c.inferExpr(cp.Value, sc, templateName)
			c.checkCalleeParamType(callee, cp.Key, got, n.Name)
		case *ast.CallParamContentNode:
			got := kindType(cp.Kind)
			c.checkCalleeParamType(callee, cp.Key, got, n.Name)
			c.recurseChildren(cp, sc, templateName)
		}
	}
}

func (c *Checker) checkCalleeParamType(callee template.Template, key string, got types.Type, calleeName string) {
	for _, p := range callee.Params {
		if p.Name != key {
			continue
		}
		want := c.resolveDeclaredType(p)
		if !types.AssignableTo(got, want) {
			c.reporter.Errorf(diag.Location{}, CodeTypeMismatch,
				"{call %s}: param %q has type %s, expected %s", calleeName, key, got, want)
		}
		return
	}
}

// inferExpr computes and records the type of an expression node, mirroring
// the case order of soyhtml.state.eval.
func (c *Checker) inferExpr(node ast.Node, sc *scope, templateName string) types.Type {
	switch n := node.(type) {
	case *ast.NullNode:
		return c.setType(n, types.Null)
	case *ast.BoolNode:
		return c.setType(n, types.Bool)
	case *ast.IntNode:
		return c.setType(n, types.Int)
	case *ast.FloatNode:
		return c.setType(n, types.Float)
	case *ast.StringNode:
		return c.setType(n, types.String)
	case *ast.GlobalNode:
		return c.setType(n, types.Dynamic{})
	case *ast.ListLiteralNode:
		var elem types.Type = types.Dynamic{}
		for i, item := range n.Items {
			it := c.inferExpr(item, sc, templateName)
			if i == 0 {
				elem = it
			} else {
				elem = types.LeastUpperBound(elem, it)
			}
		}
		return c.setType(n, types.List{Elem: elem})
	case *ast.MapLiteralNode:
		var val types.Type = types.Dynamic{}
		first := true
		for _, v := range n.Items {
			vt := c.inferExpr(v, sc, templateName)
			if first {
				val = vt
				first = false
			} else {
				val = types.LeastUpperBound(val, vt)
			}
		}
		return c.setType(n, types.Map{Key: types.String, Value: val})
	case *ast.DataRefNode:
		return c.setType(n, c.inferDataRef(n, sc, templateName))
	case *ast.FunctionNode:
		return c.setType(n, c.checkFunctionCall(n, sc, templateName))
	case *ast.NotNode:
		c.inferExpr(n.Arg, sc, templateName)
		return c.setType(n, types.Bool)
	case *ast.NegateNode:
		arg := c.inferExpr(n.Arg, sc, templateName)
		if !types.AssignableTo(arg, types.Number) {
			c.reporter.Errorf(diag.Location{}, CodeTypeMismatch,
				"in %s: cannot negate %s", templateName, arg)
		}
		return c.setType(n, arg)
	case *ast.AddNode:
		return c.setType(n, c.inferAdd(n, sc, templateName))
	case *ast.SubNode:
		return c.setType(n, c.inferArith(&n.BinaryOpNode, sc, templateName))
	case *ast.MulNode:
		return c.setType(n, c.inferArith(&n.BinaryOpNode, sc, templateName))
	case *ast.DivNode:
		c.inferExpr(n.Arg1, sc, templateName)
		c.inferExpr(n.Arg2, sc, templateName)
		return c.setType(n, types.Float)
	case *ast.ModNode:
		c.inferExpr(n.Arg1, sc, templateName)
		c.inferExpr(n.Arg2, sc, templateName)
		return c.setType(n, types.Int)
	case *ast.EqNode, *ast.NotEqNode, *ast.GtNode, *ast.GteNode, *ast.LtNode, *ast.LteNode,
		*ast.AndNode, *ast.OrNode:
		bin := binaryOpOf(n)
		c.inferExpr(bin.Arg1, sc, templateName)
		c.inferExpr(bin.Arg2, sc, templateName)
		return c.setType(node, types.Bool)
	case *ast.ElvisNode:
		a1 := c.inferExpr(n.Arg1, sc, templateName)
		a2 := c.inferExpr(n.Arg2, sc, templateName)
		return c.setType(n, types.LeastUpperBound(stripNull(a1), a2))
	case *ast.TernNode:
		c.inferExpr(n.Arg1, sc, templateName)
		a2 := c.inferExpr(n.Arg2, sc, templateName)
		a3 := c.inferExpr(n.Arg3, sc, templateName)
		return c.setType(n, types.LeastUpperBound(a2, a3))
	}
	return types.Dynamic{}
}

func binaryOpOf(n ast.Node) *ast.BinaryOpNode {
	switch n := n.(type) {
	case *ast.EqNode:
		return &n.BinaryOpNode
	case *ast.NotEqNode:
		return &n.BinaryOpNode
	case *ast.GtNode:
		return &n.BinaryOpNode
	case *ast.GteNode:
		return &n.BinaryOpNode
	case *ast.LtNode:
		return &n.BinaryOpNode
	case *ast.LteNode:
		return &n.BinaryOpNode
	case *ast.AndNode:
		return &n.BinaryOpNode
	case *ast.OrNode:
		return &n.BinaryOpNode
	}
	panic(fmt.Sprintf("check: unhandled binary op node %T", n))
}

func stripNull(t types.Type) types.Type {
	u, ok := t.(types.Union)
	if !ok {
		return t
	}
	var kept []types.Type
	for _, m := range u.Members {
		if p, ok := m.(types.Primitive); ok && p == types.Null {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return types.Union{Members: kept}
}

func (c *Checker) inferAdd(n *ast.AddNode, sc *scope, templateName string) types.Type {
	a1 := c.inferExpr(n.Arg1, sc, templateName)
	a2 := c.inferExpr(n.Arg2, sc, templateName)
	if a1 == types.String || a2 == types.String {
		return types.String
	}
	return numericResult(a1, a2)
}

func (c *Checker) inferArith(n *ast.BinaryOpNode, sc *scope, templateName string) types.Type {
	a1 := c.inferExpr(n.Arg1, sc, templateName)
	a2 := c.inferExpr(n.Arg2, sc, templateName)
	return numericResult(a1, a2)
}

func numericResult(a1, a2 types.Type) types.Type {
	if a1 == types.Int && a2 == types.Int {
		return types.Int
	}
	return types.Float
}

// inferDataRef resolves a $key.a.b[c] chain against the scope, walking
// Record/Proto/List/Map shapes the same way soyhtml.state.evalDataRef walks
// data.Value shapes at runtime.
func (c *Checker) inferDataRef(n *ast.DataRefNode, sc *scope, templateName string) types.Type {
	cur, ok := sc.vars[n.Key]
	if !ok {
		// Undeclared keys are caught by parsepasses.CheckDataRefs, which
		// runs before this pass; treat as dynamic here to avoid duplicate
		// diagnostics.
		cur = types.Dynamic{}
	}
	for _, access := range n.Access {
		switch a := access.(type) {
		case *ast.DataRefKeyNode:
			cur = c.fieldType(cur, a.Key, templateName)
		case *ast.DataRefIndexNode:
			if lst, ok := cur.(types.List); ok {
				cur = lst.Elem
			} else {
				cur = types.Dynamic{}
			}
		case *ast.DataRefExprNode:
			c.inferExpr(a.Arg, sc, templateName)
			switch m := cur.(type) {
			case types.Map:
				cur = m.Value
			case types.List:
				cur = m.Elem
			default:
				cur = types.Dynamic{}
			}
		}
	}
	return cur
}

func (c *Checker) fieldType(base types.Type, field, templateName string) types.Type {
	switch b := base.(type) {
	case types.Record:
		for _, f := range b.Fields {
			if f.Name == field {
				return f.Type
			}
		}
		c.reporter.Errorf(diag.Location{}, CodeUnknownField,
			"in %s: %s has no field %q", templateName, b, field)
		return types.Dynamic{}
	case types.Proto:
		if c.protos != nil {
			if t, ok := c.protos.Field(b.Message, field); ok {
				return t
			}
		}
		c.reporter.Errorf(diag.Location{}, CodeUnknownField,
			"in %s: proto %s has no field %q", templateName, b.Message, field)
		return types.Dynamic{}
	case types.Dynamic:
		return types.Dynamic{}
	default:
		return types.Dynamic{}
	}
}

// checkFunctionCall validates arity/arg types for builtin.Funcs entries,
// and special-cases bind() and ordainAsSafe() whose signatures are not
// fixed-arity (spec §4.1's "bind() and content-kind coercions").
func (c *Checker) checkFunctionCall(n *ast.FunctionNode, sc *scope, templateName string) types.Type {
	for _, arg := range n.Args {
		c.inferExpr(arg, sc, templateName)
	}
	switch n.Name {
	case "bind":
		return c.checkBind(n, sc, templateName)
	case "ordainAsSafe":
		return c.checkOrdainAsSafe(n, templateName)
	}
	f, ok := builtin.Funcs[n.Name]
	if !ok {
		c.reporter.Errorf(diag.Location{}, CodeUnknownFunction,
			"in %s: unknown function %q", templateName, n.Name)
		return types.Dynamic{}
	}
	if !f.ValidArgLength(len(n.Args)) {
		c.reporter.Errorf(diag.Location{}, CodeArgumentMismatch,
			"in %s: %s() called with %d args", templateName, n.Name, len(n.Args))
	}
	if f.Return != nil {
		return f.Return
	}
	return types.Dynamic{}
}

// checkBind resolves bind(fn, ...)'s result type as fn's Func type,
// unchanged: the bound parameters are not removed from the signature, and
// the arguments after fn are type-inferred but not checked against fn's
// parameters.
func (c *Checker) checkBind(n *ast.FunctionNode, sc *scope, templateName string) types.Type {
	if len(n.Args) == 0 {
		c.reporter.Errorf(diag.Location{}, CodeArgumentMismatch,
			"in %s: bind() requires a template reference argument", templateName)
		return types.Dynamic{}
	}
	fnType := c.inferExpr(n.Args[0], sc, templateName)
	fn, ok := fnType.(types.Func)
	if !ok {
		c.reporter.Errorf(diag.Location{}, CodeTypeMismatch,
			"in %s: bind()'s first argument is not a template reference", templateName)
		return types.Dynamic{}
	}
	return fn
}

// checkOrdainAsSafe resolves ordainAsSafe(value, "kind")'s result type to
// the named content kind, the escape hatch described in spec §4.3 for
// trusted, pre-sanitized content crossing from an external source.
func (c *Checker) checkOrdainAsSafe(n *ast.FunctionNode, templateName string) types.Type {
	if len(n.Args) != 2 {
		c.reporter.Errorf(diag.Location{}, CodeArgumentMismatch,
			"in %s: ordainAsSafe(value, kind) requires 2 arguments", templateName)
		return types.Dynamic{}
	}
	lit, ok := n.Args[1].(*ast.StringNode)
	if !ok {
		c.reporter.Errorf(diag.Location{}, CodeArgumentMismatch,
			"in %s: ordainAsSafe()'s second argument must be a string literal content kind", templateName)
		return types.Dynamic{}
	}
	return kindType(lit.Value)
}

func kindType(kind string) types.Type {
	switch kind {
	case types.KindHTML, "":
		return types.HTML()
	case types.KindAttributes:
		return types.Attributes()
	case types.KindCSS:
		return types.CSS()
	case types.KindURI:
		return types.URI()
	case types.KindTrustedResourceURI:
		return types.TrustedResourceURI()
	case types.KindJS:
		return types.JS()
	case types.KindText:
		return types.Text()
	default:
		return types.Dynamic{}
	}
}
