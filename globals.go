package soy

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ctxtpl/ctxtpl/ast"
	"github.com/ctxtpl/ctxtpl/data"
	"github.com/ctxtpl/ctxtpl/parse"
)

// ParseGlobals parses the given input, expecting the form:
//  <global_name> = <primitive_data>
//
// Furthermore:
//  - Empty lines and lines beginning with '//' are ignored.
//  - <primitive_data> must be a valid template expression literal for a
//    primitive type (null, boolean, integer, float, or string).
func ParseGlobals(input io.Reader) (data.Map, error) {
	var globals = make(data.Map)
	var scanner = bufio.NewScanner(input)
	for scanner.Scan() {
		var line = scanner.Text()
		if len(line) == 0 || strings.HasPrefix(line, "//") {
			continue
		}
		var eq = strings.Index(line, "=")
		if eq == -1 {
			return nil, fmt.Errorf("no equals on line: %q", line)
		}
		var (
			name = strings.TrimSpace(line[:eq])
			expr = strings.TrimSpace(line[eq+1:])
		)
		if _, ok := globals[name]; ok {
			return nil, fmt.Errorf("global %q already defined", name)
		}
		node, err := parse.Expr(expr)
		if err != nil {
			return nil, err
		}
		value, err := evalLiteral(node)
		if err != nil {
			return nil, fmt.Errorf("global %q: %v", name, err)
		}
		globals[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return globals, nil
}

// evalLiteral evaluates the constant expressions a globals file is allowed
// to contain: primitive literals, and their negation.
func evalLiteral(node ast.Node) (data.Value, error) {
	switch node := node.(type) {
	case *ast.NullNode:
		return data.Null{}, nil
	case *ast.BoolNode:
		return data.Bool(node.True), nil
	case *ast.IntNode:
		return data.Int(node.Value), nil
	case *ast.FloatNode:
		return data.Float(node.Value), nil
	case *ast.StringNode:
		return data.String(node.Value), nil
	case *ast.NegateNode:
		switch arg := node.Arg.(type) {
		case *ast.IntNode:
			return data.Int(-arg.Value), nil
		case *ast.FloatNode:
			return data.Float(-arg.Value), nil
		}
	}
	return nil, fmt.Errorf("not a constant literal: %v", node)
}
