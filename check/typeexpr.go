package check

import (
	"strings"

	"github.com/ctxtpl/ctxtpl/types"
)

// parseTypeExpr parses the inline {Type} annotation grammar used in @param
// doc comments (see ast.SoyDocParamNode.Type and
// parse.parseParamAnnotations) into a types.Type. The grammar is a small
// subset of spec §3's type syntax:
//
//	type       := union
//	union      := atom ("|" atom)*
//	atom       := "?" | primitive | contentKind | "list<" type ">"
//	            | "map<" type "," type ">" | "record{" fields "}"
//	            | "proto<" ident ">"
//	fields     := (ident ":" type ("," ident ":" type)*)?
//
// An empty or unparsable expression resolves to Dynamic, matching the
// gradual-typing allowance of untyped @param declarations.
func parseTypeExpr(expr string, protos types.ProtoRegistry) types.Type {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return types.Dynamic{}
	}
	p := &typeParser{s: expr, protos: protos}
	t := p.parseUnion()
	if p.failed {
		return types.Dynamic{}
	}
	return t
}

type typeParser struct {
	s      string
	pos    int
	failed bool
	protos types.ProtoRegistry
}

func (p *typeParser) parseUnion() types.Type {
	members := []types.Type{p.parseAtom()}
	p.skipSpace()
	for p.peek() == '|' {
		p.pos++
		members = append(members, p.parseAtom())
		p.skipSpace()
	}
	if len(members) == 1 {
		return members[0]
	}
	return types.Union{Members: members}
}

func (p *typeParser) parseAtom() types.Type {
	p.skipSpace()
	if p.failed {
		return types.Dynamic{}
	}
	if p.peek() == '?' {
		p.pos++
		return types.Dynamic{}
	}
	ident := p.parseIdent()
	if ident == "" {
		p.failed = true
		return types.Dynamic{}
	}
	switch ident {
	case "int":
		return types.Int
	case "float":
		return types.Float
	case "number":
		return types.Number
	case "bool":
		return types.Bool
	case "string":
		return types.String
	case "null":
		return types.Null
	case types.KindHTML:
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
	case types.KindHTMLElement:
		tag := ElementTagAny
		if p.peek() == '<' {
			p.pos++
			tag = p.parseIdent()
			p.expect('>')
		}
		return types.HTMLElement(tag)
	case "list":
		p.expect('<')
		elem := p.parseUnion()
		p.expect('>')
		return types.List{Elem: elem}
	case "map":
		p.expect('<')
		key := p.parseUnion()
		p.expect(',')
		val := p.parseUnion()
		p.expect('>')
		return types.Map{Key: key, Value: val}
	case "record":
		return p.parseRecord()
	case "proto":
		p.expect('<')
		name := p.parseIdent()
		p.expect('>')
		return types.Proto{Message: name}
	}
	p.failed = true
	return types.Dynamic{}
}

// ElementTagAny mirrors types.ElementTagAny; redeclared here so typeexpr.go
// doesn't need an extra import alias.
const ElementTagAny = types.ElementTagAny

func (p *typeParser) parseRecord() types.Type {
	p.expect('{')
	var fields []types.Field
	p.skipSpace()
	for p.peek() != '}' && !p.failed {
		name := p.parseIdent()
		p.expect(':')
		ft := p.parseUnion()
		fields = append(fields, types.Field{Name: name, Type: ft})
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			p.skipSpace()
		}
	}
	p.expect('}')
	return types.Record{Fields: fields}
}

func (p *typeParser) parseIdent() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	return p.s[start:p.pos]
}

func (p *typeParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *typeParser) expect(c byte) {
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != c {
		p.failed = true
		return
	}
	p.pos++
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}
