// Package types implements the static type lattice described in spec §3
// "Type lattice" and the assignability rules of §4.1. It is deliberately
// separate from package data: data.Value is the runtime representation a
// rendered expression evaluates to, while types.Type is the compile-time
// description the checker attaches to the AST via ast.Annotations.
package types

import "fmt"

// Type is implemented by every member of the lattice.
type Type interface {
	// String renders the type the way it would appear in a signature, e.g.
	// "list<string>" or "(name: string) => html".
	String() string

	// family tags each type with the kind of lattice member it is; it is
	// unexported because the set of families is closed.
	family() family
}

type family int

const (
	familyPrimitive family = iota
	familyContentKind
	familyList
	familyMap
	familyRecord
	familyProto
	familyUnion
	familyFunc
	familyDynamic
)

// Primitive is one of the non-composite, non-sanitized value types.
type Primitive string

const (
	Null      Primitive = "null"
	Undefined Primitive = "undefined"
	Bool      Primitive = "bool"
	Int       Primitive = "int"
	Float     Primitive = "float"
	// Number is the union int ∪ float used for arithmetic typing; it is a
	// distinguished primitive rather than a general Union so it prints and
	// compares the way the spec's grammar describes it.
	Number Primitive = "number"
	String Primitive = "string"
)

func (p Primitive) String() string { return string(p) }
func (Primitive) family() family   { return familyPrimitive }

// ContentKind is a sanitized content kind, per spec §3. html_element is
// modeled as a distinct kind rather than a Primitive so AssignableTo can
// apply the html_element/html<tag> ⊂ html subtyping rule.
type ContentKind struct {
	Name string // "html", "html_element", "attributes", "css", "uri", "trusted_resource_uri", "js", "text"

	// ElementTag is non-empty only for html<tag> element refinements, where
	// Name == "html_element". "?" denotes the top element refinement
	// html<?>, assignable from any html_element.
	ElementTag string
}

const (
	KindHTML                = "html"
	KindHTMLElement         = "html_element"
	KindAttributes          = "attributes"
	KindCSS                 = "css"
	KindURI                 = "uri"
	KindTrustedResourceURI  = "trusted_resource_uri"
	KindJS                  = "js"
	KindText                = "text"
	ElementTagAny           = "?"
)

func HTML() ContentKind               { return ContentKind{Name: KindHTML} }
func HTMLElement(tag string) ContentKind {
	if tag == "" {
		tag = ElementTagAny
	}
	return ContentKind{Name: KindHTMLElement, ElementTag: tag}
}
func Attributes() ContentKind         { return ContentKind{Name: KindAttributes} }
func CSS() ContentKind                { return ContentKind{Name: KindCSS} }
func URI() ContentKind                { return ContentKind{Name: KindURI} }
func TrustedResourceURI() ContentKind { return ContentKind{Name: KindTrustedResourceURI} }
func JS() ContentKind                 { return ContentKind{Name: KindJS} }
func Text() ContentKind               { return ContentKind{Name: KindText} }

func (c ContentKind) String() string {
	if c.Name == KindHTMLElement && c.ElementTag != "" && c.ElementTag != ElementTagAny {
		return fmt.Sprintf("html<%s>", c.ElementTag)
	}
	if c.Name == KindHTMLElement {
		return "html<?>"
	}
	return c.Name
}
func (ContentKind) family() family { return familyContentKind }

// List is list<T>.
type List struct{ Elem Type }

func (l List) String() string  { return "list<" + l.Elem.String() + ">" }
func (List) family() family    { return familyList }

// Map is map<K,V>; K is insertion-ordered at the value level (data.Map),
// which is a runtime property and not tracked here.
type Map struct{ Key, Value Type }

func (m Map) String() string { return fmt.Sprintf("map<%s,%s>", m.Key.String(), m.Value.String()) }
func (Map) family() family   { return familyMap }

// Field is one member of a Record or Proto.
type Field struct {
	Name string
	Type Type
}

// Record is a structural record type, record{f: T, ...}.
type Record struct{ Fields []Field }

func (r Record) String() string {
	s := "record{"
	for i, f := range r.Fields {
		if i > 0 {
			s += ", "
		}
		s += f.Name + ": " + f.Type.String()
	}
	return s + "}"
}
func (Record) family() family { return familyRecord }

func (r Record) field(name string) (Type, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Proto refers to an externally-registered schema by name; this module does
// not implement a concrete proto wire format (out of scope per spec §1), so
// the schema's field types are supplied by the embedder through a
// ProtoRegistry.
type Proto struct{ Message string }

func (p Proto) String() string { return "proto<" + p.Message + ">" }
func (Proto) family() family   { return familyProto }

// ProtoRegistry resolves a proto message name to its field types, so the
// checker can validate `a.f` access on proto-typed expressions the same way
// it validates Record access.
type ProtoRegistry interface {
	Field(message, field string) (Type, bool)
}

// Union is A|B|...; Null is commonly one of the members to model nullable
// types, matching "null is assignable to any nullable position."
type Union struct{ Members []Type }

func (u Union) String() string {
	s := ""
	for i, m := range u.Members {
		if i > 0 {
			s += "|"
		}
		s += m.String()
	}
	return s
}
func (Union) family() family { return familyUnion }

func (u Union) hasNull() bool {
	for _, m := range u.Members {
		if p, ok := m.(Primitive); ok && p == Null {
			return true
		}
	}
	return false
}

// Param is one positional/named parameter of a Func signature.
type Param struct {
	Name     string
	Type     Type
	Optional bool
}

// Func is a template-signature type `(p1: T1, ...) => K`. Per spec §3 it is
// covariant in Return and contravariant in positional parameter types;
// parameter names must also match position by position, since arguments are
// passed by name.
type Func struct {
	Params []Param
	Return Type // always a ContentKind in practice, but left general
}

func (f Func) String() string {
	s := "("
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += p.Name + ": " + p.Type.String()
		if p.Optional {
			s += "="
		}
	}
	return s + ") => " + f.Return.String()
}
func (Func) family() family { return familyFunc }

func (f Func) param(name string) (Param, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Dynamic is the "?" type: assignable to and from anything.
type Dynamic struct{}

func (Dynamic) String() string { return "?" }
func (Dynamic) family() family { return familyDynamic }

// IsDynamic reports whether t is the dynamic type "?".
func IsDynamic(t Type) bool {
	_, ok := t.(Dynamic)
	return ok
}
