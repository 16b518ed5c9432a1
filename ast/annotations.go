package ast

// Annotations is the per-compilation-unit side table that compile passes use
// to attach derived facts to AST nodes without mutating the tree itself, per
// spec §9 "Tree mutation & annotation": passes must not mutate the AST's
// structure after parsing; they attach per-node annotations via a side-table
// keyed by node identity.
//
// Node identity is the Go pointer value of the node (every AST node is a
// pointer type), which is stable for the lifetime of a compilation unit and
// requires no extra bookkeeping in the node types themselves.
type Annotations struct {
	kinds      map[Node]string
	contexts   map[Node]interface{}
	directives map[Node][]string
	extra      map[Node]map[string]interface{}
}

// NewAnnotations returns an empty annotation table.
func NewAnnotations() *Annotations {
	return &Annotations{
		kinds:      make(map[Node]string),
		contexts:   make(map[Node]interface{}),
		directives: make(map[Node][]string),
		extra:      make(map[Node]map[string]interface{}),
	}
}

// SetContentKind records the inferred/declared content kind string for an
// expression node (one of the types.ContentKind names, or "" for primitive
// types tracked elsewhere).
func (a *Annotations) SetContentKind(n Node, kind string) { a.kinds[n] = kind }

// ContentKind returns the content kind previously recorded for n, if any.
func (a *Annotations) ContentKind(n Node) (string, bool) {
	k, ok := a.kinds[n]
	return k, ok
}

// SetContext records an HTML-context annotation for n. The value is opaque
// to this package. No pass in this module calls SetContext; autoescape keeps
// its context type unexported and does not record contexts here.
func (a *Annotations) SetContext(n Node, ctx interface{}) { a.contexts[n] = ctx }

// Context returns the HTML context previously recorded for n, if any.
func (a *Annotations) Context(n Node) (interface{}, bool) {
	c, ok := a.contexts[n]
	return c, ok
}

// SetDirectives records the escaping/filtering directive chain chosen by the
// autoescaper for a print site. An empty, non-nil slice records "explicitly
// no directives needed" so invariant checks (spec §3) can distinguish that
// from "the autoescaper never visited this node."
func (a *Annotations) SetDirectives(n Node, directives []string) {
	if directives == nil {
		directives = []string{}
	}
	a.directives[n] = directives
}

// Directives returns the directive chain recorded for n, if any.
func (a *Annotations) Directives(n Node) ([]string, bool) {
	d, ok := a.directives[n]
	return d, ok
}

// Set attaches an arbitrary named fact to n, for passes that need more than
// the three well-known slots above (e.g. the type checker's inferred
// types.Type, or the unique-name generator's claimed identifier for a
// generated node).
func (a *Annotations) Set(n Node, key string, value interface{}) {
	m, ok := a.extra[n]
	if !ok {
		m = make(map[string]interface{})
		a.extra[n] = m
	}
	m[key] = value
}

// Get retrieves a fact previously attached with Set.
func (a *Annotations) Get(n Node, key string) (interface{}, bool) {
	m, ok := a.extra[n]
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}
