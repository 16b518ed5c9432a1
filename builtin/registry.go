// Package builtin describes the static signatures of the functions and
// print directives that soyhtml.Funcs / soyhtml.PrintDirectives implement
// at runtime. The type checker (package check) uses these descriptors to
// validate call arity and argument types; the autoescaper (package
// autoescape) uses IsSafeForContext to decide whether a directive may be
// elided from an escaping chain or is inherently contextually unsafe
// (spec §4.4, "escaping directive chains").
package builtin

import "github.com/ctxtpl/ctxtpl/types"

// Func describes one entry of soyhtml.Funcs.
type Func struct {
	Name            string
	ValidArgLengths []int
	ArgTypes        []types.Type // parallel to the first ValidArgLengths entry; "" / nil means untyped (?)
	Return          types.Type
	// Pure marks a function whose result depends only on its arguments, so
	// the checker and conformance engine may treat repeated calls as
	// substitutable (e.g. for the conformance BannedFunction check, which
	// cares about identity, not purity -- kept here for the type checker's
	// constant-folding of calls like max()/min() in the future).
	Pure bool
}

// Directive describes one entry of soyhtml.PrintDirectives.
type Directive struct {
	Name             string
	ValidArgLengths  []int
	CancelAutoescape bool
	// ContextuallySafeFor lists the content kinds for which applying this
	// directive is known to produce output already safe for that kind,
	// letting autoescape.Prune drop a redundant trailing escaper (e.g.
	// |escapeHtml before a print already statically typed html).
	ContextuallySafeFor []string
}

var dyn = types.Dynamic{}

// Funcs mirrors soyhtml.Funcs's key set with static signatures attached.
var Funcs = map[string]Func{
	"isNonnull":   {Name: "isNonnull", ValidArgLengths: []int{1}, ArgTypes: []types.Type{dyn}, Return: types.Bool, Pure: true},
	"length":      {Name: "length", ValidArgLengths: []int{1}, ArgTypes: []types.Type{types.List{Elem: dyn}}, Return: types.Int, Pure: true},
	"keys":        {Name: "keys", ValidArgLengths: []int{1}, ArgTypes: []types.Type{types.Map{Key: dyn, Value: dyn}}, Return: types.List{Elem: types.String}, Pure: true},
	"augmentMap":  {Name: "augmentMap", ValidArgLengths: []int{2}, Return: types.Map{Key: types.String, Value: dyn}, Pure: true},
	"round":       {Name: "round", ValidArgLengths: []int{1, 2}, Return: types.Number, Pure: true},
	"floor":       {Name: "floor", ValidArgLengths: []int{1}, Return: types.Int, Pure: true},
	"ceiling":     {Name: "ceiling", ValidArgLengths: []int{1}, Return: types.Int, Pure: true},
	"min":         {Name: "min", ValidArgLengths: []int{2}, Return: types.Number, Pure: true},
	"max":         {Name: "max", ValidArgLengths: []int{2}, Return: types.Number, Pure: true},
	"randomInt":   {Name: "randomInt", ValidArgLengths: []int{1}, Return: types.Int},
	"strContains": {Name: "strContains", ValidArgLengths: []int{2}, Return: types.Bool, Pure: true},
	"range":       {Name: "range", ValidArgLengths: []int{1, 2, 3}, Return: types.List{Elem: types.Int}, Pure: true},
	"hasData":     {Name: "hasData", ValidArgLengths: []int{0}, Return: types.Bool},

	// bind and ordainAsSafe are special-cased by the checker (see
	// check.checkFunctionCall) rather than modeled with a fixed arity
	// here: bind's signature depends on the callee template's own
	// signature, and ordainAsSafe's on its content-kind literal argument.
	// They're listed so conformance's BannedFunction rule can still name
	// them.
	"bind":          {Name: "bind"},
	"ordainAsSafe":  {Name: "ordainAsSafe"},
}

// Directives mirrors soyhtml.PrintDirectives's key set with contextual
// safety annotations attached.
var Directives = map[string]Directive{
	"insertWordBreaks":  {Name: "insertWordBreaks", ValidArgLengths: []int{1}, CancelAutoescape: true},
	"changeNewlineToBr": {Name: "changeNewlineToBr", ValidArgLengths: []int{0}, CancelAutoescape: true},
	"truncate":          {Name: "truncate", ValidArgLengths: []int{1, 2}},
	"id":                {Name: "id", ValidArgLengths: []int{0}, CancelAutoescape: true},
	"noAutoescape":      {Name: "noAutoescape", ValidArgLengths: []int{0}, CancelAutoescape: true},
	"escapeHtml":        {Name: "escapeHtml", ValidArgLengths: []int{0}, CancelAutoescape: true, ContextuallySafeFor: []string{types.KindHTML}},
	"escapeUri":         {Name: "escapeUri", ValidArgLengths: []int{0}, CancelAutoescape: true, ContextuallySafeFor: []string{types.KindURI, types.KindTrustedResourceURI}},
	"escapeJsString":    {Name: "escapeJsString", ValidArgLengths: []int{0}, CancelAutoescape: true, ContextuallySafeFor: []string{types.KindJS}},
	"bidiSpanWrap":      {Name: "bidiSpanWrap", ValidArgLengths: []int{0}},
	"bidiUnicodeWrap":   {Name: "bidiUnicodeWrap", ValidArgLengths: []int{0}},
	"json":              {Name: "json", ValidArgLengths: []int{0}, CancelAutoescape: true},

	// The remaining entries are the contextual escaper/filter functions
	// autoescape.Strict registers into soyhtml.PrintDirectives at init
	// time (see autoescape/strict.go's funcMap); they're listed here too
	// so autoescape.Prune's builtin.IsSafeForContext lookups can find
	// them by name regardless of which package actually registered them
	// at runtime.
	"escapeHtmlRcdata":   {Name: "escapeHtmlRcdata", ValidArgLengths: []int{0}, ContextuallySafeFor: []string{types.KindHTML}},
	"filterNormalizeUri": {Name: "filterNormalizeUri", ValidArgLengths: []int{0}, ContextuallySafeFor: []string{types.KindURI, types.KindTrustedResourceURI}},
	"normalizeUri":       {Name: "normalizeUri", ValidArgLengths: []int{0}, ContextuallySafeFor: []string{types.KindURI, types.KindTrustedResourceURI}},
	"escapeJsValue":      {Name: "escapeJsValue", ValidArgLengths: []int{0}, ContextuallySafeFor: []string{types.KindJS}},
	"escapeJsRegex":      {Name: "escapeJsRegex", ValidArgLengths: []int{0}, ContextuallySafeFor: []string{types.KindJS}},
	"filterCssValue":     {Name: "filterCssValue", ValidArgLengths: []int{0}, ContextuallySafeFor: []string{types.KindCSS}},
	"escapeCssString":    {Name: "escapeCssString", ValidArgLengths: []int{0}, ContextuallySafeFor: []string{types.KindCSS}},
}

// IsSafeForContext reports whether applying directive already satisfies
// escaping for the given content-kind name, letting autoescape.Prune elide
// a subsequent automatic escaper of the same kind.
func IsSafeForContext(directive, kind string) bool {
	d, ok := Directives[directive]
	if !ok {
		return false
	}
	for _, k := range d.ContextuallySafeFor {
		if k == kind {
			return true
		}
	}
	return false
}

// ValidArgLength reports whether n is one of f's accepted arities; an empty
// ValidArgLengths (as for bind/ordainAsSafe, whose arity is contextual)
// always accepts.
func (f Func) ValidArgLength(n int) bool {
	if len(f.ValidArgLengths) == 0 {
		return true
	}
	for _, valid := range f.ValidArgLengths {
		if valid == n {
			return true
		}
	}
	return false
}
