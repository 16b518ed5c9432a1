package types

// AssignableTo reports whether a value of type src may be used where dst is
// expected, per spec §4.1. The rules, in order:
//
//   - ? (Dynamic) is assignable to and from anything.
//   - null is assignable to any Union that includes null, and to Dynamic.
//   - Identical primitives are mutually assignable; int and float are each
//     assignable to Number, and Number is assignable to neither (widening
//     only goes one way: a concrete number type satisfies a Number-typed
//     slot, but Number itself isn't known to be int or float).
//   - html_element and html<tag> are assignable to html (the
//     Section 3 "rendered markup is html_element, but coerces where an html
//     slot is expected" rule). html<tag> is assignable to html<?>, and
//     html<tag> is assignable to html<tag> only for matching tags.
//   - list<A> is assignable to list<B> iff A is assignable to B (covariant;
//     adequate for the value semantics here since lists are never mutated
//     through the static type, only appended-to at construction).
//   - map<K1,V1> is assignable to map<K2,V2> iff K1→K2 and V1→V2.
//   - Record is assignable to Record when every field of dst has a
//     same-named, assignable field in src (width subtyping: src may carry
//     extra fields).
//   - Proto is assignable to Proto only for identical message names.
//   - Func is assignable to Func when return types are covariant,
//     positional parameter types are contravariant and parameter names match,
//     matching template call signatures (a callback whose params accept at
//     least what the slot's params allow, and whose return fits the slot's
//     return, may fill the slot).
//   - src is assignable to a Union dst if assignable to any member; a Union
//     src is assignable to dst if every member is assignable to dst.
func AssignableTo(src, dst Type) bool {
	if IsDynamic(dst) || IsDynamic(src) {
		return true
	}
	if u, ok := dst.(Union); ok {
		for _, m := range u.Members {
			if AssignableTo(src, m) {
				return true
			}
		}
		return false
	}
	if u, ok := src.(Union); ok {
		for _, m := range u.Members {
			if !AssignableTo(m, dst) {
				return false
			}
		}
		return true
	}

	switch s := src.(type) {
	case Primitive:
		d, ok := dst.(Primitive)
		if !ok {
			return false
		}
		if s == d {
			return true
		}
		if d == Number && (s == Int || s == Float) {
			return true
		}
		return false

	case ContentKind:
		d, ok := dst.(ContentKind)
		if !ok {
			return false
		}
		return contentKindAssignable(s, d)

	case List:
		d, ok := dst.(List)
		if !ok {
			return false
		}
		return AssignableTo(s.Elem, d.Elem)

	case Map:
		d, ok := dst.(Map)
		if !ok {
			return false
		}
		return AssignableTo(s.Key, d.Key) && AssignableTo(s.Value, d.Value)

	case Record:
		d, ok := dst.(Record)
		if !ok {
			return false
		}
		for _, df := range d.Fields {
			sf, found := s.field(df.Name)
			if !found || !AssignableTo(sf, df.Type) {
				return false
			}
		}
		return true

	case Proto:
		d, ok := dst.(Proto)
		return ok && s.Message == d.Message

	case Func:
		d, ok := dst.(Func)
		if !ok {
			return false
		}
		return funcAssignable(s, d)

	case Dynamic:
		return true
	}
	return false
}

func contentKindAssignable(s, d ContentKind) bool {
	if s == d {
		return true
	}
	if d.Name == KindHTML && s.Name == KindHTMLElement {
		return true
	}
	if s.Name == KindHTMLElement && d.Name == KindHTMLElement {
		if d.ElementTag == ElementTagAny || d.ElementTag == "" {
			return true
		}
		return s.ElementTag == d.ElementTag
	}
	return false
}

func funcAssignable(s, d Func) bool {
	if !AssignableTo(s.Return, d.Return) {
		return false
	}
	if len(s.Params) != len(d.Params) {
		return false
	}
	for i, sp := range s.Params {
		dp := d.Params[i]
		if sp.Name != dp.Name {
			return false
		}
		// contravariant: the destination's declared param type must be
		// assignable to the source's, so any caller satisfying d's contract
		// also satisfies s's.
		if !AssignableTo(dp.Type, sp.Type) {
			return false
		}
	}
	return true
}

// LeastUpperBound returns the most specific type assignable from both a and
// b, used when merging branches of {if}/{switch} for expression typing. It
// falls back to a 2-member Union when no simpler common type exists.
func LeastUpperBound(a, b Type) Type {
	if AssignableTo(a, b) {
		return b
	}
	if AssignableTo(b, a) {
		return a
	}
	return Union{Members: []Type{a, b}}
}
