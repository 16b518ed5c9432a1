// Package uniquename implements the unique-name generator shared by code
// generation and generated-identifier conformance: claim/claim_lenient/
// generate/branch, exactly as specified. The teacher repo has no
// equivalent (its code-generation backends, bytecode/soyjs, are out of
// scope), so this is built standalone, grounded only on the spec's own
// operation contract.
package uniquename

import (
	"fmt"
	"strings"
)

// Generator tracks claimed names and the counters used by Generate to mint
// fresh ones. The zero Generator is ready to use, with "" as the default
// disallowed-character set and " " as the default separator.
type Generator struct {
	// Disallowed lists characters a Claim'd name must not contain.
	Disallowed string
	// Separator joins a base name to its disambiguating counter in
	// Generate, e.g. "_" to produce "base_2" instead of "base 2".
	Separator string

	claimed map[string]bool
	counter map[string]int
}

// New returns a Generator using the given disallowed-character set and
// name/counter separator.
func New(disallowed, separator string) *Generator {
	return &Generator{Disallowed: disallowed, Separator: separator}
}

func (g *Generator) init() {
	if g.claimed == nil {
		g.claimed = make(map[string]bool)
	}
	if g.counter == nil {
		g.counter = make(map[string]int)
	}
}

func (g *Generator) separator() string {
	if g.Separator == "" {
		return " "
	}
	return g.Separator
}

// Claim reserves name, failing if it contains a disallowed character or is
// already claimed.
func (g *Generator) Claim(name string) error {
	g.init()
	for _, r := range g.Disallowed {
		if strings.ContainsRune(name, r) {
			return fmt.Errorf("uniquename: name %q contains disallowed character %q", name, r)
		}
	}
	if g.claimed[name] {
		return fmt.Errorf("uniquename: name %q already claimed", name)
	}
	g.claimed[name] = true
	return nil
}

// ClaimLenient reserves name, doing nothing if it is already claimed
// (disallowed characters still reject it).
func (g *Generator) ClaimLenient(name string) error {
	g.init()
	for _, r := range g.Disallowed {
		if strings.ContainsRune(name, r) {
			return fmt.Errorf("uniquename: name %q contains disallowed character %q", name, r)
		}
	}
	g.claimed[name] = true
	return nil
}

// Generate returns base if it is unclaimed, otherwise "base<sep>N" for the
// smallest N >= 1 that produces a name not yet claimed. The result is
// claimed before being returned.
func (g *Generator) Generate(base string) string {
	g.init()
	if !g.claimed[base] {
		g.claimed[base] = true
		return base
	}
	var n = g.counter[base]
	for {
		n++
		var candidate = fmt.Sprintf("%s%s%d", base, g.separator(), n)
		if !g.claimed[candidate] {
			g.claimed[candidate] = true
			g.counter[base] = n
			return candidate
		}
	}
}

// Branch forks the claim set: the returned Generator starts with a copy of
// g's current claims and counters, so siblings that diverge after the
// branch point number independently of each other, each starting from the
// parent's counter at the moment of the fork.
func (g *Generator) Branch() *Generator {
	g.init()
	var b = &Generator{
		Disallowed: g.Disallowed,
		Separator:  g.Separator,
		claimed:    make(map[string]bool, len(g.claimed)),
		counter:    make(map[string]int, len(g.counter)),
	}
	for k, v := range g.claimed {
		b.claimed[k] = v
	}
	for k, v := range g.counter {
		b.counter[k] = v
	}
	return b
}
