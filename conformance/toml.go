package conformance

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// tomlRuleSet is the on-disk schema for a conformance rule set: the union
// of requirement variants named in the conformance engine's contract, no
// more and no less. Unknown fields are rejected by LoadRuleSet rather than
// silently ignored.
type tomlRuleSet struct {
	Rule []tomlRule `toml:"rule"`
}

type tomlRule struct {
	Kind      string   `toml:"kind"`
	Name      string   `toml:"name"`
	Message   string   `toml:"message"`
	Whitelist []string `toml:"whitelist"`
}

var validKinds = map[string]Kind{
	string(BannedFunction):                    BannedFunction,
	string(BannedDirective):                    BannedDirective,
	string(BannedRawText):                      BannedRawText,
	string(BannedTextEverywhereExceptComments): BannedTextEverywhereExceptComments,
	string(BannedHTMLTag):                      BannedHTMLTag,
	string(BannedCSSSelector):                  BannedCSSSelector,
	string(Custom):                             Custom,
}

// LoadRuleSet reads a TOML-encoded rule set. Unknown top-level or per-rule
// fields, and unrecognized rule kinds, are rejected outright, per the
// persisted-state contract: "the loader rejects unknown fields."
func LoadRuleSet(r io.Reader) ([]Rule, error) {
	var raw tomlRuleSet
	var md, err = toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("conformance: decoding rule set: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("conformance: unknown field(s) in rule set: %v", undecoded)
	}

	var rules = make([]Rule, len(raw.Rule))
	for i, tr := range raw.Rule {
		var kind, ok = validKinds[tr.Kind]
		if !ok {
			return nil, fmt.Errorf("conformance: unknown rule kind %q", tr.Kind)
		}
		rules[i] = Rule{Kind: kind, Name: tr.Name, Message: tr.Message, Whitelist: tr.Whitelist}
	}
	return rules, nil
}
