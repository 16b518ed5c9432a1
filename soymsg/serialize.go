package soymsg

import "strings"

// Serialize renders parts back to the braced-placeholder string format that
// Parts parses -- the inverse operation named by the message round-trip
// invariant: parsing a part list, serializing it, and parsing again must
// yield the same list. PluralPart is serialized by its selector variable
// alone, matching writeFingerprint's placeholder form; Parts does not parse
// plural selection back out of a string (see NewMessage's TODO), so the
// round-trip invariant holds for RawTextPart/PlaceholderPart sequences.
func Serialize(parts []Part) string {
	var b strings.Builder
	for _, part := range parts {
		switch p := part.(type) {
		case RawTextPart:
			b.WriteString(p.Text)
		case PlaceholderPart:
			b.WriteString("{" + p.Name + "}")
		case PluralPart:
			b.WriteString("{" + p.VarName + "}")
		}
	}
	return b.String()
}
