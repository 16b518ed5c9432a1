package soymsg

import "fmt"

// OrderConstraint declares that every occurrence of the End placeholder in a
// message must be preceded by an occurrence of Start, and every Start must
// eventually be matched by an End. ValidateOrdering checks a message's parts
// against a set of these; the renderer does not call it. The check is layered on top of setPlaceholderNames's naming pass (placeholder.go)
// rather than replacing it: naming assigns the names this checks against.
type OrderConstraint struct {
	Start string
	End   string
}

// MessageStructureError reports a message whose placeholders violate a
// registered ordering constraint.
type MessageStructureError struct {
	Start, End string
	Reason     string
}

func (e *MessageStructureError) Error() string {
	return fmt.Sprintf("message structure error: %s", e.Reason)
}

// ValidateOrdering checks parts against constraints, which are indexed by
// End placeholder name. Ordering is tracked per constraint with a counter:
// each Start increments it, each End must find a pending Start to consume.
// Left-over unconsumed Starts after the full scan are also violations.
func ValidateOrdering(parts []Part, constraints []OrderConstraint) error {
	var byEnd = make(map[string]*OrderConstraint, len(constraints))
	var byStart = make(map[string]*OrderConstraint, len(constraints))
	var pending = make(map[string]int, len(constraints))
	for i := range constraints {
		var c = &constraints[i]
		byEnd[c.End] = c
		byStart[c.Start] = c
		pending[c.Start] = 0
	}

	var walk func(parts []Part) error
	walk = func(parts []Part) error {
		for _, part := range parts {
			switch part := part.(type) {
			case PlaceholderPart:
				if c, ok := byStart[part.Name]; ok {
					pending[c.Start]++
				}
				if c, ok := byEnd[part.Name]; ok {
					if pending[c.Start] == 0 {
						return &MessageStructureError{
							Start: c.Start, End: c.End,
							Reason: fmt.Sprintf("%s occurs before any matching %s", c.End, c.Start),
						}
					}
					pending[c.Start]--
				}
			case PluralPart:
				for _, pc := range part.Cases {
					if err := walk(pc.Parts); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
	if err := walk(parts); err != nil {
		return err
	}

	for i := range constraints {
		var c = &constraints[i]
		if pending[c.Start] > 0 {
			return &MessageStructureError{
				Start: c.Start, End: c.End,
				Reason: fmt.Sprintf("%s has no matching %s", c.Start, c.End),
			}
		}
	}
	return nil
}
