package record

import "regexp"

// DefaultSentinel is the field value treated as "not yet generated".
const DefaultSentinel = "..."

var autoItemTitle = regexp.MustCompile(`^Item \d+$`)

// Policy decides whether a field or item still holds placeholder content.
type Policy struct {
	// Sentinel is the literal field value that marks a placeholder.
	Sentinel string
}

// NewPolicy returns a Policy for the given sentinel.
func NewPolicy(sentinel string) Policy {
	return Policy{Sentinel: sentinel}
}

// FieldIsPlaceholder reports whether f has no real value yet.
func (p Policy) FieldIsPlaceholder(f Field) bool {
	if f.Placeholder || f.Value == nil {
		return true
	}
	s, ok := f.Value.(string)
	return ok && s == p.Sentinel
}

// ItemIsPlaceholder reports whether it has no real content yet. An item whose
// title is empty or generated ("Item 3") and has no description is a
// placeholder.
func (p Policy) ItemIsPlaceholder(it Item) bool {
	if it.Placeholder {
		return true
	}
	return (it.Title == "" || autoItemTitle.MatchString(it.Title)) && it.Description == ""
}
