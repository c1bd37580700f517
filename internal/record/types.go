package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Record is the document reconstructed from a stream.
type Record struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section is a named group of fields and items. Keys that are not part of
// the known shape are preserved in Attrs.
type Section struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Kind   string         `json:"kind,omitempty"`
	Fields []Field        `json:"fields,omitempty"`
	Items  []Item         `json:"items,omitempty"`
	Attrs  map[string]any `json:"-"`
}

// Field is a labelled value.
type Field struct {
	ID          string         `json:"id"`
	Label       string         `json:"label"`
	Value       any            `json:"value"`
	Placeholder bool           `json:"placeholder,omitempty"`
	Attrs       map[string]any `json:"-"`
}

// Item is an entry in a section's list.
type Item struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Placeholder bool           `json:"placeholder,omitempty"`
	Attrs       map[string]any `json:"-"`
}

var (
	sectionKeys = []string{"id", "title", "kind", "fields", "items"}
	fieldKeys   = []string{"id", "label", "value", "placeholder"}
	itemKeys    = []string{"id", "title", "description", "placeholder"}
)

// Entries returns the number of fields and items in the section.
func (s Section) Entries() int {
	return len(s.Fields) + len(s.Items)
}

// Clone returns a copy of the section whose field and item slices can be
// modified without affecting s. Attribute maps are shared.
func (s Section) Clone() Section {
	s.Fields = slices.Clone(s.Fields)
	s.Items = slices.Clone(s.Items)
	return s
}

// Clone returns a deep copy of the record's sections.
func (r Record) Clone() Record {
	if r.Sections == nil {
		return r
	}
	sections := make([]Section, len(r.Sections))
	for i, s := range r.Sections {
		sections[i] = s.Clone()
	}
	r.Sections = sections
	return r
}

// Members whose value has the wrong JSON type are dropped while the rest of
// the object is kept. Scalar ids, titles and labels written as numbers or
// booleans are read as their literal text.

func (s *Section) UnmarshalJSON(data []byte) error {
	type plain Section
	var p plain
	m, err := decodeObject(data, &p)
	if err != nil {
		return err
	}
	coerceText(m, "id", &p.ID)
	coerceText(m, "title", &p.Title)
	coerceText(m, "kind", &p.Kind)
	*s = Section(p)
	s.Attrs, err = attrsFrom(m, sectionKeys)
	return err
}

func (s Section) MarshalJSON() ([]byte, error) {
	type plain Section
	return withAttrs(plain(s), s.Attrs)
}

func (f *Field) UnmarshalJSON(data []byte) error {
	type plain Field
	var p plain
	m, err := decodeObject(data, &p)
	if err != nil {
		return err
	}
	coerceText(m, "id", &p.ID)
	coerceText(m, "label", &p.Label)
	*f = Field(p)
	f.Attrs, err = attrsFrom(m, fieldKeys)
	return err
}

func (f Field) MarshalJSON() ([]byte, error) {
	type plain Field
	return withAttrs(plain(f), f.Attrs)
}

func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var p plain
	m, err := decodeObject(data, &p)
	if err != nil {
		return err
	}
	coerceText(m, "id", &p.ID)
	coerceText(m, "title", &p.Title)
	coerceText(m, "description", &p.Description)
	*it = Item(p)
	it.Attrs, err = attrsFrom(m, itemKeys)
	return err
}

func (it Item) MarshalJSON() ([]byte, error) {
	type plain Item
	return withAttrs(plain(it), it.Attrs)
}

// ErrNotObject is returned when a section, field or item is not a JSON
// object.
var ErrNotObject = errors.New("value is not a JSON object")

// UnmarshalLenient decodes data into v like json.Unmarshal but tolerates
// members of the wrong type. Those are left at their zero value and every
// other member is still decoded. Syntax errors are returned as usual.
func UnmarshalLenient(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return nil
	}
	return err
}

// ScalarText returns the text of a string, number or boolean value. Null,
// objects and arrays report false.
func ScalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 'n', '{', '[':
		return "", false
	default:
		return string(raw), true
	}
}

// decodeObject decodes the object in data into v and returns its raw
// members. A JSON null yields no members.
func decodeObject(data []byte, v any) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, err
	}
	if err := UnmarshalLenient(trimmed, v); err != nil {
		return nil, err
	}
	return m, nil
}

// coerceText fills an empty dst from a non-string scalar member.
func coerceText(m map[string]json.RawMessage, key string, dst *string) {
	if *dst != "" {
		return
	}
	if text, ok := ScalarText(m[key]); ok {
		*dst = text
	}
}

// attrsFrom returns every member not listed in known, or nil when there are
// none.
func attrsFrom(m map[string]json.RawMessage, known []string) (map[string]any, error) {
	var attrs map[string]any
	for k, raw := range m {
		if slices.Contains(known, k) {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		if attrs == nil {
			attrs = make(map[string]any)
		}
		attrs[k] = v
	}
	return attrs, nil
}

// withAttrs encodes v and merges attrs into the resulting object. Known keys
// win over attributes of the same name.
func withAttrs(v any, attrs map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(attrs) == 0 {
		return data, err
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	merged := maps.Clone(attrs)
	maps.Copy(merged, obj)
	return json.Marshal(merged)
}

// ParseSection decodes a single section object.
func ParseSection(data []byte) (Section, error) {
	var s Section
	if err := s.UnmarshalJSON(data); err != nil {
		return Section{}, err
	}
	return s, nil
}

// Parse decodes a complete document and assigns identifiers the same way the
// Assembler does, so the result can be compared with a streamed record.
func Parse(data []byte) (Record, error) {
	var doc struct {
		Title    json.RawMessage `json:"title"`
		Sections []Section       `json:"sections"`
	}
	if _, err := decodeObject(data, &doc); err != nil {
		return Record{}, fmt.Errorf("failed to parse record: %w", err)
	}
	r := Record{Sections: doc.Sections}
	r.Title, _ = ScalarText(doc.Title)
	usedSections := make(map[string]bool, len(r.Sections))
	for i := range r.Sections {
		s := &r.Sections[i]
		s.ID = uniqueID(s.ID, SectionID(i), usedSections)
		usedFields := make(map[string]bool, len(s.Fields))
		for j := range s.Fields {
			f := &s.Fields[j]
			f.ID = uniqueID(f.ID, FieldID(i, j), usedFields)
			if f.Label == "" {
				f.Label = defaultFieldLabel(j)
			}
		}
		usedItems := make(map[string]bool, len(s.Items))
		for j := range s.Items {
			it := &s.Items[j]
			it.ID = uniqueID(it.ID, ItemID(i, j), usedItems)
			if it.Title == "" {
				it.Title = defaultItemTitle(j)
			}
		}
	}
	return r, nil
}

// SectionID is the identifier given to a section that arrives without one.
func SectionID(section int) string {
	return fmt.Sprintf("section_%d", section)
}

// FieldID is the identifier given to a field that arrives without one.
func FieldID(section, field int) string {
	return fmt.Sprintf("field_%d_%d", section, field)
}

// ItemID is the identifier given to an item that arrives without one.
func ItemID(section, item int) string {
	return fmt.Sprintf("item_%d_%d", section, item)
}

func defaultFieldLabel(i int) string {
	return fmt.Sprintf("Field %d", i+1)
}

func defaultItemTitle(i int) string {
	return fmt.Sprintf("Item %d", i+1)
}

// uniqueID picks want when it is set and unused, otherwise fallback. A
// fallback that is itself taken gets a numeric suffix.
func uniqueID(want, fallback string, used map[string]bool) string {
	id := want
	if id == "" || used[id] {
		id = fallback
	}
	for n := 2; used[id]; n++ {
		id = fmt.Sprintf("%s_%d", fallback, n)
	}
	used[id] = true
	return id
}
