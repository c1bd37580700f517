package record

import (
	"fmt"
	"reflect"
	"slices"
)

// ChangeKind says whether a node appeared or was modified.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
)

// Change names one node that differs between two consecutive snapshots.
type Change struct {
	Path    string     `json:"path"`
	Kind    ChangeKind `json:"kind"`
	Section int        `json:"section"` // -1 for the record title
}

// Assembler owns the in-progress record. Every call to Apply or Finalize
// produces a new snapshot that shares unchanged sections with the previous
// one; snapshots are never modified after they are returned.
type Assembler struct {
	policy Policy
	rec    Record
}

// NewAssembler returns an empty Assembler using p to detect placeholders.
func NewAssembler(p Policy) *Assembler {
	return &Assembler{policy: p}
}

// Apply patches the scanned title and sections into the record. Sections are
// matched by index; sections missing from the input are kept as they are.
func (a *Assembler) Apply(title string, hasTitle bool, sections []Section) (Record, []Change) {
	next := a.rec
	var changes []Change

	if hasTitle && title != next.Title {
		next.Title = title
		changes = append(changes, Change{Path: "title", Kind: ChangeUpdated, Section: -1})
	}

	cloned := false
	for i, in := range sections {
		if !cloned {
			next.Sections = slices.Clone(next.Sections)
			cloned = true
		}
		if i >= len(next.Sections) {
			sec := a.skeleton(i, in, next.Sections)
			sec, _ = a.patch(i, sec, in)
			next.Sections = append(next.Sections, sec)
			changes = append(changes, Change{Path: sectionPath(i), Kind: ChangeAdded, Section: i})
			continue
		}
		sec, secChanges := a.patch(i, next.Sections[i], in)
		if len(secChanges) > 0 {
			next.Sections[i] = sec
			changes = append(changes, secChanges...)
		}
	}

	if len(changes) == 0 {
		return a.rec, nil
	}
	a.rec = next
	return next, changes
}

// Finalize clears every remaining placeholder flag. It is the last step of a
// session: whatever arrived is now the final content.
func (a *Assembler) Finalize() (Record, []Change) {
	next := a.rec
	next.Sections = slices.Clone(next.Sections)
	var changes []Change
	for i, sec := range next.Sections {
		touched := false
		for j, f := range sec.Fields {
			if !f.Placeholder {
				continue
			}
			if !touched {
				sec = sec.Clone()
				touched = true
			}
			sec.Fields[j].Placeholder = false
			changes = append(changes, Change{Path: fieldPath(i, j), Kind: ChangeUpdated, Section: i})
		}
		for j, it := range sec.Items {
			if !it.Placeholder {
				continue
			}
			if !touched {
				sec = sec.Clone()
				touched = true
			}
			sec.Items[j].Placeholder = false
			changes = append(changes, Change{Path: itemPath(i, j), Kind: ChangeUpdated, Section: i})
		}
		if touched {
			next.Sections[i] = sec
		}
	}
	if len(changes) == 0 {
		return a.rec, nil
	}
	a.rec = next
	return next, changes
}

// skeleton builds the placeholder shape of a section seen for the first
// time: stable ids for the section and all of its entries, default labels,
// and every entry flagged as a placeholder.
func (a *Assembler) skeleton(i int, in Section, siblings []Section) Section {
	used := make(map[string]bool, len(siblings))
	for _, s := range siblings {
		used[s.ID] = true
	}
	sec := Section{
		ID:    uniqueID(in.ID, SectionID(i), used),
		Title: in.Title,
		Kind:  in.Kind,
		Attrs: in.Attrs,
	}
	sec.Fields = a.growFields(i, nil, len(in.Fields), in.Fields)
	sec.Items = a.growItems(i, nil, len(in.Items), in.Items)
	return sec
}

func (a *Assembler) growFields(i int, fields []Field, n int, in []Field) []Field {
	used := make(map[string]bool, n)
	for _, f := range fields {
		used[f.ID] = true
	}
	for j := len(fields); j < n; j++ {
		fields = append(fields, Field{
			ID:          uniqueID(in[j].ID, FieldID(i, j), used),
			Label:       defaultFieldLabel(j),
			Placeholder: true,
		})
	}
	return fields
}

func (a *Assembler) growItems(i int, items []Item, n int, in []Item) []Item {
	used := make(map[string]bool, n)
	for _, it := range items {
		used[it.ID] = true
	}
	for j := len(items); j < n; j++ {
		items = append(items, Item{
			ID:          uniqueID(in[j].ID, ItemID(i, j), used),
			Title:       defaultItemTitle(j),
			Placeholder: true,
		})
	}
	return items
}

// patch merges in into cur. Entries keep their position and id; the arrays
// grow to the incoming length but never shrink.
func (a *Assembler) patch(i int, cur Section, in Section) (Section, []Change) {
	next := cur.Clone()
	var changes []Change

	sectionChanged := false
	if in.Title != "" && in.Title != next.Title {
		next.Title = in.Title
		sectionChanged = true
	}
	if in.Kind != "" && in.Kind != next.Kind {
		next.Kind = in.Kind
		sectionChanged = true
	}
	if in.Attrs != nil && !reflect.DeepEqual(in.Attrs, next.Attrs) {
		next.Attrs = in.Attrs
		sectionChanged = true
	}
	if sectionChanged {
		changes = append(changes, Change{Path: sectionPath(i), Kind: ChangeUpdated, Section: i})
	}

	knownFields := len(next.Fields)
	if len(in.Fields) > knownFields {
		next.Fields = a.growFields(i, next.Fields, len(in.Fields), in.Fields)
	}
	for j, f := range in.Fields {
		merged := a.mergeField(next.Fields[j], f)
		switch {
		case j >= knownFields:
			next.Fields[j] = merged
			changes = append(changes, Change{Path: fieldPath(i, j), Kind: ChangeAdded, Section: i})
		case !reflect.DeepEqual(merged, next.Fields[j]):
			next.Fields[j] = merged
			changes = append(changes, Change{Path: fieldPath(i, j), Kind: ChangeUpdated, Section: i})
		}
	}

	knownItems := len(next.Items)
	if len(in.Items) > knownItems {
		next.Items = a.growItems(i, next.Items, len(in.Items), in.Items)
	}
	for j, it := range in.Items {
		merged := a.mergeItem(next.Items[j], it)
		switch {
		case j >= knownItems:
			next.Items[j] = merged
			changes = append(changes, Change{Path: itemPath(i, j), Kind: ChangeAdded, Section: i})
		case !reflect.DeepEqual(merged, next.Items[j]):
			next.Items[j] = merged
			changes = append(changes, Change{Path: itemPath(i, j), Kind: ChangeUpdated, Section: i})
		}
	}

	if len(changes) == 0 {
		return cur, nil
	}
	return next, changes
}

// mergeField copies incoming content onto cur. A field that already holds
// real content is never turned back into a placeholder.
func (a *Assembler) mergeField(cur, in Field) Field {
	next := cur
	if in.Label != "" {
		next.Label = in.Label
	}
	if in.Attrs != nil {
		next.Attrs = in.Attrs
	}
	switch {
	case !a.policy.FieldIsPlaceholder(in):
		next.Value = in.Value
		next.Placeholder = false
	case cur.Placeholder && in.Value != nil:
		next.Value = in.Value
	}
	return next
}

func (a *Assembler) mergeItem(cur, in Item) Item {
	next := cur
	if !cur.Placeholder && a.policy.ItemIsPlaceholder(in) {
		return next
	}
	if in.Title != "" {
		next.Title = in.Title
	}
	if in.Description != "" {
		next.Description = in.Description
	}
	if in.Attrs != nil {
		next.Attrs = in.Attrs
	}
	if !a.policy.ItemIsPlaceholder(in) {
		next.Placeholder = false
	}
	return next
}

func sectionPath(i int) string {
	return fmt.Sprintf("sections[%d]", i)
}

func fieldPath(i, j int) string {
	return fmt.Sprintf("sections[%d].fields[%d]", i, j)
}

func itemPath(i, j int) string {
	return fmt.Sprintf("sections[%d].items[%d]", i, j)
}
