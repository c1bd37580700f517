// Package completion tracks how far each section of a streamed record has
// progressed from placeholder to real content.
package completion

import (
	"maps"

	"github.com/markis/gh-streamdoc/internal/record"
)

// State is the completion of one section.
type State struct {
	IsComplete bool    `json:"isComplete"`
	Percentage float64 `json:"percentage"`
}

// Result classifies the sections touched by one evaluation. Indices refer to
// positions in the evaluated record.
type Result struct {
	// Structural lists sections seen for the first time.
	Structural []int
	// Completed lists sections that became complete during this evaluation.
	Completed []int
	// Refined lists already known, still incomplete sections whose
	// percentage grew by more than the configured threshold.
	Refined []int
}

// Empty reports whether the evaluation found nothing worth announcing.
func (r Result) Empty() bool {
	return len(r.Structural) == 0 && len(r.Completed) == 0 && len(r.Refined) == 0
}

// Tracker remembers per-section completion for one session. Percentages
// never decrease and a complete section never becomes incomplete again.
type Tracker struct {
	policy     record.Policy
	threshold  float64
	states     map[string]State
	structural map[string]bool
}

// NewTracker returns a Tracker. threshold is the minimum percentage increase
// that marks an incomplete section as refined.
func NewTracker(policy record.Policy, threshold float64) *Tracker {
	return &Tracker{
		policy:     policy,
		threshold:  threshold,
		states:     make(map[string]State),
		structural: make(map[string]bool),
	}
}

// SectionComplete reports whether no field or item of sec is a placeholder.
func SectionComplete(p record.Policy, sec record.Section) bool {
	for _, f := range sec.Fields {
		if p.FieldIsPlaceholder(f) {
			return false
		}
	}
	for _, it := range sec.Items {
		if p.ItemIsPlaceholder(it) {
			return false
		}
	}
	return true
}

// Percentage is the share of non-placeholder entries in sec. A section with
// no entries scores 0.5 when it has a title and 0 otherwise.
func Percentage(p record.Policy, sec record.Section) float64 {
	total := sec.Entries()
	if total == 0 {
		if sec.Title != "" {
			return 0.5
		}
		return 0
	}
	done := 0
	for _, f := range sec.Fields {
		if !p.FieldIsPlaceholder(f) {
			done++
		}
	}
	for _, it := range sec.Items {
		if !p.ItemIsPlaceholder(it) {
			done++
		}
	}
	return float64(done) / float64(total)
}

// Evaluate records the completion of every section in rec and classifies
// what changed since the previous evaluation.
func (t *Tracker) Evaluate(rec record.Record) Result {
	var res Result
	for i, sec := range rec.Sections {
		prev, seen := t.states[sec.ID]
		next := State{
			IsComplete: prev.IsComplete || SectionComplete(t.policy, sec),
			Percentage: max(prev.Percentage, Percentage(t.policy, sec)),
		}
		t.states[sec.ID] = next

		if !t.structural[sec.ID] {
			t.structural[sec.ID] = true
			res.Structural = append(res.Structural, i)
		}
		switch {
		case next.IsComplete && !prev.IsComplete:
			res.Completed = append(res.Completed, i)
		case seen && !next.IsComplete && next.Percentage-prev.Percentage > t.threshold:
			res.Refined = append(res.Refined, i)
		}
	}
	return res
}

// CompleteAll marks every section of rec complete at 100% and returns the
// indices that were not complete before.
func (t *Tracker) CompleteAll(rec record.Record) []int {
	var completed []int
	for i, sec := range rec.Sections {
		prev := t.states[sec.ID]
		if !prev.IsComplete {
			completed = append(completed, i)
		}
		t.states[sec.ID] = State{IsComplete: true, Percentage: 1}
		t.structural[sec.ID] = true
	}
	return completed
}

// Snapshot returns a copy of all recorded states keyed by section id.
func (t *Tracker) Snapshot() map[string]State {
	return maps.Clone(t.states)
}
