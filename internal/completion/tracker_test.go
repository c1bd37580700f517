package completion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markis/gh-streamdoc/internal/record"
)

var policy = record.NewPolicy(record.DefaultSentinel)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name string
		sec  record.Section
		want float64
	}{
		{"named but empty", record.Section{Title: "S"}, 0.5},
		{"unnamed and empty", record.Section{}, 0},
		{"half done", record.Section{Fields: []record.Field{{Value: "a"}, {Value: "..."}}}, 0.5},
		{"fields and items", record.Section{
			Fields: []record.Field{{Value: "a"}},
			Items:  []record.Item{{Title: "x"}, {Title: "Item 2"}, {Description: "d"}},
		}, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, Percentage(policy, tt.sec), 1e-9)
		})
	}
}

func TestSectionComplete(t *testing.T) {
	require.True(t, SectionComplete(policy, record.Section{Title: "S"}))
	require.True(t, SectionComplete(policy, record.Section{Fields: []record.Field{{Value: 1.0}}}))
	require.False(t, SectionComplete(policy, record.Section{Fields: []record.Field{{Value: 1.0, Placeholder: true}}}))
	require.False(t, SectionComplete(policy, record.Section{Items: []record.Item{{}}}))
}

func TestTracker_Classification(t *testing.T) {
	tr := NewTracker(policy, 0.3)

	rec := record.Record{Sections: []record.Section{
		{ID: "a", Title: "A"},
		{ID: "b", Fields: []record.Field{{Value: "..."}, {Value: "..."}, {Value: "..."}, {Value: "..."}}},
	}}
	res := tr.Evaluate(rec)
	require.Equal(t, []int{0, 1}, res.Structural)
	require.Equal(t, []int{0}, res.Completed)
	require.Empty(t, res.Refined)

	// b goes from 0% to 25%: not above the threshold.
	rec.Sections[1].Fields = []record.Field{{Value: "x"}, {Value: "..."}, {Value: "..."}, {Value: "..."}}
	res = tr.Evaluate(rec)
	require.True(t, res.Empty())

	// 25% to 75%.
	rec.Sections[1].Fields = []record.Field{{Value: "x"}, {Value: "x"}, {Value: "x"}, {Value: "..."}}
	res = tr.Evaluate(rec)
	require.Equal(t, []int{1}, res.Refined)
	require.Empty(t, res.Structural)

	rec.Sections[1].Fields = []record.Field{{Value: "x"}, {Value: "x"}, {Value: "x"}, {Value: "x"}}
	res = tr.Evaluate(rec)
	require.Equal(t, []int{1}, res.Completed)
	require.Empty(t, res.Refined)

	st, ok := tr.Snapshot()["b"]
	require.True(t, ok)
	require.Equal(t, State{IsComplete: true, Percentage: 1}, st)
}

func TestTracker_NoRegression(t *testing.T) {
	tr := NewTracker(policy, 0.1)

	done := record.Record{Sections: []record.Section{{ID: "a", Fields: []record.Field{{Value: "x"}, {Value: "y"}}}}}
	tr.Evaluate(done)

	worse := record.Record{Sections: []record.Section{{ID: "a", Fields: []record.Field{{Value: "x"}, {Value: "..."}}}}}
	res := tr.Evaluate(worse)
	require.True(t, res.Empty())

	st := tr.Snapshot()["a"]
	require.True(t, st.IsComplete)
	require.Equal(t, 1.0, st.Percentage)
}

func TestTracker_CompleteAll(t *testing.T) {
	tr := NewTracker(policy, 0.1)
	rec := record.Record{Sections: []record.Section{
		{ID: "a", Title: "A"},
		{ID: "b", Items: []record.Item{{}}},
	}}
	tr.Evaluate(rec)

	require.Equal(t, []int{1}, tr.CompleteAll(rec))

	snap := tr.Snapshot()
	require.Equal(t, State{IsComplete: true, Percentage: 1}, snap["a"])
	require.Equal(t, State{IsComplete: true, Percentage: 1}, snap["b"])

	snap["a"] = State{}
	require.True(t, tr.Snapshot()["a"].IsComplete, "snapshot is a copy")
}
