package partial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{`{"title":"Done"}`, "Done", true},
		{`{"title" : "Half`, "Half", true},
		{`{"title":"`, "", true},
		{`{"title":"a\"b`, `a"b`, true},
		{`{"title":"cut\`, "cut", true},
		{`{"title":"unié`, "unié", true},
		{`{"title":"uni\u00`, "uni", true},
		{`{"subtitle":"x"}`, "", false},
		{`{"tit`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ExtractTitle(tt.in)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractLabels(t *testing.T) {
	labels := ExtractLabels(`{"fields":[{"label":"One"},{"label": "Two\n"},{"label":"Thr`)
	require.Equal(t, []string{"One", "Two\n"}, labels)
}

func TestScanObjects(t *testing.T) {
	t.Run("closed list", func(t *testing.T) {
		s := `{"a":1}, {"b":{"c":[1,2]}} ] , "rest"`
		res := scanObjects(s)
		require.True(t, res.closed)
		require.Len(t, res.objects, 2)
		require.Equal(t, `{"b":{"c":[1,2]}}`, s[res.objects[1].start:res.objects[1].end])
		require.Equal(t, -1, res.open)
	})

	t.Run("open object", func(t *testing.T) {
		s := `{"a":1},{"b":"}`
		res := scanObjects(s)
		require.False(t, res.closed)
		require.Len(t, res.objects, 1)
		require.Equal(t, 8, res.open)
	})

	t.Run("escaped backslash before quote", func(t *testing.T) {
		res := scanObjects(`{"a":"x\\"},{"b":1}`)
		require.Len(t, res.objects, 2)
	})

	t.Run("empty", func(t *testing.T) {
		res := scanObjects(``)
		require.Empty(t, res.objects)
		require.False(t, res.closed)
	})
}
