package stream

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadTranscript(t *testing.T) {
	in := strings.Join([]string{
		": keep-alive",
		`data: {"choices":[{"delta":{"content":"{\"title\":"}}]}`,
		"",
		"event: ignored",
		`data: {"choices":[{"delta":{"content":"\"T\"}"}}]}`,
		`data: {"choices":[]}`,
		"data: [DONE]",
		`data: {"choices":[{"delta":{"content":"after done"}}]}`,
	}, "\n")

	got, err := ReadTranscript(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, `{"title":"T"}`, got)
}

func TestReadTranscriptMessageFallback(t *testing.T) {
	in := `data: {"choices":[{"message":{"content":"whole"}}]}`
	got, err := ReadTranscript(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, "whole", got)
}

func TestReadTranscriptMalformedLine(t *testing.T) {
	in := "data: {\"choices\":[]}\ndata: {not json"
	_, err := ReadTranscript(context.Background(), strings.NewReader(in))
	require.ErrorContains(t, err, "line 2")
}

func TestReadTranscriptCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadTranscript(ctx, strings.NewReader("data: [DONE]"))
	require.ErrorIs(t, err, context.Canceled)
}
