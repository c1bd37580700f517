package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markis/gh-streamdoc/internal/args"
	"github.com/markis/gh-streamdoc/internal/config"
	"github.com/markis/gh-streamdoc/internal/render"
	"github.com/markis/gh-streamdoc/internal/stream"
)

const payload = `{"title":"Trip","sections":[{"title":"Day 1","fields":[{"label":"City","value":"Rome"}]},{"title":"Day 2","items":[{"title":"Museum"}]}]}`

func testArguments() args.Arguments {
	cfg := config.Default()
	cfg.Stream.Timing = stream.TimingConfig{MaxDuration: time.Minute}
	return args.Arguments{
		Payload:      payload,
		UsePlainText: true,
		Wrap:         cfg.Render.Wrap,
		Stream:       cfg.Stream,
	}
}

func TestReplayRendersRecord(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, replay(context.Background(), testArguments(), zap.NewNop(), nil, &stdout, &stderr))

	got := stdout.String()
	require.Contains(t, got, "# Trip")
	require.Contains(t, got, "## Day 1")
	require.Contains(t, got, "**City:** Rome")
	require.Contains(t, got, "- **Museum**")
	require.Empty(t, stderr.String())
}

func TestReplayRaw(t *testing.T) {
	a := testArguments()
	a.Raw = true

	var stdout, stderr bytes.Buffer
	require.NoError(t, replay(context.Background(), a, zap.NewNop(), nil, &stdout, &stderr))
	require.Equal(t, payload+"\n", stdout.String())
}

func TestReplayQuery(t *testing.T) {
	a := testArguments()
	a.Instant = true
	a.Raw = true
	q, err := render.NewQuery("[.sections[].title]")
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	require.NoError(t, replay(context.Background(), a, zap.NewNop(), q, &stdout, &stderr))
	require.Contains(t, stdout.String(), "[\n  \"Day 1\",\n  \"Day 2\"\n]\n")
}

func TestReplayNoDocument(t *testing.T) {
	a := testArguments()
	a.Payload = "not a document"

	var stdout, stderr bytes.Buffer
	err := replay(context.Background(), a, zap.NewNop(), nil, &stdout, &stderr)
	require.ErrorIs(t, err, stream.ErrNoDocument)
}

func TestReplayCancelled(t *testing.T) {
	a := testArguments()
	a.Stream.Timing.ThinkingDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	err := replay(ctx, a, zap.NewNop(), nil, &stdout, &stderr)
	require.ErrorContains(t, err, "stream aborted")
}
