package args

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/markis/gh-streamdoc/internal/config"
	"github.com/markis/gh-streamdoc/internal/stream"
)

const doc = `{"title":"T","sections":[]}`

func TestParseArgsStdin(t *testing.T) {
	args, err := ParseArgs(context.Background(), *config.Default(), nil, strings.NewReader("\n"+doc+"\n"))
	require.NoError(t, err)
	require.Equal(t, doc, args.Payload)
	require.Equal(t, "stdin", args.Source)
	require.Equal(t, 8, args.Stream.Chunk.MinSize)
	require.False(t, args.Instant)
}

func TestParseArgsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	args, err := ParseArgs(context.Background(), *config.Default(), []string{path}, nil)
	require.NoError(t, err)
	require.Equal(t, doc, args.Payload)
	require.Equal(t, path, args.Source)
}

func TestParseArgsFlags(t *testing.T) {
	argv := []string{"--instant", "--raw", "--plain", "--jq", ".title", "-v",
		"--min-chunk", "2", "--max-chunk", "6", "--throttle", "50ms", "-"}

	args, err := ParseArgs(context.Background(), *config.Default(), argv, strings.NewReader(doc))
	require.NoError(t, err)
	require.True(t, args.Instant)
	require.True(t, args.Raw)
	require.True(t, args.UsePlainText)
	require.True(t, args.Verbose)
	require.Equal(t, ".title", args.Query)
	require.Equal(t, stream.ChunkConfig{MinSize: 2, MaxSize: 6}, args.Stream.Chunk)
	require.Equal(t, 50*time.Millisecond, args.Stream.Emit.Throttle)
}

func TestParseArgsSSE(t *testing.T) {
	in := "data: {\"choices\":[{\"delta\":{\"content\":\"{\\\"title\\\":\\\"T\\\"}\"}}]}\ndata: [DONE]\n"
	args, err := ParseArgs(context.Background(), *config.Default(), []string{"--sse"}, strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, `{"title":"T"}`, args.Payload)
}

func TestParseArgsReadsPayloadVerbatim(t *testing.T) {
	long := `{"title":"` + strings.Repeat("x", 2<<20) + `","sections":[]}`
	args, err := ParseArgs(context.Background(), *config.Default(), nil, strings.NewReader(long+"\n"))
	require.NoError(t, err)
	require.Equal(t, long, args.Payload)

	crlf := "{\"title\":\"T\",\r\n\"sections\":[]}"
	args, err = ParseArgs(context.Background(), *config.Default(), nil, strings.NewReader(crlf+"\r\n"))
	require.NoError(t, err)
	require.Equal(t, crlf, args.Payload)
}

func TestParseArgsErrors(t *testing.T) {
	cfg := *config.Default()
	ctx := context.Background()

	_, err := ParseArgs(ctx, cfg, nil, nil)
	require.ErrorIs(t, err, ErrNoPayload)

	_, err = ParseArgs(ctx, cfg, nil, strings.NewReader("  \n"))
	require.ErrorIs(t, err, ErrNoPayload)

	_, err = ParseArgs(ctx, cfg, []string{"--min-chunk", "10", "--max-chunk", "5"}, strings.NewReader(doc))
	require.ErrorIs(t, err, stream.ErrInvalidChunkSize)

	_, err = ParseArgs(ctx, cfg, []string{filepath.Join(t.TempDir(), "missing.json")}, nil)
	require.ErrorContains(t, err, "failed to open payload")

	_, err = ParseArgs(ctx, cfg, []string{"a", "b"}, nil)
	require.Error(t, err)
}

func TestShouldUsePlainText(t *testing.T) {
	cfg := *config.Default()
	cfg.Render.Format = "plain"
	require.True(t, shouldUsePlainText(cfg))

	t.Setenv("NO_COLOR", "1")
	require.True(t, shouldUsePlainText(*config.Default()))
}
