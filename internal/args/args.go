package args

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markis/gh-streamdoc/internal/config"
	"github.com/markis/gh-streamdoc/internal/stream"
)

var (
	// ErrNoPayload is returned when neither a file nor stdin supplied a document.
	ErrNoPayload = errors.New("no payload provided")
	// ErrHelp is returned when the help text was printed instead of running.
	ErrHelp = errors.New("help requested")
)

// Arguments represents the command-line arguments structure.
type Arguments struct {
	// Payload is the complete JSON document to replay.
	Payload string
	// Source names where the payload came from, for diagnostics.
	Source       string
	Instant      bool
	UsePlainText bool
	Raw          bool
	Query        string
	Verbose      bool
	Wrap         int
	// Stream is the engine configuration with flag overrides applied.
	Stream stream.Config
}

// ParseArgs parses argv and reads the payload from the named file or, when
// no file is given, from stdin. stdin is nil when nothing is piped in.
func ParseArgs(ctx context.Context, cfg config.Config, argv []string, stdin io.Reader) (Arguments, error) {
	args := Arguments{Stream: cfg.Stream, Wrap: cfg.Render.Wrap}
	var sse, ran bool

	rootCmd := &cobra.Command{
		Use:   "gh-streamdoc [flags] [file]",
		Short: "Replay a JSON document as a simulated model stream and render it as it assembles",
		Long: `Replays a complete JSON document the way a language model would stream it,
rebuilding the record section by section while the text is still incomplete.

The document is read from the named file, or from stdin when no file is given
or the file is "-". With --sse the input is a recorded chat-completion event
stream whose deltas form the document.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			ran = true

			var r io.Reader
			switch {
			case len(cmdArgs) > 0 && cmdArgs[0] != "-":
				f, err := os.Open(cmdArgs[0])
				if err != nil {
					return fmt.Errorf("failed to open payload: %w", err)
				}
				defer f.Close()
				r, args.Source = f, cmdArgs[0]
			case stdin != nil:
				r, args.Source = stdin, "stdin"
			default:
				return ErrNoPayload
			}

			payload, err := readPayload(ctx, r, sse)
			if err != nil {
				return err
			}
			args.Payload = payload
			return nil
		},
		SilenceErrors: true, // We'll handle error reporting
		SilenceUsage:  true, // We'll handle usage display
	}
	rootCmd.SetArgs(argv)
	rootCmd.SetContext(ctx)

	flags := rootCmd.Flags()
	flags.BoolVar(&args.Instant, "instant", false, "Deliver the whole document at once")
	flags.BoolVar(&args.UsePlainText, "plain", shouldUsePlainText(cfg), "Disable markdown rendering")
	flags.BoolVar(&args.Raw, "raw", false, "Print the raw stream instead of the assembled record")
	flags.BoolVar(&sse, "sse", false, "Read the input as a recorded chat-completion event stream")
	flags.StringVar(&args.Query, "jq", "", "Print the final record filtered through a jq expression")
	flags.BoolVarP(&args.Verbose, "verbose", "v", false, "Log every fragment to stderr")
	flags.IntVar(&args.Stream.Chunk.MinSize, "min-chunk", cfg.Stream.Chunk.MinSize, "Minimum fragment size in characters")
	flags.IntVar(&args.Stream.Chunk.MaxSize, "max-chunk", cfg.Stream.Chunk.MaxSize, "Maximum fragment size in characters")
	flags.DurationVar(&args.Stream.Emit.Throttle, "throttle", cfg.Stream.Emit.Throttle, "Minimum interval between content updates")

	if err := rootCmd.Execute(); err != nil {
		return Arguments{}, err
	}
	if !ran {
		return Arguments{}, ErrHelp
	}

	if strings.TrimSpace(args.Payload) == "" {
		return Arguments{}, ErrNoPayload
	}
	if err := args.Stream.Validate(); err != nil {
		return Arguments{}, err
	}

	return args, nil
}

// readPayload reads the whole document, decoding an event stream first when
// sse is set.
func readPayload(ctx context.Context, r io.Reader, sse bool) (string, error) {
	if sse {
		payload, err := stream.ReadTranscript(ctx, r)
		if err != nil {
			return "", fmt.Errorf("failed to read event stream: %w", err)
		}
		return strings.TrimSpace(payload), nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// StdinPipe returns os.Stdin when input is piped or redirected, and nil for
// an interactive terminal.
func StdinPipe() io.Reader {
	if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		return os.Stdin
	}
	return nil
}

// shouldUsePlainText determines if plain text output should be used based on environment and terminal settings.
func shouldUsePlainText(cfg config.Config) bool {
	// Check if the rendering format is set to plain
	if cfg.Render.Format == "plain" {
		return true
	}

	// Check if output is being redirected
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			return true
		}
	}

	// Check for NO_COLOR environment variable
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}

	// Check for TERM=dumb
	if term := os.Getenv("TERM"); term == "dumb" {
		return true
	}

	return false
}
