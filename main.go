package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markis/gh-streamdoc/internal/args"
	"github.com/markis/gh-streamdoc/internal/config"
	"github.com/markis/gh-streamdoc/internal/logging"
	"github.com/markis/gh-streamdoc/internal/render"
	"github.com/markis/gh-streamdoc/internal/stream"
)

// main function to parse arguments and replay the document.
func main() {
	if err := run(); err != nil {
		if errors.Is(err, args.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := args.ParseArgs(ctx, *cfg, os.Args[1:], args.StdinPipe())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, a.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var query *render.Query
	if a.Query != "" {
		if query, err = render.NewQuery(a.Query); err != nil {
			return err
		}
	}

	logger.Debug("payload loaded", zap.String("source", a.Source), zap.Int("length", len(a.Payload)))
	return replay(ctx, a, logger, query, os.Stdout, os.Stderr)
}

// replay streams the payload and renders it until the session ends.
func replay(ctx context.Context, a args.Arguments, logger *zap.Logger, query *render.Query, stdout, stderr io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)

	updates := make(chan stream.Update, 16)
	buffers := make(chan string, 16)
	showStatus := !a.UsePlainText

	var lastStage stream.Stage
	handlers := stream.Handlers{
		OnState: func(s stream.State) {
			if !showStatus || s.Stage == lastStage || s.Stage == stream.StageStreaming {
				return
			}
			lastStage = s.Stage
			fmt.Fprintln(stderr, render.Status(s))
		},
		OnBuffer: func(buf string) {
			if !a.Raw {
				return
			}
			select {
			case buffers <- buf:
			case <-gctx.Done():
			}
		},
		OnUpdate: func(u stream.Update) {
			if a.Raw {
				return
			}
			select {
			case updates <- u:
			case <-gctx.Done():
			}
		},
	}

	streamer, err := stream.New(a.Stream, logger, handlers)
	if err != nil {
		return err
	}

	g.Go(func() error {
		if a.Raw {
			return render.RenderRaw(buffers, stdout)
		}
		return render.NewTerminalRenderer(a.UsePlainText, a.Wrap, stdout).Render(updates)
	})

	if err := streamer.Start(gctx, a.Payload, stream.WithInstant(a.Instant)); err != nil {
		close(updates)
		close(buffers)
		_ = g.Wait()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	g.Go(func() error {
		defer close(buffers)
		defer close(updates)

		select {
		case <-streamer.Done():
		case <-gctx.Done():
			streamer.Stop()
		}

		state := streamer.State()
		switch state.Stage {
		case stream.StageComplete:
			return nil
		case stream.StageError:
			return fmt.Errorf("stream failed: %w", state.Err)
		default:
			return fmt.Errorf("stream aborted: %w", context.Cause(gctx))
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if query == nil {
		return nil
	}
	results, err := query.Run(streamer.Record())
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintln(stdout, r)
	}
	return nil
}
