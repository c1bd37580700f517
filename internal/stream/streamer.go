package stream

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/markis/gh-streamdoc/internal/completion"
	"github.com/markis/gh-streamdoc/internal/record"
)

// Streamer replays a complete JSON payload as a simulated model stream and
// reports the progressively assembled record. At most one session is active
// at a time; starting a new one cancels the previous one first.
type Streamer struct {
	cfg      Config
	log      *zap.Logger
	handlers Handlers
	chunker  *Chunker
	clk      func() time.Time

	// ctrl serializes Start and Stop.
	ctrl sync.Mutex

	mu         sync.Mutex
	cur        *session
	state      State
	record     record.Record
	completion map[string]completion.State
	done       chan struct{}
}

// New returns an idle Streamer. A nil logger disables logging.
func New(cfg Config, log *zap.Logger, h Handlers) (*Streamer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stream config: %w", err)
	}
	chunker, err := NewChunker(cfg.Chunk.MinSize, cfg.Chunk.MaxSize)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Streamer{
		cfg:      cfg,
		log:      log,
		handlers: h,
		chunker:  chunker,
		clk:      time.Now,
		state:    State{Stage: StageIdle},
		done:     closedChan(),
	}, nil
}

// StartOption configures a single session.
type StartOption func(*startOptions)

type startOptions struct {
	instant bool
}

// WithInstant delivers the whole payload as one fragment with no delays.
func WithInstant(instant bool) StartOption {
	return func(o *startOptions) {
		o.instant = instant
	}
}

// Start begins streaming payload. Any running session is cancelled and has
// fully stopped before the new one starts. Start returns once the session is
// scheduled; progress is reported through the handlers.
func (st *Streamer) Start(ctx context.Context, payload string, opts ...StartOption) error {
	st.ctrl.Lock()
	defer st.ctrl.Unlock()

	if prev := st.cancelCurrent(errSuperseded); prev != nil {
		st.log.Debug("superseded running session", zap.String("session", prev.id))
	}

	var o startOptions
	for _, opt := range opts {
		opt(&o)
	}

	fragments := st.chunker.Split(payload)
	if len(fragments) == 0 {
		st.reset(State{Stage: StageError, Err: ErrEmptyPayload})
		return ErrEmptyPayload
	}
	if o.instant {
		fragments = []string{strings.Join(fragments, "")}
	}

	s := newSession(ctx, st, payload, fragments, o.instant)
	s.log.Info("starting session",
		zap.Int("target", len(payload)),
		zap.Int("fragments", len(fragments)),
		zap.Bool("instant", o.instant))

	st.mu.Lock()
	st.cur = s
	st.state = State{Session: s.id, Stage: StageIdle, TargetLength: len(payload)}
	st.record = record.Record{}
	st.completion = nil
	st.done = s.done
	st.mu.Unlock()

	go s.run()
	return nil
}

// Stop cancels the running session, clears all state and reports the
// aborted stage. Stop is a no-op when nothing is running.
func (st *Streamer) Stop() {
	st.ctrl.Lock()
	defer st.ctrl.Unlock()

	s := st.cancelCurrent(errStopped)
	if s == nil {
		return
	}
	s.log.Info("session stopped")
	st.reset(State{Session: s.id, Stage: StageAborted})
}

// State returns the state of the latest session.
func (st *Streamer) State() State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Record returns the latest assembled record.
func (st *Streamer) Record() record.Record {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.record.Clone()
}

// Completion returns the completion state of every known section by id.
func (st *Streamer) Completion() map[string]completion.State {
	st.mu.Lock()
	defer st.mu.Unlock()
	return maps.Clone(st.completion)
}

// Done is closed when the latest session has ended.
func (st *Streamer) Done() <-chan struct{} {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.done
}

// cancelCurrent cancels the running session and waits for its goroutine to
// return. The caller must hold ctrl.
func (st *Streamer) cancelCurrent(cause error) *session {
	st.mu.Lock()
	s := st.cur
	st.cur = nil
	st.mu.Unlock()
	if s == nil {
		return nil
	}
	s.cancel(cause)
	<-s.done
	return s
}

func (st *Streamer) reset(state State) {
	st.mu.Lock()
	st.state = state
	st.record = record.Record{}
	st.completion = nil
	st.done = closedChan()
	st.mu.Unlock()
	st.notifyState(state)
}

// The methods below are called from a session goroutine. Output from a
// session that is no longer current is dropped.

func (st *Streamer) current(s *session, fn func()) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.cur != s {
		return false
	}
	if fn != nil {
		fn()
	}
	return true
}

func (st *Streamer) publishState(s *session, state State) {
	if st.current(s, func() { st.state = state }) {
		st.notifyState(state)
	}
}

func (st *Streamer) publishBuffer(s *session, buf string) {
	if st.current(s, nil) && st.handlers.OnBuffer != nil {
		st.handlers.OnBuffer(buf)
	}
}

func (st *Streamer) publishUpdate(s *session, u Update) {
	if st.current(s, nil) && st.handlers.OnUpdate != nil {
		st.handlers.OnUpdate(u)
	}
}

func (st *Streamer) setRecord(s *session, rec record.Record, comp map[string]completion.State) {
	st.current(s, func() {
		st.record = rec
		st.completion = comp
	})
}

// finish moves s to a terminal stage and detaches it.
func (st *Streamer) finish(s *session, state State) {
	ok := st.current(s, func() {
		st.state = state
		st.cur = nil
	})
	if ok {
		st.notifyState(state)
	}
}

// abort ends s after its parent context was cancelled.
func (st *Streamer) abort(s *session) {
	ok := st.current(s, func() {
		st.cur = nil
	})
	if ok {
		st.reset(State{Session: s.id, Stage: StageAborted})
	}
}

func (st *Streamer) notifyState(state State) {
	if st.handlers.OnState != nil {
		st.handlers.OnState(state)
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
