package stream

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markis/gh-streamdoc/internal/completion"
	"github.com/markis/gh-streamdoc/internal/partial"
	"github.com/markis/gh-streamdoc/internal/record"
)

var (
	errStopped    = errors.New("session stopped")
	errSuperseded = errors.New("session superseded")
)

// session is one run of the state machine. It owns its buffer, model,
// tracker, emitter and timers; nothing outlives it. All of its work happens
// on the goroutine running run, so fragment processing never interleaves.
type session struct {
	id      string
	owner   *Streamer
	cfg     Config
	instant bool
	log     *zap.Logger

	ctx     context.Context
	cancel  context.CancelCauseFunc
	release context.CancelFunc
	done    chan struct{}

	target    string
	fragments []string
	buf       strings.Builder
	progress  float64

	scanner *partial.Scanner
	asm     *record.Assembler
	tracker *completion.Tracker
	emitter *Emitter
}

func newSession(parent context.Context, owner *Streamer, target string, fragments []string, instant bool) *session {
	id := uuid.NewString()
	policy := record.NewPolicy(owner.cfg.Placeholder.Sentinel)
	log := owner.log.With(zap.String("session", id))

	ctx, cancel := context.WithCancelCause(parent)
	release := context.CancelFunc(func() {})
	if d := owner.cfg.Timing.MaxDuration; d > 0 {
		ctx, release = context.WithTimeoutCause(ctx, d, ErrTimeout)
	}

	return &session{
		id:        id,
		owner:     owner,
		cfg:       owner.cfg,
		instant:   instant,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		release:   release,
		done:      make(chan struct{}),
		target:    target,
		fragments: fragments,
		scanner:   partial.NewScanner(log),
		asm:       record.NewAssembler(policy),
		tracker:   completion.NewTracker(policy, owner.cfg.Emit.ContentThreshold),
		emitter:   NewEmitter(owner.cfg.Emit.Throttle, owner.clk),
	}
}

// run drives idle → thinking → streaming → complete. Instant sessions take
// the same path with every delay set to zero.
func (s *session) run() {
	defer close(s.done)
	defer s.release()

	s.transition(StageThinking)
	if !s.sleep(s.delay(s.cfg.Timing.ThinkingDelay)) {
		s.interrupted()
		return
	}

	s.transition(StageStreaming)
	for i, frag := range s.fragments {
		s.step(i, frag)
		if i == len(s.fragments)-1 {
			break
		}
		pause := s.cfg.Timing.fragmentDelay(utf8.RuneCountInString(frag))
		if !s.sleep(s.delay(pause)) {
			s.interrupted()
			return
		}
	}
	s.finish()
}

func (s *session) delay(d time.Duration) time.Duration {
	if s.instant {
		return 0
	}
	return d
}

// sleep waits for d while delivering held updates whose time has come. It
// returns false if the session was cancelled.
func (s *session) sleep(d time.Duration) bool {
	if err := s.ctx.Err(); err != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	wait := time.NewTimer(d)
	defer wait.Stop()

	for {
		var flushC <-chan time.Time
		var flush *time.Timer
		if due, ok := s.emitter.Due(); ok {
			flush = time.NewTimer(time.Until(due))
			flushC = flush.C
		}

		var ok, resume bool
		select {
		case <-s.ctx.Done():
			ok, resume = false, false
		case <-wait.C:
			ok, resume = true, false
		case <-flushC:
			if u, due := s.emitter.Flush(); due {
				s.owner.publishUpdate(s, u)
			}
			resume = true
		}
		if flush != nil {
			flush.Stop()
		}
		if !resume {
			return ok
		}
	}
}

// step processes one fragment to completion.
func (s *session) step(i int, frag string) {
	s.buf.WriteString(frag)
	buf := s.buf.String()
	s.progress = max(s.progress, min(1, float64(len(buf))/float64(len(s.target))))

	s.log.Debug("fragment",
		zap.Int("index", i),
		zap.Int("size", len(frag)),
		zap.Int("buffer", len(buf)))

	s.owner.publishBuffer(s, buf)
	s.owner.publishState(s, s.state(StageStreaming))

	res := s.scanner.Scan(buf)
	rec, changes := s.asm.Apply(res.Title, res.HasTitle, res.Sections)
	eval := s.tracker.Evaluate(rec)
	s.owner.setRecord(s, rec, s.tracker.Snapshot())

	if len(changes) == 0 && eval.Empty() {
		return
	}
	u := Update{
		Record:            rec,
		ChangeType:        ChangeContent,
		CompletedSections: eval.Completed,
		RefinedSections:   eval.Refined,
		Changes:           changes,
		Pending:           res.Pending,
	}
	if isStructural(res, eval) {
		u.ChangeType = ChangeStructural
	}
	s.deliver(u, !s.instant)
}

// finish runs the final pass: one more scan of the whole buffer, every
// placeholder cleared, every section complete, and a terminal update that
// is never throttled.
func (s *session) finish() {
	buf := s.buf.String()
	res := s.scanner.Scan(buf)
	if !res.Complete {
		s.log.Warn("stream ended before the document was complete", zap.Int("buffer", len(buf)))
	}

	_, changes := s.asm.Apply(res.Title, res.HasTitle, res.Sections)
	final, cleared := s.asm.Finalize()
	changes = append(changes, cleared...)

	eval := s.tracker.Evaluate(final)
	completed := append(eval.Completed, s.tracker.CompleteAll(final)...)
	slices.Sort(completed)
	completed = slices.Compact(completed)

	s.owner.setRecord(s, final, s.tracker.Snapshot())
	u := Update{
		Record:            final,
		ChangeType:        ChangeContent,
		CompletedSections: completed,
		Changes:           changes,
		Final:             true,
	}
	if isStructural(res, eval) {
		u.ChangeType = ChangeStructural
	}
	s.deliver(u, false)

	if final.Title == "" && len(final.Sections) == 0 {
		s.log.Warn("no document found in stream", zap.Int("buffer", len(buf)))
		st := s.state(StageError)
		st.Err = ErrNoDocument
		s.owner.finish(s, st)
		return
	}
	if final.Title == "" {
		s.log.Warn("final record has no title")
	}
	s.progress = 1
	s.log.Info("stream complete", zap.Int("sections", len(final.Sections)))
	s.owner.finish(s, s.state(StageComplete))
}

// interrupted handles a cancelled context. Stop and Start clean up after
// the session themselves. Exceeding MaxDuration is an error; any cancellation
// of the caller's context, its deadline included, aborts the session.
func (s *session) interrupted() {
	s.emitter.Cancel()
	cause := context.Cause(s.ctx)
	switch {
	case errors.Is(cause, errStopped), errors.Is(cause, errSuperseded):
		s.log.Debug("session cancelled", zap.Error(cause))
	case errors.Is(cause, ErrTimeout):
		s.log.Warn("session timed out", zap.Duration("max_duration", s.cfg.Timing.MaxDuration))
		st := s.state(StageError)
		st.Err = ErrTimeout
		s.owner.finish(s, st)
	default:
		s.log.Info("session aborted by caller", zap.Error(cause))
		s.owner.abort(s)
	}
}

// isStructural reports whether a scan added sections. The scanner sees a
// section when its braces first balance and the tracker when its id first
// appears in the record; either one makes the update structural.
func isStructural(res partial.Result, eval completion.Result) bool {
	return len(res.NewlyBalanced) > 0 || len(eval.Structural) > 0
}

func (s *session) deliver(u Update, throttle bool) {
	for _, out := range s.emitter.Offer(u, throttle) {
		s.owner.publishUpdate(s, out)
	}
}

func (s *session) transition(stage Stage) {
	s.log.Info("stage", zap.String("stage", string(stage)))
	s.owner.publishState(s, s.state(stage))
}

func (s *session) state(stage Stage) State {
	return State{
		Session:      s.id,
		Stage:        stage,
		Progress:     s.progress,
		BufferLength: s.buf.Len(),
		TargetLength: len(s.target),
	}
}
