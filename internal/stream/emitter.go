package stream

import (
	"slices"
	"time"
)

// Emitter decides when an update is delivered. Urgent updates (new
// sections, completions, the final update) go out at once. Content updates
// are spaced at least interval apart; a content update that arrives too
// early is held, and a newer one replaces it. An urgent update cancels the
// held one and takes its place.
//
// Emitter is not safe for concurrent use; the session goroutine owns it.
type Emitter struct {
	interval time.Duration
	clk      func() time.Time

	pending *Update
	due     time.Time
	last    time.Time
	sent    bool
}

// NewEmitter returns an Emitter. clk defaults to time.Now.
func NewEmitter(interval time.Duration, clk func() time.Time) *Emitter {
	if clk == nil {
		clk = time.Now
	}
	return &Emitter{interval: interval, clk: clk}
}

// Offer submits u and returns the updates to deliver now. throttle is false
// outside of the streaming stage, where everything is delivered at once.
func (e *Emitter) Offer(u Update, throttle bool) []Update {
	now := e.clk()
	if e.pending != nil {
		u = supersede(*e.pending, u)
		e.pending = nil
	}

	if !throttle || e.interval <= 0 || u.urgent() || !e.sent || now.Sub(e.last) >= e.interval {
		e.mark(now)
		return []Update{u}
	}

	e.pending = &u
	e.due = e.last.Add(e.interval)
	return nil
}

// Due returns when the held update should be delivered.
func (e *Emitter) Due() (time.Time, bool) {
	if e.pending == nil {
		return time.Time{}, false
	}
	return e.due, true
}

// Flush returns the held update if its time has come.
func (e *Emitter) Flush() (Update, bool) {
	if e.pending == nil {
		return Update{}, false
	}
	now := e.clk()
	if now.Before(e.due) {
		return Update{}, false
	}
	u := *e.pending
	e.pending = nil
	e.mark(now)
	return u, true
}

// Cancel drops the held update.
func (e *Emitter) Cancel() {
	e.pending = nil
}

func (e *Emitter) mark(now time.Time) {
	e.last = now
	e.sent = true
}

// supersede folds the change lists of an undelivered update into the one
// replacing it. The record snapshot of next already includes older's
// content.
func supersede(older, next Update) Update {
	next.Changes = append(slices.Clone(older.Changes), next.Changes...)
	for _, i := range older.RefinedSections {
		if !slices.Contains(next.RefinedSections, i) {
			next.RefinedSections = append(next.RefinedSections, i)
		}
	}
	slices.Sort(next.RefinedSections)
	return next
}
