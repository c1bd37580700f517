package stream

import (
	"errors"

	"github.com/markis/gh-streamdoc/internal/partial"
	"github.com/markis/gh-streamdoc/internal/record"
)

var (
	// ErrEmptyPayload is returned by Start when the payload yields no fragments.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrNoDocument means the final buffer held neither a title nor a section.
	ErrNoDocument = errors.New("no document found in stream")
	// ErrTimeout means the session exceeded its maximum duration.
	ErrTimeout = errors.New("stream exceeded maximum duration")
)

// Stage is a step of the session lifecycle.
type Stage string

const (
	StageIdle      Stage = "idle"
	StageThinking  Stage = "thinking"
	StageStreaming Stage = "streaming"
	StageComplete  Stage = "complete"
	StageAborted   Stage = "aborted"
	StageError     Stage = "error"
)

// Terminal reports whether no further transition can follow s.
func (s Stage) Terminal() bool {
	switch s {
	case StageComplete, StageAborted, StageError:
		return true
	}
	return false
}

// State is the observable state of the current session.
type State struct {
	Session      string  `json:"session,omitempty"`
	Stage        Stage   `json:"stage"`
	Progress     float64 `json:"progress"`
	BufferLength int     `json:"bufferLength"`
	TargetLength int     `json:"targetLength"`
	// Err is the cause of StageError.
	Err error `json:"-"`
}

// IsActive reports whether a session is thinking or streaming.
func (s State) IsActive() bool {
	return s.Stage == StageThinking || s.Stage == StageStreaming
}

// ChangeType distinguishes new sections from refinements of known ones.
type ChangeType string

const (
	ChangeStructural ChangeType = "structural"
	ChangeContent    ChangeType = "content"
)

// Update is one notification about the in-progress record.
type Update struct {
	Record     record.Record `json:"record"`
	ChangeType ChangeType    `json:"changeType"`
	// CompletedSections lists sections that became complete.
	CompletedSections []int `json:"completedSectionIndices,omitempty"`
	// RefinedSections lists incomplete sections that advanced noticeably.
	RefinedSections []int            `json:"refinedSectionIndices,omitempty"`
	Changes         []record.Change  `json:"changes,omitempty"`
	Pending         *partial.Preview `json:"pending,omitempty"`
	// Final is set on the last update of a session.
	Final bool `json:"final,omitempty"`
}

// urgent reports whether u must bypass throttling.
func (u Update) urgent() bool {
	return u.Final || u.ChangeType == ChangeStructural || len(u.CompletedSections) > 0
}

// Handlers receive the engine's output. They run on the session goroutine
// and must not call Start or Stop synchronously.
type Handlers struct {
	OnState  func(State)
	OnBuffer func(string)
	OnUpdate func(Update)
}
