// Package labeling drives the drag-and-comment interaction that produces labels.
//
// A Session is a small state machine:
//
//	Idle --press--> Dragging --release--> AwaitingComment --submit/cancel--> Idle
//
// It holds no reference to any UI toolkit. The front end feeds it discrete
// events and draws whatever Pending reports.
package labeling

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/lehigh-university-libraries/solarlabel/internal/render"
)

// ErrInvalidTransition is returned when an event does not apply to the current state
var ErrInvalidTransition = errors.New("invalid labeling transition")

// State of a labeling session
type State int

const (
	Idle State = iota
	Dragging
	AwaitingComment
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case AwaitingComment:
		return "awaiting_comment"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recorder persists a completed label
type Recorder interface {
	Record(a, b label.Point, comment string, meta label.Metadata) (*label.Label, error)
}

// Hooks let a front end react to overlay changes. Both are optional.
type Hooks struct {
	// OnRetract is called with the rectangle the caller must remove from the display
	OnRetract func(label.Rect)
	// OnRecorded is called after a label has been appended to the log
	OnRecorded func(label.Label)
}

// Session is the labeling state for one displayed image
type Session struct {
	meta     label.Metadata
	mapping  render.Mapping
	recorder Recorder
	hooks    Hooks

	state    State
	start    label.Point
	end      label.Point
	recorded int
}

// NewSession starts an idle session. A nil mapping means display and image coordinates coincide.
func NewSession(meta label.Metadata, mapping render.Mapping, recorder Recorder, hooks Hooks) *Session {
	if mapping == nil {
		mapping = render.Identity{}
	}
	return &Session{
		meta:     meta,
		mapping:  mapping,
		recorder: recorder,
		hooks:    hooks,
	}
}

// State returns the current state
func (s *Session) State() State {
	return s.state
}

// Metadata returns the image metadata labels are anchored to
func (s *Session) Metadata() label.Metadata {
	return s.meta
}

// Recorded returns how many labels this session has written
func (s *Session) Recorded() int {
	return s.recorded
}

// Pending returns the rectangle being drawn or awaiting a comment, in image coordinates
func (s *Session) Pending() (label.Rect, bool) {
	if s.state == Idle {
		return label.Rect{}, false
	}
	return label.Normalize(s.start, s.end), true
}

// Press begins a drag at a display position
func (s *Session) Press(x, y float64) error {
	if s.state != Idle {
		return s.reject("press")
	}
	p := s.toImage(x, y)
	s.start, s.end = p, p
	s.state = Dragging
	return nil
}

// Drag moves the free corner of the rectangle being drawn
func (s *Session) Drag(x, y float64) error {
	if s.state != Dragging {
		return s.reject("drag")
	}
	s.end = s.toImage(x, y)
	return nil
}

// Release fixes the second corner and waits for a comment
func (s *Session) Release(x, y float64) (label.Rect, error) {
	if s.state != Dragging {
		return label.Rect{}, s.reject("release")
	}
	s.end = s.toImage(x, y)
	s.state = AwaitingComment
	return label.Normalize(s.start, s.end), nil
}

// Submit records the pending rectangle with a comment. A blank comment is a cancel
// and returns a nil label. If the recorder fails the session keeps waiting for a comment.
func (s *Session) Submit(comment string) (*label.Label, error) {
	if s.state != AwaitingComment {
		return nil, s.reject("submit")
	}

	l, err := s.recorder.Record(s.start, s.end, comment, s.meta)
	if err != nil {
		return nil, fmt.Errorf("failed to record label: %w", err)
	}
	if l == nil {
		s.retract()
		return nil, nil
	}

	s.recorded++
	s.reset()
	if s.hooks.OnRecorded != nil {
		s.hooks.OnRecorded(*l)
	}
	return l, nil
}

// Cancel abandons the drag or the comment prompt
func (s *Session) Cancel() error {
	if s.state == Idle {
		return s.reject("cancel")
	}
	s.retract()
	return nil
}

func (s *Session) retract() {
	rect := label.Normalize(s.start, s.end)
	s.reset()
	if s.hooks.OnRetract != nil {
		s.hooks.OnRetract(rect)
	}
}

func (s *Session) reset() {
	s.state = Idle
	s.start = label.Point{}
	s.end = label.Point{}
}

func (s *Session) toImage(x, y float64) label.Point {
	ix, iy := s.mapping.ToImage(x, y)
	return label.Point{X: ix, Y: iy}
}

func (s *Session) reject(event string) error {
	slog.Debug("Rejected labeling event", "event", event, "state", s.state.String())
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, event, s.state)
}
