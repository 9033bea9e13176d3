package labeling

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/lehigh-university-libraries/solarlabel/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRecorder struct{}

func (failingRecorder) Record(a, b label.Point, comment string, meta label.Metadata) (*label.Label, error) {
	return nil, errors.New("disk full")
}

func newTestSession(t *testing.T, hooks Hooks) (*Session, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "labels.log")
	meta := label.Metadata{Timestamp: "2023-01-10 07:30", Wavelength: "171"}
	return NewSession(meta, nil, label.NewRecorder(logPath), hooks), logPath
}

func TestSessionFullInteraction(t *testing.T) {
	var recorded []label.Label
	s, logPath := newTestSession(t, Hooks{OnRecorded: func(l label.Label) { recorded = append(recorded, l) }})

	require.NoError(t, s.Press(12.345, 50))
	assert.Equal(t, Dragging, s.State())

	require.NoError(t, s.Drag(8, 60))
	pending, ok := s.Pending()
	require.True(t, ok)
	assert.Equal(t, label.Rect{X0: 8, Y0: 50, X1: 12.345, Y1: 60}, pending)

	rect, err := s.Release(3.2, 80.7)
	require.NoError(t, err)
	assert.Equal(t, AwaitingComment, s.State())
	assert.Equal(t, label.Rect{X0: 3.2, Y0: 50, X1: 12.345, Y1: 80.7}, rect)

	l, err := s.Submit("flare")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 1, s.Recorded())
	assert.Len(t, recorded, 1)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "Date/Time: 2023-01-10 07:30, Wavelength: 171Å, Comment: flare, Coordinates: (3.20, 50.00), (12.35, 80.70)\n", string(data))
}

func TestSessionCancelNeverAppends(t *testing.T) {
	tests := []struct {
		name   string
		finish func(s *Session) error
	}{
		{
			name:   "cancel during drag",
			finish: func(s *Session) error { return s.Cancel() },
		},
		{
			name: "cancel comment prompt",
			finish: func(s *Session) error {
				if _, err := s.Release(5, 5); err != nil {
					return err
				}
				return s.Cancel()
			},
		},
		{
			name: "submit blank comment",
			finish: func(s *Session) error {
				if _, err := s.Release(5, 5); err != nil {
					return err
				}
				l, err := s.Submit("  ")
				if l != nil {
					return errors.New("expected nil label")
				}
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var retracted []label.Rect
			s, logPath := newTestSession(t, Hooks{OnRetract: func(r label.Rect) { retracted = append(retracted, r) }})

			require.NoError(t, s.Press(1, 1))
			require.NoError(t, tt.finish(s))

			assert.Equal(t, Idle, s.State())
			assert.Len(t, retracted, 1)
			_, ok := s.Pending()
			assert.False(t, ok)

			_, err := os.Stat(logPath)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestSessionRejectsOutOfOrderEvents(t *testing.T) {
	s, _ := newTestSession(t, Hooks{})

	assert.ErrorIs(t, s.Drag(1, 1), ErrInvalidTransition)
	_, err := s.Release(1, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Submit("x")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, s.Cancel(), ErrInvalidTransition)
	assert.Equal(t, Idle, s.State())

	require.NoError(t, s.Press(0, 0))
	assert.ErrorIs(t, s.Press(1, 1), ErrInvalidTransition)
	_, err = s.Submit("x")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, Dragging, s.State())

	_, err = s.Release(2, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Drag(3, 3), ErrInvalidTransition)
	assert.Equal(t, AwaitingComment, s.State())
}

func TestSessionRecorderFailureKeepsPrompt(t *testing.T) {
	s := NewSession(label.Metadata{Timestamp: "t"}, nil, failingRecorder{}, Hooks{})

	require.NoError(t, s.Press(0, 0))
	_, err := s.Release(4, 4)
	require.NoError(t, err)

	_, err = s.Submit("sunspot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, AwaitingComment, s.State())
	assert.Equal(t, 0, s.Recorded())
}

func TestSessionMapsDisplayToImage(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "labels.log")
	vp, err := render.NewViewport(2, 100, 40)
	require.NoError(t, err)
	s := NewSession(label.Metadata{Timestamp: "2023-01-10 07:30"}, vp, label.NewRecorder(logPath), Hooks{})

	require.NoError(t, s.Press(0, 0))
	_, err = s.Release(100, 60)
	require.NoError(t, err)
	_, err = s.Submit("prominence")
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(data)), "Coordinates: (50.00, 20.00), (100.00, 50.00)"))
}
