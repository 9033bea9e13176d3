package label

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Recorder appends labels to a shared, append-only log file.
// Every append is a single lock-open-write-close sequence; nothing is held
// between calls, so callers serialize their own labeling interactions.
type Recorder struct {
	path string
}

// NewRecorder creates a recorder for the log at path
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Path returns the log file location
func (r *Recorder) Path() string {
	return r.path
}

// Record normalizes the two points into a rectangle and appends one line to the log.
// A blank comment means the dialog was cancelled: nothing is written and the
// returned label is nil.
func (r *Recorder) Record(a, b Point, comment string, meta Metadata) (*Label, error) {
	comment = singleLine(comment)
	if comment == "" {
		slog.Debug("Label comment empty, nothing recorded", "timestamp", meta.Timestamp)
		return nil, nil
	}
	meta.Timestamp = singleLine(meta.Timestamp)
	meta.Wavelength = singleLine(meta.Wavelength)
	if meta.Timestamp == "" {
		return nil, ErrMissingTimestamp
	}
	if !a.Valid() || !b.Valid() {
		return nil, ErrInvalidPoint
	}

	l := Label{
		Timestamp:  meta.Timestamp,
		Wavelength: meta.Wavelength,
		Comment:    comment,
		Rect:       Normalize(a, b),
	}

	line := FormatLine(l)
	if len(line)+1 > MaxLineBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrLineTooLong, len(line)+1, MaxLineBytes)
	}

	if err := r.appendLine(line); err != nil {
		return nil, err
	}

	slog.Info("Label recorded", "log", r.path, "timestamp", l.Timestamp, "comment", l.Comment)
	return &l, nil
}

func (r *Recorder) appendLine(line string) error {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create label log directory: %w", err)
		}
	}

	lock := flock.New(r.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock label log: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("Failed to release label log lock", "log", r.path, "err", err)
		}
	}()

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open label log: %w", err)
	}

	if _, err := file.WriteString(line + "\n"); err != nil {
		file.Close()
		return fmt.Errorf("failed to write label: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close label log: %w", err)
	}

	return nil
}

// ReadLog loads every label from the log at path. A missing log holds no labels.
func ReadLog(path string) ([]Label, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open label log: %w", err)
	}
	defer file.Close()

	var labels []Label
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), MaxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		l, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse label at line %d: %w", lineNum, err)
		}
		labels = append(labels, l)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading label log: %w", err)
	}

	return labels, nil
}
