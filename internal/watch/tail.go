// Package watch follows a label log and reports labels as they are appended.
package watch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/lehigh-university-libraries/solarlabel/internal/label"
)

// Tailer emits labels appended to a log after it started
type Tailer struct {
	path    string
	offset  int64
	partial string
}

// NewTailer starts at the current end of the log so only new labels are reported
func NewTailer(path string) (*Tailer, error) {
	t := &Tailer{path: path}
	info, err := os.Stat(path)
	switch {
	case err == nil:
		t.offset = info.Size()
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to stat label log: %w", err)
	}
	return t, nil
}

// Run watches the log's directory until ctx is done, calling fn for each new label
func (t *Tailer) Run(ctx context.Context, fn func(label.Label)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(t.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// catch anything written between NewTailer and the watch being installed
	if err := t.drain(fn); err != nil {
		return err
	}

	target := filepath.Clean(t.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := t.drain(fn); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Label log watch error", "err", err)
		}
	}
}

// drain reads complete lines past the last offset
func (t *Tailer) drain(fn func(label.Label)) error {
	file, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open label log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat label log: %w", err)
	}
	if info.Size() < t.offset {
		// the log is append-only; a shorter file means it was replaced
		slog.Warn("Label log shrank, reading from start", "log", t.path)
		t.offset = 0
		t.partial = ""
	}

	if _, err := file.Seek(t.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek label log: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		chunk, err := reader.ReadString('\n')
		t.offset += int64(len(chunk))
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.partial += chunk
				return nil
			}
			return fmt.Errorf("failed to read label log: %w", err)
		}

		line := t.partial + chunk
		t.partial = ""
		if strings.TrimSpace(line) == "" {
			continue
		}

		l, err := label.ParseLine(line)
		if err != nil {
			slog.Warn("Skipping unreadable label line", "err", err)
			continue
		}
		fn(l)
	}
}
