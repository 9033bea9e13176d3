package images

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/solarlabel/internal/archive"
	"github.com/lehigh-university-libraries/solarlabel/internal/models"
)

const (
	// DateLayout is the accepted format for observation days
	DateLayout = "2006-01-02"
	// ClockLayout is the accepted format for the time of day
	ClockLayout = "15:04"

	// QueryWindow is the width of the search window starting at the requested time
	QueryWindow = time.Minute
)

// ErrInvalidDateTime is returned when a date or time of day cannot be parsed
var ErrInvalidDateTime = errors.New("invalid date/time")

// Downloader fetches one observation per requested day
type Downloader struct {
	Archive    archive.Service
	OutputDir  string
	Instrument string
	Wavelength string
}

// NewDownloader creates a downloader for the given archive and channel
func NewDownloader(svc archive.Service, outputDir, instrument, wavelength string) *Downloader {
	return &Downloader{
		Archive:    svc,
		OutputDir:  outputDir,
		Instrument: instrument,
		Wavelength: wavelength,
	}
}

// ParseQueryTimes combines each date with the time of day. Any malformed input
// fails the whole batch.
func ParseQueryTimes(dates []string, clock string) ([]time.Time, error) {
	times := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		value := fmt.Sprintf("%s %s", strings.TrimSpace(d), strings.TrimSpace(clock))
		t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, value, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidDateTime, value, err)
		}
		times = append(times, t)
	}
	return times, nil
}

// DownloadDays searches each day at the given time of day and fetches the first
// match. Days without data are logged and skipped. Archive failures skip the day
// and are returned joined together with whatever did download.
func (d *Downloader) DownloadDays(ctx context.Context, dates []string, clock string) ([]models.FetchedImage, error) {
	times, err := ParseQueryTimes(dates, clock)
	if err != nil {
		return nil, err
	}

	var (
		fetched  []models.FetchedImage
		failures []error
	)

	for i, start := range times {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		slog.Info("Searching archive", "time", start.Format(models.TimestampLayout), "instrument", d.Instrument, "wavelength", d.Wavelength, "progress", fmt.Sprintf("%d/%d", i+1, len(times)))

		img, found, err := d.downloadOne(ctx, start)
		if err != nil {
			slog.Warn("Failed to download observation", "time", start.Format(models.TimestampLayout), "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", start.Format(models.TimestampLayout), err))
			continue
		}
		if !found {
			slog.Warn("No data found", "time", start.Format(models.TimestampLayout))
			continue
		}

		fetched = append(fetched, img)
	}

	return fetched, errors.Join(failures...)
}

func (d *Downloader) downloadOne(ctx context.Context, start time.Time) (models.FetchedImage, bool, error) {
	records, err := d.Archive.Search(ctx, archive.Query{
		Start:      start,
		End:        start.Add(QueryWindow),
		Instrument: d.Instrument,
		Wavelength: d.Wavelength,
	})
	if err != nil {
		return models.FetchedImage{}, false, fmt.Errorf("failed to search archive: %w", err)
	}
	if len(records) == 0 {
		return models.FetchedImage{}, false, nil
	}

	rec := records[0]
	path, err := d.Archive.Fetch(ctx, rec, d.OutputDir)
	if err != nil {
		return models.FetchedImage{}, false, fmt.Errorf("failed to fetch %s: %w", rec.ID, err)
	}

	return models.FetchedImage{
		Path:       path,
		ObservedAt: rec.ObservedAt,
		Instrument: rec.Instrument,
		Wavelength: rec.Wavelength,
	}, true, nil
}

// InfoFilePath returns the sidecar path for an image
func InfoFilePath(img models.FetchedImage) string {
	return img.Path + ".txt"
}

// Info file keys
const (
	infoKeyName       = "Nazwa obrazu"
	infoKeyObservedAt = "Czas wykonania zdjęcia"
	infoKeyWavelength = "Zakres"
)

// WriteInfoFile writes a short description of the image next to it
func WriteInfoFile(img models.FetchedImage) (string, error) {
	infoPath := InfoFilePath(img)
	content := fmt.Sprintf("%s: %s\n%s: %s\n%s: %s Angstrom\n",
		infoKeyName, filepath.Base(img.Path),
		infoKeyObservedAt, img.Timestamp(),
		infoKeyWavelength, img.Wavelength)

	if err := os.WriteFile(infoPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write info file: %w", err)
	}

	slog.Info("Created info file", "path", infoPath)
	return infoPath, nil
}

// ReadInfoFile rebuilds an image reference from its sidecar
func ReadInfoFile(infoPath string) (models.FetchedImage, error) {
	file, err := os.Open(infoPath)
	if err != nil {
		return models.FetchedImage{}, fmt.Errorf("failed to open info file: %w", err)
	}
	defer file.Close()

	img := models.FetchedImage{Path: strings.TrimSuffix(infoPath, ".txt")}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ": ")
		if !ok {
			continue
		}
		switch key {
		case infoKeyObservedAt:
			t, err := time.ParseInLocation(models.TimestampLayout, value, time.UTC)
			if err != nil {
				return models.FetchedImage{}, fmt.Errorf("%w: %q in %s", ErrInvalidDateTime, value, infoPath)
			}
			img.ObservedAt = t
		case infoKeyWavelength:
			img.Wavelength = infoWavelength(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return models.FetchedImage{}, fmt.Errorf("error reading info file: %w", err)
	}
	if img.ObservedAt.IsZero() {
		return models.FetchedImage{}, fmt.Errorf("info file %s has no observation time", infoPath)
	}

	img.Instrument = instrumentFromName(filepath.Base(img.Path))
	return img, nil
}

// ScanInfoFiles loads every image in dir that has a sidecar
func ScanInfoFiles(dir string) ([]models.FetchedImage, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list info files: %w", err)
	}

	var found []models.FetchedImage
	for _, infoPath := range matches {
		img, err := ReadInfoFile(infoPath)
		if err != nil {
			slog.Warn("Skipping info file", "path", infoPath, "error", err)
			continue
		}
		if _, err := os.Stat(img.Path); err != nil {
			slog.Warn("Image for info file missing", "path", img.Path)
			continue
		}
		found = append(found, img)
	}
	return found, nil
}

// instrumentFromName reads the instrument prefix of names like aia_171_20230110T073009.jp2
func instrumentFromName(name string) string {
	if prefix, _, ok := strings.Cut(name, "_"); ok && prefix != "" {
		return strings.ToLower(prefix)
	}
	return "aia"
}

// infoWavelength reduces "171 Angstrom" or "171.0 Angstrom" to "171"
func infoWavelength(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	w, _, _ := strings.Cut(fields[0], ".")
	return w
}
