package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultHelioviewerURL is the public Helioviewer API
	DefaultHelioviewerURL = "https://api.helioviewer.org"

	helioviewerDateLayout  = "2006-01-02 15:04:05"
	helioviewerQueryLayout = "2006-01-02T15:04:05Z"
)

// aiaSources maps AIA wavelengths (Å) to Helioviewer source IDs
var aiaSources = map[string]int{
	"94":   8,
	"131":  9,
	"171":  10,
	"193":  11,
	"211":  12,
	"304":  13,
	"335":  14,
	"1600": 15,
	"1700": 16,
	"4500": 17,
}

// Helioviewer is an archive client for the Helioviewer API
type Helioviewer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHelioviewer creates a client; an empty baseURL uses the public API
func NewHelioviewer(baseURL string, timeout time.Duration) *Helioviewer {
	if baseURL == "" {
		baseURL = DefaultHelioviewerURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Helioviewer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SourceID resolves the Helioviewer source for an instrument and wavelength
func SourceID(instrument, wavelength string) (int, error) {
	if !strings.EqualFold(strings.TrimSpace(instrument), "aia") {
		return 0, fmt.Errorf("%w: instrument %q", ErrUnsupportedSource, instrument)
	}
	id, ok := aiaSources[normalizeWavelength(wavelength)]
	if !ok {
		return 0, fmt.Errorf("%w: AIA wavelength %q", ErrUnsupportedSource, wavelength)
	}
	return id, nil
}

// normalizeWavelength accepts "171", "171.0" or "171 Angstrom"
func normalizeWavelength(w string) string {
	w = strings.TrimSpace(w)
	if i := strings.IndexFunc(w, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		w = w[:i]
	}
	return w
}

// closestImageResponse is the getClosestImage payload
type closestImageResponse struct {
	ID     flexibleID `json:"id"`
	Date   string     `json:"date"`
	Name   string     `json:"name"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Error  string     `json:"error"`
}

// flexibleID accepts the image ID as either a JSON string or number
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	*f = flexibleID(strings.Trim(string(bytes.TrimSpace(data)), `"`))
	if *f == "null" {
		*f = ""
	}
	return nil
}

// Search returns the observation closest to the middle of [Start, End] when it
// falls inside the window. Helioviewer always answers with the nearest image, so
// anything outside the window is treated as no data. If any frame lies in the
// window, the one nearest its midpoint does too.
func (h *Helioviewer) Search(ctx context.Context, q Query) ([]Record, error) {
	sourceID, err := SourceID(q.Instrument, q.Wavelength)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("date", q.Midpoint().UTC().Format(helioviewerQueryLayout))
	params.Set("sourceId", fmt.Sprintf("%d", sourceID))
	searchURL := fmt.Sprintf("%s/v2/getClosestImage/?%s", h.BaseURL, params.Encode())

	slog.Debug("Querying Helioviewer", "url", searchURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Helioviewer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("helioviewer API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result closestImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Helioviewer response: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("helioviewer API error: %s", result.Error)
	}
	if result.ID == "" {
		return nil, nil
	}

	observedAt, err := time.ParseInLocation(helioviewerDateLayout, result.Date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse observation date %q: %w", result.Date, err)
	}

	if observedAt.Before(q.Start) || observedAt.After(q.End) {
		slog.Debug("Closest image outside query window", "observed_at", observedAt, "start", q.Start, "end", q.End)
		return nil, nil
	}

	return []Record{{
		ID:         string(result.ID),
		Name:       result.Name,
		ObservedAt: observedAt,
		Instrument: strings.ToLower(q.Instrument),
		Wavelength: normalizeWavelength(q.Wavelength),
		Width:      result.Width,
		Height:     result.Height,
	}}, nil
}

// FileName is the local file name used for a record
func FileName(rec Record) string {
	return fmt.Sprintf("%s_%s_%s.jp2",
		strings.ToLower(rec.Instrument), rec.Wavelength, rec.ObservedAt.UTC().Format("20060102T150405"))
}

// Fetch downloads the JPEG2000 file for rec into dir. An existing file is reused.
func (h *Helioviewer) Fetch(ctx context.Context, rec Record, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	destPath := filepath.Join(dir, FileName(rec))
	if _, err := os.Stat(destPath); err == nil {
		slog.Info("Using cached image", "path", destPath)
		return destPath, nil
	}

	fetchURL := fmt.Sprintf("%s/v2/getJP2Image/?id=%s", h.BaseURL, url.QueryEscape(rec.ID))
	if err := h.downloadFile(ctx, fetchURL, destPath); err != nil {
		return "", err
	}

	slog.Info("Downloaded image", "id", rec.ID, "path", destPath)
	return destPath, nil
}

// downloadFile streams url into destPath through a temporary file
func (h *Helioviewer) downloadFile(ctx context.Context, fileURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	tempPath := destPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if written == 0 {
		os.Remove(tempPath)
		return fmt.Errorf("archive returned an empty file")
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move downloaded file: %w", err)
	}

	return nil
}
