package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/solarlabel/internal/archive"
	"github.com/lehigh-university-libraries/solarlabel/internal/images"
	"github.com/lehigh-university-libraries/solarlabel/internal/models"
)

// maxImageBytes bounds uploads and URL downloads; a full-resolution AIA JP2 is a few MB
const maxImageBytes = 64 << 20

var (
	errInvalidUpload = errors.New("invalid upload")

	jp2Signature = []byte{0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20, 0x0D, 0x0A, 0x87, 0x0A}
	j2kSignature = []byte{0xFF, 0x4F, 0xFF, 0x51}
)

func isJPEG2000(data []byte) bool {
	return bytes.HasPrefix(data, jp2Signature) || bytes.HasPrefix(data, j2kSignature)
}

// imageMetadata builds the image description sent alongside an upload
func imageMetadata(observedAt, instrument, wavelength string) (models.FetchedImage, error) {
	observedAt = strings.TrimSpace(observedAt)
	if observedAt == "" {
		return models.FetchedImage{}, fmt.Errorf("%w: observed_at is required", errInvalidUpload)
	}
	t, err := time.Parse(time.RFC3339, observedAt)
	if err != nil {
		t, err = time.ParseInLocation(models.TimestampLayout, observedAt, time.UTC)
		if err != nil {
			return models.FetchedImage{}, fmt.Errorf("%w: observed_at %q is not RFC 3339 or %q", errInvalidUpload, observedAt, models.TimestampLayout)
		}
	}

	instrument = strings.ToLower(strings.TrimSpace(instrument))
	if instrument == "" {
		instrument = "aia"
	}
	wavelength = strings.TrimSpace(wavelength)
	if wavelength == "" || strings.ContainsAny(wavelength, "\r\n/\\") {
		return models.FetchedImage{}, fmt.Errorf("%w: wavelength %q", errInvalidUpload, wavelength)
	}

	return models.FetchedImage{
		ObservedAt: t.UTC(),
		Instrument: instrument,
		Wavelength: wavelength,
	}, nil
}

// saveImage stores an uploaded observation under its archive file name, writes
// its info file and registers it
func (h *Handler) saveImage(data []byte, img models.FetchedImage) (models.FetchedImage, error) {
	if !isJPEG2000(data) {
		return models.FetchedImage{}, fmt.Errorf("%w: not a JPEG 2000 image", errInvalidUpload)
	}

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return models.FetchedImage{}, fmt.Errorf("failed to create upload directory: %w", err)
	}

	img.Path = filepath.Join(h.uploadDir, archive.FileName(archive.Record{
		ObservedAt: img.ObservedAt,
		Instrument: img.Instrument,
		Wavelength: img.Wavelength,
	}))

	tempPath := img.Path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return models.FetchedImage{}, fmt.Errorf("failed to save image: %w", err)
	}
	if err := os.Rename(tempPath, img.Path); err != nil {
		os.Remove(tempPath)
		return models.FetchedImage{}, fmt.Errorf("failed to move image into place: %w", err)
	}

	if _, err := images.WriteInfoFile(img); err != nil {
		slog.Warn("Failed to write info file for upload", "path", img.Path, "error", err)
	}

	h.images.Add(img)
	slog.Info("Image saved", "path", img.Path, "bytes", len(data))
	return img, nil
}

func (h *Handler) downloadImageFromURL(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidUpload, err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(imageData) > maxImageBytes {
		return nil, fmt.Errorf("%w: image larger than %d bytes", errInvalidUpload, maxImageBytes)
	}

	return imageData, nil
}
