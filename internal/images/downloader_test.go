package images

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/solarlabel/internal/archive"
	"github.com/lehigh-university-libraries/solarlabel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeArchive serves one record per day listed in available
type fakeArchive struct {
	available map[string]bool
	failing   map[string]bool
	searches  []archive.Query
	fetched   []string
}

func (f *fakeArchive) Search(ctx context.Context, q archive.Query) ([]archive.Record, error) {
	f.searches = append(f.searches, q)
	day := q.Start.Format(DateLayout)
	if f.failing[day] {
		return nil, errors.New("archive unavailable")
	}
	if !f.available[day] {
		return nil, nil
	}
	return []archive.Record{{
		ID:         day,
		ObservedAt: q.Start.Add(9 * time.Second),
		Instrument: q.Instrument,
		Wavelength: q.Wavelength,
	}}, nil
}

func (f *fakeArchive) Fetch(ctx context.Context, rec archive.Record, dir string) (string, error) {
	f.fetched = append(f.fetched, rec.ID)
	return filepath.Join(dir, rec.ID+".jp2"), nil
}

func TestDownloadDaysSkipsEmptyDays(t *testing.T) {
	fake := &fakeArchive{available: map[string]bool{"2023-01-10": true, "2023-02-15": true}}
	d := NewDownloader(fake, "/data", "aia", "171")

	images, err := d.DownloadDays(context.Background(), []string{"2023-01-10", "2023-01-30", "2023-02-15"}, "07:30")
	require.NoError(t, err)

	require.Len(t, images, 2)
	assert.Equal(t, "/data/2023-01-10.jp2", images[0].Path)
	assert.Equal(t, "/data/2023-02-15.jp2", images[1].Path)
	assert.Equal(t, []string{"2023-01-10", "2023-02-15"}, fake.fetched)

	require.Len(t, fake.searches, 3)
	q := fake.searches[0]
	assert.Equal(t, time.Date(2023, 1, 10, 7, 30, 0, 0, time.UTC), q.Start)
	assert.Equal(t, QueryWindow, q.End.Sub(q.Start))
	assert.Equal(t, "aia", q.Instrument)
	assert.Equal(t, "171", q.Wavelength)
}

func TestDownloadDaysAbortsOnBadInput(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		clock string
	}{
		{name: "bad date", dates: []string{"2023-01-10", "2023-13-40"}, clock: "07:30"},
		{name: "bad clock", dates: []string{"2023-01-10"}, clock: "7h30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeArchive{available: map[string]bool{"2023-01-10": true}}
			d := NewDownloader(fake, t.TempDir(), "aia", "171")

			images, err := d.DownloadDays(context.Background(), tt.dates, tt.clock)
			assert.ErrorIs(t, err, ErrInvalidDateTime)
			assert.Empty(t, images)
			assert.Empty(t, fake.searches, "no query may run before input is validated")
		})
	}
}

func TestDownloadDaysReportsArchiveFailures(t *testing.T) {
	fake := &fakeArchive{
		available: map[string]bool{"2023-01-10": true, "2023-01-30": true},
		failing:   map[string]bool{"2023-01-30": true},
	}
	d := NewDownloader(fake, "/data", "aia", "171")

	images, err := d.DownloadDays(context.Background(), []string{"2023-01-10", "2023-01-30"}, "07:30")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive unavailable")
	assert.NotErrorIs(t, err, ErrInvalidDateTime)
	require.Len(t, images, 1)
	assert.Equal(t, "/data/2023-01-10.jp2", images[0].Path)
}

func TestWriteInfoFile(t *testing.T) {
	dir := t.TempDir()
	img := models.FetchedImage{
		Path:       filepath.Join(dir, "aia_171_20230110T073009.jp2"),
		ObservedAt: time.Date(2023, 1, 10, 7, 30, 9, 0, time.UTC),
		Instrument: "aia",
		Wavelength: "171",
	}

	path, err := WriteInfoFile(img)
	require.NoError(t, err)
	assert.Equal(t, img.Path+".txt", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Nazwa obrazu: aia_171_20230110T073009.jp2\nCzas wykonania zdjęcia: 2023-01-10 07:30:09\nZakres: 171 Angstrom\n", string(data))
}

func TestReadInfoFileWithDecimalWavelength(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "aia_lev1_171a_2023_01_10t07_30_09_35z_image_lev1.fits")
	content := "Nazwa obrazu: aia_lev1_171a_2023_01_10t07_30_09_35z_image_lev1.fits\n" +
		"Czas wykonania zdjęcia: 2023-01-10 07:30:09\n" +
		"Zakres: 171.0 Angstrom\n"
	require.NoError(t, os.WriteFile(imgPath+".txt", []byte(content), 0644))

	img, err := ReadInfoFile(imgPath + ".txt")
	require.NoError(t, err)
	assert.Equal(t, imgPath, img.Path)
	assert.Equal(t, "171", img.Wavelength)
	assert.Equal(t, "aia", img.Instrument)
	assert.True(t, time.Date(2023, 1, 10, 7, 30, 9, 0, time.UTC).Equal(img.ObservedAt))
}

func TestScanInfoFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	img := models.FetchedImage{
		Path:       filepath.Join(dir, "aia_304_20230215T073005.jp2"),
		ObservedAt: time.Date(2023, 2, 15, 7, 30, 5, 0, time.UTC),
		Instrument: "aia",
		Wavelength: "304",
	}
	require.NoError(t, os.WriteFile(img.Path, []byte("jp2"), 0644))
	_, err := WriteInfoFile(img)
	require.NoError(t, err)

	// sidecar whose image is gone
	orphan := models.FetchedImage{Path: filepath.Join(dir, "aia_171_gone.jp2"), ObservedAt: img.ObservedAt, Wavelength: "171"}
	_, err = WriteInfoFile(orphan)
	require.NoError(t, err)

	found, err := ScanInfoFiles(dir)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, img, found[0])
}
