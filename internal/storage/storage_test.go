package storage

import (
	"testing"
	"time"

	"github.com/lehigh-university-libraries/solarlabel/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestImageRegistryKeysByPath(t *testing.T) {
	r := NewImageRegistry()
	base := time.Date(2023, 1, 10, 7, 30, 0, 0, time.UTC)

	r.Add(models.FetchedImage{Path: "/data/b.jp2", ObservedAt: base.Add(time.Hour), Wavelength: "171"})
	r.Add(models.FetchedImage{Path: "/data/a.jp2", ObservedAt: base, Wavelength: "171"})
	r.Add(models.FetchedImage{Path: "/data/a.jp2", ObservedAt: base, Wavelength: "193"})

	list := r.List()
	assert.Len(t, list, 2)
	assert.Equal(t, "/data/a.jp2", list[0].Path)
	assert.Equal(t, "193", list[0].Wavelength)

	_, ok := r.Get("/data/missing.jp2")
	assert.False(t, ok)
}

func TestSessionStore(t *testing.T) {
	s := New()
	now := time.Now()

	s.Set("second", &SessionEntry{ID: "second", CreatedAt: now.Add(time.Second)})
	s.Set("first", &SessionEntry{ID: "first", CreatedAt: now})

	got, ok := s.Get("first")
	assert.True(t, ok)
	assert.Equal(t, "first", got.ID)

	list := s.List()
	assert.Len(t, list, 2)
	assert.Equal(t, "first", list[0].ID)

	assert.True(t, s.Delete("first"))
	assert.False(t, s.Delete("first"))
	_, ok = s.Get("first")
	assert.False(t, ok)
}
