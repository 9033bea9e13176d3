// Package render describes the image renderer the labeling flow depends on.
//
// Drawing pixels is left to the renderer; this package only fixes the
// contract: a rendered surface knows how to map a position on screen back
// to image coordinates, which is all the labeling logic needs.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/solarlabel/internal/models"
)

// Mapping converts display coordinates into image coordinates
type Mapping interface {
	ToImage(x, y float64) (float64, float64)
}

// Surface is a displayed image
type Surface interface {
	Mapping() Mapping
	Title() string
}

// ErrImageUnavailable is returned when the image file cannot be opened for display
var ErrImageUnavailable = errors.New("image unavailable")

// Renderer turns a fetched image into something on screen, shown through view
type Renderer interface {
	Render(ctx context.Context, img models.FetchedImage, view Viewport) (Surface, error)
}

// Identity is used when the display shows the image at its native scale
type Identity struct{}

// ToImage returns the coordinates unchanged
func (Identity) ToImage(x, y float64) (float64, float64) {
	return x, y
}

// Viewport maps a zoomed and scrolled view of an image.
// A pixel at image position p is drawn at p*Zoom - Offset.
type Viewport struct {
	Zoom    float64 `json:"zoom"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// NewViewport validates the zoom factor; zero means native scale
func NewViewport(zoom, offsetX, offsetY float64) (Viewport, error) {
	if zoom == 0 {
		zoom = 1
	}
	if zoom < 0 {
		return Viewport{}, fmt.Errorf("zoom must be positive, got %g", zoom)
	}
	return Viewport{Zoom: zoom, OffsetX: offsetX, OffsetY: offsetY}, nil
}

// ToImage undoes the scroll offset and zoom
func (v Viewport) ToImage(x, y float64) (float64, float64) {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return (x + v.OffsetX) / zoom, (y + v.OffsetY) / zoom
}

// Title is the heading shown above a rendered image, e.g. "SDO AIA 171 Å - 2023-01-10 07:30:00"
func Title(img models.FetchedImage) string {
	return fmt.Sprintf("SDO %s %s Å - %s", img.InstrumentName(), img.Wavelength, img.ObservedAt.UTC().Format(models.TimestampLayout))
}

// StaticSurface is a Surface with a fixed mapping, used when the renderer
// lives outside the process and only reports its viewport
type StaticSurface struct {
	Image    models.FetchedImage
	Viewport Mapping
}

// Mapping returns the surface's display-to-image mapping
func (s StaticSurface) Mapping() Mapping {
	if s.Viewport == nil {
		return Identity{}
	}
	return s.Viewport
}

// Title returns the display heading for the image
func (s StaticSurface) Title() string {
	return Title(s.Image)
}

// StaticRenderer is the Renderer for front ends that draw the image themselves.
// It only checks the file is there and hands back the reported viewport.
type StaticRenderer struct{}

// Render returns a StaticSurface for img
func (StaticRenderer) Render(ctx context.Context, img models.FetchedImage, view Viewport) (Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(img.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrImageUnavailable, img.Path)
	}
	return StaticSurface{Image: img, Viewport: view}, nil
}
