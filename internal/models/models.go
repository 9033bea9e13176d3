package models

import (
	"strings"
	"time"
)

// TimestampLayout is how acquisition times are shown to users and written to labels
const TimestampLayout = "2006-01-02 15:04:05"

// FetchedImage references an observation downloaded from the archive.
// It lives only for the duration of the process.
type FetchedImage struct {
	Path       string    `json:"path"`
	ObservedAt time.Time `json:"observed_at"`
	Instrument string    `json:"instrument"`
	Wavelength string    `json:"wavelength"`
}

// Timestamp returns the acquisition time in label format
func (f FetchedImage) Timestamp() string {
	return f.ObservedAt.UTC().Format(TimestampLayout)
}

// InstrumentName returns the instrument in display case, e.g. "AIA"
func (f FetchedImage) InstrumentName() string {
	if f.Instrument == "" {
		return "AIA"
	}
	return strings.ToUpper(f.Instrument)
}

// LabelingSession is the JSON view of a labeling session
type LabelingSession struct {
	ID        string       `json:"id"`
	Image     FetchedImage `json:"image"`
	Title     string       `json:"title"`
	State     string       `json:"state"`
	Pending   *Region      `json:"pending,omitempty"`
	Recorded  int          `json:"recorded"`
	CreatedAt time.Time    `json:"created_at"`
}

// Region is a rectangle in image coordinates
type Region struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}
