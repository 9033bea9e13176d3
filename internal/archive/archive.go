// Package archive queries and downloads solar observations from a remote archive.
package archive

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupportedSource is returned for an instrument/wavelength the archive does not serve
var ErrUnsupportedSource = errors.New("unsupported instrument or wavelength")

// Query selects observations in a time window
type Query struct {
	Start      time.Time
	End        time.Time
	Instrument string
	Wavelength string
}

// Midpoint is the centre of the query window
func (q Query) Midpoint() time.Time {
	return q.Start.Add(q.End.Sub(q.Start) / 2)
}

// Record is one observation in a search result
type Record struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ObservedAt time.Time `json:"observed_at"`
	Instrument string    `json:"instrument"`
	Wavelength string    `json:"wavelength"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
}

// Searcher finds observations matching a query
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Record, error)
}

// Fetcher downloads an observation into dir and returns the local path
type Fetcher interface {
	Fetch(ctx context.Context, rec Record, dir string) (string, error)
}

// Service searches and fetches
type Service interface {
	Searcher
	Fetcher
}
