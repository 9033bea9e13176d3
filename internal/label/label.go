package label

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrMissingTimestamp is returned when a label has no image timestamp to anchor it
	ErrMissingTimestamp = errors.New("label metadata requires a timestamp")
	// ErrInvalidPoint is returned for NaN or infinite coordinates
	ErrInvalidPoint = errors.New("point coordinates must be finite")
	// ErrMalformedLine is returned when a log line does not match the label format
	ErrMalformedLine = errors.New("malformed label line")
	// ErrLineTooLong is returned when a label would not fit in one readable log line
	ErrLineTooLong = errors.New("label line too long")
)

// MaxLineBytes is the longest log line, newline included, that ReadLog accepts
const MaxLineBytes = 1024 * 1024

// Point is a position in the displayed image's coordinate space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Valid reports whether both coordinates are finite
func (p Point) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Rect is a normalized rectangle: X0 <= X1 and Y0 <= Y1
type Rect struct {
	X0 float64 `json:"x0" yaml:"x0"`
	Y0 float64 `json:"y0" yaml:"y0"`
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
}

// Normalize builds a rectangle from two corner points given in any order
func Normalize(a, b Point) Rect {
	return Rect{
		X0: math.Min(a.X, b.X),
		Y0: math.Min(a.Y, b.Y),
		X1: math.Max(a.X, b.X),
		Y1: math.Max(a.Y, b.Y),
	}
}

// Width returns the horizontal extent of the rectangle
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the vertical extent of the rectangle
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// Metadata describes the image a label is anchored to
type Metadata struct {
	Timestamp  string
	Wavelength string
}

// Label is a commented rectangular region on one displayed image
type Label struct {
	Timestamp  string `json:"timestamp" yaml:"timestamp"`
	Wavelength string `json:"wavelength,omitempty" yaml:"wavelength,omitempty"`
	Comment    string `json:"comment" yaml:"comment"`
	Rect       Rect   `json:"rect" yaml:"rect"`
}

// FormatLine renders a label as a single log line without the trailing newline
func FormatLine(l Label) string {
	var b strings.Builder
	b.WriteString("Date/Time: ")
	b.WriteString(singleLine(l.Timestamp))
	b.WriteString(", ")
	if wavelength := singleLine(l.Wavelength); wavelength != "" {
		b.WriteString("Wavelength: ")
		b.WriteString(wavelength)
		b.WriteString("Å, ")
	}
	b.WriteString("Comment: ")
	b.WriteString(singleLine(l.Comment))
	fmt.Fprintf(&b, ", Coordinates: (%s, %s), (%s, %s)",
		formatCoord(l.Rect.X0), formatCoord(l.Rect.Y0),
		formatCoord(l.Rect.X1), formatCoord(l.Rect.Y1))
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var linePattern = regexp.MustCompile(
	`^Date/Time: (.*?), (?:Wavelength: (.*?)Å, )?Comment: (.*), Coordinates: \((-?\d+\.\d+), (-?\d+\.\d+)\), \((-?\d+\.\d+), (-?\d+\.\d+)\)$`,
)

// ParseLine parses one log line back into a label.
// Coordinates carry the two-decimal precision of the log.
func ParseLine(line string) (Label, error) {
	line = strings.TrimRight(line, "\r\n")
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Label{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	coords := make([]float64, 4)
	for i := range coords {
		v, err := strconv.ParseFloat(m[4+i], 64)
		if err != nil {
			return Label{}, fmt.Errorf("%w: bad coordinate %q", ErrMalformedLine, m[4+i])
		}
		coords[i] = v
	}

	return Label{
		Timestamp:  m[1],
		Wavelength: m[2],
		Comment:    m[3],
		Rect:       Rect{X0: coords[0], Y0: coords[1], X1: coords[2], Y1: coords[3]},
	}, nil
}

// singleLine trims a field and joins its lines with single spaces
func singleLine(value string) string {
	return strings.Join(strings.FieldsFunc(strings.TrimSpace(value), func(r rune) bool {
		return r == '\n' || r == '\r'
	}), " ")
}
