// Package export writes label logs in structured formats for downstream analysis.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/solarlabel/internal/label"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Formats supported by Write
var Formats = []string{"yaml", "jsonl", "parquet"}

// Document is the YAML export layout
type Document struct {
	Source     string        `yaml:"source"`
	ExportedAt string        `yaml:"exportedat"`
	Count      int           `yaml:"count"`
	Labels     []label.Label `yaml:"labels"`
}

// Row is one label in the Parquet export
type Row struct {
	Timestamp  string  `parquet:"timestamp"`
	Wavelength string  `parquet:"wavelength,optional"`
	Comment    string  `parquet:"comment"`
	X0         float64 `parquet:"x0"`
	Y0         float64 `parquet:"y0"`
	X1         float64 `parquet:"x1"`
	Y1         float64 `parquet:"y1"`
}

func toRows(labels []label.Label) []Row {
	rows := make([]Row, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, Row{
			Timestamp:  l.Timestamp,
			Wavelength: l.Wavelength,
			Comment:    l.Comment,
			X0:         l.Rect.X0,
			Y0:         l.Rect.Y0,
			X1:         l.Rect.X1,
			Y1:         l.Rect.Y1,
		})
	}
	return rows
}

// Write encodes labels in the given format
func Write(w io.Writer, format, source string, labels []label.Label) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return writeYAML(w, source, labels)
	case "jsonl":
		return writeJSONL(w, labels)
	case "parquet":
		if err := parquet.Write(w, toRows(labels)); err != nil {
			return fmt.Errorf("failed to write parquet: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// WriteFile encodes labels into the file at path
func WriteFile(path, format, source string, labels []label.Label) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := Write(file, format, source, labels); err != nil {
		file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, source string, labels []label.Label) error {
	doc := Document{
		Source:     source,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(labels),
		Labels:     labels,
	}
	if doc.Labels == nil {
		doc.Labels = []label.Label{}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

func writeJSONL(w io.Writer, labels []label.Label) error {
	enc := json.NewEncoder(w)
	for _, l := range labels {
		if err := enc.Encode(l); err != nil {
			return fmt.Errorf("failed to encode label: %w", err)
		}
	}
	return nil
}
