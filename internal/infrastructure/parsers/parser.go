// Package parsers provides parsers for importing content from various formats.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawRecord is one content payload read from an external source before
// validation.
type RawRecord struct {
	Fields  map[string]any
	LineNum int // Line (CSV) or array index (JSON), 1-indexed
}

// Parser defines the interface for parsing content records from various formats.
type Parser interface {
	Parse(r io.Reader) ([]RawRecord, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONParser{}
	case ".csv":
		return &CSVParser{}
	default:
		return nil
	}
}
