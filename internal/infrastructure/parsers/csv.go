package parsers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// CSVParser parses content records from CSV with a header row.
// Every column becomes a top-level string field. Cells starting with '[' or
// '{' are decoded as JSON so list and object fields survive a round trip.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed records.
func (p *CSVParser) Parse(r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)

	header, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, header)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) ([]string, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	seen := make(map[string]bool, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == "" {
			return nil, fmt.Errorf("empty column name at position %d", i+1)
		}
		if seen[col] {
			return nil, fmt.Errorf("duplicate column: %s", col)
		}
		seen[col] = true
		header[i] = col
	}

	return header, nil
}

// readRecords reads all data rows and converts them to RawRecords.
func (p *CSVParser) readRecords(reader *csv.Reader, header []string) ([]RawRecord, error) {
	var records []RawRecord
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		records = append(records, RawRecord{Fields: p.parseRow(row, header), LineNum: lineNum})
	}

	return records, nil
}

// parseRow converts a CSV row to a field map, skipping empty cells.
func (p *CSVParser) parseRow(row []string, header []string) map[string]any {
	fields := make(map[string]any, len(header))
	for i, col := range header {
		if i >= len(row) || row[i] == "" {
			continue
		}
		fields[col] = cellValue(row[i])
	}
	return fields
}

func cellValue(cell string) any {
	trimmed := strings.TrimSpace(cell)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return cell
}
