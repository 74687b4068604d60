package parsers

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONParser parses a JSON array of objects.
type JSONParser struct{}

// Parse reads JSON from the reader and returns one record per array element.
func (p *JSONParser) Parse(r io.Reader) ([]RawRecord, error) {
	var docs []map[string]any

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&docs); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	records := make([]RawRecord, 0, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("element %d: expected an object", i+1)
		}
		records = append(records, RawRecord{Fields: doc, LineNum: i + 1})
	}

	return records, nil
}
