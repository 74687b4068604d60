package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/infrastructure/parsers"
)

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun bool // Validate without saving
}

// ImportError represents an error for a specific record during import.
type ImportError struct {
	Line    int    // Line number (1-indexed, 0 if unknown)
	Field   string // Which field has the error
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []ImportError
	// Warnings lists records that were saved but whose collection refresh
	// failed. They are counted as imported.
	Warnings []ImportError
}

// ImportService creates content in the active world from parsed records.
type ImportService struct {
	content *ContentRepository
}

// NewImportService creates a new import service.
func NewImportService(content *ContentRepository) *ImportService {
	return &ImportService{content: content}
}

// Import validates records and creates the valid ones one by one through the
// repository, so each creation is followed by its own resync. A record whose
// creation fails is reported and counted as skipped; the rest still run. A
// record that was saved counts as imported even when its resync fails.
// When the import stops early, the partial result is returned with the error.
func (s *ImportService) Import(ctx context.Context, kind entities.Kind, records []parsers.RawRecord, opts ImportOptions) (*ImportResult, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}

	result := &ImportResult{}

	valid, validationErrors := validateRecords(kind, records)
	result.Errors = validationErrors

	if len(valid) == 0 {
		return result, nil
	}

	if opts.DryRun {
		result.Imported = len(valid)
		return result, nil
	}

	for i := range valid {
		rec := &valid[i]
		created, err := s.content.Create(ctx, kind, entities.Payload(rec.Fields).WithoutReserved())
		saved := created.ID != ""
		if saved {
			result.Imported++
		}
		if err == nil {
			continue
		}

		switch {
		case errors.Is(err, ErrNoActiveWorld), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return result, err
		case errors.Is(err, ErrStaleScope):
			return result, fmt.Errorf("importing %s: %w", kind.Plural(), err)
		case saved:
			result.Warnings = append(result.Warnings, ImportError{
				Line:    rec.LineNum,
				Value:   created.ID,
				Message: fmt.Sprintf("saved as %s, but refreshing %s failed: %v", created.ID, kind.Plural(), err),
			})
		default:
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Line: rec.LineNum, Message: err.Error()})
		}
	}

	return result, nil
}

// validateRecords returns the records carrying every required field of kind
// and one error per rejected record.
func validateRecords(kind entities.Kind, records []parsers.RawRecord) ([]parsers.RawRecord, []ImportError) {
	valid := make([]parsers.RawRecord, 0, len(records))
	var errs []ImportError

	for i := range records {
		rec := records[i]
		if rec.LineNum == 0 {
			rec.LineNum = i + 1
		}

		if err := validateRecord(kind, &rec); err != nil {
			errs = append(errs, *err)
			continue
		}

		valid = append(valid, rec)
	}

	return valid, errs
}

// validateRecord checks a single record and returns an error if invalid.
// Store-assigned fields such as id are dropped at creation, so exported
// collections can be imported into another world as they are.
func validateRecord(kind entities.Kind, rec *parsers.RawRecord) *ImportError {
	payload := entities.Payload(rec.Fields)

	if missing := payload.Missing(kind.RequiredFields()...); len(missing) > 0 {
		return &ImportError{
			Line:    rec.LineNum,
			Field:   missing[0],
			Message: "missing required field: " + strings.Join(missing, ", "),
		}
	}

	return nil
}
