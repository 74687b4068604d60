package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/services"
	"github.com/ersonp/realmforge/internal/infrastructure/parsers"
)

// ImportHandler handles importing content from files.
type ImportHandler struct {
	service *services.ImportService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(service *services.ImportService) *ImportHandler {
	return &ImportHandler{
		service: service,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format string // "json", "csv", or "auto"
	DryRun bool   // Validate without saving
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Kind     entities.Kind
	Imported int
	Skipped  int
	Errors   []services.ImportError
	Warnings []services.ImportError
}

// Handle imports records of kind from a file into the active world.
func (h *ImportHandler) Handle(ctx context.Context, kind entities.Kind, filePath string, opts ImportOptions) (*ImportResult, error) {
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}

	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	records, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	if len(records) == 0 {
		return &ImportResult{Kind: kind}, nil
	}

	serviceResult, err := h.service.Import(ctx, kind, records, services.ImportOptions{DryRun: opts.DryRun})
	if serviceResult == nil {
		return nil, err
	}

	// A partial result is returned together with the error that stopped it.
	return &ImportResult{
		Kind:     kind,
		Imported: serviceResult.Imported,
		Skipped:  serviceResult.Skipped,
		Errors:   serviceResult.Errors,
		Warnings: serviceResult.Warnings,
	}, err
}
