// Package importapp loads carrier rate cards and duty schedules from CSV sheets.
package importapp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/n3/backend/internal/domain/shared"
	csvimport "github.com/n3/backend/internal/infrastructure/import"
)

// ConflictMode defines how to handle rows that already exist in the store
type ConflictMode string

const (
	// ConflictModeUpdate overwrites the stored value
	ConflictModeUpdate ConflictMode = "update"
	// ConflictModeSkip keeps the stored value and counts the row as skipped
	ConflictModeSkip ConflictMode = "skip"
	// ConflictModeFail reports the row as an error
	ConflictModeFail ConflictMode = "fail"
)

// ParseConflictMode maps a query value to a mode; "" means update
func ParseConflictMode(s string) (ConflictMode, error) {
	switch ConflictMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ConflictModeUpdate:
		return ConflictModeUpdate, nil
	case ConflictModeSkip:
		return ConflictModeSkip, nil
	case ConflictModeFail:
		return ConflictModeFail, nil
	}
	return "", shared.WrapError(shared.ErrInvalidInput, "conflict mode must be one of update, skip, fail")
}

// Options controls one import run
type Options struct {
	// DryRun validates and resolves every row without writing
	DryRun       bool
	ConflictMode ConflictMode
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	DryRun       bool                 `json:"dry_run"`
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	UpdatedRows  int                  `json:"updated_rows"`
	SkippedRows  int                  `json:"skipped_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// finish copies the row counts and errors once every row has been resolved
func (r *ImportResult) finish(read *csvimport.Result) *ImportResult {
	r.TotalRows = read.TotalRows
	r.ErrorRows = read.ErrorRows
	r.Errors = read.Errors
	r.IsTruncated = read.Truncated
	r.TotalErrors = read.TotalErrors
	return r
}

// fileError turns a sheet-level csvimport failure into INVALID_INPUT. Other errors pass through.
func fileError(err error) error {
	for _, target := range []error{
		csvimport.ErrEmptyFile,
		csvimport.ErrInvalidEncoding,
		csvimport.ErrMissingHeader,
		csvimport.ErrMissingColumns,
		csvimport.ErrTooManyRows,
	} {
		if errors.Is(err, target) {
			return shared.WrapError(shared.ErrInvalidInput, "%s", err.Error())
		}
	}
	return err
}

// conflict applies mode to a row that already exists. It reports whether the row should be written.
func conflict(mode ConflictMode, read *csvimport.Result, row *csvimport.Row, column, what string, result *ImportResult) bool {
	switch mode {
	case ConflictModeSkip:
		result.SkippedRows++
		return false
	case ConflictModeFail:
		read.Reject(row, column, csvimport.ErrCodeImportDuplicateInDB, fmt.Sprintf("%s already exists", what))
		return false
	}
	return true
}

func hsCodeRule(value string) error {
	for _, r := range value {
		if r != '.' && r != ' ' && r != '-' && (r < '0' || r > '9') {
			return errors.New("hs code must contain digits only")
		}
	}
	return nil
}
