package csvimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	defaultMaxRows   = 50000
	defaultMaxErrors = 100
)

// Result summarizes a validated sheet. Valid holds the rows that passed every rule, in file order.
type Result struct {
	TotalRows   int        `json:"total_rows"`
	ValidRows   int        `json:"valid_rows"`
	ErrorRows   int        `json:"error_rows"`
	Errors      []RowError `json:"errors,omitempty"`
	TotalErrors int        `json:"total_errors"`
	Truncated   bool       `json:"is_truncated,omitempty"`
	Valid       []*Row     `json:"-"`

	maxErrors int
}

type readOptions struct {
	maxRows   int
	maxErrors int
	uniqueKey []string
	parser    []ParserOption
}

// ReadOption configures Read
type ReadOption func(*readOptions)

// WithMaxRows caps the number of data rows; exceeding it fails the whole file
func WithMaxRows(n int) ReadOption {
	return func(o *readOptions) {
		if n > 0 {
			o.maxRows = n
		}
	}
}

// WithMaxErrors caps how many row errors are retained
func WithMaxErrors(n int) ReadOption {
	return func(o *readOptions) {
		if n > 0 {
			o.maxErrors = n
		}
	}
}

// WithUniqueKey rejects rows repeating an earlier row's values in these columns
func WithUniqueKey(columns ...string) ReadOption {
	return func(o *readOptions) {
		o.uniqueKey = columns
	}
}

// WithParserOptions forwards options to the underlying Parser
func WithParserOptions(opts ...ParserOption) ReadOption {
	return func(o *readOptions) {
		o.parser = append(o.parser, opts...)
	}
}

// Read parses r and validates every data row against rules. File-level problems
// (encoding, header, missing columns, row limit) return an error; row problems
// are reported in the Result.
func Read(ctx context.Context, r io.Reader, rules []FieldRule, opts ...ReadOption) (*Result, error) {
	o := readOptions{maxRows: defaultMaxRows, maxErrors: defaultMaxErrors}
	for _, opt := range opts {
		opt(&o)
	}

	parser, err := NewParser(r, o.parser...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.MissingHeaders(Columns(rules)); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	validator := NewFieldValidator(rules, o.uniqueKey, o.maxErrors)
	result := &Result{maxErrors: o.maxErrors}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := parser.ReadRow()
		if err == io.EOF {
			break
		}
		if errors.Is(err, ErrMalformedRow) {
			result.TotalRows++
			result.ErrorRows++
			validator.Errors().Add(RowError{
				Row: parser.Line(), Code: ErrCodeImportMalformedRow, Message: err.Error(),
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		if row.IsEmpty() {
			continue
		}

		result.TotalRows++
		if result.TotalRows > o.maxRows {
			return nil, fmt.Errorf("%w of %d", ErrTooManyRows, o.maxRows)
		}
		if validator.ValidateRow(row) {
			result.Valid = append(result.Valid, row)
		} else {
			result.ErrorRows++
		}
	}

	result.ValidRows = len(result.Valid)
	result.Errors = validator.Errors().Errors()
	result.TotalErrors = validator.Errors().TotalCount()
	result.Truncated = validator.Errors().IsTruncated()
	return result, nil
}

// Reject moves a valid row into the error set, for problems only the caller can detect
// (unknown references, rejected writes)
func (r *Result) Reject(row *Row, column, code, message string) {
	r.ErrorRows++
	r.ValidRows--
	r.TotalErrors++
	if len(r.Errors) < r.maxErrors {
		r.Errors = append(r.Errors, RowError{
			Row: row.Line, Column: column, Code: code, Message: message, Value: row.Get(column),
		})
	} else {
		r.Truncated = true
	}
}
