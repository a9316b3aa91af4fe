// Package csvimport reads reference-data CSV sheets (carrier rate cards, duty schedules)
// and validates each row against declarative column rules.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// utf8BOM is stripped from the start of sheets exported by spreadsheet tools
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const sampleSize = 4096

// Parser reads a header row followed by data rows
type Parser struct {
	delimiter rune
	headers   []string
	headerMap map[string]int
	line      int
	reader    *csv.Reader
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *Parser) {
		p.delimiter = d
	}
}

// NewParser wraps r, strips a UTF-8 BOM and rejects empty or non UTF-8 input
func NewParser(r io.Reader, opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		delimiter: ',',
		headerMap: make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}

	buf := bufio.NewReaderSize(r, sampleSize)
	head, err := buf.Peek(len(utf8BOM))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) == len(utf8BOM) && string(head) == string(utf8BOM) {
		_, _ = buf.Discard(len(utf8BOM))
	}

	sample, err := buf.Peek(sampleSize)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(sample) == 0 {
		return nil, ErrEmptyFile
	}
	if !validUTF8(sample, len(sample) == sampleSize) {
		return nil, ErrInvalidEncoding
	}

	p.reader = csv.NewReader(buf)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = true
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1
	return p, nil
}

// validUTF8 tolerates a rune cut in half at the end of a full peek window
func validUTF8(sample []byte, full bool) bool {
	if !full {
		return utf8.Valid(sample)
	}
	for i := 0; i < utf8.UTFMax && len(sample) > 0; i++ {
		if utf8.Valid(sample) {
			return true
		}
		sample = sample[:len(sample)-1]
	}
	return false
}

// ParseHeader reads the header row. Header names are trimmed and lower-cased.
func (p *Parser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, 0, len(record))
	for i, h := range record {
		name := strings.ToLower(strings.TrimSpace(h))
		p.headers = append(p.headers, name)
		if name != "" {
			p.headerMap[name] = i
		}
	}
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}

	p.line, _ = p.reader.FieldPos(0)
	return nil
}

// Headers returns the parsed header names in column order
func (p *Parser) Headers() []string {
	return p.headers
}

// HasHeader reports whether a column exists
func (p *Parser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// MissingHeaders returns the required columns that the header row lacks
func (p *Parser) MissingHeaders(required []string) []string {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data row keyed by header name
type Row struct {
	Line int
	Data map[string]string
}

// Get returns the value of a column, or "" when absent
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// IsEmpty reports whether every field is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow returns the next row, or io.EOF at the end of input
func (p *Parser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		p.line = parseErr.StartLine
		return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read line after %d: %w", p.line, err)
	}
	p.line, _ = p.reader.FieldPos(0)

	row := &Row{Line: p.line, Data: make(map[string]string, len(p.headerMap))}
	for name, i := range p.headerMap {
		if i < len(record) {
			row.Data[name] = strings.TrimSpace(record[i])
		} else {
			row.Data[name] = ""
		}
	}
	return row, nil
}

// Line returns the file line on which the last row started. Blank lines are skipped
// but still counted.
func (p *Parser) Line() int {
	return p.line
}
