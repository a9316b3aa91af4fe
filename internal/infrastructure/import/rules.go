package csvimport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldType is the expected type of a column
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
	TypeBool    FieldType = "bool"
)

// FieldRule declares how one column is validated
type FieldRule struct {
	Column    string
	Type      FieldType
	Required  bool
	MinLength int
	MaxLength int
	MinValue  *decimal.Decimal
	MaxValue  *decimal.Decimal
	OneOf     []string
	Custom    func(value string) error
}

// FieldRuleBuilder builds a FieldRule fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for column; the type defaults to string
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString}}
}

func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

func (b *FieldRuleBuilder) Bool() *FieldRuleBuilder {
	b.rule.Type = TypeBool
	return b
}

// Length bounds the value length in runes; 0 leaves a side open
func (b *FieldRuleBuilder) Length(min, max int) *FieldRuleBuilder {
	b.rule.MinLength = min
	b.rule.MaxLength = max
	return b
}

// Min sets an inclusive lower bound for numeric columns
func (b *FieldRuleBuilder) Min(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// Max sets an inclusive upper bound for numeric columns
func (b *FieldRuleBuilder) Max(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MaxValue = &v
	return b
}

// OneOf restricts the value to a case-insensitive set
func (b *FieldRuleBuilder) OneOf(values ...string) *FieldRuleBuilder {
	b.rule.OneOf = values
	return b
}

func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.Custom = fn
	return b
}

func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// Columns returns the required column names of rules
func Columns(rules []FieldRule) []string {
	cols := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.Required {
			cols = append(cols, r.Column)
		}
	}
	return cols
}

// FieldValidator checks rows against rules and, optionally, a composite key
// that must be unique within the file
type FieldValidator struct {
	rules     []FieldRule
	uniqueKey []string
	seen      map[string]int
	errors    *ErrorCollection
}

// NewFieldValidator creates a validator collecting at most maxErrors errors
func NewFieldValidator(rules []FieldRule, uniqueKey []string, maxErrors int) *FieldValidator {
	return &FieldValidator{
		rules:     rules,
		uniqueKey: uniqueKey,
		seen:      make(map[string]int),
		errors:    NewErrorCollection(maxErrors),
	}
}

// ValidateRow records every problem on row and reports whether it is clean
func (v *FieldValidator) ValidateRow(row *Row) bool {
	before := v.errors.TotalCount()

	for _, rule := range v.rules {
		value := row.Get(rule.Column)
		if value == "" {
			if rule.Required {
				v.errors.Add(RowError{
					Row: row.Line, Column: rule.Column, Code: ErrCodeImportRequiredField,
					Message: fmt.Sprintf("field '%s' is required", rule.Column),
				})
			}
			continue
		}
		if err := v.validateValue(rule, value); err != nil {
			err.Row = row.Line
			err.Column = rule.Column
			err.Value = value
			v.errors.Add(*err)
		}
	}

	if len(v.uniqueKey) > 0 && v.errors.TotalCount() == before {
		key := v.compositeKey(row)
		if first, dup := v.seen[key]; dup {
			v.errors.Add(RowError{
				Row: row.Line, Column: strings.Join(v.uniqueKey, "+"), Code: ErrCodeImportDuplicateInFile,
				Message: fmt.Sprintf("duplicate of row %d", first), Value: key,
			})
		} else {
			v.seen[key] = row.Line
		}
	}

	return v.errors.TotalCount() == before
}

func (v *FieldValidator) validateValue(rule FieldRule, value string) *RowError {
	if n := len([]rune(value)); (rule.MinLength > 0 && n < rule.MinLength) || (rule.MaxLength > 0 && n > rule.MaxLength) {
		return &RowError{Code: ErrCodeImportInvalidLength, Message: lengthMessage(rule.MinLength, rule.MaxLength)}
	}

	switch rule.Type {
	case TypeInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return &RowError{Code: ErrCodeImportInvalidType, Message: "expected integer"}
		}
		if msg := checkRange(decimal.NewFromInt(n), rule.MinValue, rule.MaxValue); msg != "" {
			return &RowError{Code: ErrCodeImportInvalidRange, Message: msg}
		}
	case TypeDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return &RowError{Code: ErrCodeImportInvalidType, Message: "expected decimal"}
		}
		if msg := checkRange(d, rule.MinValue, rule.MaxValue); msg != "" {
			return &RowError{Code: ErrCodeImportInvalidRange, Message: msg}
		}
	case TypeBool:
		if _, err := ParseBool(value); err != nil {
			return &RowError{Code: ErrCodeImportInvalidType, Message: "expected boolean"}
		}
	}

	if len(rule.OneOf) > 0 && !containsFold(rule.OneOf, value) {
		return &RowError{
			Code:    ErrCodeImportInvalidValue,
			Message: fmt.Sprintf("must be one of %s", strings.Join(rule.OneOf, ", ")),
		}
	}

	if rule.Custom != nil {
		if err := rule.Custom(value); err != nil {
			return &RowError{Code: ErrCodeImportInvalidValue, Message: err.Error()}
		}
	}
	return nil
}

func (v *FieldValidator) compositeKey(row *Row) string {
	parts := make([]string, len(v.uniqueKey))
	for i, col := range v.uniqueKey {
		parts[i] = strings.ToUpper(row.Get(col))
	}
	return strings.Join(parts, "|")
}

// Errors returns the collected errors
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.errors
}

// ParseBool accepts true/false, yes/no, y/n and 1/0 in any case
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", value)
}

func checkRange(d decimal.Decimal, min, max *decimal.Decimal) string {
	switch {
	case min != nil && max != nil && (d.LessThan(*min) || d.GreaterThan(*max)):
		return fmt.Sprintf("value must be between %s and %s", min, max)
	case min != nil && d.LessThan(*min):
		return fmt.Sprintf("value must be at least %s", min)
	case max != nil && d.GreaterThan(*max):
		return fmt.Sprintf("value must be at most %s", max)
	}
	return ""
}

func lengthMessage(min, max int) string {
	switch {
	case min == 0:
		return fmt.Sprintf("length must be at most %d", max)
	case max == 0:
		return fmt.Sprintf("length must be at least %d", min)
	}
	return fmt.Sprintf("length must be between %d and %d", min, max)
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
