package csvimport

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rateRules = []FieldRule{
	Field("service_code").Required().Build(),
	Field("weight_band").Required().Int().Build(),
	Field("base_rate").Required().Decimal().Build(),
}

func TestRead(t *testing.T) {
	input := "service_code,weight_band,base_rate\n" +
		"EMS,1,18\n" +
		"EMS,two,24\n" +
		"\n" +
		"EMS,1,19\n" +
		"EMS,3,30\n"

	result, err := Read(context.Background(), strings.NewReader(input), rateRules,
		WithUniqueKey("service_code", "weight_band"))
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalRows)
	assert.Equal(t, 2, result.ValidRows)
	assert.Equal(t, 2, result.ErrorRows)
	require.Len(t, result.Valid, 2)
	assert.Equal(t, 2, result.Valid[0].Line)
	assert.Equal(t, 6, result.Valid[1].Line)

	require.Len(t, result.Errors, 2)
	assert.Equal(t, ErrCodeImportInvalidType, result.Errors[0].Code)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Equal(t, ErrCodeImportDuplicateInFile, result.Errors[1].Code)
	assert.Equal(t, 5, result.Errors[1].Row)
}

func TestRead_FileErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    []ReadOption
		wantErr error
	}{
		{"empty", "", nil, ErrEmptyFile},
		{"missing columns", "service_code,base_rate\nEMS,18\n", nil, ErrMissingColumns},
		{"too many rows", "service_code,weight_band,base_rate\nEMS,1,18\nEMS,2,24\n", []ReadOption{WithMaxRows(1)}, ErrTooManyRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(context.Background(), strings.NewReader(tt.input), rateRules, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRead_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Read(ctx, strings.NewReader("service_code,weight_band,base_rate\nEMS,1,18\n"), rateRules)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_Reject(t *testing.T) {
	input := "service_code,weight_band,base_rate\nEMS,1,18\nDHL,1,20\n"
	result, err := Read(context.Background(), strings.NewReader(input), rateRules, WithMaxErrors(1))
	require.NoError(t, err)

	result.Reject(result.Valid[0], "service_code", ErrCodeImportReference, "unknown service")
	result.Reject(result.Valid[1], "service_code", ErrCodeImportReference, "unknown service")

	assert.Equal(t, 0, result.ValidRows)
	assert.Equal(t, 2, result.ErrorRows)
	assert.Equal(t, 2, result.TotalErrors)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "EMS", result.Errors[0].Value)
	assert.True(t, result.Truncated)
}
