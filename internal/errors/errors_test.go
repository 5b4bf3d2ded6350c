package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  New(KindInvalidInput, "INVALID_INPUT", "invalid input"),
			want: "invalid input",
		},
		{
			name: "with op",
			err:  InvalidInput("split", "window must be positive"),
			want: "split: window must be positive",
		},
		{
			name: "with details and cause",
			err:  DataFormat(7, "period", fmt.Errorf("bad date")),
			want: "load: invalid period (field=period, line=7): bad date",
		},
		{
			name: "nil receiver",
			err:  nil,
			want: "unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_IsSentinel(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"empty series", EmptySeries("clip"), ErrEmptySeries, true},
		{"invalid input", InvalidInput("split", "x"), ErrInvalidInput, true},
		{"data format", DataFormat(2, "oil", nil), ErrDataFormat, true},
		{"missing column", MissingColumn("gas"), ErrMissingColumn, true},
		{"model", ModelFailure("arima", errors.New("singular")), ErrModelFailed, true},
		{"unknown well", UnknownWell("W-1"), ErrUnknownWell, true},
		{"wrapped", fmt.Errorf("stage failed: %w", EmptySeries("clip")), ErrEmptySeries, true},
		{"different code", EmptySeries("clip"), ErrInvalidInput, false},
		{"plain error", errors.New("boom"), ErrInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestIsKind(t *testing.T) {
	cause := errors.New("singular matrix")
	err := fmt.Errorf("evaluate: %w", ModelFailure("ridge", cause))

	assert.True(t, IsKind(err, KindModel))
	assert.False(t, IsKind(err, KindDataFormat))
	assert.False(t, IsKind(nil, KindModel))
	assert.True(t, errors.Is(err, cause))

	nested := ModelFailure("arima_boost", InvalidInput("split", "too short"))
	assert.True(t, IsKind(nested, KindInvalidInput))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "DATA_FORMAT", CodeOf(fmt.Errorf("wrap: %w", DataFormat(1, "gas", nil))))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "min_months", Message: "min_months must be at least 1"},
		{Field: "target", Message: "target must be one of: oil, gas"},
	})

	require.NotNil(t, err)
	assert.Equal(t, KindConfig, err.Kind)
	assert.True(t, errors.Is(err, ErrConfigInvalid))
	assert.Contains(t, err.Error(), "min_months must be at least 1; target must be one of: oil, gas")

	var fe *FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Len(t, fe.Errors, 2)
	assert.Equal(t, "invalid fields: min_months, target", fe.Error())
}
