package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{"config error type", ErrTypeConfig, "CONFIG"},
		{"validation error type", ErrTypeValidation, "VALIDATION"},
		{"parsing error type", ErrTypeParsing, "PARSING"},
		{"storage error type", ErrTypeStorage, "STORAGE"},
		{"insufficient data error type", ErrTypeInsufficientData, "INSUFFICIENT_DATA"},
		{"data quality error type", ErrTypeDataQuality, "DATA_QUALITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name: "error without cause",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "record count must be positive",
			},
			wantMessage: "[CONFIG] record count must be positive",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeStorage,
				Message: "write dataset",
				Cause:   fmt.Errorf("disk full"),
			},
			wantMessage: "[STORAGE] write dataset: disk full",
		},
		{
			name: "error with empty message",
			appError: &AppError{
				Type: ErrTypeValidation,
			},
			wantMessage: "[VALIDATION] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("bad header")
	err := NewParsingError("read dataset", cause)

	assert.ErrorIs(t, err, cause)
	assert.Nil(t, NewAppValidationError("no cause").Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	err := &AppError{Type: ErrTypeConfig, Message: "bad range"}

	err.WithContext("low", 10.0).WithContext("high", 5.0)

	require.NotNil(t, err.Context)
	assert.Equal(t, 10.0, err.Context["low"])
	assert.Equal(t, 5.0, err.Context["high"])
}

func TestNewInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataError("normality test needs at least 3 observations", 2, 3)

	assert.Equal(t, ErrTypeInsufficientData, err.Type)
	assert.Equal(t, 2, err.Context["have"])
	assert.Equal(t, 3, err.Context["need"])
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("synthesize: %w", NewConfigError("empty region domain", nil))

	assert.True(t, IsType(wrapped, ErrTypeConfig))
	assert.False(t, IsType(wrapped, ErrTypeStorage))
	assert.False(t, IsType(errors.New("plain"), ErrTypeConfig))
	assert.False(t, IsType(nil, ErrTypeConfig))
}

func TestValidationErrors(t *testing.T) {
	t.Run("empty collection yields no error", func(t *testing.T) {
		var v ValidationErrors
		assert.True(t, v.Empty())
		assert.NoError(t, v.AsConfigError("invalid synthesis parameters"))
	})

	t.Run("collected fields become a config error", func(t *testing.T) {
		var v ValidationErrors
		v.Add("record_count", "must be positive")
		v.Add("regions", "must not be empty")

		err := v.AsConfigError("invalid synthesis parameters")
		require.Error(t, err)
		assert.True(t, IsType(err, ErrTypeConfig))
		assert.Contains(t, err.Error(), "record_count: must be positive; regions: must not be empty")

		var appErr *AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, []string{"record_count", "regions"}, appErr.Context["fields"])
	})
}
