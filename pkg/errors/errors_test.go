package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"type only", New(ErrorTypeContainerNotFound, ""), "container_not_found error"},
		{"with message", New(ErrorTypeFatal, "scanner panicked"), "fatal error: scanner panicked"},
		{"with code", WithCode(ErrorTypeServerError, 503, "sink unavailable"), "server_error error (code 503): sink unavailable"},
		{"with cause", Wrap(ErrorTypeNetwork, stderrors.New("connection refused"), "post line"), "network error: post line: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsAndTypeOfSeeThroughWrapping(t *testing.T) {
	base := New(ErrorTypeSinkDelivery, "queue full")
	wrapped := fmt.Errorf("dispatch: %w", base)

	assert.True(t, Is(wrapped, ErrorTypeSinkDelivery))
	assert.False(t, Is(wrapped, ErrorTypeFatal))
	assert.Equal(t, ErrorTypeSinkDelivery, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(ErrorTypeFatal, cause, "scan")

	require.ErrorIs(t, err, cause)
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError}
	for _, et := range retryable {
		assert.True(t, IsRetryable(et), et)
	}

	final := []ErrorType{ErrorTypeClientError, ErrorTypeFatal, ErrorTypeContainerNotFound, ErrorTypeUnknown}
	for _, et := range final {
		assert.False(t, IsRetryable(et), et)
	}
}

func TestStatusCodeClassification(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
		errType   ErrorType
	}{
		{0, true, ErrorTypeNetwork},
		{429, true, ErrorTypeRateLimit},
		{500, true, ErrorTypeServerError},
		{503, true, ErrorTypeServerError},
		{400, false, ErrorTypeClientError},
		{404, false, ErrorTypeClientError},
		{200, false, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryableStatusCode(tt.code))
			assert.Equal(t, tt.errType, ForStatus(tt.code))
		})
	}
}
