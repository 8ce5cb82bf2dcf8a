package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := NewRateLimitError("request limit reached").WithProvider("baidu")
	assert.Equal(t, "[RATE_LIMITED] request limit reached", err.Error())
	assert.Equal(t, "baidu", err.Provider)

	cause := errors.New("boom")
	err2 := NewNetworkError("post failed").WithCause(cause)
	assert.Contains(t, err2.Error(), "boom")
	assert.ErrorIs(t, err2, cause)
}

func TestErrorCode_Helpers(t *testing.T) {
	assert.True(t, IsRateLimited(NewRateLimitError("x")))
	assert.True(t, IsAuth(NewAuthError("x")))
	assert.True(t, IsConfiguration(NewConfigurationError("x")))
	assert.False(t, IsRateLimited(NewAuthError("x")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}

func TestErrorCode_ThroughWrapping(t *testing.T) {
	inner := NewRateLimitError("throttled")
	wrapped := fmt.Errorf("adapter failed: %w", inner)
	assert.True(t, IsRateLimited(wrapped))
	assert.True(t, IsRetryable(wrapped))
}

func TestIsRetryable_Defaults(t *testing.T) {
	assert.True(t, IsRetryable(NewNetworkError("x")))
	assert.False(t, IsRetryable(NewAuthError("x")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
