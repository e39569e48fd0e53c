package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	cause := stderrors.New("connection refused")

	err := Transport(cause, "request to %s failed", "http://scraper:5000/query")
	assert.Equal(t, "analyze preconditions not met (transport): request to http://scraper:5000/query failed: connection refused", err.Error())

	err = Transport(nil, "upstream returned status %d", 503)
	assert.Equal(t, "analyze preconditions not met (transport): upstream returned status 503", err.Error())
}

func TestConstructors(t *testing.T) {
	cause := stderrors.New("boom")

	tests := []struct {
		name string
		err  *Error
		want ErrorType
	}{
		{"transport", Transport(cause, "fetch failed"), ErrorTypeTransport},
		{"storage", Storage(cause, "insert failed"), ErrorTypeStorage},
		{"malformed", Malformed(cause, "bad payload"), ErrorTypeMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Type)
			assert.Equal(t, cause, tt.err.Err)
			assert.True(t, IsType(tt.err, tt.want))
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("no such host")
	err := Transport(cause, "probe failed")

	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestIsType(t *testing.T) {
	err := Storage(nil, "counter update failed")

	assert.True(t, IsType(err, ErrorTypeStorage))
	assert.False(t, IsType(err, ErrorTypeTransport))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeStorage))
	assert.False(t, IsType(nil, ErrorTypeStorage))
}

func TestIsTypeWrapped(t *testing.T) {
	inner := Malformed(stderrors.New("invalid character"), "bad json")
	wrapped := fmt.Errorf("run aborted: %w", inner)

	assert.True(t, IsType(wrapped, ErrorTypeMalformed))
	assert.False(t, IsType(wrapped, ErrorTypeTransport))
}
