package httperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_DefaultMessages(t *testing.T) {
	cases := []struct {
		build    func(...string) *HTTPException
		status   int
		defaultMsg string
	}{
		{NewBadRequest, 400, "Bad Request"},
		{NewUnauthorized, 401, "Unauthorized"},
		{NewForbidden, 403, "Forbidden"},
		{NewNotFound, 404, "Not Found"},
		{NewMethodNotAllowed, 405, "Method Not Allowed"},
		{NewNotAcceptable, 406, "Not Acceptable"},
		{NewConflict, 409, "Conflict"},
		{NewGone, 410, "Gone"},
		{NewUnprocessableEntity, 422, "Unprocessable Entity"},
		{NewTooManyRequests, 429, "Too Many Requests"},
		{NewInternalServerError, 500, "Internal Server Error"},
		{NewNotImplemented, 501, "Not Implemented"},
		{NewBadGateway, 502, "Bad Gateway"},
		{NewServiceUnavailable, 503, "Service Unavailable"},
		{NewGatewayTimeout, 504, "Gateway Timeout"},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("status_%d", c.status), func(t *testing.T) {
			exc := c.build()
			assert.Equal(t, c.status, exc.Status)
			assert.Equal(t, c.defaultMsg, exc.Message)
		})
	}
}

func TestConstructors_CustomMessage(t *testing.T) {
	exc := NewNotFound("widget not found")
	assert.Equal(t, "widget not found", exc.Message)
}

func TestWithDetailsAndCause(t *testing.T) {
	cause := errors.New("underlying")
	exc := NewBadRequest("invalid payload").WithDetails([]string{"field required"}).WithCause(cause)

	assert.Equal(t, []string{"field required"}, exc.Details)
	assert.ErrorIs(t, exc, cause)
	assert.Contains(t, exc.Error(), "invalid payload")
}

func TestAs_UnwrapsWrappedException(t *testing.T) {
	exc := NewConflict("already exists")
	wrapped := fmt.Errorf("operation failed: %w", exc)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, exc, got)
}

func TestAs_FalseForPlainError(t *testing.T) {
	_, ok := As(errors.New("boom"))
	assert.False(t, ok)
}
