package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := NotFound("item not found")
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrForbidden))

	wrapped := fmt.Errorf("delete: %w", err)
	assert.True(t, Is(wrapped, ErrNotFound))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := Wrap(cause, CodeInternal, "list items")
	assert.Equal(t, "list items: disk on fire", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, ErrInternal))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeNotFound:     http.StatusNotFound,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeValidation:   http.StatusBadRequest,
		CodeConflict:     http.StatusConflict,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.HTTPStatus(), code)
		assert.Equal(t, code, CodeForStatus(want), code)
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeForbidden, CodeOf(fmt.Errorf("x: %w", Forbidden("nope"))))
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
}
