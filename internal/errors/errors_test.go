package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindDuplicateOwnership, http.StatusConflict},
		{KindConflict, http.StatusConflict},
		{KindValidation, http.StatusBadRequest},
		{KindUnavailable, http.StatusServiceUnavailable},
		{KindInternal, http.StatusInternalServerError},
		{Kind("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}

func TestIs_MatchesByKind(t *testing.T) {
	err := NotFound("User not found")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrDuplicateOwnership))

	wrapped := fmt.Errorf("get user: %w", err)
	assert.True(t, Is(wrapped, ErrNotFound))
}

func TestWithCause(t *testing.T) {
	cause := New("connection refused")
	err := ErrInternal.WithCause(cause)

	assert.True(t, Is(err, cause))
	assert.True(t, Is(err, ErrInternal))
	assert.Equal(t, "internal error: connection refused", err.Error())
	assert.Nil(t, ErrInternal.Unwrap(), "sentinel must not be mutated")
}

func TestInternal_MessageHidesCause(t *testing.T) {
	err := Internal("Internal server error", New("pq: relation does not exist"))

	assert.Equal(t, "Internal server error", err.Message)
	assert.Contains(t, err.Error(), "relation does not exist")
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}
