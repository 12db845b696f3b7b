package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("thesis %d", 1), http.StatusNotFound},
		{"forbidden", Forbidden("nope"), http.StatusForbidden},
		{"bad request", BadRequest("bad"), http.StatusBadRequest},
		{"conflict", Conflict("state changed"), http.StatusConflict},
		{"internal", Internal("lost"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("storage: %w", NotFound("gone")), http.StatusNotFound},
		{"plain error is internal", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", NotFound("y"))))
	assert.False(t, IsNotFound(nil))
	assert.True(t, IsConflict(Conflict("c")))
	assert.True(t, IsForbidden(Forbidden("f")))
	assert.True(t, Is[*ErrorWithStatusCode](fmt.Errorf("wrap: %w", BadRequest("b"))))
	assert.False(t, Is[*ErrorWithStatusCode](fmt.Errorf("plain")))
	assert.Equal(t, "thesis 7 does not exist", NotFound("thesis %d does not exist", 7).Error())
}
