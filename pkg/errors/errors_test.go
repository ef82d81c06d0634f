package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsValidation(NewValidation("bad")))
	assert.True(t, IsNotFound(NewNotFound("missing")))
	assert.True(t, IsConflict(NewConflict("raced", nil)))
	assert.True(t, IsInternal(NewInternal("boom", stderrors.New("cause"))))
	assert.False(t, IsNotFound(stderrors.New("plain")))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("loading sprint: %w", NewNotFound("Sprint not found"))
	assert.True(t, IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Equal(t, "Sprint not found", Message(err))
}

func TestWrapPreservesType(t *testing.T) {
	err := Wrap(NewValidation("points must be positive"), "create item")
	assert.True(t, IsValidation(err))
	assert.Equal(t, "create item: points must be positive", Message(err))

	err = Wrap(stderrors.New("dial tcp"), "get item")
	assert.True(t, IsInternal(err))
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidation("x"), http.StatusBadRequest},
		{NewNotFound("x"), http.StatusNotFound},
		{NewConflict("x", nil), http.StatusConflict},
		{NewInternal("x", nil), http.StatusInternalServerError},
		{stderrors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), tt.err.Error())
	}
}
