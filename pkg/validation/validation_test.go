package validation

import (
	"testing"

	appErrors "awsugmdu-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string `validate:"required"`
	Level  string `validate:"required,oneof=Foundational Associate"`
	Points int    `validate:"gte=0"`
	Email  string `validate:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, Struct(sample{Name: "x", Level: "Associate"}))
	})

	t.Run("collects every field", func(t *testing.T) {
		err := Struct(sample{Level: "Expert", Points: -1, Email: "nope"})
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))

		msg := appErrors.Message(err)
		assert.Contains(t, msg, "name is required")
		assert.Contains(t, msg, "level must be one of: Foundational Associate")
		assert.Contains(t, msg, "points must be greater than or equal to 0")
		assert.Contains(t, msg, "email must be a valid email")
	})
}

func TestStruct_UsesJSONNames(t *testing.T) {
	type request struct {
		UserID string `json:"userId" validate:"required"`
	}
	err := Struct(request{})
	require.Error(t, err)
	assert.Equal(t, "userId is required", appErrors.Message(err))
}
