package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("email", "email is required")

	assert.Equal(t, "validation error: email: email is required", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("author request", "a9b8c7")

	assert.Equal(t, "author request not found: a9b8c7", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)

	var nfErr *NotFoundError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "author request", nfErr.Entity)
}

func TestConflictError(t *testing.T) {
	err := NewConflictError("author request", "user already has an active request")

	assert.Equal(t, "author request conflict: user already has an active request", err.Error())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestForbiddenError(t *testing.T) {
	err := NewForbiddenError("admin role required")

	assert.Equal(t, "forbidden: admin role required", err.Error())
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestDependencyError(t *testing.T) {
	t.Run("with step", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := NewDependencyError("author upsert", cause)

		assert.Equal(t, "dependency failure at author upsert: connection refused", err.Error())
		assert.ErrorIs(t, err, ErrDependency)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("without step", func(t *testing.T) {
		cause := errors.New("timeout")
		err := &DependencyError{Cause: cause}

		assert.Equal(t, "dependency failure: timeout", err.Error())
		assert.ErrorIs(t, err, ErrDependency)
	})

	t.Run("unwraps through wrapping", func(t *testing.T) {
		cause := errors.New("broken pipe")
		err := fmt.Errorf("approval failed: %w", NewDependencyError("file retarget", cause))

		assert.ErrorIs(t, err, ErrDependency)
		assert.ErrorIs(t, err, cause)
	})
}
