package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := New(CodeInsufficientStock, "not enough stock (remaining: %d)", 3)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestErrorsIsMatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("reserve: %w", New(CodeWindowClosed, "cancellation closed at pickup start"))
	assert.True(t, errors.Is(err, ErrWindowClosed))
	assert.Equal(t, CodeWindowClosed, CodeOf(err))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
}
