package server

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapErrorf(t *testing.T) {
	base := errors.New("region file not found")
	err := WrapErrorf(base, ErrNotFound, "region %s is not on disk", "java")

	assert.ErrorIs(t, err, base)
	assert.Equal(t, ErrNotFound, CodeOf(err))
	assert.Equal(t, "region java is not on disk: region file not found", err.Error())

	var e *Error
	assert.True(t, errors.As(fmt.Errorf("handler: %w", err), &e))
	assert.Equal(t, "region java is not on disk", e.Message())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrUnknown, CodeOf(errors.New("boom")))
	assert.Equal(t, ErrBadParamInput, CodeOf(NewErrorf(ErrBadParamInput, "bad vehicle")))
	assert.Equal(t, "bad vehicle", NewErrorf(ErrBadParamInput, "bad vehicle").Error())
}
