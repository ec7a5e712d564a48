package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransientOnlyElementNotFound(t *testing.T) {
	assert.True(t, IsTransient(ElementNotFound("gone", nil)))
	assert.False(t, IsTransient(InvalidSelector("bad", nil)))
	assert.False(t, IsTransient(nil))
}

func TestCoreErrorIsMatchesKind(t *testing.T) {
	err := Platform("boom", errors.New("native"), nil)
	assert.True(t, errors.Is(err, &CoreError{Kind: KindPlatformError}))
	assert.False(t, errors.Is(err, &CoreError{Kind: KindIoError}))
}

func TestUnwrapExposesUnderlyingError(t *testing.T) {
	native := errors.New("native failure")
	err := Platform("boom", native, nil)
	assert.ErrorIs(t, err, native)
}

func TestUnsupportedIncludesSuggestion(t *testing.T) {
	err := Unsupported("toggle", "use click instead")
	assert.Contains(t, err.Error(), "use click instead")
	assert.Equal(t, KindUnsupportedOperation, KindOf(err))
}

func TestKindOfNonCoreError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
