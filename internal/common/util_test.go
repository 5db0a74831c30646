package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte("s3cret")
	WipeByteArray(buf)
	assert.Equal(t, make([]byte, 6), buf)
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestErrors_AreDistinctAndWrappable(t *testing.T) {
	all := []error{ErrUnsupportedContentType, ErrInvalidTransition, ErrNotCheckedOut, ErrNotLockHolder, ErrStaleResponse, ErrValidation}
	for i, a := range all {
		wrapped := fmt.Errorf("op: %w", a)
		assert.True(t, errors.Is(wrapped, a))
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(wrapped, b), "%v matched %v", a, b)
			}
		}
	}
}
