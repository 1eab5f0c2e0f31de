package token

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirmationCode(t *testing.T) {
	t.Run("Prefix and length", func(t *testing.T) {
		code := ConfirmationCode("3f1c2a9e-0000-4000-8000-000000000001")
		assert.True(t, strings.HasPrefix(code, "PS"))
		assert.Len(t, code, len(ConfirmationPrefix)+10)
		assert.Regexp(t, "^PS[0-9A-F]{10}$", code)
	})

	t.Run("Deterministic per seed", func(t *testing.T) {
		assert.Equal(t, ConfirmationCode("booking-1"), ConfirmationCode("booking-1"))
	})

	t.Run("Distinct seeds give distinct codes", func(t *testing.T) {
		codes := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			codes[ConfirmationCode(fmt.Sprintf("booking-%d", i))] = true
		}
		assert.Len(t, codes, 1000)
	})
}

func TestReseed(t *testing.T) {
	assert.Equal(t, "abc", Reseed("abc", 0))
	assert.Equal(t, "abc#2", Reseed("abc", 2))
	assert.NotEqual(t, ConfirmationCode(Reseed("abc", 0)), ConfirmationCode(Reseed("abc", 1)))
}

func TestQRStrings(t *testing.T) {
	assert.Equal(t, "QR_DATA_PS0123456789", QRPayload("PS0123456789"))
	assert.Equal(t, "QR_CODE_BASE64_seed", QRDisplay("seed"))
}
