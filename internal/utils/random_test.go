package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReferralCodeCharset(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := GenerateReferralCode(8)
		assert.Len(t, code, 8)
		for _, c := range code {
			assert.Contains(t, referralCodeCharset, string(c))
		}
		// Ambiguous characters never appear.
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "I")
	}
}

func TestGenerateBatchID(t *testing.T) {
	id := GenerateBatchID()
	assert.True(t, strings.HasPrefix(id, "PB-"))
	assert.Len(t, id, 13)
}
