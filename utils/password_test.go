package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	first, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	second, err := h.Hash("s3cret-pass")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret-pass", first)
	assert.NotEqual(t, first, second, "each hash must carry its own salt")
	assert.True(t, h.Check(first, "s3cret-pass"))
	assert.True(t, h.Check(second, "s3cret-pass"))
	assert.False(t, h.Check(first, "wrong"))
	assert.False(t, h.Check("not-a-hash", "s3cret-pass"))
}
