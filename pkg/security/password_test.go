package security_test

import (
	"testing"

	"github.com/angelmondragon/vistore-backend/pkg/config"
	"github.com/angelmondragon/vistore-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password1", fastConfig())
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	ok, err := security.VerifyPassword("very-secure-password1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("bogus-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordBadHash(t *testing.T) {
	_, err := security.VerifyPassword("irrelevant", "not-a-hash")
	assert.ErrorIs(t, err, security.ErrInvalidHash)

	_, err = security.VerifyPassword("irrelevant", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA")
	assert.ErrorIs(t, err, security.ErrInvalidHash)
}

func TestNeedsRehash(t *testing.T) {
	hash, err := security.HashPassword("password123", fastConfig())
	require.NoError(t, err)

	assert.False(t, security.NeedsRehash(hash, fastConfig()))

	stronger := fastConfig()
	stronger.ArgonTime = 3
	assert.True(t, security.NeedsRehash(hash, stronger))
	assert.True(t, security.NeedsRehash("garbage", fastConfig()))
}

func TestValidateStrength(t *testing.T) {
	assert.NoError(t, security.ValidateStrength("shopping42"))
	assert.ErrorIs(t, security.ValidateStrength("short1"), security.ErrWeakPassword)
	assert.ErrorIs(t, security.ValidateStrength("onlyletters"), security.ErrWeakPassword)
	assert.ErrorIs(t, security.ValidateStrength("1234567890"), security.ErrWeakPassword)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := security.HashPassword("", fastConfig())
	assert.Error(t, err)
}
