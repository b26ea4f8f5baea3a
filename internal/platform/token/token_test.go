package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "certrail/pkg/domain-errors"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewService("test-signing-key", "certrail")

	signed, err := svc.GenerateToken("inspector-7", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "inspector-7", claims.ActorID)
	assert.Equal(t, "admin", claims.Role)

	t.Run("expired token is rejected", func(t *testing.T) {
		signed, err := svc.GenerateToken("inspector-7", "admin", -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("token signed with a different key is rejected", func(t *testing.T) {
		other := NewService("other-key", "certrail")
		signed, err := other.GenerateToken("inspector-7", "admin", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestExchange(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	hash, err := HashSecret(secret)
	require.NoError(t, err)

	svc := NewService("test-signing-key", "certrail", Credential{
		ClientID:   "site-gateway",
		SecretHash: hash,
		Role:       "admin",
	})

	signed, err := svc.Exchange("site-gateway", secret, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "site-gateway", claims.ActorID)
	assert.Equal(t, "admin", claims.Role)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := svc.Exchange("site-gateway", "wrong", time.Hour)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := svc.Exchange("nobody", secret, time.Hour)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestSecretHelpers(t *testing.T) {
	hash, err := HashSecret("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, VerifySecret("s3cret", hash))
	assert.True(t, dErrors.HasCode(VerifySecret("other", hash), dErrors.CodeUnauthorized))

	t.Run("empty secret rejected", func(t *testing.T) {
		_, err := HashSecret("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
