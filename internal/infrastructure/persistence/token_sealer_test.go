package persistence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/club19/salesos/internal/domain/integration"
	"github.com/club19/salesos/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSealer(t *testing.T) {
	sealer, err := NewTokenSealer("a-long-enough-token-key")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		sealed, err := sealer.Seal("refresh-token")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
		assert.NotContains(t, sealed, "refresh-token")

		plain, err := sealer.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, "refresh-token", plain)
	})

	t.Run("nonce differs per seal", func(t *testing.T) {
		a, _ := sealer.Seal("same")
		b, _ := sealer.Seal("same")
		assert.NotEqual(t, a, b)
	})

	t.Run("empty and plaintext pass through", func(t *testing.T) {
		sealed, err := sealer.Seal("")
		require.NoError(t, err)
		assert.Empty(t, sealed)

		plain, err := sealer.Open("legacy-plaintext")
		require.NoError(t, err)
		assert.Equal(t, "legacy-plaintext", plain)
	})

	t.Run("wrong key fails", func(t *testing.T) {
		other, err := NewTokenSealer("another-token-key")
		require.NoError(t, err)
		sealed, _ := sealer.Seal("secret")
		_, err = other.Open(sealed)
		assert.Error(t, err)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := sealer.Open(sealedPrefix + "!!")
		assert.ErrorIs(t, err, errMalformedSealedToken)
	})

	t.Run("nil sealer", func(t *testing.T) {
		var none *TokenSealer
		sealed, err := none.Seal("token")
		require.NoError(t, err)
		assert.Equal(t, "token", sealed)

		_, err = none.Open(sealedPrefix + "AAAA")
		assert.Error(t, err)
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		_, err := NewTokenSealer("")
		assert.Error(t, err)
	})
}

func TestGormCredentialRepository_SealsTokens(t *testing.T) {
	db := newSQLiteDatabase(t)
	sealer, err := NewTokenSealer("a-long-enough-token-key")
	require.NoError(t, err)
	repo := NewGormCredentialRepository(db, WithTokenSealer(sealer))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cred := integration.NewCredential("default", integration.TokenSet{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    now.Add(30 * time.Minute),
		TenantID:     "tenant-1",
	}, now)
	require.NoError(t, repo.Create(ctx, cred))

	var row models.CredentialModel
	require.NoError(t, db.Where("identity = ?", "default").First(&row).Error)
	assert.True(t, strings.HasPrefix(row.AccessToken, sealedPrefix))
	assert.True(t, strings.HasPrefix(row.RefreshToken, sealedPrefix))

	loaded, err := repo.FindByIdentity(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "access-1", loaded.AccessToken)
	assert.Equal(t, "refresh-1", loaded.RefreshToken)

	rotated := loaded.Rotated(integration.TokenSet{
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
		ExpiresAt:    now.Add(time.Hour),
	}, now.Add(25*time.Minute))
	require.NoError(t, repo.UpdateTokens(ctx, rotated))

	require.NoError(t, db.Where("identity = ?", "default").First(&row).Error)
	assert.NotContains(t, row.RefreshToken, "refresh-2")

	loaded, err = repo.FindByIdentity(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", loaded.RefreshToken)

	t.Run("unsealed repository cannot read sealed rows", func(t *testing.T) {
		_, err := NewGormCredentialRepository(db).FindByIdentity(ctx, "default")
		assert.Error(t, err)
	})
}
