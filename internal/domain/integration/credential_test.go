package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredential_NeedsRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cred := NewCredential("club19", TokenSet{
		AccessToken:  "a1",
		RefreshToken: "r1",
		ExpiresAt:    now.Add(30 * time.Minute),
	}, now)

	assert.False(t, cred.NeedsRefresh(now, DefaultRefreshMargin))
	assert.True(t, cred.NeedsRefresh(now.Add(21*time.Minute), DefaultRefreshMargin))
	assert.False(t, cred.IsExpired(now.Add(29*time.Minute)))
	assert.True(t, cred.IsExpired(now.Add(30*time.Minute)))
}

func TestCredential_RotatedPreservesConnectedAt(t *testing.T) {
	connected := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cred := NewCredential("club19", TokenSet{
		AccessToken:  "a1",
		RefreshToken: "r1",
		ExpiresAt:    connected.Add(time.Hour),
		TenantID:     "tenant-1",
	}, connected)

	later := connected.Add(50 * time.Minute)
	next := cred.Rotated(TokenSet{
		AccessToken:  "a2",
		RefreshToken: "r2",
		ExpiresAt:    later.Add(30 * time.Minute),
	}, later)

	require.NotNil(t, next.RefreshedAt)
	assert.Equal(t, later, *next.RefreshedAt)
	assert.Equal(t, connected, next.ConnectedAt)
	assert.Equal(t, "a2", next.AccessToken)
	assert.Equal(t, "r2", next.RefreshToken)
	assert.Equal(t, "tenant-1", next.TenantID, "empty tenant id keeps the previous one")
	assert.Equal(t, "a1", cred.AccessToken, "original is not mutated")
}

func TestNormalizeInvoiceStatus(t *testing.T) {
	assert.Equal(t, InvoiceStatusPaid, NormalizeInvoiceStatus(" paid "))
	assert.True(t, NormalizeInvoiceStatus("PAID").IsPaid())
	assert.False(t, NormalizeInvoiceStatus("authorised").IsPaid())
}
