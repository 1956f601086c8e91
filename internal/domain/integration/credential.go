package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultRefreshMargin is the time-to-expiry below which a credential is refreshed.
const DefaultRefreshMargin = 10 * time.Minute

// Credential is the integration-wide token set. Exactly one exists per
// integration identity, and only the refresh path mutates it.
type Credential struct {
	ID           uuid.UUID
	Identity     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	TenantID     string
	ConnectedAt  time.Time
	RefreshedAt  *time.Time
	Version      int
}

// NewCredential creates the credential after the first successful authorization handshake
func NewCredential(identity string, tokens TokenSet, now time.Time) *Credential {
	return &Credential{
		ID:           uuid.New(),
		Identity:     identity,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		TenantID:     tokens.TenantID,
		ConnectedAt:  now,
		Version:      1,
	}
}

// TimeToExpiry returns how long the access token stays valid from now
func (c *Credential) TimeToExpiry(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

// NeedsRefresh reports whether the access token expires within margin
func (c *Credential) NeedsRefresh(now time.Time, margin time.Duration) bool {
	return c.TimeToExpiry(now) < margin
}

// IsExpired reports whether the access token has already expired
func (c *Credential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Rotated returns a copy carrying the new tokens. ConnectedAt is preserved
// and RefreshedAt is set to now.
func (c *Credential) Rotated(tokens TokenSet, now time.Time) *Credential {
	next := *c
	next.AccessToken = tokens.AccessToken
	next.RefreshToken = tokens.RefreshToken
	next.ExpiresAt = tokens.ExpiresAt
	if tokens.TenantID != "" {
		next.TenantID = tokens.TenantID
	}
	refreshed := now
	next.RefreshedAt = &refreshed
	return &next
}

// CredentialRepository defines the interface for credential persistence
type CredentialRepository interface {
	// FindByIdentity returns the credential or nil, nil when not connected
	FindByIdentity(ctx context.Context, identity string) (*Credential, error)

	// Create stores the first credential for an identity
	Create(ctx context.Context, cred *Credential) error

	// UpdateTokens atomically writes access token, refresh token, expiry,
	// tenant id and refreshed-at, guarded by the version read with cred.
	UpdateTokens(ctx context.Context, cred *Credential) error
}

// WriterLock serialises credential refreshes across processes.
// Acquire returns ok=false without error when another holder owns the key.
type WriterLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}
