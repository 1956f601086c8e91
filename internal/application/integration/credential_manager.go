package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/club19/salesos/internal/domain/integration"
	"github.com/club19/salesos/internal/domain/ledger"
	"github.com/club19/salesos/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	defaultLockTTL = 2 * time.Minute
	lockKeyPrefix  = "salesos:credential:refresh:"
)

// CredentialHealth is a read-only view of the credential for operators
type CredentialHealth struct {
	Connected    bool       `json:"connected"`
	TenantID     string     `json:"tenant_id,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ExpiresIn    string     `json:"expires_in,omitempty"`
	Expired      bool       `json:"expired"`
	NeedsRefresh bool       `json:"needs_refresh"`
	ConnectedAt  *time.Time `json:"connected_at,omitempty"`
	RefreshedAt  *time.Time `json:"refreshed_at,omitempty"`
}

// CredentialManager owns the integration-wide credential. It is the only
// component that redeems refresh tokens, and every outbound platform call
// goes through WithAuth.
type CredentialManager struct {
	repo     integration.CredentialRepository
	platform integration.AccountingPlatform
	recorder ledger.ErrorRecorder
	lock     integration.WriterLock
	metrics  *telemetry.LedgerMetrics
	logger   *zap.Logger

	identity string
	margin   time.Duration
	lockTTL  time.Duration
	now      func() time.Time

	mu sync.Mutex
}

// CredentialManagerConfig holds dependencies for the CredentialManager
type CredentialManagerConfig struct {
	Repo          integration.CredentialRepository
	Platform      integration.AccountingPlatform
	ErrorRecorder ledger.ErrorRecorder
	// WriterLock is optional; when nil only the in-process mutex serialises refreshes.
	WriterLock    integration.WriterLock
	Metrics       *telemetry.LedgerMetrics
	Logger        *zap.Logger
	Identity      string
	RefreshMargin time.Duration
	LockTTL       time.Duration
	Now           func() time.Time
}

// NewCredentialManager creates a new CredentialManager
func NewCredentialManager(cfg CredentialManagerConfig) *CredentialManager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	margin := cfg.RefreshMargin
	if margin <= 0 {
		margin = integration.DefaultRefreshMargin
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &CredentialManager{
		repo:     cfg.Repo,
		platform: cfg.Platform,
		recorder: cfg.ErrorRecorder,
		lock:     cfg.WriterLock,
		metrics:  cfg.Metrics,
		logger:   logger,
		identity: cfg.Identity,
		margin:   margin,
		lockTTL:  lockTTL,
		now:      now,
	}
}

// Get returns the stored credential without checking expiry
func (m *CredentialManager) Get(ctx context.Context) (*integration.Credential, error) {
	cred, err := m.repo.FindByIdentity(ctx, m.identity)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, integration.ErrNotConnected
	}
	return cred, nil
}

// GetValid returns a credential usable for an outbound call. Only the writer
// refreshes when the expiry margin is breached; any other caller gets the
// current credential back unchanged, even if it has already expired.
func (m *CredentialManager) GetValid(ctx context.Context, callerIsWriter bool) (*integration.Credential, error) {
	cred, err := m.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if !cred.NeedsRefresh(now, m.margin) {
		return cred, nil
	}

	if !callerIsWriter {
		m.logger.Debug("Credential inside refresh margin, leaving refresh to the writer",
			zap.Duration("expires_in", cred.TimeToExpiry(now)))
		return cred, nil
	}

	return m.refresh(ctx, cred.AccessToken)
}

// Refresh forces a token refresh
func (m *CredentialManager) Refresh(ctx context.Context) (*integration.Credential, error) {
	cred, err := m.Get(ctx)
	if err != nil {
		return nil, err
	}
	return m.refresh(ctx, cred.AccessToken)
}

// refresh redeems the refresh token unless another writer already replaced
// staleAccessToken while this one waited for the lock.
func (m *CredentialManager) refresh(ctx context.Context, staleAccessToken string) (*integration.Credential, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credential", "refresh",
		telemetry.WithAttribute(telemetry.SpanAttrIdentity, m.identity))
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lock != nil {
		key := lockKeyPrefix + m.identity
		token, ok, err := m.lock.Acquire(ctx, key, m.lockTTL)
		if err != nil {
			telemetry.RecordError(span, err)
			m.metrics.RecordRefresh(ctx, "lock_error")
			return nil, fmt.Errorf("%w: acquire writer lock: %v", integration.ErrRefreshFailed, err)
		}
		if !ok {
			m.metrics.RecordRefresh(ctx, "lock_held")
			return nil, integration.ErrWriterLockHeld
		}
		defer func() {
			if err := m.lock.Release(context.WithoutCancel(ctx), key, token); err != nil {
				m.logger.Warn("Failed to release credential writer lock", zap.Error(err))
			}
		}()
	}

	cred, err := m.Get(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if cred.AccessToken != staleAccessToken && !cred.NeedsRefresh(now, m.margin) {
		m.logger.Debug("Credential already refreshed by another writer")
		return cred, nil
	}

	tokens, err := m.platform.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, integration.ErrReauthorizationRequired) {
			m.metrics.RecordRefresh(ctx, "reauthorization_required")
			m.logger.Error("Reauthorization required: refresh token rejected",
				zap.String("identity", m.identity),
				zap.Error(err))
			m.record(ctx, ledger.SeverityCritical,
				"accounting platform rejected the refresh token; reauthorize the integration",
				err)
			return nil, err
		}
		m.metrics.RecordRefresh(ctx, "failed")
		m.logger.Warn("Credential refresh failed", zap.Error(err))
		if !errors.Is(err, integration.ErrRefreshFailed) {
			err = fmt.Errorf("%w: %v", integration.ErrRefreshFailed, err)
		}
		return nil, err
	}

	tenantID, err := m.platform.Probe(ctx, tokens.AccessToken)
	if err != nil {
		telemetry.RecordError(span, err)
		m.metrics.RecordRefresh(ctx, "probe_failed")
		m.logger.Error("Refreshed token failed probe; not persisting", zap.Error(err))
		m.record(ctx, ledger.SeverityHigh, "refreshed access token failed the connection probe", err)
		return nil, fmt.Errorf("%w: %v", integration.ErrRefreshFailed, err)
	}
	tokens.TenantID = tenantID

	next := cred.Rotated(*tokens, now)
	if err := m.repo.UpdateTokens(ctx, next); err != nil {
		telemetry.RecordError(span, err)
		m.metrics.RecordRefresh(ctx, "persist_failed")
		m.logger.Error("Failed to persist refreshed credential", zap.Error(err))
		m.record(ctx, ledger.SeverityCritical, "refreshed tokens could not be stored", err)
		return nil, fmt.Errorf("%w: persist: %v", integration.ErrRefreshFailed, err)
	}

	m.metrics.RecordRefresh(ctx, "success")
	m.logger.Info("Credential refreshed",
		zap.String("identity", m.identity),
		zap.Time("expires_at", next.ExpiresAt))
	return next, nil
}

// WithAuth runs call with a valid credential. If the call fails with a 401
// the credential is refreshed once and the call retried once.
func (m *CredentialManager) WithAuth(ctx context.Context, call func(ctx context.Context, cred *integration.Credential) error) error {
	cred, err := m.GetValid(ctx, false)
	if err != nil {
		return err
	}

	err = call(ctx, cred)
	if err == nil || !errors.Is(err, integration.ErrUnauthorized) {
		return err
	}

	m.logger.Info("Platform rejected access token, refreshing once", zap.Error(err))

	refreshed, rerr := m.refresh(ctx, cred.AccessToken)
	if errors.Is(rerr, integration.ErrWriterLockHeld) {
		// Another writer is mid-refresh; use whatever is stored now.
		refreshed, rerr = m.Get(ctx)
		if rerr == nil && refreshed.AccessToken == cred.AccessToken {
			return err
		}
	}
	if rerr != nil {
		return rerr
	}

	return call(ctx, refreshed)
}

// Bootstrap stores a credential from a refresh token obtained out of band.
// It redeems the token, probes the result and creates or replaces the row.
func (m *CredentialManager) Bootstrap(ctx context.Context, refreshToken string) (*integration.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tokens, err := m.platform.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	tenantID, err := m.platform.Probe(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrRefreshFailed, err)
	}
	tokens.TenantID = tenantID

	now := m.now()
	existing, err := m.repo.FindByIdentity(ctx, m.identity)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		next := existing.Rotated(*tokens, now)
		if err := m.repo.UpdateTokens(ctx, next); err != nil {
			return nil, err
		}
		return next, nil
	}

	cred := integration.NewCredential(m.identity, *tokens, now)
	if err := m.repo.Create(ctx, cred); err != nil {
		return nil, err
	}
	m.logger.Info("Credential connected",
		zap.String("identity", m.identity),
		zap.String("tenant_id", tenantID))
	return cred, nil
}

// Health reports the credential state without touching it
func (m *CredentialManager) Health(ctx context.Context) (*CredentialHealth, error) {
	cred, err := m.repo.FindByIdentity(ctx, m.identity)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return &CredentialHealth{Connected: false}, nil
	}

	now := m.now()
	expiresAt := cred.ExpiresAt
	connectedAt := cred.ConnectedAt
	return &CredentialHealth{
		Connected:    true,
		TenantID:     cred.TenantID,
		ExpiresAt:    &expiresAt,
		ExpiresIn:    cred.TimeToExpiry(now).Round(time.Second).String(),
		Expired:      cred.IsExpired(now),
		NeedsRefresh: cred.NeedsRefresh(now, m.margin),
		ConnectedAt:  &connectedAt,
		RefreshedAt:  cred.RefreshedAt,
	}, nil
}

// CredentialExpiresIn feeds the credential expiry gauge
func (m *CredentialManager) CredentialExpiresIn(ctx context.Context) (time.Duration, bool, error) {
	cred, err := m.repo.FindByIdentity(ctx, m.identity)
	if err != nil || cred == nil {
		return 0, false, err
	}
	return cred.TimeToExpiry(m.now()), true, nil
}

func (m *CredentialManager) record(ctx context.Context, severity ledger.Severity, msg string, cause error) {
	if m.recorder == nil {
		return
	}
	entry := ledger.NewErrorEntry(severity, ledger.ErrorSourceCredential, msg).
		WithContext("identity", m.identity).
		WithContext("cause", cause.Error())
	if err := m.recorder.Record(ctx, entry); err != nil {
		m.logger.Error("Failed to record credential error", zap.Error(err))
	}
}
