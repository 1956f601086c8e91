package integration

import (
	"context"
	"errors"

	"github.com/club19/salesos/internal/domain/integration"
	"go.uber.org/zap"
)

// CredentialRefreshJob keeps the credential ahead of its expiry margin.
// It is registered only in the designated writer process.
type CredentialRefreshJob struct {
	manager *CredentialManager
	logger  *zap.Logger
}

// NewCredentialRefreshJob creates a new CredentialRefreshJob
func NewCredentialRefreshJob(manager *CredentialManager, logger *zap.Logger) *CredentialRefreshJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialRefreshJob{manager: manager, logger: logger}
}

// Name identifies the job in scheduler logs
func (j *CredentialRefreshJob) Name() string {
	return "credential_refresh"
}

// Run refreshes the credential when its margin is breached. Not being
// connected and needing reauthorization are reported but not retried, since
// neither resolves without a human.
func (j *CredentialRefreshJob) Run(ctx context.Context) error {
	cred, err := j.manager.GetValid(ctx, true)
	switch {
	case err == nil:
		j.logger.Debug("Credential checked", zap.Time("expires_at", cred.ExpiresAt))
		return nil
	case errors.Is(err, integration.ErrNotConnected):
		j.logger.Warn("Integration not connected; nothing to refresh")
		return nil
	case errors.Is(err, integration.ErrReauthorizationRequired):
		return nil
	case errors.Is(err, integration.ErrWriterLockHeld):
		j.logger.Debug("Another writer holds the refresh lock")
		return nil
	default:
		return err
	}
}
