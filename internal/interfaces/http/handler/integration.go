package handler

import (
	"context"

	appintegration "github.com/club19/salesos/internal/application/integration"
	"github.com/gin-gonic/gin"
)

// CredentialHealthReader reports the integration credential state
type CredentialHealthReader interface {
	Health(ctx context.Context) (*appintegration.CredentialHealth, error)
}

// IntegrationHandler exposes read-only integration status
type IntegrationHandler struct {
	BaseHandler
	credentials CredentialHealthReader
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(credentials CredentialHealthReader) *IntegrationHandler {
	return &IntegrationHandler{credentials: credentials}
}

// CredentialHealth godoc
// @ID           getCredentialHealth
// @Summary      Integration credential health
// @Description  Reports whether the platform is connected and when the access token expires.
// @Description  Tokens are never returned.
// @Tags         integration
// @Produce      json
// @Success      200 {object}  APIResponse[appintegration.CredentialHealth]
// @Failure      500 {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /integration/credential/health [get]
func (h *IntegrationHandler) CredentialHealth(c *gin.Context) {
	health, err := h.credentials.Health(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, health)
}
