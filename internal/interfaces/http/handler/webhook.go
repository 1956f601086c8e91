package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/club19/salesos/internal/application/reconciliation"
	"github.com/club19/salesos/internal/infrastructure/logger"
	"github.com/club19/salesos/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookReceiver processes one authenticated delivery
type WebhookReceiver interface {
	HandleWebhook(ctx context.Context, delivery reconciliation.WebhookDelivery) (*reconciliation.ReconciliationResult, error)
	MaxPayloadBytes() int64
}

// WebhookHandler receives accounting platform webhooks. The endpoint is
// authenticated by the payload signature, never by a bearer token.
type WebhookHandler struct {
	BaseHandler
	receiver WebhookReceiver
	log      *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(receiver WebhookReceiver, log *zap.Logger) *WebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookHandler{receiver: receiver, log: log}
}

// WebhookResponse is the acknowledgement body
// @Description Webhook acknowledgement with per-delivery counts
type WebhookResponse struct {
	Received bool   `json:"received" example:"true"`
	Message  string `json:"message,omitempty" example:"Invalid signature"`
	*reconciliation.ReconciliationResult
}

// HandleXeroWebhook godoc
// @ID           handleXeroWebhook
// @Summary      Receive accounting platform webhook
// @Description  Verifies the HMAC-SHA256 signature over the raw body and reconciles invoice events.
// @Description  Every authenticated delivery is acknowledged with 200, including partial failures,
// @Description  so the platform does not retry; failures land in the error log instead.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Xero-Signature  header  string  true   "Base64 HMAC-SHA256 of the raw body"
// @Param        X-Xero-Event-Id   header  string  false  "Delivery id used for idempotency"
// @Success      200 {object}  WebhookResponse
// @Failure      401 {object}  WebhookResponse
// @Failure      413 {object}  WebhookResponse
// @Router       /webhooks/xero [post]
func (h *WebhookHandler) HandleXeroWebhook(c *gin.Context) {
	limit := h.receiver.MaxPayloadBytes()
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Failed to read request body"})
		return
	}
	if int64(len(body)) > limit {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
		return
	}

	result, err := h.receiver.HandleWebhook(c.Request.Context(), reconciliation.WebhookDelivery{
		Body:      body,
		Signature: c.GetHeader(middleware.WebhookSignatureHeader),
		EventID:   c.GetHeader(middleware.WebhookEventIDHeader),
	})
	switch {
	case errors.Is(err, reconciliation.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, WebhookResponse{Message: "Invalid signature"})
		return
	case errors.Is(err, reconciliation.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
		return
	case err != nil:
		// Retrying would not help; the failure is already in the error log.
		logger.WithTrace(c.Request.Context(), h.log).Error("Webhook processing failed",
			zap.Error(err), zap.String("request_id", getRequestID(c)))
		c.JSON(http.StatusOK, WebhookResponse{Received: true, Message: "Received with processing errors"})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{Received: true, ReconciliationResult: result})
}
