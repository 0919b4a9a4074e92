package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v76"

	"github.com/eaarma/tour-site-sub000/internal/domain"
	"github.com/eaarma/tour-site-sub000/internal/middlewares"
	"github.com/eaarma/tour-site-sub000/internal/service"
)

// EventVerifier checks the provider's webhook signature.
type EventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type WebhookHandler struct {
	verifier   EventVerifier
	settlement *service.SettlementSvc
}

func NewWebhookHandler(verifier EventVerifier, settlement *service.SettlementSvc) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, settlement: settlement}
}

// POST /v1/webhooks/stripe
//
// Only a bad signature earns a 400. Unprocessable events (no payment
// metadata) are acknowledged with 200 so the provider stops retrying what
// can never succeed; transient handler failures return 500 so it does
// retry.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body"})
		return
	}
	evt, err := h.verifier.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("[webhook] signature rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	ev, err := service.NormalizeEvent(evt)
	if err != nil {
		if errors.Is(err, domain.ErrMissingEventMetadata) {
			log.Printf("[webhook] dropping event %s (%s): %v", evt.ID, evt.Type, err)
			middlewares.RecordSettlementEvent(string(evt.Type), false)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		middlewares.RecordSettlementEvent(string(evt.Type), false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.settlement.HandleEvent(c.Request.Context(), ev); err != nil {
		log.Printf("[webhook] handle event %s (%s): %v", ev.ID, ev.Type, err)
		middlewares.RecordSettlementEvent(ev.Type, false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	middlewares.RecordSettlementEvent(ev.Type, true)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
