package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/shohag/cimonitor/internal/models"
	"github.com/shohag/cimonitor/internal/signing"
	"github.com/shohag/cimonitor/internal/storage"
)

const (
	eventHeader    = "X-GitHub-Event"
	deliveryHeader = "X-GitHub-Delivery"

	ackBody = "Event received"
)

type WebhookHandler struct {
	store  storage.Storage
	secret string
	log    zerolog.Logger
	now    func() time.Time
}

// NewWebhookHandler returns the receiver. An empty secret disables
// X-Hub-Signature-256 verification.
func NewWebhookHandler(store storage.Storage, secret string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		store:  store,
		secret: secret,
		log:    log,
		now:    time.Now,
	}
}

// Receive stores the request as an Event and acknowledges it. Bodies that
// are not JSON are kept under the "raw" key and still acknowledged with 200.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to read webhook body")
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if h.secret != "" {
		if err := signing.Verify(h.secret, body, r.Header.Get(signing.HeaderName)); err != nil {
			h.log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("webhook signature rejected")
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	var eventType *string
	if values := r.Header.Values(eventHeader); len(values) > 0 {
		v := values[0]
		eventType = &v
	}

	payload := models.PayloadFromBody(body)
	event := models.NewEvent(h.now(), eventType, payload)

	// A client hanging up after sending the body must not lose the event.
	ctx := context.WithoutCancel(r.Context())
	if err := h.store.Append(ctx, &event); err != nil {
		h.log.Error().Err(err).Str("event_type", event.Type()).Msg("failed to store webhook event")
		writeError(w, http.StatusInternalServerError, "failed to store event")
		return
	}

	h.log.Info().
		Str("event_type", event.Type()).
		Str("delivery_id", r.Header.Get(deliveryHeader)).
		Str("payload_kind", payload.Kind().String()).
		Int("bytes", len(body)).
		Msg("webhook event stored")

	writeText(w, http.StatusOK, ackBody)
}
