package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nhoon2002/Next-Replicate/internal/domain"
	"github.com/nhoon2002/Next-Replicate/internal/middleware"
)

const maxWebhookBody = 1 << 20

// PredictionWebhook receives lifecycle callbacks from the prediction service.
// Signature checks run in middleware. Only verified callbacks reach the
// ledger; unsigned ones are acknowledged and dropped.
func (a *App) PredictionWebhook(w http.ResponseWriter, r *http.Request) {
	var prediction domain.Prediction
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&prediction); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if prediction.ID == "" {
		a.error(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	verified := middleware.WebhookVerified(r.Context())
	a.Logger.Info().
		Str("prediction_id", prediction.ID).
		Str("status", string(prediction.Status)).
		Str("webhook_id", r.Header.Get("webhook-id")).
		Bool("verified", verified).
		Msg("webhook received")
	if verified {
		a.record(r.Context(), "", "webhook", &prediction)
	}
	a.json(w, http.StatusOK, map[string]string{"status": "received"})
}
