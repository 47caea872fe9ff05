package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status  string `json:"status"`
	Ledger  bool   `json:"ledger"`
	Webhook bool   `json:"webhook"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Ledger:  a.Ledger != nil,
		Webhook: a.Gateway != nil && a.Gateway.WebhookURL() != "",
	})
}
