package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhoon2002/Next-Replicate/internal/domain"
	"github.com/nhoon2002/Next-Replicate/internal/gateway"
)

// Uploaded images arrive inline as data URIs.
const maxPredictionBody = 25 << 20

type createPredictionRequest struct {
	Model        string         `json:"model"`
	Prompt       string         `json:"prompt"`
	Image        string         `json:"image"`
	StartImage   string         `json:"start_image"`
	SourcePrompt string         `json:"source_prompt"`
	TargetPrompt string         `json:"target_prompt"`
	Params       map[string]any `json:"params"`
}

type modelResponse struct {
	ID      string             `json:"id"`
	Label   string             `json:"label"`
	Family  domain.ModelFamily `json:"family"`
	Version string             `json:"version"`
}

type ledgerEntryResponse struct {
	ID        string                  `json:"id"`
	Model     string                  `json:"model,omitempty"`
	Version   string                  `json:"version,omitempty"`
	Status    domain.PredictionStatus `json:"status"`
	Output    json.RawMessage         `json:"output,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Source    string                  `json:"source"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// CreatePrediction submits a job and answers 201 with the remote snapshot.
func (a *App) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	var req createPredictionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictionBody)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		a.error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	modelID := gateway.ResolveModelID(req.Model)
	prediction, err := a.Gateway.Submit(r.Context(), modelID, gateway.Params{
		Prompt:       req.Prompt,
		Image:        req.Image,
		StartImage:   req.StartImage,
		SourcePrompt: req.SourcePrompt,
		TargetPrompt: req.TargetPrompt,
		Overrides:    req.Params,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.record(r.Context(), modelID, "submit", prediction)
	a.json(w, http.StatusCreated, prediction)
}

// GetPrediction returns the current remote snapshot.
func (a *App) GetPrediction(w http.ResponseWriter, r *http.Request) {
	prediction, err := a.Gateway.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.record(r.Context(), "", "status", prediction)
	a.json(w, http.StatusOK, prediction)
}

// ListPredictions returns recently observed predictions from the ledger.
func (a *App) ListPredictions(w http.ResponseWriter, r *http.Request) {
	out := make([]ledgerEntryResponse, 0)
	if a.Ledger == nil {
		a.json(w, http.StatusOK, map[string]any{"predictions": out})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.Ledger.ListRecent(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	for _, e := range entries {
		out = append(out, ledgerEntryResponse{
			ID:        e.ID,
			Model:     e.ModelID,
			Version:   e.Version,
			Status:    e.Status,
			Output:    json.RawMessage(e.Output),
			Error:     e.Error,
			Source:    e.Source,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"predictions": out})
}

// ListModels describes the model templates a caller can submit against.
func (a *App) ListModels(w http.ResponseWriter, r *http.Request) {
	models := domain.Models()
	out := make([]modelResponse, 0, len(models))
	for _, m := range models {
		out = append(out, modelResponse{ID: m.ID, Label: m.Label, Family: m.Family, Version: m.Version})
	}
	a.json(w, http.StatusOK, map[string]any{"models": out, "default": domain.DefaultModelID})
}
