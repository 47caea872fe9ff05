package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhoon2002/Next-Replicate/internal/domain"
	"github.com/nhoon2002/Next-Replicate/internal/gateway"
	"github.com/nhoon2002/Next-Replicate/internal/tracker"
)

// App holds the dependencies shared by the HTTP handlers.
type App struct {
	Gateway      *gateway.Gateway
	// Ledger is optional; without it nothing is persisted.
	Ledger       domain.PredictionLedger
	PollInterval time.Duration
	Logger       zerolog.Logger
}

func NewApp(gw *gateway.Gateway, ledger domain.PredictionLedger, pollInterval time.Duration, logger zerolog.Logger) *App {
	if pollInterval <= 0 {
		pollInterval = tracker.DefaultInterval
	}
	return &App{
		Gateway:      gw,
		Ledger:       ledger,
		PollInterval: pollInterval,
		Logger:       logger,
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, detail string) {
	a.json(w, code, errorResponse{Detail: detail})
}

// fail renders err using the service's error contract. Only validation and
// remote messages reach the caller verbatim.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr *domain.ValidationError
		rErr *domain.RemoteError
	)
	switch {
	case errors.As(err, &vErr):
		a.error(w, http.StatusBadRequest, vErr.Message)
	case errors.As(err, &rErr):
		a.error(w, http.StatusInternalServerError, rErr.Message)
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, http.StatusInternalServerError, domain.InternalErrorMessage)
	}
}

// record stores a snapshot in the ledger. Ledger failures never fail the request.
func (a *App) record(ctx context.Context, modelID, source string, p *domain.Prediction) {
	if a.Ledger == nil || p == nil {
		return
	}
	if err := a.Ledger.Record(context.WithoutCancel(ctx), modelID, source, p); err != nil {
		a.Logger.Warn().Err(err).Str("prediction_id", p.ID).Str("source", source).Msg("ledger record failed")
	}
}
