package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhoon2002/Next-Replicate/internal/domain"
	"github.com/nhoon2002/Next-Replicate/internal/tracker"
)

type streamError struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code,omitempty"`
}

// StreamPrediction polls a prediction server-side and pushes every snapshot
// as a Server-Sent Event until it settles. Disconnecting stops the polling.
func (a *App) StreamPrediction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	initial, err := a.Gateway.Status(ctx, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(event string, v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			a.Logger.Error().Err(err).Str("event", event).Msg("encode stream event")
			return
		}
		fmt.Fprintf(w, "event: %s\n", event)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		_ = rc.Flush()
	}

	ctrl := tracker.New(tracker.Options{
		Fetcher:  tracker.FetcherFunc(a.Gateway.Status),
		Interval: a.PollInterval,
		Logger:   &a.Logger,
	})
	_, err = ctrl.Track(ctx, initial, func(u tracker.Update) {
		if u.Err != nil {
			send("error", streamError{Detail: u.Err.Error(), StatusCode: u.Err.StatusCode})
			return
		}
		if u.State.Terminal() {
			a.record(ctx, "", "stream", u.Prediction)
			send("done", u.Prediction)
			return
		}
		send("update", u.Prediction)
	})

	var tErr *domain.TransportError
	switch {
	case err == nil:
	case errors.As(err, &tErr):
		// already delivered as an error event
	case ctx.Err() != nil:
		a.Logger.Debug().Str("prediction_id", initial.ID).Msg("stream client disconnected")
	default:
		a.Logger.Error().Err(err).Str("prediction_id", initial.ID).Msg("stream tracking failed")
	}
}
