// Package tracker polls a submitted prediction until it reaches a terminal
// state, reporting every observed snapshot to an observer.
package tracker

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhoon2002/Next-Replicate/internal/domain"
	"github.com/nhoon2002/Next-Replicate/internal/infra"
)

// DefaultInterval is the fixed delay between status queries.
const DefaultInterval = 250 * time.Millisecond

// ErrPollLimit is returned when an optional MaxPolls bound is exhausted.
var ErrPollLimit = errors.New("tracker: poll limit reached")

// Fetcher queries the current snapshot of a prediction.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*domain.Prediction, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id string) (*domain.Prediction, error)

func (f FetcherFunc) Fetch(ctx context.Context, id string) (*domain.Prediction, error) {
	return f(ctx, id)
}

// Update is delivered to the observer once per observed snapshot.
type Update struct {
	State State
	// Prediction is the last successfully fetched snapshot.
	Prediction *domain.Prediction
	// Err is set only when State is StateTransportError.
	Err *domain.TransportError
}

// Result is the outcome of a tracking loop.
type Result struct {
	State      State
	Prediction *domain.Prediction
	Polls      int
}

// Options configures a Controller.
type Options struct {
	Fetcher  Fetcher
	Interval time.Duration
	// MaxPolls bounds the number of status queries. Zero means unbounded.
	MaxPolls int
	Logger   *infra.Logger
	// Sleep overrides the wait between polls; tests use it to avoid real time.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Controller runs tracking loops. It holds no per-job state and is safe for
// concurrent use by independent jobs.
type Controller struct {
	fetcher  Fetcher
	interval time.Duration
	maxPolls int
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *infra.Logger
}

// New builds a Controller with defaults applied.
func New(opts Options) *Controller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Controller{
		fetcher:  opts.Fetcher,
		interval: interval,
		maxPolls: opts.MaxPolls,
		sleep:    sleep,
		logger:   logger,
	}
}

// Track polls initial until it is terminal. onUpdate may be nil. A transport
// failure ends the loop with a *domain.TransportError; context cancellation
// ends it with the context error. In both cases the Result holds the last
// good snapshot.
func (c *Controller) Track(ctx context.Context, initial *domain.Prediction, onUpdate func(Update)) (*Result, error) {
	if initial == nil || initial.ID == "" {
		return nil, errors.New("tracker: initial prediction with id is required")
	}
	notify := func(u Update) {
		if onUpdate != nil {
			onUpdate(u)
		}
	}

	id := initial.ID
	res := &Result{State: Classify(initial.Status), Prediction: initial}
	notify(Update{State: res.State, Prediction: res.Prediction})

	for !res.State.Terminal() {
		if c.maxPolls > 0 && res.Polls >= c.maxPolls {
			return res, ErrPollLimit
		}
		if err := c.sleep(ctx, c.interval); err != nil {
			return res, err
		}
		res.Polls++
		snap, err := c.fetcher.Fetch(ctx, id)
		if err != nil && ctx.Err() != nil {
			return res, ctx.Err()
		}
		next := Next(res.State, snap, err)
		if next == StateTransportError {
			tErr := toTransportError(err)
			res.State = next
			c.logger.Warn().
				Str("prediction_id", id).
				Int("polls", res.Polls).
				Int("status_code", tErr.StatusCode).
				Msg("tracker: status query failed")
			notify(Update{State: next, Prediction: res.Prediction, Err: tErr})
			return res, tErr
		}
		if snap.ID == "" {
			snap.ID = id
		}
		res.State = next
		res.Prediction = snap
		c.logger.Debug().
			Str("prediction_id", id).
			Str("status", string(snap.Status)).
			Str("state", next.String()).
			Msg("tracker: snapshot")
		notify(Update{State: next, Prediction: snap})
	}
	return res, nil
}

func toTransportError(err error) *domain.TransportError {
	var tErr *domain.TransportError
	if errors.As(err, &tErr) {
		return tErr
	}
	if err == nil {
		return &domain.TransportError{Detail: "empty status response"}
	}
	return &domain.TransportError{Detail: err.Error()}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
