// Package gateway validates prediction submissions, composes the request for
// the selected model template, and translates remote failures into the
// service's error contract.
package gateway

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nhoon2002/Next-Replicate/internal/domain"
	"github.com/nhoon2002/Next-Replicate/internal/infra"
)

const (
	defaultSourcePrompt     = "a photo"
	defaultPromptPairTarget = "a high quality photo"
	defaultVideoPrompt      = "Generate a video from this image"
	defaultImagePrompt      = "Enhance this image with better quality and details"
	webhookPath             = "/api/webhooks"
)

// WebhookEvents are the callback events requested when a webhook is attached.
var WebhookEvents = []string{"start", "completed"}

// Params carries caller-supplied values for one submission.
type Params struct {
	Prompt       string
	Image        string
	StartImage   string
	SourcePrompt string
	TargetPrompt string
	// Overrides replace template defaults key by key. Family-specific fields
	// are applied afterwards and always win.
	Overrides map[string]any
}

// PredictionAPI is the remote create/get contract the gateway forwards to.
type PredictionAPI interface {
	CreatePrediction(ctx context.Context, req domain.JobRequest) (*domain.Prediction, error)
	GetPrediction(ctx context.Context, id string) (*domain.Prediction, error)
}

// Options configures a Gateway.
type Options struct {
	API            PredictionAPI
	WebhookBaseURL string
	Logger         *infra.Logger
}

// Gateway is the job submission front door.
type Gateway struct {
	api        PredictionAPI
	webhookURL string
	logger     *infra.Logger
}

// New wires a gateway. An empty WebhookBaseURL disables webhook registration.
func New(opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	var webhookURL string
	if base := strings.TrimRight(strings.TrimSpace(opts.WebhookBaseURL), "/"); base != "" {
		webhookURL = base + webhookPath
	}
	return &Gateway{api: opts.API, webhookURL: webhookURL, logger: logger}
}

// WebhookURL returns the callback URL attached to submissions, if any.
func (g *Gateway) WebhookURL() string {
	return g.webhookURL
}

// ResolveModelID trims the requested model id and falls back to the default
// model when none was given.
func ResolveModelID(modelID string) string {
	if modelID = strings.TrimSpace(modelID); modelID == "" {
		return domain.DefaultModelID
	}
	return modelID
}

// Compose validates the submission and builds the outgoing request without
// contacting the remote service.
func (g *Gateway) Compose(modelID string, params Params) (domain.JobRequest, error) {
	if params.Image == "" && params.StartImage == "" {
		return domain.JobRequest{}, domain.ErrImageRequired
	}
	modelID = ResolveModelID(modelID)
	tmpl, ok := domain.LookupModel(modelID)
	if !ok {
		return domain.JobRequest{}, domain.ErrInvalidModel
	}

	input := tmpl.DefaultParams()
	for k, v := range params.Overrides {
		input[k] = v
	}

	switch tmpl.Family {
	case domain.ModelFamilyPromptPair:
		input["image"] = firstNonEmpty(params.Image, params.StartImage)
		input["source_prompt"] = firstNonEmpty(params.SourcePrompt, defaultSourcePrompt)
		input["target_prompt"] = firstNonEmpty(params.TargetPrompt, params.Prompt, defaultPromptPairTarget)
	case domain.ModelFamilyVideo:
		input["start_image"] = firstNonEmpty(params.StartImage, params.Image)
		input["prompt"] = firstNonEmpty(params.Prompt, defaultVideoPrompt)
	default:
		input["image"] = firstNonEmpty(params.Image, params.StartImage)
		input["prompt"] = firstNonEmpty(params.Prompt, defaultImagePrompt)
	}

	req := domain.JobRequest{Version: tmpl.Version, Input: input}
	if g.webhookURL != "" {
		req.Webhook = g.webhookURL
		req.WebhookEventsFilter = append([]string(nil), WebhookEvents...)
	}
	return req, nil
}

// Submit validates, composes, and forwards a job. Errors are always one of
// *domain.ValidationError, *domain.RemoteError or *domain.InternalError.
func (g *Gateway) Submit(ctx context.Context, modelID string, params Params) (*domain.Prediction, error) {
	req, err := g.Compose(modelID, params)
	if err != nil {
		return nil, err
	}
	prediction, err := g.api.CreatePrediction(ctx, req)
	if err != nil {
		g.logger.Error().Err(err).Str("model", modelID).Msg("gateway: create prediction failed")
		return nil, &domain.InternalError{Cause: err}
	}
	if msg := prediction.ErrorMessage(); msg != "" {
		return nil, &domain.RemoteError{Message: msg}
	}
	g.logger.Info().
		Str("model", modelID).
		Str("prediction_id", prediction.ID).
		Str("status", string(prediction.Status)).
		Msg("gateway: prediction submitted")
	return prediction, nil
}

// Status fetches the current snapshot of a prediction. A failed job is a
// successful query: the snapshot carries the failed status and its error.
func (g *Gateway) Status(ctx context.Context, id string) (*domain.Prediction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrPredictionIDEmpty
	}
	prediction, err := g.api.GetPrediction(ctx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		g.logger.Error().Err(err).Str("prediction_id", id).Msg("gateway: get prediction failed")
		return nil, &domain.InternalError{Cause: err}
	}
	return prediction, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
