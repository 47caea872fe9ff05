package middleware

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	webhookSecretPrefix  = "whsec_"
	webhookMaxBody       = 1 << 20
	webhookTimestampSkew = 5 * time.Minute
)

var (
	errWebhookHeaders   = errors.New("missing webhook signature headers")
	errWebhookTimestamp = errors.New("webhook timestamp outside tolerance")
	errWebhookSignature = errors.New("no matching webhook signature")
)

const webhookVerifiedKey contextKey = "webhook_verified"

// WebhookVerified reports whether WebhookSignature checked the request's
// signature. It is false when no secret is configured.
func WebhookVerified(ctx context.Context) bool {
	ok, _ := ctx.Value(webhookVerifiedKey).(bool)
	return ok
}

// WebhookSignature verifies the webhook-id, webhook-timestamp and
// webhook-signature headers sent with prediction callbacks. An empty secret
// disables verification and leaves the request unmarked.
func WebhookSignature(secret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	key := webhookKey(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == nil {
				next.ServeHTTP(w, r)
				return
			}
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookMaxBody))
			if err != nil {
				writeDetail(w, http.StatusRequestEntityTooLarge, "Webhook body too large")
				return
			}
			if err := verifyWebhook(key, r.Header, body, time.Now()); err != nil {
				logger.Warn().Err(err).Str("webhook_id", r.Header.Get("webhook-id")).Msg("webhook rejected")
				writeDetail(w, http.StatusUnauthorized, "Invalid webhook signature")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), webhookVerifiedKey, true)))
		})
	}
}

// SignWebhook produces a webhook-signature header value for the payload.
func SignWebhook(secret, id string, ts time.Time, body []byte) string {
	return "v1," + webhookHMAC(webhookKey(secret), id, strconv.FormatInt(ts.Unix(), 10), body)
}

func webhookKey(secret string) []byte {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	raw := strings.TrimPrefix(secret, webhookSecretPrefix)
	if key, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return key
	}
	return []byte(raw)
}

func webhookHMAC(key []byte, id, ts string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + ts + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func verifyWebhook(key []byte, h http.Header, body []byte, now time.Time) error {
	id := h.Get("webhook-id")
	ts := h.Get("webhook-timestamp")
	signatures := h.Get("webhook-signature")
	if id == "" || ts == "" || signatures == "" {
		return errWebhookHeaders
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errWebhookTimestamp
	}
	if skew := now.Sub(time.Unix(unix, 0)); skew > webhookTimestampSkew || skew < -webhookTimestampSkew {
		return errWebhookTimestamp
	}

	expected := []byte(webhookHMAC(key, id, ts, body))
	for _, candidate := range strings.Fields(signatures) {
		_, sig, ok := strings.Cut(candidate, ",")
		if !ok {
			continue
		}
		if hmac.Equal(expected, []byte(sig)) {
			return nil
		}
	}
	return errWebhookSignature
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
