package endpoints

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/munashe04/buyza/pkg/audit"
	"github.com/munashe04/buyza/pkg/config"
	"github.com/munashe04/buyza/pkg/flow"
	"github.com/munashe04/buyza/pkg/identity"
	"github.com/munashe04/buyza/pkg/log"
	"github.com/munashe04/buyza/pkg/metrics"
	"github.com/munashe04/buyza/pkg/server"
	"github.com/munashe04/buyza/pkg/whatsapp"
)

const (
	maxWebhookBody = 1 << 20

	defaultSimulateFrom    = "263771234567"
	defaultSimulateMessage = "1"
)

// SimulateRequest is the body of POST /chatbot/simulate
type SimulateRequest struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// RegisterWebhookEndpoints registers the WhatsApp webhook and the local
// simulation endpoint, rate limited per client IP
func RegisterWebhookEndpoints(s *server.Server) {
	cfg := s.Config
	svc := s.Flow

	chatbot := s.Router.PathPrefix("/chatbot").Subrouter()
	chatbot.Use(rateLimiter(cfg.WebhookRateLimit, "webhook"))

	chatbot.HandleFunc("/webhook", handleVerify(cfg)).Methods("GET")
	chatbot.HandleFunc("/webhook", handleReceive(cfg, svc)).Methods("POST")
	chatbot.HandleFunc("/simulate", handleSimulate(svc)).Methods("POST")
}

func rateLimiter(perMinute int, route string) func(http.Handler) http.Handler {
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.IncRateLimited(route)
			respondWithText(w, http.StatusTooManyRequests, "Too many requests")
		}),
	)
}

func clientIP(r *http.Request) string {
	if ip := identity.RemoteIP(r.RemoteAddr); ip != nil {
		return ip.String()
	}
	return "-"
}

func handleVerify(cfg *config.BotConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.FromContext(r.Context())
		q := r.URL.Query()

		challenge, err := whatsapp.VerifySubscription(
			q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"), cfg.WhatsAppVerifyToken,
		)
		event := audit.WebhookEvent{Operation: audit.WebhookVerify, ClientIP: clientIP(r), Success: err == nil}
		if err != nil {
			event.Error = err.Error()
			audit.Log(event)
			metrics.IncWebhookRequest(r.Method, metrics.OutcomeFailure)
			logger.Warn().Str("mode", q.Get("hub.mode")).Msg("webhook verification failed")
			respondWithText(w, http.StatusForbidden, "Verification failed")
			return
		}

		audit.Log(event)
		metrics.IncWebhookRequest(r.Method, metrics.OutcomeSuccess)
		logger.Info().Msg("webhook verified")
		respondWithText(w, http.StatusOK, challenge)
	}
}

func handleReceive(cfg *config.BotConfig, svc *flow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.FromContext(r.Context())

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			metrics.IncWebhookRequest(r.Method, metrics.OutcomeFailure)
			respondWithText(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}

		if cfg.WhatsAppSignatureCheck {
			if cfg.WhatsAppAppSecret == "" {
				logger.Error().Msg("app secret not configured, cannot validate webhook signature")
				metrics.IncWebhookRequest(r.Method, metrics.OutcomeFailure)
				respondWithText(w, http.StatusInternalServerError, "App secret not configured")
				return
			}
			err := whatsapp.VerifySignature(body, r.Header.Get(whatsapp.SignatureHeader), cfg.WhatsAppAppSecret)
			event := audit.WebhookEvent{Operation: audit.WebhookSignature, ClientIP: clientIP(r), Success: err == nil}
			if err != nil {
				event.Error = err.Error()
				audit.Log(event)
				metrics.IncWebhookRequest(r.Method, metrics.OutcomeFailure)
				logger.Warn().Err(err).Msg("invalid webhook signature")
				respondWithText(w, http.StatusForbidden, "Invalid signature")
				return
			}
			audit.Log(event)
		}

		outcome := metrics.OutcomeSuccess
		if err := process(r.Context(), svc, body); err != nil {
			// Meta retries non-2xx deliveries, so failures are only logged
			outcome = metrics.OutcomeFailure
			logger.Error().Err(err).Msg("failed to process webhook payload")
		}
		metrics.IncWebhookRequest(r.Method, outcome)
		respondWithText(w, http.StatusOK, "EVENT_RECEIVED")
	}
}

func process(ctx context.Context, svc *flow.Service, body []byte) error {
	payload, err := whatsapp.ParsePayload(body)
	if err != nil {
		return err
	}
	// finish the conversation turn even if Meta drops the connection
	return svc.HandleIncoming(context.WithoutCancel(ctx), payload)
}

func handleSimulate(svc *flow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.FromContext(r.Context())

		req := SimulateRequest{From: defaultSimulateFrom, Message: defaultSimulateMessage}
		if err := decodeJSON(r, &req); err != nil {
			logger.Error().Err(err).Msg("invalid simulate request")
			respondWithText(w, http.StatusInternalServerError, "Simulation failed")
			return
		}
		if req.From == "" {
			req.From = defaultSimulateFrom
		}

		payload := whatsapp.SimulatedPayload(req.From, req.Message, time.Now())
		if err := svc.HandleIncoming(r.Context(), &payload); err != nil {
			var apiErr *whatsapp.APIError
			if errors.As(err, &apiErr) {
				logger.Error().Err(err).Int("status", apiErr.StatusCode).Msg("simulated reply could not be delivered")
			} else {
				logger.Error().Err(err).Msg("simulation failed")
			}
			respondWithText(w, http.StatusInternalServerError, "Simulation failed")
			return
		}
		respondWithText(w, http.StatusOK, "Simulated event processed")
	}
}
