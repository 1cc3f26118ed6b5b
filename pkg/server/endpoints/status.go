package endpoints

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/munashe04/buyza/pkg/log"
	"github.com/munashe04/buyza/pkg/server"
	"github.com/munashe04/buyza/pkg/server/store"
)

const (
	serviceName  = "buyza-whatsapp-bot"
	checkTimeout = 3 * time.Second
)

// StatusResponse is the body of GET /
type StatusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Liveness  string            `json:"liveness"`
	Readiness string            `json:"readiness"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// RegisterStatusEndpoints registers the status page and health check
func RegisterStatusEndpoints(s *server.Server) {
	checks := readinessChecks(s.HealthStore, s.Checks)

	s.Router.HandleFunc("/", handleStatus()).Methods("GET")
	s.Router.HandleFunc("/health", handleHealth(checks)).Methods("GET")
}

func version() string {
	if v := os.Getenv("BUYZA_VERSION"); v != "" {
		return v
	}
	return "1.0.0"
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

const statusPage = `# Buyza WhatsApp Bot

The bot is **running**.

| Item | Value |
|---|---|
| Version | %s |
| Service | %s |

Health: [/health](/health) · Metrics: [/metrics](/metrics)
`

func handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept"), "text/html") {
			respondWithJSON(w, http.StatusOK, StatusResponse{
				Message: "Buyza WhatsApp Bot is running",
				Status:  "operational",
				Version: version(),
			})
			return
		}

		var body bytes.Buffer
		body.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>Buyza Status</title></head>\n<body>\n")
		if err := markdown.Convert([]byte(fmt.Sprintf(statusPage, version(), serviceName)), &body); err != nil {
			logger := log.FromContext(r.Context())
			logger.Error().Err(err).Msg("failed to render status page")
			http.Error(w, "failed to render status page", http.StatusInternalServerError)
			return
		}
		body.WriteString("</body>\n</html>\n")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(body.Bytes())
	}
}

func readinessChecks(healthStore store.HealthStore, extra []server.Check) []server.Check {
	var checks []server.Check
	if healthStore != nil {
		checks = append(checks, server.Check{
			Name: "database",
			Check: func(context.Context) error {
				return healthStore.CheckConnectivity()
			},
		})
	}
	return append(checks, extra...)
}

func handleHealth(checks []server.Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		response := HealthResponse{
			Status:    "UP",
			Liveness:  "CORRECT",
			Readiness: "ACCEPTING_TRAFFIC",
			Service:   serviceName,
		}
		code := http.StatusOK

		for _, c := range checks {
			if response.Checks == nil {
				response.Checks = make(map[string]string, len(checks))
			}
			if err := c.Check(ctx); err != nil {
				logger := log.FromContext(ctx)
				logger.Warn().Err(err).Str("check", c.Name).Msg("readiness check failed")
				response.Checks[c.Name] = "DOWN"
				response.Readiness = "REFUSING_TRAFFIC"
				code = http.StatusServiceUnavailable
				continue
			}
			response.Checks[c.Name] = "UP"
		}

		respondWithJSON(w, code, response)
	}
}
