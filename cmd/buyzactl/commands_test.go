package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munashe04/buyza/pkg/server/middleware"
)

func TestIssueToken(t *testing.T) {
	token, err := issueToken("admin-secret", "tendai", time.Hour)
	require.NoError(t, err)

	id, err := middleware.NewJWTAuthenticator([]byte("admin-secret")).Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "tendai", id.Agent)

	_, err = issueToken("", "tendai", time.Hour)
	assert.ErrorContains(t, err, "BUYZA_ADMIN_JWT_SECRET")

	_, err = issueToken("admin-secret", "tendai", 0)
	assert.ErrorContains(t, err, "ttl must be positive")
}

func TestWaitForServer(t *testing.T) {
	t.Run("ready after retries", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		var out bytes.Buffer
		require.NoError(t, waitForServer(&out, srv.URL+"/health", 5, time.Millisecond))
		assert.Equal(t, 3, calls)
		assert.Contains(t, out.String(), "Buyza is ready!")
	})

	t.Run("gives up", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		var out bytes.Buffer
		err := waitForServer(&out, srv.URL+"/health", 2, time.Millisecond)
		assert.ErrorContains(t, err, "not ready after 2 attempts")
	})
}

func TestParseSteps(t *testing.T) {
	steps, err := parseSteps(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	steps, err = parseSteps([]string{"3"})
	require.NoError(t, err)
	assert.Equal(t, 3, steps)

	for _, bad := range []string{"0", "-1", "two"} {
		_, err := parseSteps([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestWithMigrationsTable(t *testing.T) {
	assert.Equal(t, "", withMigrationsTable(""))
	assert.Equal(t,
		"postgres://localhost/buyza?x-migrations-table=buyza_schema_migrations",
		withMigrationsTable("postgres://localhost/buyza"))
	assert.Equal(t,
		"postgres://localhost/buyza?sslmode=disable&x-migrations-table=buyza_schema_migrations",
		withMigrationsTable("postgres://localhost/buyza?sslmode=disable"))
}

func TestShowConfiguration(t *testing.T) {
	t.Setenv("BUYZA_CONFIG_PATH", t.TempDir())
	t.Setenv("WHATSAPP_ACCESS_TOKEN", "very-secret-token")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "sheet-123")

	var text bytes.Buffer
	require.NoError(t, showConfiguration(&text, "text"))
	assert.Contains(t, text.String(), "sheet-123")
	assert.NotContains(t, text.String(), "very-secret-token")

	var out bytes.Buffer
	require.NoError(t, showConfiguration(&out, "json"))
	var parsed struct {
		Attributes []struct {
			Name   string `json:"name"`
			Value  string `json:"value"`
			Source string `json:"source"`
		} `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &parsed))
	found := false
	for _, a := range parsed.Attributes {
		if a.Name == "sheets_spreadsheet_id" {
			found = true
			assert.Equal(t, "sheet-123", a.Value)
			assert.Equal(t, "environment", a.Source)
		}
	}
	assert.True(t, found)

	assert.Error(t, showConfiguration(&out, "xml"))
}

func TestSimulateRemote(t *testing.T) {
	var got simulateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chatbot/simulate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("Simulated event processed"))
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, simulateRemote(t.Context(), &out, srv.URL+"/", "263771234567", "hi"))
	assert.Equal(t, simulateRequest{From: "263771234567", Message: "hi"}, got)
	assert.Equal(t, "Simulated event processed\n", out.String())
}

func TestSimulateRemote_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Simulation failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := simulateRemote(t.Context(), &bytes.Buffer{}, srv.URL, "263771234567", "hi")
	assert.ErrorContains(t, err, "server returned 500: Simulation failed")
}

func TestSimulateOffline(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, simulateOffline(t.Context(), strings.NewReader(""), &out, "263771234567", "hi"))
	assert.Contains(t, out.String(), "bot -> 263771234567:")
	assert.Contains(t, out.String(), "Welcome to Buyza")
}

func TestSimulateOffline_Stdin(t *testing.T) {
	in := strings.NewReader("hi\n\n1\nOrder: Shoes R850 Delivery: Gweru\n")

	var out bytes.Buffer
	require.NoError(t, simulateOffline(t.Context(), in, &out, "263771234567", "-"))
	assert.Contains(t, out.String(), "Online Order")
	assert.Contains(t, out.String(), "R1115.00")
}
