package ledger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpin/taskpin-be/internal/api/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&Config{
		BaseURL:      srv.URL,
		Timeout:      2 * time.Second,
		ServiceToken: "service-secret",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHold_Success(t *testing.T) {
	var gotAuth string
	var gotBody HoldRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/holds", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"hold_id": "hold-42"})
	})

	holdID, err := client.Hold(context.Background(), HoldRequest{
		AmountCents: 1500,
		Currency:    "USD",
		Reference:   "job-1",
		AgentKey:    "agent-key-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "hold-42", holdID)
	// Holds are debited against the agent's own credential.
	assert.Equal(t, "Bearer agent-key-1", gotAuth)
	assert.Equal(t, int64(1500), gotBody.AmountCents)
	assert.Equal(t, "job-1", gotBody.Reference)
}

func TestHold_InsufficientFunds(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]string{"error": "balance too low"})
	})

	_, err := client.Hold(context.Background(), HoldRequest{AmountCents: 1500, Currency: "USD", Reference: "job-1"})

	require.Error(t, err)
	assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))
}

func TestHold_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Hold(context.Background(), HoldRequest{AmountCents: 1500, Currency: "USD", Reference: "job-1"})

	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
}

func TestHold_Unreachable(t *testing.T) {
	client := NewClient(&Config{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Timeout: 200 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.Hold(context.Background(), HoldRequest{AmountCents: 1500, Currency: "USD", Reference: "job-1"})

	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
}

func TestRelease(t *testing.T) {
	var gotPath, gotAuth string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.Release(context.Background(), "hold-42"))
	assert.Equal(t, "/v1/holds/hold-42/release", gotPath)
	// Settlement calls run under the service credential.
	assert.Equal(t, "Bearer service-secret", gotAuth)
}

func TestRelease_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.Release(context.Background(), "hold-42")
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
}

func TestVoid(t *testing.T) {
	var gotPath string
	var gotBody map[string]int

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.Void(context.Background(), "hold-7", 50))
	assert.Equal(t, "/v1/holds/hold-7/void", gotPath)
	assert.Equal(t, 50, gotBody["refund_percent"])
}

func TestVoid_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.Void(context.Background(), "hold-7", 100)
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
}
