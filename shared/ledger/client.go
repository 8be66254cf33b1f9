// Package ledger is the bridge to the external escrow service
// ("Keeper") that actually holds and moves money. The marketplace
// only needs three operations: hold funds at job creation, release a
// hold on approval, void a hold (with a partial refund) on
// cancellation.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskpin/taskpin-be/internal/api/domain"
)

// Config holds ledger client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// ServiceToken authenticates release/void calls made without an
	// agent credential at hand (reconciliation retries).
	ServiceToken string
}

// Client is an HTTP client for the Keeper escrow API.
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a ledger client with a bounded per-request timeout.
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:      config.BaseURL,
		serviceToken: config.ServiceToken,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// HoldRequest funds an escrow hold against the agent's balance.
type HoldRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	// AgentKey is the credential the agent presented; Keeper debits
	// the balance belonging to that credential.
	AgentKey string `json:"-"`
}

type holdResponse struct {
	HoldID string `json:"hold_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Hold reserves funds and returns the hold id. Fails hard with
// insufficient_funds or upstream_unavailable; callers must abort job
// creation on error.
func (c *Client) Hold(ctx context.Context, req HoldRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal hold request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/holds", req.AgentKey, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var hr holdResponse
		if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
			return "", domain.Wrap(domain.KindUpstreamUnavailable, "ledger returned malformed hold response", err)
		}
		return hr.HoldID, nil
	case http.StatusPaymentRequired, http.StatusUnprocessableEntity:
		return "", domain.E(domain.KindInsufficientFunds, "insufficient funds for escrow hold")
	default:
		return "", c.upstreamError("hold", resp)
	}
}

// Release settles a hold to the worker side. Callers treat failures
// as best-effort: log, enqueue for reconciliation, and move on.
func (c *Client) Release(ctx context.Context, holdID string) error {
	path := fmt.Sprintf("/v1/holds/%s/release", holdID)

	resp, err := c.do(ctx, http.MethodPost, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.upstreamError("release", resp)
	}

	return nil
}

// Void cancels a hold, refunding refundPercent of it to the agent.
// Best-effort, like Release.
func (c *Client) Void(ctx context.Context, holdID string, refundPercent int) error {
	path := fmt.Sprintf("/v1/holds/%s/void", holdID)

	body, err := json.Marshal(map[string]int{"refund_percent": refundPercent})
	if err != nil {
		return fmt.Errorf("failed to marshal void request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.upstreamError("void", resp)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path, credential string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if credential == "" {
		credential = c.serviceToken
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.KindUpstreamUnavailable, "ledger unreachable", err)
	}

	return resp, nil
}

func (c *Client) upstreamError(op string, resp *http.Response) error {
	var er errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&er)

	c.logger.Error("Ledger request failed",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.String("error", er.Error),
	)

	return domain.E(domain.KindUpstreamUnavailable,
		fmt.Sprintf("ledger %s failed with status %d", op, resp.StatusCode))
}
