// Package api implements the HTTP client for the remote ledger service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joshsymonds/coalesce/internal/model"
)

// Error is a failure returned by the ledger API. Status is the HTTP status
// code; Message is the server-provided message when present.
type Error struct {
	Message string
	Status  int
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger API error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("ledger API error %d", e.Status)
}

// IsNotFound reports whether err represents a 404 from the ledger. Errors
// from intermediaries may carry the status only in their text, so the
// string form is checked as well.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return true
	}
	return strings.Contains(err.Error(), "404")
}

// ErrorMessage extracts a human-readable message from a ledger failure,
// preferring the server-provided message over the error's string form.
func ErrorMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// Client talks to the remote ledger API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Config holds configuration for the ledger client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewClient creates a new ledger API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ledger base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// GetTransaction fetches a single transaction by ID.
func (c *Client) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	var txn model.Transaction
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/transactions/%d", id), nil, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

// mergeResponse mirrors the loosely-typed merge reply. The id field may be
// absent, a number, or a string.
type mergeResponse struct {
	ID json.RawMessage `json:"id"`
}

// MergeTransactions merges the given transactions into one. The new merged
// ID is narrowed at this boundary: anything that does not parse as an
// integer is treated as absent.
func (c *Client) MergeTransactions(ctx context.Context, ids []int64, note string) (*model.MergeReceipt, error) {
	body := map[string]any{"ids": ids}
	if note != "" {
		body["note"] = note
	}

	var resp mergeResponse
	if err := c.do(ctx, http.MethodPost, "/transactions/merge", body, &resp); err != nil {
		return nil, err
	}

	receipt := &model.MergeReceipt{}
	if id, ok := parseLooseID(resp.ID); ok {
		receipt.NewID = id
		receipt.HasNewID = true
	}
	return receipt, nil
}

// parseLooseID extracts an integer ID from a raw JSON value that may be a
// number, a numeric string, or anything else entirely.
func parseLooseID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	s := strings.Trim(string(raw), `"`)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// GetExplanation fetches the categorization rationale for a transaction.
func (c *Client) GetExplanation(ctx context.Context, id int64) (*model.Explanation, error) {
	var exp model.Explanation
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/transactions/%d/explanation", id), nil, &exp); err != nil {
		return nil, err
	}
	return &exp, nil
}

// Categorize asks the ledger for a category suggestion.
func (c *Client) Categorize(ctx context.Context, id int64) (*model.Suggestion, error) {
	var suggestion model.Suggestion
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/transactions/%d/categorize", id), nil, &suggestion); err != nil {
		return nil, err
	}
	return &suggestion, nil
}

// ApplyCategory records an accepted category suggestion.
func (c *Client) ApplyCategory(ctx context.Context, id int64, category string) error {
	body := map[string]any{"category": category}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/transactions/%d/category", id), body, nil)
}

// ListUncategorized returns transactions without a category.
func (c *Client) ListUncategorized(ctx context.Context) ([]model.Transaction, error) {
	var txns []model.Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions?uncategorized=true", nil, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

// do performs one request against the ledger API, decoding a JSON response
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &Error{
			Status:  resp.StatusCode,
			Message: extractMessage(respBody),
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// extractMessage pulls the optional message field out of an error body.
func extractMessage(body []byte) string {
	var errBody struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errBody); err != nil {
		return ""
	}
	return errBody.Message
}
