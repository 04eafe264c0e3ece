package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the production API root
const DefaultBaseURL = "https://api.razorpay.com/v1"

// ErrNotConfigured is returned when no API keys are set
var ErrNotConfigured = errors.New("razorpay keys not configured")

// Client represents a Razorpay orders client
type Client struct {
	BaseURL    string
	KeyID      string
	KeySecret  string
	HTTPClient *http.Client
	MaxRetries int
	// Backoff returns the wait before retry attempt n (1-based)
	Backoff func(attempt int) time.Duration
	Log     zerolog.Logger
}

// NewClient creates a new Razorpay client
func NewClient(baseURL, keyID, keySecret string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		KeyID:      keyID,
		KeySecret:  keySecret,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		MaxRetries: 3,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
		Log: log,
	}
}

// Configured reports whether both keys are present
func (c *Client) Configured() bool {
	return c.KeyID != "" && c.KeySecret != ""
}

// OrderRequest is the body of POST /orders. Amount is in paise.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order represents an order returned by the API
type Order struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	AmountDue int64  `json:"amount_due"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode  int
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("razorpay: status %d: %s (%s)", e.StatusCode, e.Description, e.Code)
	}
	return fmt.Sprintf("razorpay: status %d", e.StatusCode)
}

// CreateOrder creates an order for rupees whole rupees
func (c *Client) CreateOrder(ctx context.Context, rupees int64, currency, receipt string) (*Order, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if rupees <= 0 {
		return nil, fmt.Errorf("CreateOrder: amount must be positive, got %d", rupees)
	}
	if currency == "" {
		currency = "INR"
	}

	jsonData, err := json.Marshal(OrderRequest{Amount: rupees * 100, Currency: currency, Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("CreateOrder: failed to marshal JSON: %w", err)
	}

	respBody, status, err := c.post(ctx, c.BaseURL+"/orders", jsonData)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		apiErr := &APIError{StatusCode: status}
		var wrapper struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(respBody, &wrapper) == nil && wrapper.Error != nil {
			apiErr.Code = wrapper.Error.Code
			apiErr.Description = wrapper.Error.Description
		}
		return nil, apiErr
	}

	var order Order
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("CreateOrder: failed to unmarshal response: %w, body: %s", err, string(respBody))
	}
	c.Log.Info().Str("order_id", order.ID).Int64("amount_paise", order.Amount).Msg("Razorpay order created")
	return &order, nil
}

// post sends body, retrying transport failures and 5xx responses with exponential backoff
func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	maxRetries := c.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, 0, fmt.Errorf("CreateOrder: failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBasicAuth(c.KeyID, c.KeySecret)

		resp, err := c.HTTPClient.Do(req)
		if err == nil {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = readErr
			case resp.StatusCode >= 500:
				lastErr = &APIError{StatusCode: resp.StatusCode}
			default:
				return respBody, resp.StatusCode, nil
			}
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}

		if attempt < maxRetries {
			// Wait before retrying with exponential backoff
			wait := c.Backoff(attempt)
			c.Log.Warn().Err(lastErr).Int("attempt", attempt).Dur("retry_in", wait).Msg("Razorpay request failed, retrying")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			}
		}
	}

	return nil, 0, fmt.Errorf("CreateOrder: failed to send request after %d attempts: %w", maxRetries, lastErr)
}
