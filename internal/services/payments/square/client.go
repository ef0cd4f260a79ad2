// Package square implements the payments.Client interface against the Square
// Payments API.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heritagebox/chat-service/internal/services/payments"
)

const (
	productionBaseURL = "https://connect.squareup.com"
	sandboxBaseURL    = "https://connect.squareupsandbox.com"
	apiVersion        = "2024-02-15"
)

// ClientConfig holds the Square client configuration.
type ClientConfig struct {
	// BaseURL overrides the Square endpoint (for tests).
	BaseURL     string
	AccessToken string
	LocationID  string
	// Environment selects production or sandbox when BaseURL is empty.
	Environment string
	HTTPClient  *http.Client
}

// Client implements payments.Client for Square.
type Client struct {
	baseURL     string
	accessToken string
	locationID  string
	httpClient  *http.Client
}

// NewClient creates a new Square payments client.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.AccessToken == "" {
		return nil, fmt.Errorf("square access token is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		if config.Environment == "sandbox" {
			baseURL = sandboxBaseURL
		} else {
			baseURL = productionBaseURL
		}
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		baseURL:     baseURL,
		accessToken: config.AccessToken,
		locationID:  config.LocationID,
		httpClient:  httpClient,
	}, nil
}

type createPaymentRequest struct {
	SourceID       string      `json:"source_id"`
	IdempotencyKey string      `json:"idempotency_key"`
	AmountMoney    amountMoney `json:"amount_money"`
	LocationID     string      `json:"location_id,omitempty"`
	Autocomplete   bool        `json:"autocomplete"`
	Note           string      `json:"note,omitempty"`
}

type amountMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type paymentPayload struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	AmountMoney amountMoney `json:"amount_money"`
	ReceiptURL  string      `json:"receipt_url"`
	Note        string      `json:"note"`
	CreatedAt   string      `json:"created_at"`
}

type paymentResponse struct {
	Payment *paymentPayload `json:"payment"`
	Errors  []squareError   `json:"errors"`
}

type squareError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

// CreatePayment charges the tokenized card via POST /v2/payments. Each call
// uses a fresh idempotency key; retrying a failed charge is a new attempt,
// never a replay of the old one.
func (c *Client) CreatePayment(ctx context.Context, sourceToken string, amountCents int64, currency, note string) (*payments.Payment, error) {
	if sourceToken == "" {
		return nil, fmt.Errorf("source token is required")
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amountCents)
	}
	if currency == "" {
		currency = "USD"
	}

	body, err := json.Marshal(createPaymentRequest{
		SourceID:       sourceToken,
		IdempotencyKey: "hb-" + uuid.NewString(),
		AmountMoney:    amountMoney{Amount: amountCents, Currency: currency},
		LocationID:     c.locationID,
		Autocomplete:   true,
		Note:           note,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	result, err := c.do(ctx, http.MethodPost, "/v2/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetPayment fetches payment state via GET /v2/payments/{id}.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*payments.Payment, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required")
	}
	return c.do(ctx, http.MethodGet, "/v2/payments/"+paymentID, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*payments.Payment, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Square-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var result paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if len(result.Errors) > 0 {
		first := result.Errors[0]
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && first.Category != "AUTHENTICATION_ERROR" {
			return nil, &payments.CardError{Code: first.Code, Detail: first.Detail}
		}
		return nil, fmt.Errorf("square API error (status %d): %s: %s", resp.StatusCode, first.Code, first.Detail)
	}
	if resp.StatusCode >= 400 || result.Payment == nil {
		return nil, fmt.Errorf("square API returned status %d without payment", resp.StatusCode)
	}

	p := result.Payment
	return &payments.Payment{
		ID:          p.ID,
		Status:      p.Status,
		AmountCents: p.AmountMoney.Amount,
		Currency:    p.AmountMoney.Currency,
		ReceiptURL:  p.ReceiptURL,
		Note:        p.Note,
		CreatedAt:   p.CreatedAt,
	}, nil
}
