package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the subset of the processor's payment resource we rely on.
type Payment struct {
	ID                 json.Number     `json:"id"`
	Status             string          `json:"status"`
	StatusDetail       string          `json:"status_detail"`
	ExternalReference  string          `json:"external_reference"`
	TransactionAmount  decimal.Decimal `json:"transaction_amount"`
	PaymentMethodID    string          `json:"payment_method_id"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

type Payer struct {
	Email string `json:"email"`
}

type PreferenceItem struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CurrencyID string          `json:"currency_id"`
}

// MarshalJSON sends UnitPrice as a JSON number; the processor rejects
// quoted amounts.
func (i PreferenceItem) MarshalJSON() ([]byte, error) {
	type plain PreferenceItem
	return json.Marshal(struct {
		plain
		UnitPrice json.Number `json:"unit_price"`
	}{plain(i), amount(i.UnitPrice)})
}

type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url"`
	Payer             *Payer           `json:"payer,omitempty"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type PaymentRequest struct {
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Description       string          `json:"description"`
	PaymentMethodID   string          `json:"payment_method_id"`
	ExternalReference string          `json:"external_reference"`
	NotificationURL   string          `json:"notification_url"`
	Payer             Payer           `json:"payer"`
}

func (r PaymentRequest) MarshalJSON() ([]byte, error) {
	type plain PaymentRequest
	return json.Marshal(struct {
		plain
		TransactionAmount json.Number `json:"transaction_amount"`
	}{plain(r), amount(r.TransactionAmount)})
}

func amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// APIError is returned for non-2xx processor responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment api: status %d: %s", e.Status, e.Message)
}

// Client talks to the processor REST API. Every call authenticates with the
// access token of the partner that owns the payment.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) GetPayment(ctx context.Context, token, id string) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), token, "", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePreference(ctx context.Context, token string, req PreferenceRequest) (*Preference, error) {
	var p Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", token, "", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayment creates a direct payment. Reusing idempotencyKey makes the
// processor return the payment created by the first call.
func (c *Client) CreatePayment(ctx context.Context, token string, req PaymentRequest, idempotencyKey string) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodPost, "/v1/payments", token, idempotencyKey, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path, token, idempotencyKey string, in, out any) error {
	if token == "" {
		return fmt.Errorf("payment api: missing access token")
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment api request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
