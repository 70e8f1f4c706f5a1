// Package gateway is the REST client for the hosted checkout provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// ErrNotFound is returned when the provider does not know a session id
var ErrNotFound = errors.New("gateway: checkout session not found")

// Session is the provider's view of a checkout session
type Session struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	Status            string            `json:"status"`         // open, complete, expired
	PaymentStatus     string            `json:"payment_status"` // paid, unpaid, no_payment_required
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

// Event is the webhook envelope posted by the provider
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object Session `json:"object"`
	} `json:"data"`
}

type LineItem struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`
}

// CheckoutRequest creates a hosted checkout session
type CheckoutRequest struct {
	LineItems         []LineItem        `json:"line_items"`
	SuccessURL        string            `json:"success_url"`
	CancelURL         string            `json:"cancel_url"`
	ClientReferenceID string            `json:"client_reference_id,omitempty"`
	Metadata          map[string]string `json:"metadata"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the provider API with the secret key
type Client struct {
	http *resty.Client
}

// New returns a client that retries transport errors and 5xx responses twice
func New(baseURL, secretKey string) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(secretKey).
		SetHeader("Accept", "application/json").
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: httpClient}
}

// CreateCheckoutSession starts a hosted checkout. Retries reuse one
// Idempotency-Key so the provider creates at most one session.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	var session Session
	var failure apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(req).
		SetResult(&session).
		SetError(&failure).
		Post("/checkout/sessions")
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create checkout session: provider returned %d: %s", resp.StatusCode(), failure.Error.Message)
	}
	if session.ID == "" {
		return nil, errors.New("create checkout session: provider returned no session id")
	}
	return &session, nil
}

// RetrieveSession fetches the authoritative state of a checkout session
func (c *Client) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}

	var session Session
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&session).
		Get("/checkout/sessions/{id}")
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("retrieve checkout session: provider returned %d", resp.StatusCode())
	}
	return &session, nil
}
