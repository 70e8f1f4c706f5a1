package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCheckoutSession(t *testing.T) {
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		keys = append(keys, r.Header.Get("Idempotency-Key"))

		var req CheckoutRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "7", req.Metadata["userId"])
		assert.Equal(t, "3", req.Metadata["courseId"])
		assert.Len(t, req.LineItems, 1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Session{
			ID:            "cs_123",
			URL:           "https://pay.example.com/cs_123",
			Status:        "open",
			PaymentStatus: "unpaid",
			Metadata:      req.Metadata,
		})
	}))
	defer srv.Close()

	client := New(srv.URL+"/v1/", "sk_test")
	session, err := client.CreateCheckoutSession(context.Background(), CheckoutRequest{
		LineItems:  []LineItem{{Name: "Go", Amount: 4900, Currency: "usd", Quantity: 1}},
		SuccessURL: "https://academy.example.com/ok",
		CancelURL:  "https://academy.example.com/cancel",
		Metadata:   map[string]string{"userId": "7", "courseId": "3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_123", session.ID)
	assert.Equal(t, "https://pay.example.com/cs_123", session.URL)
	require.Len(t, keys, 1)
	assert.NotEmpty(t, keys[0])
}

func TestCreateCheckoutSessionProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"amount too small"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "sk_test").CreateCheckoutSession(context.Background(), CheckoutRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestRetrieveSession(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch r.URL.Path {
		case "/checkout/sessions/cs_paid":
			// first call fails to exercise the retry condition
			if n == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"cs_paid","status":"complete","payment_status":"paid","amount_total":4900,"currency":"usd","metadata":{"userId":"1","courseId":"2"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, "sk_test")

	session, err := client.RetrieveSession(context.Background(), "cs_paid")
	require.NoError(t, err)
	assert.Equal(t, "paid", session.PaymentStatus)
	assert.Equal(t, int64(4900), session.AmountTotal)
	assert.Equal(t, "1", session.Metadata["userId"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = client.RetrieveSession(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.RetrieveSession(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}
