package payments

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

func newPayPalServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"CREATED"}`))
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER-1/capture", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"COMPLETED","purchase_units":[{"payments":{"captures":[{"id":"CAP-9","status":"COMPLETED"}]}}]}`))
	})
	mux.HandleFunc("/v2/payments/captures/CAP-9/refund", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refund-abc", r.Header.Get("PayPal-Request-Id"))
		var body map[string]map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "50.00", body["amount"]["value"])
		assert.Equal(t, "EUR", body["amount"]["currency_code"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"REF-7","status":"COMPLETED"}`))
	})
	mux.HandleFunc("/v2/payments/captures/BROKEN/refund", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"CAPTURE_FULLY_REFUNDED"}`))
	})
	return httptest.NewServer(mux)
}

func TestPayPal_OrderCaptureRefund(t *testing.T) {
	var tokenCalls int32
	srv := newPayPalServer(t, &tokenCalls)
	defer srv.Close()

	pp := NewPayPal(srv.URL+"/", "client", "secret")
	ctx := context.Background()

	order, err := pp.CreateOrder(ctx, 50, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", order.ID)

	captured, err := pp.CaptureOrder(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", captured.Status)
	assert.Equal(t, "CAP-9", captured.CaptureID)

	receipt, err := pp.Refund(ctx, RefundRequest{PaymentReference: "CAP-9", Amount: 50, Currency: "EUR", IdempotencyKey: "refund-abc"})
	require.NoError(t, err)
	assert.Equal(t, "REF-7", receipt.Reference)
	assert.Equal(t, ProviderPayPal, receipt.Provider)

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestPayPal_RefundFailure(t *testing.T) {
	var tokenCalls int32
	srv := newPayPalServer(t, &tokenCalls)
	defer srv.Close()

	pp := NewPayPal(srv.URL, "client", "secret")
	_, err := pp.Refund(context.Background(), RefundRequest{PaymentReference: "BROKEN", Amount: 50, Currency: "EUR"})
	assert.ErrorIs(t, err, ErrGatewayFailure)
	assert.Contains(t, err.Error(), "CAPTURE_FULLY_REFUNDED")
}
