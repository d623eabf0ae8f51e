package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const ProviderPayPal = "paypal"

type PayPalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CapturedOrder is the subset of PayPal's capture response we keep. CaptureID is
// the reference refunds are issued against.
type CapturedOrder struct {
	OrderID   string
	Status    string
	CaptureID string
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type PayPal struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	tokenMu     sync.RWMutex
	token       string
	tokenExpiry time.Time
}

func NewPayPal(baseURL, clientID, clientSecret string) *PayPal {
	return &PayPal{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.tokenMu.RLock()
	if p.token != "" && time.Now().Before(p.tokenExpiry) {
		token := p.token
		p.tokenMu.RUnlock()
		return token, nil
	}
	p.tokenMu.RUnlock()

	p.tokenMu.Lock()
	defer p.tokenMu.Unlock()

	if p.token != "" && time.Now().Before(p.tokenExpiry) {
		return p.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: failed to get access token, status: %s", ErrGatewayFailure, resp.Status)
	}

	var tokenResp accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	p.token = tokenResp.AccessToken
	// refresh a minute before PayPal expires it
	p.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)
	return p.token, nil
}

func (p *PayPal) do(ctx context.Context, method, path string, payload any, headers map[string]string, out any, okStatus ...int) error {
	accessToken, err := p.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrGatewayFailure, method, path, err)
	}
	defer resp.Body.Close()

	accepted := false
	for _, code := range okStatus {
		if resp.StatusCode == code {
			accepted = true
			break
		}
	}
	if !accepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrGatewayFailure, method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s response: %v", ErrGatewayFailure, path, err)
		}
	}
	return nil
}

func (p *PayPal) CreateOrder(ctx context.Context, amount float64, currency string) (*PayPalOrder, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"amount": map[string]string{
					"currency_code": currency,
					"value":         formatAmount(amount),
				},
			},
		},
	}

	var order PayPalOrder
	if err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, nil, &order, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}
	return &order, nil
}

func (p *PayPal) CaptureOrder(ctx context.Context, orderID string) (*CapturedOrder, error) {
	var resp captureResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID)
	if err := p.do(ctx, http.MethodPost, path, nil, nil, &resp, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}

	captured := &CapturedOrder{OrderID: resp.ID, Status: resp.Status}
	for _, unit := range resp.PurchaseUnits {
		for _, c := range unit.Payments.Captures {
			if c.ID != "" {
				captured.CaptureID = c.ID
				break
			}
		}
	}
	return captured, nil
}

// Refund returns the full captured amount. The idempotency key is sent as
// PayPal-Request-Id so a retried call cannot refund twice on PayPal's side.
func (p *PayPal) Refund(ctx context.Context, req RefundRequest) (RefundReceipt, error) {
	payload := map[string]any{
		"amount": map[string]string{
			"currency_code": req.Currency,
			"value":         formatAmount(req.Amount),
		},
	}
	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["PayPal-Request-Id"] = req.IdempotencyKey
	}

	var resp refundResponse
	path := fmt.Sprintf("/v2/payments/captures/%s/refund", req.PaymentReference)
	if err := p.do(ctx, http.MethodPost, path, payload, headers, &resp, http.StatusCreated, http.StatusOK); err != nil {
		return RefundReceipt{}, err
	}
	return RefundReceipt{Reference: resp.ID, Provider: ProviderPayPal}, nil
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
