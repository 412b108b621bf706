package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	payPalGatewayName    = "PayPal"
	payPalStatusCaptured = "COMPLETED"
)

// PayPalConfig holds REST API credentials.
type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// PayPalClient talks to the PayPal Orders v2 API.
type PayPalClient struct {
	cfg        PayPalConfig
	httpClient *http.Client
	tokens     *TokenSource
	logger     *zap.Logger
}

func NewPayPalClient(cfg PayPalConfig, store TokenStore, logger *zap.Logger) *PayPalClient {
	c := &PayPalClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
	c.cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c.tokens = NewTokenSource("paypal:"+cfg.ClientID, store, c.fetchToken, logger)
	return c
}

type payPalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type payPalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type payPalPurchaseUnit struct {
	Amount      payPalAmount `json:"amount"`
	Description string       `json:"description,omitempty"`
}

type payPalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []payPalPurchaseUnit `json:"purchase_units"`
}

type payPalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Name returns the constant gateway label.
func (c *PayPalClient) Name() string {
	return payPalGatewayName
}

// Authenticate returns a bearer token, reusing a cached one while valid.
func (c *PayPalClient) Authenticate(ctx context.Context) (string, error) {
	return c.tokens.Token(ctx)
}

func (c *PayPalClient) fetchToken(ctx context.Context) (string, time.Duration, error) {
	credentials := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", 0, fmt.Errorf("%w: build paypal token request: %v", ErrGateway, err)
	}
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req)
	if err != nil {
		return "", 0, err
	}
	if status < 200 || status >= 300 {
		c.logger.Error("paypal token request failed", zap.Int("status", status), zap.ByteString("body", body))
		return "", 0, fmt.Errorf("%w: paypal token request failed: status %d", ErrGateway, status)
	}

	var tokenResp payPalTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", 0, fmt.Errorf("%w: unmarshal paypal token response: %v", ErrGateway, err)
	}
	if tokenResp.AccessToken == "" {
		return "", 0, fmt.Errorf("%w: paypal token response missing access_token", ErrGateway)
	}

	return tokenResp.AccessToken, time.Duration(tokenResp.ExpiresIn) * time.Second, nil
}

// CreateOrder creates a CAPTURE-intent order with a single purchase unit.
func (c *PayPalClient) CreateOrder(ctx context.Context, amount float64, currency, description string) (string, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return "", err
	}

	payload := payPalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []payPalPurchaseUnit{{
			Amount: payPalAmount{
				CurrencyCode: currency,
				Value:        formatAmount(amount),
			},
			Description: description,
		}},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal paypal order: %v", ErrGateway, err)
	}

	req, err := c.newAPIRequest(ctx, "/v2/checkout/orders", token, bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	status, body, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized {
		c.tokens.Invalidate(ctx)
	}
	if status < 200 || status >= 300 {
		c.logger.Error("paypal create order failed", zap.Int("status", status), zap.ByteString("body", body))
		return "", fmt.Errorf("%w: paypal create order failed: status %d", ErrGateway, status)
	}

	var orderResp payPalOrderResponse
	if err := json.Unmarshal(body, &orderResp); err != nil {
		return "", fmt.Errorf("%w: unmarshal paypal order response: %v", ErrGateway, err)
	}
	if orderResp.ID == "" {
		return "", fmt.Errorf("%w: paypal order response missing id", ErrGateway)
	}

	return orderResp.ID, nil
}

// CapturePayment captures orderID. COMPLETED maps to CaptureCaptured and any
// other answered status to CaptureDeclined. Failures to obtain an answer map
// to CaptureIndeterminate.
func (c *PayPalClient) CapturePayment(ctx context.Context, orderID string) (CaptureOutcome, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return CaptureIndeterminate, err
	}

	req, err := c.newAPIRequest(ctx, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", token, nil)
	if err != nil {
		return CaptureIndeterminate, err
	}

	status, body, err := c.do(req)
	if err != nil {
		return CaptureIndeterminate, err
	}

	switch {
	case status == http.StatusUnauthorized:
		c.tokens.Invalidate(ctx)
		return CaptureIndeterminate, fmt.Errorf("%w: paypal capture unauthorized", ErrGateway)
	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return CaptureIndeterminate, fmt.Errorf("%w: paypal capture failed: status %d", ErrGateway, status)
	case status >= 400:
		c.logger.Warn("paypal declined capture",
			zap.String("order_id", orderID),
			zap.Int("status", status),
			zap.ByteString("body", body))
		return CaptureDeclined, nil
	}

	var captureResp payPalOrderResponse
	if err := json.Unmarshal(body, &captureResp); err != nil {
		return CaptureIndeterminate, fmt.Errorf("%w: unmarshal paypal capture response: %v", ErrGateway, err)
	}

	if captureResp.Status == payPalStatusCaptured {
		return CaptureCaptured, nil
	}
	return CaptureDeclined, nil
}

func (c *PayPalClient) newAPIRequest(ctx context.Context, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build paypal request: %v", ErrGateway, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and returns the status and full body. Only transport
// failures are errors.
func (c *PayPalClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("%w: paypal request %s: %v", ErrGateway, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read paypal response: %v", ErrGateway, err)
	}
	return resp.StatusCode, body, nil
}

// formatAmount renders amount as the shortest exact decimal string, never in
// exponent form.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
