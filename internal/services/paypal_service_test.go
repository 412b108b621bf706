package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakePayPal is an httptest-backed stand-in for the PayPal REST API.
type fakePayPal struct {
	server *httptest.Server

	tokenCalls   atomic.Int32
	orderCalls   atomic.Int32
	captureCalls atomic.Int32

	tokenStatus   int
	orderStatus   int
	orderBody     string
	captureStatus int
	captureBody   string

	lastOrder     map[string]any
	lastCapture   string
	lastAuthBasic string
	lastBearer    string
}

func newFakePayPal(t *testing.T) *fakePayPal {
	t.Helper()

	f := &fakePayPal{
		tokenStatus:   http.StatusOK,
		orderStatus:   http.StatusCreated,
		orderBody:     `{"id":"ORDER-123456789","status":"CREATED"}`,
		captureStatus: http.StatusCreated,
		captureBody:   `{"id":"ORDER-123456789","status":"COMPLETED"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		f.lastAuthBasic = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if string(body) != "grant_type=client_credentials" ||
			r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(`{"access_token":"A21AAF","token_type":"Bearer","expires_in":32400}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		f.orderCalls.Add(1)
		f.lastBearer = r.Header.Get("Authorization")
		f.lastOrder = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastOrder)
		w.WriteHeader(f.orderStatus)
		_, _ = w.Write([]byte(f.orderBody))
	})
	mux.HandleFunc("/v2/checkout/orders/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		f.captureCalls.Add(1)
		f.lastBearer = r.Header.Get("Authorization")
		f.lastCapture = r.PathValue("id")
		w.WriteHeader(f.captureStatus)
		_, _ = w.Write([]byte(f.captureBody))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePayPal) client() *PayPalClient {
	return NewPayPalClient(PayPalConfig{
		BaseURL:      f.server.URL + "/",
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
	}, NewMemoryTokenStore(), zap.NewNop())
}

func TestPayPalAuthenticate(t *testing.T) {
	f := newFakePayPal(t)
	c := f.client()

	token, err := c.Authenticate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "A21AAF", token)
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("test-client-id:test-client-secret"))
	assert.Equal(t, want, f.lastAuthBasic)
}

func TestPayPalAuthenticateFailure(t *testing.T) {
	f := newFakePayPal(t)
	f.tokenStatus = http.StatusUnauthorized
	c := f.client()

	_, err := c.Authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGateway)
	assert.NotContains(t, err.Error(), "A21AAF")
}

func TestPayPalCreateOrder(t *testing.T) {
	f := newFakePayPal(t)
	c := f.client()

	orderID, err := c.CreateOrder(context.Background(), 100.0, "USD", "Test Order")
	require.NoError(t, err)

	assert.Equal(t, "ORDER-123456789", orderID)
	assert.Equal(t, "Bearer A21AAF", f.lastBearer)
	assert.Equal(t, "CAPTURE", f.lastOrder["intent"])

	units := f.lastOrder["purchase_units"].([]any)
	require.Len(t, units, 1)
	unit := units[0].(map[string]any)
	assert.Equal(t, "Test Order", unit["description"])
	amount := unit["amount"].(map[string]any)
	assert.Equal(t, "USD", amount["currency_code"])
	assert.Equal(t, "100", amount["value"])
}

func TestPayPalCreateOrderOmitsEmptyDescription(t *testing.T) {
	f := newFakePayPal(t)
	c := f.client()

	_, err := c.CreateOrder(context.Background(), 10.25, "EUR", "")
	require.NoError(t, err)

	unit := f.lastOrder["purchase_units"].([]any)[0].(map[string]any)
	_, hasDescription := unit["description"]
	assert.False(t, hasDescription)
	assert.Equal(t, "10.25", unit["amount"].(map[string]any)["value"])
}

func TestPayPalCreateOrderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "malformed body", status: http.StatusCreated, body: `{"id":`},
		{name: "missing id", status: http.StatusCreated, body: `{"status":"CREATED"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakePayPal(t)
			f.orderStatus = tt.status
			f.orderBody = tt.body

			_, err := f.client().CreateOrder(context.Background(), 1, "USD", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGateway)
			assert.EqualValues(t, 1, f.orderCalls.Load())
		})
	}
}

func TestPayPalCapturePayment(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    CaptureOutcome
		wantErr bool
	}{
		{name: "completed", status: http.StatusCreated, body: `{"status":"COMPLETED"}`, want: CaptureCaptured},
		{name: "failed status", status: http.StatusCreated, body: `{"status":"FAILED"}`, want: CaptureDeclined},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, body: `{"name":"UNPROCESSABLE_ENTITY"}`, want: CaptureDeclined},
		{name: "server error", status: http.StatusServiceUnavailable, body: ``, want: CaptureIndeterminate, wantErr: true},
		{name: "malformed body", status: http.StatusCreated, body: `not json`, want: CaptureIndeterminate, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakePayPal(t)
			f.captureStatus = tt.status
			f.captureBody = tt.body

			outcome, err := f.client().CapturePayment(context.Background(), "ORDER-123456789")

			assert.Equal(t, tt.want, outcome)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrGateway)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "ORDER-123456789", f.lastCapture)
		})
	}
}

func TestPayPalCaptureTransportErrorIsIndeterminate(t *testing.T) {
	f := newFakePayPal(t)
	c := f.client()

	// Warm the token cache, then take the gateway away.
	_, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	f.server.Close()

	outcome, err := c.CapturePayment(context.Background(), "ORDER-123456789")

	assert.Equal(t, CaptureIndeterminate, outcome)
	assert.False(t, outcome.Succeeded())
	assert.ErrorIs(t, err, ErrGateway)
}

func TestPayPalReusesCachedToken(t *testing.T) {
	f := newFakePayPal(t)
	c := f.client()
	ctx := context.Background()

	_, err := c.CreateOrder(ctx, 5, "USD", "")
	require.NoError(t, err)
	_, err = c.CapturePayment(ctx, "ORDER-123456789")
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.tokenCalls.Load())
}

func TestPayPalUnauthorizedDropsToken(t *testing.T) {
	f := newFakePayPal(t)
	c := f.client()
	ctx := context.Background()

	f.captureStatus = http.StatusUnauthorized
	outcome, err := c.CapturePayment(ctx, "ORDER-1")
	assert.Equal(t, CaptureIndeterminate, outcome)
	assert.Error(t, err)

	f.captureStatus = http.StatusCreated
	outcome, err = c.CapturePayment(ctx, "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, CaptureCaptured, outcome)
	assert.EqualValues(t, 2, f.tokenCalls.Load())
}

func TestPayPalName(t *testing.T) {
	c := NewPayPalClient(PayPalConfig{}, NewMemoryTokenStore(), zap.NewNop())
	assert.Equal(t, "PayPal", c.Name())
	assert.Equal(t, c.Name(), c.Name())
}
