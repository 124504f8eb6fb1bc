package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/models"
)

func TestMidtransService_ValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  *MidtransConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  &MidtransConfig{ServerKey: "test-server-key", ClientKey: "test-client-key"},
			wantErr: false,
		},
		{
			name:    "missing server key",
			config:  &MidtransConfig{ClientKey: "test-client-key"},
			wantErr: true,
		},
		{
			name:    "missing client key",
			config:  &MidtransConfig{ServerKey: "test-server-key"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := NewMidtransService(tt.config)
			err := ms.ValidateConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// snapTransport sends Snap API calls to a local test server.
type snapTransport struct {
	target *url.URL
}

func (rt snapTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newSnapTestService(t *testing.T, handler http.HandlerFunc) *MidtransService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	target, err := url.Parse(server.URL)
	require.NoError(t, err)

	ms := NewMidtransService(&MidtransConfig{ServerKey: "test-server-key", ClientKey: "test-client-key"})
	ms.snap.HttpClient = &midtrans.HttpClientImplementation{
		HttpClient: &http.Client{Transport: snapTransport{target: target}},
		Logger:     midtrans.GetDefaultLogger(midtrans.Sandbox),
	}
	return ms
}

func TestMidtransService_CreateSession(t *testing.T) {
	var got snap.Request
	ms := newSnapTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/snap/v1/transactions", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "test-server-key", user)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"snap-abc","redirect_url":"https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-abc"}`))
	})

	session, err := ms.CreateSession(context.Background(), SessionRequest{
		GatewayOrderID: "ORD-20240315-001-abcd1234",
		Amount:         77000,
		CustomerName:   "Budi",
		CustomerEmail:  "budi@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "snap-abc", session.Token)
	assert.Equal(t, "https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-abc", session.RedirectURL)
	assert.Equal(t, "ORD-20240315-001-abcd1234", session.GatewayOrderID)

	assert.Equal(t, "ORD-20240315-001-abcd1234", got.TransactionDetails.OrderID)
	assert.Equal(t, int64(77000), got.TransactionDetails.GrossAmt)
	require.NotNil(t, got.CustomerDetail)
	assert.Equal(t, "Budi", got.CustomerDetail.FName)
	assert.Equal(t, "budi@example.com", got.CustomerDetail.Email)
}

func TestMidtransService_CreateSessionRejected(t *testing.T) {
	ms := newSnapTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_messages":["transaction_details.order_id has already been taken"]}`))
	})

	_, err := ms.CreateSession(context.Background(), SessionRequest{GatewayOrderID: "ORD-20240315-001-abcd1234", Amount: 77000})
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = ms.CreateSession(context.Background(), SessionRequest{Amount: 77000})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMidtransService_QueryStatus(t *testing.T) {
	tests := []struct {
		name           string
		orderID        string
		mockResponse   string
		mockStatusCode int
		wantStatus     TransactionStatus
		wantUpstream   bool
	}{
		{
			name:           "settlement",
			orderID:        "ORD-20240101-001-abcd1234",
			mockResponse:   `{"status_code":"200","order_id":"ORD-20240101-001-abcd1234","transaction_id":"trx-1","transaction_status":"settlement","payment_type":"qris","gross_amount":"15000.00"}`,
			mockStatusCode: http.StatusOK,
			wantStatus:     TxSettlement,
		},
		{
			name:           "pending",
			orderID:        "ORD-20240101-002-abcd1234",
			mockResponse:   `{"status_code":"201","order_id":"ORD-20240101-002-abcd1234","transaction_status":"pending"}`,
			mockStatusCode: http.StatusOK,
			wantStatus:     TxPending,
		},
		{
			name:           "unknown transaction via body",
			orderID:        "ORD-20240101-003-abcd1234",
			mockResponse:   `{"status_code":"404","status_message":"Transaction doesn't exist."}`,
			mockStatusCode: http.StatusOK,
			wantStatus:     TxNotFound,
		},
		{
			name:           "unknown transaction via http status",
			orderID:        "ORD-20240101-004-abcd1234",
			mockResponse:   `{}`,
			mockStatusCode: http.StatusNotFound,
			wantStatus:     TxNotFound,
		},
		{
			name:           "server error",
			orderID:        "ORD-20240101-005-abcd1234",
			mockResponse:   `{"status_code":"500"}`,
			mockStatusCode: http.StatusInternalServerError,
			wantUpstream:   true,
		},
		{
			name:           "error code in body",
			orderID:        "ORD-20240101-006-abcd1234",
			mockResponse:   `{"status_code":"401","status_message":"Unauthorized"}`,
			mockStatusCode: http.StatusOK,
			wantUpstream:   true,
		},
		{
			name:           "malformed body",
			orderID:        "ORD-20240101-007-abcd1234",
			mockResponse:   `not json`,
			mockStatusCode: http.StatusOK,
			wantUpstream:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v2/"+tt.orderID+"/status" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
					t.Errorf("missing basic auth header")
				}
				w.WriteHeader(tt.mockStatusCode)
				w.Write([]byte(tt.mockResponse))
			}))
			defer server.Close()

			ms := NewMidtransService(&MidtransConfig{
				ServerKey: "test-server-key",
				BaseURL:   server.URL,
			})

			status, err := ms.QueryStatus(context.Background(), tt.orderID)
			if tt.wantUpstream {
				if !errors.Is(err, ErrUpstream) {
					t.Fatalf("QueryStatus() error = %v, want ErrUpstream", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("QueryStatus() unexpected error: %v", err)
			}
			if status.TransactionStatus != tt.wantStatus {
				t.Errorf("QueryStatus() status = %v, want %v", status.TransactionStatus, tt.wantStatus)
			}
		})
	}
}

func TestMidtransService_QueryStatusWithoutKey(t *testing.T) {
	ms := NewMidtransService(&MidtransConfig{BaseURL: "http://127.0.0.1:1"})
	if _, err := ms.QueryStatus(context.Background(), "x"); !errors.Is(err, ErrUpstream) {
		t.Errorf("QueryStatus() error = %v, want ErrUpstream", err)
	}
}

func TestMidtransService_ValidateSignature(t *testing.T) {
	const serverKey = "test-server-key"
	valid := SignNotification(serverKey, "test-order-1", "200", "10000.00")

	tests := []struct {
		name        string
		orderID     string
		statusCode  string
		grossAmount string
		signature   string
		serverKey   string
		wantValid   bool
	}{
		{"valid signature", "test-order-1", "200", "10000.00", valid, serverKey, true},
		{"uppercase hex accepted", "test-order-1", "200", "10000.00", strings.ToUpper(valid), serverKey, true},
		{"tampered amount", "test-order-1", "200", "1.00", valid, serverKey, false},
		{"wrong key", "test-order-1", "200", "10000.00", valid, "other-key", false},
		{"empty signature", "test-order-1", "200", "10000.00", "", serverKey, false},
		{"no server key", "test-order-1", "200", "10000.00", valid, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := NewMidtransService(&MidtransConfig{ServerKey: tt.serverKey})
			if got := ms.ValidateSignature(tt.orderID, tt.statusCode, tt.grossAmount, tt.signature); got != tt.wantValid {
				t.Errorf("ValidateSignature() = %v, want %v", got, tt.wantValid)
			}
		})
	}
}

func TestIsPaid(t *testing.T) {
	tests := []struct {
		status GatewayStatus
		want   bool
	}{
		{GatewayStatus{TransactionStatus: TxSettlement}, true},
		{GatewayStatus{TransactionStatus: TxCapture, FraudStatus: "accept"}, true},
		{GatewayStatus{TransactionStatus: TxCapture}, true},
		{GatewayStatus{TransactionStatus: TxCapture, FraudStatus: "challenge"}, false},
		{GatewayStatus{TransactionStatus: TxCapture, FraudStatus: "deny"}, false},
		{GatewayStatus{TransactionStatus: TxPending}, false},
		{GatewayStatus{TransactionStatus: TxExpire}, false},
		{GatewayStatus{TransactionStatus: TxNotFound}, false},
		{GatewayStatus{TransactionStatus: TxRefund}, false},
	}
	for _, tt := range tests {
		if got := IsPaid(tt.status); got != tt.want {
			t.Errorf("IsPaid(%s/%s) = %v, want %v", tt.status.TransactionStatus, tt.status.FraudStatus, got, tt.want)
		}
	}
}

func TestParseTransactionStatus(t *testing.T) {
	tests := map[string]TransactionStatus{
		"settlement":     TxSettlement,
		" Capture ":      TxCapture,
		"partial_refund": TxRefund,
		"something_new":  TxUnknown,
		"":               TxUnknown,
	}
	for raw, want := range tests {
		if got := ParseTransactionStatus(raw); got != want {
			t.Errorf("ParseTransactionStatus(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestMapPaymentMethod(t *testing.T) {
	tests := map[string]string{
		"qris":          models.PaymentMethodQRIS,
		"credit_card":   models.PaymentMethodCard,
		"bank_transfer": models.PaymentMethodBankTransfer,
		"echannel":      models.PaymentMethodBankTransfer,
		"permata":       models.PaymentMethodBankTransfer,
		"bca_va":        models.PaymentMethodBankTransfer,
		"bni_va":        models.PaymentMethodBankTransfer,
		"bri_va":        models.PaymentMethodBankTransfer,
		"gopay":         models.PaymentMethodEWallet,
		"shopeepay":     models.PaymentMethodEWallet,
		"GOPAY":         models.PaymentMethodEWallet,
		"cstore":        models.PaymentMethodOther,
		"":              models.PaymentMethodOther,
	}
	for raw, want := range tests {
		if got := MapPaymentMethod(raw); got != want {
			t.Errorf("MapPaymentMethod(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestParseGrossAmount(t *testing.T) {
	tests := []struct {
		raw      string
		fallback int64
		want     int64
	}{
		{"150000.00", 1, 150000},
		{"15000", 1, 15000},
		{"15000.50", 1, 15001},
		{"15000.49", 1, 15000},
		{"0.00", 42000, 42000},
		{"-10", 42000, 42000},
		{"abc", 42000, 42000},
		{"", 42000, 42000},
		{"100000000000000000000", 42000, 42000},
		{"-100000000000000000000", 42000, 42000},
		{"9223372036854775807", 1, 9223372036854775807},
	}
	for _, tt := range tests {
		if got := ParseGrossAmount(tt.raw, tt.fallback); got != tt.want {
			t.Errorf("ParseGrossAmount(%q, %d) = %d, want %d", tt.raw, tt.fallback, got, tt.want)
		}
	}
}
