package services

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// MidtransConfig holds Midtrans configuration
type MidtransConfig struct {
	ServerKey    string
	ClientKey    string
	IsProduction bool
	// BaseURL overrides the Core API host, used by tests.
	BaseURL string
}

// TransactionStatus is the typed form of Midtrans' transaction_status.
type TransactionStatus string

const (
	TxSettlement TransactionStatus = "settlement"
	TxCapture    TransactionStatus = "capture"
	TxPending    TransactionStatus = "pending"
	TxAuthorize  TransactionStatus = "authorize"
	TxDeny       TransactionStatus = "deny"
	TxCancel     TransactionStatus = "cancel"
	TxExpire     TransactionStatus = "expire"
	TxFailure    TransactionStatus = "failure"
	TxRefund     TransactionStatus = "refund"
	TxNotFound   TransactionStatus = "not_found"
	TxUnknown    TransactionStatus = "unknown"
)

func ParseTransactionStatus(raw string) TransactionStatus {
	switch s := TransactionStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case TxSettlement, TxCapture, TxPending, TxAuthorize, TxDeny, TxCancel, TxExpire, TxFailure, TxRefund:
		return s
	case "partial_refund":
		return TxRefund
	default:
		return TxUnknown
	}
}

// GatewayStatus is the authoritative payment state reported by the gateway.
type GatewayStatus struct {
	OrderID           string            `json:"order_id"`
	TransactionStatus TransactionStatus `json:"transaction_status"`
	FraudStatus       string            `json:"fraud_status,omitempty"`
	PaymentType       string            `json:"payment_type,omitempty"`
	GrossAmount       string            `json:"gross_amount,omitempty"`
	TransactionID     string            `json:"transaction_id,omitempty"`
	StatusCode        string            `json:"status_code,omitempty"`
}

type SessionRequest struct {
	GatewayOrderID string
	Amount         int64
	CustomerName   string
	CustomerEmail  string
}

// PaymentSession is what the client needs to open the gateway's payment page.
type PaymentSession struct {
	Token          string `json:"token"`
	RedirectURL    string `json:"redirect_url,omitempty"`
	GatewayOrderID string `json:"gateway_order_id"`
}

// PaymentGateway is the part of the payment provider the order engine depends on.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error)
	QueryStatus(ctx context.Context, gatewayOrderID string) (*GatewayStatus, error)
}

// MidtransService creates Snap sessions and queries the Core API status endpoint.
type MidtransService struct {
	config     *MidtransConfig
	snap       snap.Client
	httpClient *http.Client
}

func NewMidtransService(config *MidtransConfig) *MidtransService {
	env := midtrans.Sandbox
	if config.IsProduction {
		env = midtrans.Production
	}
	ms := &MidtransService{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	ms.snap.New(config.ServerKey, env)
	return ms
}

// ValidateConfig validates Midtrans configuration
func (ms *MidtransService) ValidateConfig() error {
	if ms.config.ServerKey == "" {
		return fmt.Errorf("MIDTRANS_SERVER_KEY is not set")
	}
	if ms.config.ClientKey == "" {
		return fmt.Errorf("MIDTRANS_CLIENT_KEY is not set")
	}
	return nil
}

// CreateSession requests a Snap token for the order.
func (ms *MidtransService) CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error) {
	if err := ms.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if req.Amount < 0 {
		return nil, validationError("amount must not be negative")
	}
	if req.GatewayOrderID == "" {
		return nil, validationError("gateway order id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.GatewayOrderID,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.CustomerEmail,
		},
	}

	resp, merr := ms.snap.CreateTransaction(snapReq)
	if merr != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"gateway_order_id": req.GatewayOrderID,
			"status_code":      merr.StatusCode,
		}).Errorf("Midtrans session creation failed: %s", merr.Message)
		return nil, fmt.Errorf("%w: %s", ErrUpstream, merr.Message)
	}

	return &PaymentSession{
		Token:          resp.Token,
		RedirectURL:    resp.RedirectURL,
		GatewayOrderID: req.GatewayOrderID,
	}, nil
}

// statusResponse mirrors GET /v2/{order_id}/status.
type statusResponse struct {
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message"`
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	GrossAmount       string `json:"gross_amount"`
}

// QueryStatus asks the Core API for the authoritative status of a gateway order.
// A transaction the gateway does not know yet is reported as TxNotFound.
func (ms *MidtransService) QueryStatus(ctx context.Context, gatewayOrderID string) (*GatewayStatus, error) {
	if ms.config.ServerKey == "" {
		return nil, fmt.Errorf("%w: MIDTRANS_SERVER_KEY is not set", ErrUpstream)
	}
	endpoint := fmt.Sprintf("%s/v2/%s/status", ms.getBaseURL(), url.PathEscape(gatewayOrderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(ms.config.ServerKey+":")))

	resp, err := ms.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: error reading response: %v", ErrUpstream, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return &GatewayStatus{OrderID: gatewayOrderID, TransactionStatus: TxNotFound, StatusCode: "404"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status query returned HTTP %d", ErrUpstream, resp.StatusCode)
	}

	var payload statusResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling response: %v", ErrUpstream, err)
	}

	// Midtrans also reports errors as HTTP 200 with the real code in the body
	switch {
	case payload.StatusCode == "404":
		return &GatewayStatus{OrderID: gatewayOrderID, TransactionStatus: TxNotFound, StatusCode: "404"}, nil
	case strings.HasPrefix(payload.StatusCode, "4"), strings.HasPrefix(payload.StatusCode, "5"):
		return nil, fmt.Errorf("%w: %s %s", ErrUpstream, payload.StatusCode, payload.StatusMessage)
	}

	return &GatewayStatus{
		OrderID:           payload.OrderID,
		TransactionStatus: ParseTransactionStatus(payload.TransactionStatus),
		FraudStatus:       strings.ToLower(payload.FraudStatus),
		PaymentType:       payload.PaymentType,
		GrossAmount:       payload.GrossAmount,
		TransactionID:     payload.TransactionID,
		StatusCode:        payload.StatusCode,
	}, nil
}

// ValidateSignature checks the signature_key of a notification:
// sha512(order_id + status_code + gross_amount + server_key).
func (ms *MidtransService) ValidateSignature(orderID, statusCode, grossAmount, signature string) bool {
	return ValidateNotificationSignature(ms.config.ServerKey, orderID, statusCode, grossAmount, signature)
}

func ValidateNotificationSignature(serverKey, orderID, statusCode, grossAmount, signature string) bool {
	if serverKey == "" || signature == "" {
		return false
	}
	expected := SignNotification(serverKey, orderID, statusCode, grossAmount)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

func SignNotification(serverKey, orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// getBaseURL returns the appropriate Midtrans API base URL
func (ms *MidtransService) getBaseURL() string {
	if ms.config.BaseURL != "" {
		return strings.TrimRight(ms.config.BaseURL, "/")
	}
	if ms.config.IsProduction {
		return "https://api.midtrans.com"
	}
	return "https://api.sandbox.midtrans.com"
}

// IsPaid is true for settlement, or capture with an accepted or absent fraud status.
func IsPaid(status GatewayStatus) bool {
	fraud := strings.ToLower(strings.TrimSpace(status.FraudStatus))
	switch status.TransactionStatus {
	case TxSettlement:
		return true
	case TxCapture:
		return fraud == "accept" || fraud == ""
	default:
		return false
	}
}

// IsFinalFailure reports statuses after which the gateway order can never be paid.
func IsFinalFailure(status GatewayStatus) bool {
	return status.TransactionStatus == TxExpire || status.TransactionStatus == TxCancel
}

// MapPaymentMethod normalizes a Midtrans payment_type into a payment method.
// Unrecognized types map to OTHER; the raw value is kept on the payment row.
func MapPaymentMethod(rawType string) string {
	switch strings.ToLower(strings.TrimSpace(rawType)) {
	case "qris":
		return models.PaymentMethodQRIS
	case "credit_card":
		return models.PaymentMethodCard
	case "bank_transfer", "echannel", "permata", "bca_va", "bni_va", "bri_va":
		return models.PaymentMethodBankTransfer
	case "gopay", "shopeepay":
		return models.PaymentMethodEWallet
	default:
		return models.PaymentMethodOther
	}
}

// ParseGrossAmount rounds a gateway amount such as "150000.00" to whole units.
// Zero, negative, out of range or malformed amounts fall back to the order total.
func ParseGrossAmount(raw string, fallback int64) int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	rounded := d.Round(0)
	if !rounded.BigInt().IsInt64() {
		return fallback
	}
	amount := rounded.IntPart()
	if amount <= 0 {
		return fallback
	}
	return amount
}
