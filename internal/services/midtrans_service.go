package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"go.uber.org/zap"
)

const (
	midtransGatewayName = "Midtrans"
	midtransCurrency    = "IDR"
	midtransNameLimit   = 50
)

type snapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

type coreAPI interface {
	CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
}

// MidtransClient implements Gateway on top of Midtrans Snap. Orders are
// captured by the payer in the Snap UI; CapturePayment reads the settled
// state back through the Core API.
type MidtransClient struct {
	snap   snapAPI
	core   coreAPI
	logger *zap.Logger
}

func NewMidtransClient(serverKey string, production bool, logger *zap.Logger) *MidtransClient {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(serverKey, env)

	var c coreapi.Client
	c.New(serverKey, env)

	return &MidtransClient{snap: &s, core: &c, logger: logger}
}

func (c *MidtransClient) Name() string {
	return midtransGatewayName
}

// CreateOrder opens a Snap transaction under a generated order id. Midtrans
// only settles whole rupiah amounts.
func (c *MidtransClient) CreateOrder(ctx context.Context, amount float64, currency, description string) (string, error) {
	if currency != "" && !strings.EqualFold(currency, midtransCurrency) {
		return "", fmt.Errorf("%w: midtrans only supports %s", ErrInvalidPayment, midtransCurrency)
	}

	orderID := "order-" + uuid.NewString()
	gross := int64(math.Round(amount))

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: gross,
		},
	}
	if description != "" {
		name := truncateRunes(description, midtransNameLimit)
		req.Items = &[]midtrans.ItemDetails{
			{
				ID:    orderID,
				Name:  name,
				Price: gross,
				Qty:   1,
			},
		}
	}

	resp, mErr := c.snap.CreateTransaction(req)
	if mErr != nil {
		return "", fmt.Errorf("%w: midtrans create transaction: %v", ErrGateway, mErr)
	}
	if resp == nil || resp.Token == "" {
		return "", fmt.Errorf("%w: midtrans create transaction returned no token", ErrGateway)
	}

	c.logger.Info("midtrans transaction created", zap.String("order_id", orderID), zap.String("redirect_url", resp.RedirectURL))
	return orderID, nil
}

// CapturePayment maps the Midtrans transaction status onto a CaptureOutcome.
func (c *MidtransClient) CapturePayment(ctx context.Context, orderID string) (CaptureOutcome, error) {
	resp, mErr := c.core.CheckTransaction(orderID)
	if mErr != nil {
		return CaptureIndeterminate, fmt.Errorf("%w: midtrans check transaction: %v", ErrGateway, mErr)
	}
	if resp == nil {
		return CaptureIndeterminate, fmt.Errorf("%w: midtrans check transaction returned no status", ErrGateway)
	}

	switch resp.TransactionStatus {
	case "settlement", "capture":
		return CaptureCaptured, nil
	case "deny", "cancel", "expire", "failure":
		return CaptureDeclined, nil
	default:
		return CaptureIndeterminate, fmt.Errorf("%w: midtrans transaction %s is %q", ErrGateway, orderID, resp.TransactionStatus)
	}
}

// truncateRunes cuts s to at most limit bytes without splitting a character.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
