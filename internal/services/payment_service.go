package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/example/paygate/internal/events"
)

// OrderRequest is the input of PaymentService.CreateOrder.
type OrderRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description,omitempty"`
	UserID      string  `json:"userId"`
}

// OrderResponse echoes the request next to the gateway's order id.
type OrderResponse struct {
	OrderID     string  `json:"orderId"`
	GatewayName string  `json:"gatewayName"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	UserID      string  `json:"userId"`
}

type CaptureRequest struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
}

type CaptureResponse struct {
	OrderID     string         `json:"orderId"`
	GatewayName string         `json:"gatewayName"`
	Success     bool           `json:"success"`
	Outcome     CaptureOutcome `json:"outcome"`
	UserID      string         `json:"userId"`
}

// CaptureNotifier is told about confirmed captures.
type CaptureNotifier interface {
	NotifyPaymentCaptured(ctx context.Context, payment PaymentCapturedNotification)
}

// PaymentService sequences gateway calls for order creation and capture.
// It keeps no local state.
type PaymentService struct {
	gateway   Gateway
	publisher events.Publisher
	topic     string
	notifier  CaptureNotifier
	logger    *zap.Logger
}

func NewPaymentService(gateway Gateway, publisher events.Publisher, topic string, notifier CaptureNotifier, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		gateway:   gateway,
		publisher: publisher,
		topic:     topic,
		notifier:  notifier,
		logger:    logger,
	}
}

// CreateOrder registers an order with the gateway.
func (s *PaymentService) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	if strings.TrimSpace(req.Currency) == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrInvalidPayment)
	}

	orderID, err := s.gateway.CreateOrder(ctx, req.Amount, req.Currency, req.Description)
	if err != nil {
		s.logger.Error("create order failed",
			zap.String("gateway", s.gateway.Name()),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return nil, fmt.Errorf("create order: %w", err)
	}

	resp := &OrderResponse{
		OrderID:     orderID,
		GatewayName: s.gateway.Name(),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		UserID:      req.UserID,
	}

	s.logger.Info("order created",
		zap.String("order_id", orderID),
		zap.String("gateway", resp.GatewayName),
		zap.String("user_id", req.UserID))
	s.publish(ctx, eventKey(req.UserID, orderID), events.New(events.TypePaymentOrderCreated, resp))

	return resp, nil
}

// CapturePayment settles an order. Gateway failures are reported through the
// response outcome, not as an error.
func (s *PaymentService) CapturePayment(ctx context.Context, req CaptureRequest) (*CaptureResponse, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInvalidPayment)
	}

	outcome, err := s.gateway.CapturePayment(ctx, req.OrderID)
	if err != nil {
		s.logger.Warn("capture outcome unknown",
			zap.String("order_id", req.OrderID),
			zap.String("gateway", s.gateway.Name()),
			zap.Error(err))
		outcome = CaptureIndeterminate
	}

	resp := &CaptureResponse{
		OrderID:     req.OrderID,
		GatewayName: s.gateway.Name(),
		Success:     outcome.Succeeded(),
		Outcome:     outcome,
		UserID:      req.UserID,
	}

	s.logger.Info("capture finished",
		zap.String("order_id", req.OrderID),
		zap.String("outcome", string(outcome)),
		zap.String("user_id", req.UserID))
	s.publish(ctx, eventKey(req.UserID, req.OrderID), events.New(events.TypePaymentCaptured, resp))

	if outcome == CaptureCaptured && s.notifier != nil {
		s.notifier.NotifyPaymentCaptured(ctx, PaymentCapturedNotification{
			OrderID:     req.OrderID,
			GatewayName: resp.GatewayName,
			UserID:      req.UserID,
		})
	}

	return resp, nil
}

func (s *PaymentService) publish(ctx context.Context, key string, event events.Event) {
	if err := s.publisher.Publish(ctx, s.topic, key, event); err != nil {
		s.logger.Warn("failed to publish payment event",
			zap.String("type", event.Type),
			zap.String("key", key),
			zap.Error(err))
	}
}

// eventKey partitions payment events by user, falling back to the order for
// anonymous requests.
func eventKey(userID, orderID string) string {
	if userID != "" {
		return userID
	}
	return orderID
}
