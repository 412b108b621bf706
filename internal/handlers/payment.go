package handlers

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/example/paygate/internal/middleware"
	"github.com/example/paygate/internal/services"
)

type paymentProcessor interface {
	CreateOrder(ctx context.Context, req services.OrderRequest) (*services.OrderResponse, error)
	CapturePayment(ctx context.Context, req services.CaptureRequest) (*services.CaptureResponse, error)
}

// PaymentHandler creates and captures gateway orders.
type PaymentHandler struct {
	payments    paymentProcessor
	requireAuth bool
}

// NewPaymentHandler constructs a PaymentHandler. With requireAuth the
// request's userId must match the authenticated subject.
func NewPaymentHandler(payments paymentProcessor, requireAuth bool) *PaymentHandler {
	return &PaymentHandler{payments: payments, requireAuth: requireAuth}
}

// CreateOrder opens an order with the configured gateway.
func (h *PaymentHandler) CreateOrder(c *fiber.Ctx) error {
	var req services.OrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userID, err := h.resolveUser(c, req.UserID)
	if err != nil {
		return err
	}
	req.UserID = userID

	resp, err := h.payments.CreateOrder(c.UserContext(), req)
	if err != nil {
		return err
	}

	c.Location("/payments/orders/" + url.PathEscape(resp.OrderID))
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Capture settles an order. The outcome is reported in the body.
func (h *PaymentHandler) Capture(c *fiber.Ctx) error {
	var req services.CaptureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userID, err := h.resolveUser(c, req.UserID)
	if err != nil {
		return err
	}
	req.UserID = userID

	resp, err := h.payments.CapturePayment(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *PaymentHandler) resolveUser(c *fiber.Ctx, requested string) (string, error) {
	if !h.requireAuth {
		return requested, nil
	}

	subject, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing authorization")
	}
	if requested == "" {
		return subject, nil
	}
	if requested != subject {
		return "", fiber.NewError(fiber.StatusForbidden, "user id does not match token")
	}
	return requested, nil
}
