package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

type tokenIssuer interface {
	IssueToken(ctx context.Context, userID, payKey string) (string, time.Time, error)
}

// AuthHandler exchanges pay-keys for access tokens.
type AuthHandler struct {
	auth tokenIssuer
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth tokenIssuer) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type tokenRequest struct {
	UserID string `json:"userId"`
	PayKey string `json:"payKey"`
}

// IssueToken validates the pay-key and returns a signed token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	token, expiresAt, err := h.auth.IssueToken(c.UserContext(), req.UserID, req.PayKey)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"token":     token,
		"expiresAt": expiresAt.UTC(),
	})
}
