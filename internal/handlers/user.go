package handlers

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/example/paygate/internal/models"
)

type userRegistrar interface {
	CreateUser(ctx context.Context, userID string) (*models.User, error)
}

type userFinder interface {
	GetUserByUserID(ctx context.Context, userID string) (*models.User, error)
}

// UserHandler serves registration and lookup of users.
type UserHandler struct {
	users  userRegistrar
	finder userFinder
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(users userRegistrar, finder userFinder) *UserHandler {
	return &UserHandler{users: users, finder: finder}
}

type createUserRequest struct {
	UserID string `json:"userId"`
}

// Create registers a new user and returns its pay-key.
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.CreateUser(c.UserContext(), req.UserID)
	if err != nil {
		return err
	}

	c.Location("/users/" + url.PathEscape(user.UserID))
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Get returns a registered user.
func (h *UserHandler) Get(c *fiber.Ctx) error {
	userID, err := url.PathUnescape(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	user, err := h.finder.GetUserByUserID(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(user)
}
