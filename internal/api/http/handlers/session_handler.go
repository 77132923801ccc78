package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/service"
)

// SessionHandler serves the signed-in user's own account. Every route expects
// the bearer token of the account holding the active session.
type SessionHandler struct {
	accounts *service.AccountService
	profile  *service.ProfileService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(accounts *service.AccountService, profile *service.ProfileService) *SessionHandler {
	return &SessionHandler{accounts: accounts, profile: profile}
}

// Current handles GET /session.
func (h *SessionHandler) Current(c *fiber.Ctx) error {
	user, err := h.accounts.SessionUser(actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateProfile handles PATCH /session/profile.
func (h *SessionHandler) UpdateProfile(c *fiber.Ctx) error {
	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	update := service.ProfileUpdate{
		Name:            req.Name,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}
	if req.Preferences != nil {
		prefs := req.Preferences.ToDomain()
		update.Preferences = &prefs
	}

	user, err := h.profile.UpdateProfile(c.UserContext(), actorID(c), update)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// TogglePreference handles PUT /session/preferences/:channel.
func (h *SessionHandler) TogglePreference(c *fiber.Ctx) error {
	user, err := h.profile.TogglePreference(c.UserContext(), actorID(c), c.Params("channel"))
	if err != nil {
		return err
	}
	ch, _ := domain.ParseChannel(strings.ToLower(c.Params("channel")))
	return c.JSON(fiber.Map{"data": fiber.Map{
		"user":    dto.NewUserResponse(user),
		"channel": ch,
		"enabled": user.Preferences.Enabled(ch),
	}})
}

// MarkNotificationsRead handles POST /session/notifications/read.
func (h *SessionHandler) MarkNotificationsRead(c *fiber.Ctx) error {
	user, err := h.accounts.MarkNotificationsRead(c.UserContext(), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
