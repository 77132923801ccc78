package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/service"
)

// AdminHandler exposes user management for administrators.
type AdminHandler struct {
	accounts *service.AccountService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(accounts *service.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

func actorID(c *fiber.Ctx) string {
	if p, ok := auth.PrincipalFromContext(c); ok {
		return p.User.ID
	}
	return ""
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users := h.accounts.ListUsers()
	if status := c.Query("status"); status != "" {
		filtered := users[:0]
		for _, u := range users {
			if strings.EqualFold(string(u.Status), status) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponses(users), "count": len(users)})
}

// GetUser handles GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.accounts.GetUser(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// CreateUser handles POST /admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return fiber.NewError(http.StatusBadRequest, "name and email required")
	}

	user, err := h.accounts.AddUser(c.UserContext(), actorID(c), domain.NewUser{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Phone:    req.Phone,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateUser handles PATCH /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	patch := req.ToPatch()
	if patch.IsEmpty() {
		return fiber.NewError(http.StatusBadRequest, "no fields to update")
	}

	user, err := h.accounts.UpdateUser(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// DeleteUser handles DELETE /admin/users/:id.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.accounts.DeleteUser(c.UserContext(), actorID(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// SuspendUser handles POST /admin/users/:id/suspend.
func (h *AdminHandler) SuspendUser(c *fiber.Ctx) error {
	var req dto.SuspendUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Until) == "" {
		return fiber.NewError(http.StatusBadRequest, "until required")
	}

	user, err := h.accounts.SuspendUser(c.UserContext(), actorID(c), c.Params("id"), req.Until, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// LiftSuspension handles POST /admin/users/:id/lift.
func (h *AdminHandler) LiftSuspension(c *fiber.Ctx) error {
	user, err := h.accounts.LiftSuspension(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// AddNotification handles POST /admin/users/:id/notifications.
func (h *AdminHandler) AddNotification(c *fiber.Ctx) error {
	var req dto.NotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fiber.NewError(http.StatusBadRequest, "message required")
	}

	user, err := h.accounts.AddNotification(c.UserContext(), actorID(c), c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
