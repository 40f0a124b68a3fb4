package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AdminHandler serves role administration.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListAccounts GET /admin/accounts?search=.
func (h *AdminHandler) ListAccounts(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	accounts, err := h.admin.ListAccounts(c.UserContext(), caller.Account, c.Query("search"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Accounts(accounts)})
}

// UpdateRole PATCH /admin/accounts/:id/role.
func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	targetID, err := parseID(c.Params("id"), "id")
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, err := h.admin.UpdateRole(c.UserContext(), caller.Account, targetID, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Account(*account)})
}
