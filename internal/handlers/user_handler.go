package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/apperr"
	"github.com/pvolkov/filecrate/internal/dto"
	"github.com/pvolkov/filecrate/internal/middleware"
	"github.com/pvolkov/filecrate/internal/models"
	"github.com/pvolkov/filecrate/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List handles GET /user/ (admin only).
func (h *UserHandler) List(c *fiber.Ctx) error {
	includeDeleted := c.QueryBool("include_deleted", false)
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 100)

	users, total, err := h.userService.List(includeDeleted, offset, limit)
	if err != nil {
		return err
	}

	resp := dto.UserListResponse{
		Objects:    make([]dto.UserAdminResponse, 0, len(users)),
		TotalCount: total,
	}
	for i := range users {
		resp.Objects = append(resp.Objects, dto.NewUserAdminResponse(&users[i]))
	}
	return c.JSON(resp)
}

// GetByID handles GET /user/:id (admin only, soft-deleted included).
func (h *UserHandler) GetByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid user id")
	}

	user, err := h.userService.GetByID(id, true)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserAdminResponse(user))
}

// UpdateByID handles PATCH /user/:id (admin only).
func (h *UserHandler) UpdateByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid user id")
	}

	var req dto.UserAdminUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	user, err := h.userService.UpdateByID(id, &req)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserAdminResponse(user))
}

// DeleteByID handles DELETE /user/:id?is_hard= (admin only).
func (h *UserHandler) DeleteByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid user id")
	}

	if err := h.userService.DeleteByID(id, c.QueryBool("is_hard", false)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestoreByID handles POST /user/:id/restore (admin only).
func (h *UserHandler) RestoreByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid user id")
	}

	user, err := h.userService.RestoreByID(id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserAdminResponse(user))
}

// Me handles GET /user/me.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	user := middleware.Account(c)
	if user.Role == models.RoleAdmin {
		return c.JSON(dto.NewUserAdminResponse(user))
	}
	return c.JSON(dto.NewUserResponse(user))
}

// UpdateMe handles PATCH /user/me. Self-service updates may not touch role
// or active state.
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	user := middleware.Account(c)

	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	updated, err := h.userService.UpdateByID(user.ID, &dto.UserAdminUpdateRequest{UserUpdateRequest: req})
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		return c.JSON(dto.NewUserAdminResponse(updated))
	}
	return c.JSON(dto.NewUserResponse(updated))
}

// DeleteMe handles DELETE /user/me. Always a soft delete.
func (h *UserHandler) DeleteMe(c *fiber.Ctx) error {
	user := middleware.Account(c)
	if err := h.userService.DeleteByID(user.ID, false); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
