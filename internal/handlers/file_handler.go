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

type FileHandler struct {
	fileService *services.FileService
}

func NewFileHandler(fileService *services.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// List handles GET /file/. Clients only ever see their own live files;
// admins may widen the view with include_deleted and is_history=false.
func (h *FileHandler) List(c *fiber.Ctx) error {
	user := middleware.Account(c)

	includeDeleted := c.QueryBool("include_deleted", false)
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 100)
	ownerOnly := c.QueryBool("is_history", true)

	if user.Role != models.RoleAdmin {
		includeDeleted = false
		ownerOnly = true
	}

	files, total, err := h.fileService.List(user.ID, includeDeleted, offset, limit, ownerOnly)
	if err != nil {
		return err
	}

	if user.Role == models.RoleAdmin {
		resp := dto.FileAdminListResponse{
			Objects:    make([]dto.FileAdminResponse, 0, len(files)),
			TotalCount: total,
		}
		for i := range files {
			resp.Objects = append(resp.Objects, dto.NewFileAdminResponse(&files[i]))
		}
		return c.JSON(resp)
	}

	resp := dto.FileListResponse{
		Objects:    make([]dto.FileResponse, 0, len(files)),
		TotalCount: total,
	}
	for i := range files {
		resp.Objects = append(resp.Objects, dto.NewFileResponse(&files[i]))
	}
	return c.JSON(resp)
}

// Upload handles POST /file/ with a multipart "file" field. The body is
// streamed through the service, never buffered whole.
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	user := middleware.Account(c)

	header, err := c.FormFile("file")
	if err != nil {
		return apperr.BadRequest("file field is required")
	}

	src, err := header.Open()
	if err != nil {
		return apperr.BadRequest("file field is required")
	}
	defer src.Close()

	file, err := h.fileService.Upload(user, src, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(h.render(user, file))
}

// GetByID handles GET /file/:id.
func (h *FileHandler) GetByID(c *fiber.Ctx) error {
	user := middleware.Account(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid file id")
	}

	file, err := h.fileService.InfoByID(id, user)
	if err != nil {
		return err
	}
	return c.JSON(h.render(user, file))
}

// Download handles GET /file/:id/download, streaming the on-disk object.
func (h *FileHandler) Download(c *fiber.Ctx) error {
	user := middleware.Account(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid file id")
	}

	file, err := h.fileService.DownloadByID(id, user)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, file.Format)
	return c.Download(file.Path, file.Filename)
}

// UpdateByID handles PATCH /file/:id.
func (h *FileHandler) UpdateByID(c *fiber.Ctx) error {
	user := middleware.Account(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid file id")
	}

	var req dto.FileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	file, err := h.fileService.UpdateInfoByID(id, user, &req)
	if err != nil {
		return err
	}
	return c.JSON(h.render(user, file))
}

// DeleteByID handles DELETE /file/:id?is_hard=.
func (h *FileHandler) DeleteByID(c *fiber.Ctx) error {
	user := middleware.Account(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid file id")
	}

	if err := h.fileService.DeleteByID(id, user, c.QueryBool("is_hard", false)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestoreByID handles POST /file/:id/restore.
func (h *FileHandler) RestoreByID(c *fiber.Ctx) error {
	user := middleware.Account(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.BadRequest("invalid file id")
	}

	file, err := h.fileService.RestoreByID(id, user)
	if err != nil {
		return err
	}
	return c.JSON(h.render(user, file))
}

func (h *FileHandler) render(user *models.User, file *models.File) interface{} {
	if user.Role == models.RoleAdmin {
		return dto.NewFileAdminResponse(file)
	}
	return dto.NewFileResponse(file)
}
