package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/models"
)

type FileResponse struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
}

type FileAdminResponse struct {
	FileResponse
	UserID    uuid.UUID  `json:"user_id"`
	Path      string     `json:"path"`
	DeletedAt *time.Time `json:"deleted_at"`
}

type FileUpdateRequest struct {
	Filename *string `json:"filename"`
}

type FileListResponse struct {
	Objects    []FileResponse `json:"objects"`
	TotalCount int64          `json:"total_count"`
}

type FileAdminListResponse struct {
	Objects    []FileAdminResponse `json:"objects"`
	TotalCount int64               `json:"total_count"`
}

func NewFileResponse(f *models.File) FileResponse {
	return FileResponse{
		ID:        f.ID,
		Filename:  f.Filename,
		Size:      f.Size,
		Format:    f.Format,
		CreatedAt: f.CreatedAt,
	}
}

func NewFileAdminResponse(f *models.File) FileAdminResponse {
	resp := FileAdminResponse{
		FileResponse: NewFileResponse(f),
		UserID:       f.UserID,
		Path:         f.Path,
	}
	if f.DeletedAt.Valid {
		t := f.DeletedAt.Time
		resp.DeletedAt = &t
	}
	return resp
}
