package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/models"
)

// UserResponse is the client-facing view of an account.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     *string   `json:"email"`
	Login     string    `json:"login"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAdminResponse additionally exposes state fields hidden from clients.
type UserAdminResponse struct {
	UserResponse
	IsActive  bool            `json:"is_active"`
	Role      models.UserRole `json:"role"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *time.Time      `json:"deleted_at"`
}

// UserUpdateRequest carries partial-update fields; nil means "leave as is".
type UserUpdateRequest struct {
	Email *string `json:"email"`
	Login *string `json:"login"`
	Name  *string `json:"name"`
}

// UserAdminUpdateRequest extends partial updates with admin-only fields.
type UserAdminUpdateRequest struct {
	UserUpdateRequest
	IsActive *bool            `json:"is_active"`
	Role     *models.UserRole `json:"role"`
}

type UserListResponse struct {
	Objects    []UserAdminResponse `json:"objects"`
	TotalCount int64               `json:"total_count"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Login:     u.Login,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

func NewUserAdminResponse(u *models.User) UserAdminResponse {
	resp := UserAdminResponse{
		UserResponse: NewUserResponse(u),
		IsActive:     u.IsActive,
		Role:         u.Role,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.DeletedAt.Valid {
		t := u.DeletedAt.Time
		resp.DeletedAt = &t
	}
	return resp
}
