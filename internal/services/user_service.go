package services

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/apperr"
	"github.com/pvolkov/filecrate/internal/config"
	"github.com/pvolkov/filecrate/internal/dto"
	"github.com/pvolkov/filecrate/internal/models"
	"gorm.io/gorm"
)

type UserService struct {
	db        *gorm.DB
	uploadDir string
}

func NewUserService(db *gorm.DB, cfg *config.Config) *UserService {
	return &UserService{db: db, uploadDir: cfg.UploadDir}
}

// List returns a page of accounts newest-first plus the filtered total.
func (s *UserService) List(includeDeleted bool, offset, limit int) ([]models.User, int64, error) {
	q := s.db.Model(&models.User{})
	if includeDeleted {
		q = q.Unscoped()
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("user listing failed", err)
	}

	var users []models.User
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, apperr.Internal("user listing failed", err)
	}
	return users, total, nil
}

func (s *UserService) GetByID(id uuid.UUID, includeDeleted bool) (*models.User, error) {
	q := s.db
	if includeDeleted {
		q = q.Unscoped()
	}

	var user models.User
	if err := q.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("user lookup failed", err)
	}
	return &user, nil
}

// UpdateByID applies only the fields set in upd. Soft-deleted accounts stay
// reachable for admin edits.
func (s *UserService) UpdateByID(id uuid.UUID, upd *dto.UserAdminUpdateRequest) (*models.User, error) {
	user, err := s.GetByID(id, true)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if upd.Email != nil {
		fields["email"] = *upd.Email
	}
	if upd.Login != nil {
		fields["login"] = *upd.Login
	}
	if upd.Name != nil {
		fields["name"] = *upd.Name
	}
	if upd.IsActive != nil {
		fields["is_active"] = *upd.IsActive
	}
	if upd.Role != nil {
		if *upd.Role != models.RoleAdmin && *upd.Role != models.RoleClient {
			return nil, apperr.BadRequest("unknown role")
		}
		fields["role"] = *upd.Role
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.db.Unscoped().Model(user).Updates(fields).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.BadRequest("email already registered")
		}
		return nil, apperr.Internal("user update failed", err)
	}
	return s.GetByID(id, true)
}

// DeleteByID soft-deletes by default. A hard delete removes the row, the
// owned file rows and, best-effort, the account's upload directory.
func (s *UserService) DeleteByID(id uuid.UUID, hard bool) error {
	user, err := s.GetByID(id, true)
	if err != nil {
		return err
	}

	if !hard {
		if err := s.db.Delete(user).Error; err != nil {
			return apperr.Internal("deletion failed", err)
		}
		return nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.File{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(user).Error
	})
	if err != nil {
		return apperr.Internal("deletion failed", err)
	}

	if err := os.RemoveAll(filepath.Join(s.uploadDir, id.String())); err != nil {
		slog.Warn("failed to remove user upload dir", "user_id", id.String(), "error", err)
	}
	return nil
}

// RestoreByID clears deleted_at. Restoring a live account is a BadRequest.
func (s *UserService) RestoreByID(id uuid.UUID) (*models.User, error) {
	user, err := s.GetByID(id, true)
	if err != nil {
		return nil, err
	}

	if !user.DeletedAt.Valid {
		return nil, apperr.BadRequest("user is not deleted")
	}

	if err := s.db.Unscoped().Model(user).Update("deleted_at", nil).Error; err != nil {
		return nil, apperr.Internal("restore failed", err)
	}
	return s.GetByID(id, false)
}
