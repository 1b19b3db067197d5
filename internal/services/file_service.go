package services

import (
	"errors"
	"io"
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

// FileService owns the upload pipeline and the ownership-scoped file
// lifecycle. Database and filesystem must never disagree about a file's
// existence: rows are inserted only after the rename that makes the object
// durable, and any later failure unlinks the object again.
type FileService struct {
	db        *gorm.DB
	uploadDir string
	maxBytes  int64
	formats   []string
}

func NewFileService(db *gorm.DB, cfg *config.Config) *FileService {
	return &FileService{
		db:        db,
		uploadDir: cfg.UploadDir,
		maxBytes:  cfg.MaxUploadBytes(),
		formats:   cfg.FormatList(),
	}
}

func (s *FileService) formatAllowed(contentType string) bool {
	for _, f := range s.formats {
		if f == "*" || f == contentType {
			return true
		}
	}
	return false
}

// canAccess is the uniform ownership rule for by-id operations.
func canAccess(file *models.File, user *models.User) bool {
	return file.UserID == user.ID || user.Role == models.RoleAdmin
}

// Upload streams src to a per-account temp path, counting bytes against the
// configured cap, then renames into place and inserts the row.
func (s *FileService) Upload(user *models.User, src io.Reader, filename, contentType string) (*models.File, error) {
	if !s.formatAllowed(contentType) {
		return nil, apperr.BadRequest("invalid file type")
	}

	userDir := filepath.Join(s.uploadDir, user.ID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, apperr.Internal("file upload failed", err)
	}

	id := uuid.New()
	finalPath := filepath.Join(userDir, id.String()+filepath.Ext(filename))
	tempPath := filepath.Join(userDir, id.String()+".tmp")

	size, err := s.writeTemp(tempPath, src)
	if err != nil {
		return nil, err
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, apperr.Internal("file upload failed", err)
	}

	file := models.File{
		ID:       id,
		UserID:   user.ID,
		Filename: filename,
		Size:     size,
		Format:   contentType,
		Path:     finalPath,
	}
	if err := s.db.Create(&file).Error; err != nil {
		// The object is already durable; take it back out so disk and
		// database stay consistent.
		os.Remove(finalPath)
		slog.Warn("file upload failed after rename", "file_id", id.String(), "error", err)
		return nil, apperr.Internal("file upload failed", err)
	}

	return &file, nil
}

// writeTemp copies src to path and returns the byte count. Exceeding the cap
// aborts immediately and removes the partial temp file.
func (s *FileService) writeTemp(path string, src io.Reader) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, apperr.Internal("file upload failed", err)
	}

	size, err := io.Copy(out, io.LimitReader(src, s.maxBytes+1))
	if err != nil {
		out.Close()
		os.Remove(path)
		return 0, apperr.Internal("file upload failed", err)
	}
	if size > s.maxBytes {
		out.Close()
		os.Remove(path)
		return 0, apperr.BadRequest("file too large")
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return 0, apperr.Internal("file upload failed", err)
	}
	return size, nil
}

// List returns a page of files newest-first. ownerOnly pins the result to the
// caller's own live files regardless of the other filters.
func (s *FileService) List(userID uuid.UUID, includeDeleted bool, offset, limit int, ownerOnly bool) ([]models.File, int64, error) {
	q := s.db.Model(&models.File{})
	if ownerOnly {
		q = q.Where("user_id = ?", userID)
	} else if includeDeleted {
		q = q.Unscoped()
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("file listing failed", err)
	}

	var files []models.File
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&files).Error; err != nil {
		return nil, 0, apperr.Internal("file listing failed", err)
	}
	return files, total, nil
}

func (s *FileService) getByID(id uuid.UUID, includeDeleted bool) (*models.File, error) {
	q := s.db
	if includeDeleted {
		q = q.Unscoped()
	}

	var file models.File
	if err := q.First(&file, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("file not found")
		}
		return nil, apperr.Internal("file lookup failed", err)
	}
	return &file, nil
}

// InfoByID returns file metadata. Admins can see soft-deleted files.
func (s *FileService) InfoByID(id uuid.UUID, user *models.User) (*models.File, error) {
	file, err := s.getByID(id, user.Role == models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !canAccess(file, user) {
		return nil, apperr.AccessDenied("access denied")
	}
	return file, nil
}

// DownloadByID additionally verifies the object still exists on disk; an
// orphaned row is reported as NotFound, not as an internal failure.
func (s *FileService) DownloadByID(id uuid.UUID, user *models.User) (*models.File, error) {
	file, err := s.getByID(id, false)
	if err != nil {
		return nil, err
	}
	if !canAccess(file, user) {
		return nil, apperr.AccessDenied("access denied")
	}

	if _, err := os.Stat(file.Path); err != nil {
		slog.Warn("file missing on disk", "file_id", id.String(), "path", file.Path)
		return nil, apperr.NotFound("file not found on disk")
	}
	return file, nil
}

// UpdateInfoByID renames the object on disk and updates the row. A failed
// disk rename leaves both sides at their pre-update value; a failed row
// update rolls the disk rename back.
func (s *FileService) UpdateInfoByID(id uuid.UUID, user *models.User, upd *dto.FileUpdateRequest) (*models.File, error) {
	file, err := s.getByID(id, false)
	if err != nil {
		return nil, err
	}
	if !canAccess(file, user) {
		return nil, apperr.AccessDenied("access denied")
	}

	if upd.Filename == nil || *upd.Filename == "" || *upd.Filename == file.Filename {
		return file, nil
	}
	newFilename := *upd.Filename
	if filepath.Base(newFilename) != newFilename {
		return nil, apperr.BadRequest("invalid filename")
	}

	oldPath := file.Path
	newPath := filepath.Join(filepath.Dir(oldPath), file.ID.String()+filepath.Ext(newFilename))
	if newPath != oldPath {
		if _, err := os.Stat(newPath); err == nil {
			return nil, apperr.BadRequest("filename already in use")
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			slog.Warn("file rename failed", "file_id", id.String(), "error", err)
			return nil, apperr.Internal("file rename failed", err)
		}
	}

	fields := map[string]interface{}{"filename": newFilename, "path": newPath}
	if err := s.db.Model(file).Updates(fields).Error; err != nil {
		if newPath != oldPath {
			if rerr := os.Rename(newPath, oldPath); rerr != nil {
				slog.Warn("rename rollback failed", "file_id", id.String(), "error", rerr)
			}
		}
		return nil, apperr.Internal("file rename failed", err)
	}

	file.Filename = newFilename
	file.Path = newPath
	return file, nil
}

// DeleteByID hard-deletes only for admins; everyone else is downgraded to a
// soft delete no matter what they asked for.
func (s *FileService) DeleteByID(id uuid.UUID, user *models.User, hard bool) error {
	file, err := s.getByID(id, true)
	if err != nil {
		return err
	}
	if !canAccess(file, user) {
		return apperr.AccessDenied("access denied")
	}

	if user.Role != models.RoleAdmin {
		hard = false
	}

	if !hard {
		if err := s.db.Delete(file).Error; err != nil {
			return apperr.Internal("deletion failed", err)
		}
		return nil
	}

	if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
		// Cleanup is best-effort; the row removal below decides the outcome.
		slog.Warn("failed to remove file from disk", "file_id", id.String(), "error", err)
	}
	if err := s.db.Unscoped().Delete(file).Error; err != nil {
		return apperr.Internal("deletion failed", err)
	}
	return nil
}

// RestoreByID clears deleted_at. Restoring a live file is a BadRequest.
func (s *FileService) RestoreByID(id uuid.UUID, user *models.User) (*models.File, error) {
	file, err := s.getByID(id, true)
	if err != nil {
		return nil, err
	}
	if !canAccess(file, user) {
		return nil, apperr.AccessDenied("access denied")
	}

	if !file.DeletedAt.Valid {
		return nil, apperr.BadRequest("file is not deleted")
	}

	if err := s.db.Unscoped().Model(file).Update("deleted_at", nil).Error; err != nil {
		return nil, apperr.Internal("restore failed", err)
	}
	return s.getByID(id, false)
}
