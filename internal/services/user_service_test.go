package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/apperr"
	"github.com/pvolkov/filecrate/internal/dto"
	"github.com/pvolkov/filecrate/internal/models"
	"gorm.io/gorm"
)

func newUserService(t *testing.T) (*UserService, *gorm.DB, string) {
	t.Helper()
	cfg := newTestConfig(t)
	db := newTestDB(t)
	return NewUserService(db, cfg), db, cfg.UploadDir
}

func strPtr(s string) *string { return &s }

func TestUserListOrderAndCount(t *testing.T) {
	svc, db, _ := newUserService(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		user := seedUser(t, db, models.RoleClient)
		if err := db.Model(user).Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error; err != nil {
			t.Fatalf("set created_at: %v", err)
		}
	}
	deleted := seedUser(t, db, models.RoleClient)
	if err := db.Delete(deleted).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	users, total, err := svc.List(false, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected filtered total 3, got %d", total)
	}
	for i := 1; i < len(users); i++ {
		if users[i].CreatedAt.After(users[i-1].CreatedAt) {
			t.Fatal("expected newest-first ordering")
		}
	}

	_, totalAll, err := svc.List(true, 0, 10)
	if err != nil {
		t.Fatalf("list with deleted: %v", err)
	}
	if totalAll != 4 {
		t.Fatalf("expected total 4 with deleted, got %d", totalAll)
	}

	// totalCount reflects the filter, not the page.
	page, total, err := svc.List(false, 0, 2)
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if len(page) != 2 || total != 3 {
		t.Fatalf("expected page of 2 with total 3, got %d/%d", len(page), total)
	}
}

func TestUserGetByIDSoftDeleteFilter(t *testing.T) {
	svc, db, _ := newUserService(t)
	user := seedUser(t, db, models.RoleClient)
	if err := db.Delete(user).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, err := svc.GetByID(user.ID, false)
	assertKind(t, err, apperr.KindNotFound)

	got, err := svc.GetByID(user.ID, true)
	if err != nil {
		t.Fatalf("get with deleted: %v", err)
	}
	if !got.DeletedAt.Valid {
		t.Fatal("expected deleted_at set")
	}

	_, err = svc.GetByID(uuid.New(), true)
	assertKind(t, err, apperr.KindNotFound)
}

func TestUserPartialUpdate(t *testing.T) {
	svc, db, _ := newUserService(t)
	user := seedUser(t, db, models.RoleClient)

	updated, err := svc.UpdateByID(user.ID, &dto.UserAdminUpdateRequest{
		UserUpdateRequest: dto.UserUpdateRequest{Name: strPtr("New Name")},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name == nil || *updated.Name != "New Name" {
		t.Fatal("expected name updated")
	}
	if updated.Login != user.Login {
		t.Fatal("expected untouched fields to keep their value")
	}

	role := models.RoleAdmin
	updated, err = svc.UpdateByID(user.ID, &dto.UserAdminUpdateRequest{Role: &role})
	if err != nil {
		t.Fatalf("role update: %v", err)
	}
	if updated.Role != models.RoleAdmin {
		t.Fatalf("expected role ADMIN, got %s", updated.Role)
	}

	bogus := models.UserRole("OWNER")
	_, err = svc.UpdateByID(user.ID, &dto.UserAdminUpdateRequest{Role: &bogus})
	assertKind(t, err, apperr.KindBadRequest)

	_, err = svc.UpdateByID(uuid.New(), &dto.UserAdminUpdateRequest{})
	assertKind(t, err, apperr.KindNotFound)
}

func TestUserSoftDeleteAndRestore(t *testing.T) {
	svc, db, _ := newUserService(t)
	user := seedUser(t, db, models.RoleClient)

	if err := svc.DeleteByID(user.ID, false); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	_, err := svc.GetByID(user.ID, false)
	assertKind(t, err, apperr.KindNotFound)

	restored, err := svc.RestoreByID(user.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.DeletedAt.Valid {
		t.Fatal("expected deleted_at cleared")
	}

	// Restoring a live account is an invalid state transition.
	_, err = svc.RestoreByID(user.ID)
	assertKind(t, err, apperr.KindBadRequest)
}

func TestUserHardDeleteCascades(t *testing.T) {
	svc, db, uploadDir := newUserService(t)
	user := seedUser(t, db, models.RoleClient)

	userDir := filepath.Join(uploadDir, user.ID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(userDir, "a.bin"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	file := models.File{
		ID: uuid.New(), UserID: user.ID,
		Filename: "a.bin", Size: 1, Format: "application/octet-stream",
		Path: filepath.Join(userDir, "a.bin"),
	}
	if err := db.Create(&file).Error; err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := svc.DeleteByID(user.ID, true); err != nil {
		t.Fatalf("hard delete: %v", err)
	}

	var users, files int64
	if err := db.Unscoped().Model(&models.User{}).Where("id = ?", user.ID).Count(&users).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if err := db.Unscoped().Model(&models.File{}).Where("user_id = ?", user.ID).Count(&files).Error; err != nil {
		t.Fatalf("count files: %v", err)
	}
	if users != 0 || files != 0 {
		t.Fatalf("expected rows gone, got %d users / %d files", users, files)
	}
	if _, err := os.Stat(userDir); !os.IsNotExist(err) {
		t.Fatal("expected upload dir removed")
	}
}
