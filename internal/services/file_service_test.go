package services

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/apperr"
	"github.com/pvolkov/filecrate/internal/dto"
	"github.com/pvolkov/filecrate/internal/models"
	"gorm.io/gorm"
)

func newFileService(t *testing.T) (*FileService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewFileService(db, newTestConfig(t)), db
}

func uploadTestFile(t *testing.T, svc *FileService, user *models.User, content, filename, contentType string) *models.File {
	t.Helper()
	file, err := svc.Upload(user, strings.NewReader(content), filename, contentType)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return file
}

func TestUploadWithinLimit(t *testing.T) {
	svc, db := newFileService(t)
	user := seedUser(t, db, models.RoleClient)

	content := "hello, disk"
	file := uploadTestFile(t, svc, user, content, "greeting.txt", "text/plain")

	if file.Size != int64(len(content)) {
		t.Fatalf("expected size %d, got %d", len(content), file.Size)
	}
	data, err := os.ReadFile(file.Path)
	if err != nil {
		t.Fatalf("read uploaded object: %v", err)
	}
	if string(data) != content {
		t.Fatal("on-disk content does not match the stream")
	}
	if filepath.Ext(file.Path) != ".txt" {
		t.Fatalf("expected declared extension kept, got %q", file.Path)
	}

	var count int64
	if err := db.Model(&models.File{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
}

func TestUploadTooLarge(t *testing.T) {
	svc, db := newFileService(t)
	user := seedUser(t, db, models.RoleClient)

	payload := bytes.Repeat([]byte("x"), int(svc.maxBytes)+1)
	_, err := svc.Upload(user, bytes.NewReader(payload), "big.bin", "application/octet-stream")
	assertKind(t, err, apperr.KindBadRequest)

	var count int64
	if err := db.Model(&models.File{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no rows, got %d", count)
	}

	// No temp or final object may survive the abort.
	entries, err := os.ReadDir(filepath.Join(svc.uploadDir, user.ID.String()))
	if err != nil {
		t.Fatalf("read user dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty user dir, found %d entries", len(entries))
	}
}

func TestUploadExactLimit(t *testing.T) {
	svc, db := newFileService(t)
	user := seedUser(t, db, models.RoleClient)

	payload := bytes.Repeat([]byte("x"), int(svc.maxBytes))
	file, err := svc.Upload(user, bytes.NewReader(payload), "exact.bin", "application/octet-stream")
	if err != nil {
		t.Fatalf("upload at exact cap: %v", err)
	}
	if file.Size != svc.maxBytes {
		t.Fatalf("expected size %d, got %d", svc.maxBytes, file.Size)
	}
}

func TestUploadRejectsFormat(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig(t)
	cfg.SupportedFormats = "image/png, image/jpeg"
	svc := NewFileService(db, cfg)
	user := seedUser(t, db, models.RoleClient)

	_, err := svc.Upload(user, strings.NewReader("data"), "doc.pdf", "application/pdf")
	assertKind(t, err, apperr.KindBadRequest)

	if _, err := svc.Upload(user, strings.NewReader("png"), "pic.png", "image/png"); err != nil {
		t.Fatalf("allowed format rejected: %v", err)
	}
}

func TestOwnershipScoping(t *testing.T) {
	svc, db := newFileService(t)
	owner := seedUser(t, db, models.RoleClient)
	stranger := seedUser(t, db, models.RoleClient)
	admin := seedUser(t, db, models.RoleAdmin)

	file := uploadTestFile(t, svc, owner, "secret", "s.txt", "text/plain")

	_, err := svc.InfoByID(file.ID, stranger)
	assertKind(t, err, apperr.KindAccessDenied)
	_, err = svc.UpdateInfoByID(file.ID, stranger, &dto.FileUpdateRequest{Filename: strPtr("x.txt")})
	assertKind(t, err, apperr.KindAccessDenied)
	err = svc.DeleteByID(file.ID, stranger, true)
	assertKind(t, err, apperr.KindAccessDenied)

	// Nothing was mutated by the denied calls.
	got, err := svc.InfoByID(file.ID, owner)
	if err != nil {
		t.Fatalf("owner info: %v", err)
	}
	if got.Filename != "s.txt" {
		t.Fatal("expected filename unchanged after denied update")
	}

	if _, err := svc.InfoByID(file.ID, admin); err != nil {
		t.Fatalf("admin info: %v", err)
	}
}

func TestClientHardDeleteDowngraded(t *testing.T) {
	svc, db := newFileService(t)
	owner := seedUser(t, db, models.RoleClient)
	file := uploadTestFile(t, svc, owner, "keep me", "k.txt", "text/plain")

	if err := svc.DeleteByID(file.ID, owner, true); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var row models.File
	if err := db.Unscoped().First(&row, "id = ?", file.ID).Error; err != nil {
		t.Fatalf("expected row to survive: %v", err)
	}
	if !row.DeletedAt.Valid {
		t.Fatal("expected soft delete marker")
	}
	if _, err := os.Stat(file.Path); err != nil {
		t.Fatal("expected on-disk object to survive a downgraded delete")
	}
}

func TestAdminHardDeleteRemovesObject(t *testing.T) {
	svc, db := newFileService(t)
	owner := seedUser(t, db, models.RoleClient)
	admin := seedUser(t, db, models.RoleAdmin)
	file := uploadTestFile(t, svc, owner, "gone", "g.txt", "text/plain")

	if err := svc.DeleteByID(file.ID, admin, true); err != nil {
		t.Fatalf("hard delete: %v", err)
	}

	var count int64
	if err := db.Unscoped().Model(&models.File{}).Where("id = ?", file.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatal("expected row removed")
	}
	if _, err := os.Stat(file.Path); !os.IsNotExist(err) {
		t.Fatal("expected on-disk object removed")
	}
}

func TestDownloadOrphanedRow(t *testing.T) {
	svc, db := newFileService(t)
	owner := seedUser(t, db, models.RoleClient)
	file := uploadTestFile(t, svc, owner, "vanishing", "v.txt", "text/plain")

	if err := os.Remove(file.Path); err != nil {
		t.Fatalf("remove object: %v", err)
	}

	_, err := svc.DownloadByID(file.ID, owner)
	assertKind(t, err, apperr.KindNotFound)
}

func TestUpdateInfoRenames(t *testing.T) {
	svc, db := newFileService(t)
	owner := seedUser(t, db, models.RoleClient)
	file := uploadTestFile(t, svc, owner, "renamable", "old.txt", "text/plain")
	oldPath := file.Path

	updated, err := svc.UpdateInfoByID(file.ID, owner, &dto.FileUpdateRequest{Filename: strPtr("new.md")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Filename != "new.md" {
		t.Fatalf("expected filename new.md, got %q", updated.Filename)
	}
	if filepath.Ext(updated.Path) != ".md" {
		t.Fatalf("expected on-disk extension to follow, got %q", updated.Path)
	}
	if _, err := os.Stat(updated.Path); err != nil {
		t.Fatal("expected object at new path")
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatal("expected old path vacated")
	}

	_, err = svc.UpdateInfoByID(file.ID, owner, &dto.FileUpdateRequest{Filename: strPtr("../escape.txt")})
	assertKind(t, err, apperr.KindBadRequest)
}

func TestFileRestore(t *testing.T) {
	svc, db := newFileService(t)
	owner := seedUser(t, db, models.RoleClient)
	file := uploadTestFile(t, svc, owner, "restorable", "r.txt", "text/plain")

	_, err := svc.RestoreByID(file.ID, owner)
	assertKind(t, err, apperr.KindBadRequest)

	if err := svc.DeleteByID(file.ID, owner, false); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	restored, err := svc.RestoreByID(file.ID, owner)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.DeletedAt.Valid {
		t.Fatal("expected deleted_at cleared")
	}
}

func TestFileListScoping(t *testing.T) {
	svc, db := newFileService(t)
	alice := seedUser(t, db, models.RoleClient)
	bob := seedUser(t, db, models.RoleClient)
	admin := seedUser(t, db, models.RoleAdmin)

	uploadTestFile(t, svc, alice, "a1", "a1.txt", "text/plain")
	deletedFile := uploadTestFile(t, svc, alice, "a2", "a2.txt", "text/plain")
	uploadTestFile(t, svc, bob, "b1", "b1.txt", "text/plain")
	if err := svc.DeleteByID(deletedFile.ID, alice, false); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	files, total, err := svc.List(alice.ID, false, 0, 10, true)
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}
	if total != 1 || len(files) != 1 {
		t.Fatalf("expected alice to see 1 live file, got %d", total)
	}

	_, total, err = svc.List(admin.ID, true, 0, 10, false)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected admin to see 3 files with deleted, got %d", total)
	}

	_, total, err = svc.List(admin.ID, false, 0, 10, false)
	if err != nil {
		t.Fatalf("admin live list: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected admin to see 2 live files, got %d", total)
	}

	_, _, err = svc.List(uuid.Nil, false, -1, 10, true)
	if err != nil {
		t.Fatalf("list with zero owner: %v", err)
	}
}
