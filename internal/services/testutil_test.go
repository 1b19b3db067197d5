package services

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/apperr"
	"github.com/pvolkov/filecrate/internal/config"
	"github.com/pvolkov/filecrate/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.File{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  time.Minute,
		JWTRefreshExpiry: time.Hour,
		UploadDir:        t.TempDir(),
		MaxUploadSizeMB:  1,
		SupportedFormats: "*",
	}
}

func seedUser(t *testing.T, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.New(),
		Login:    "user-" + uuid.NewString()[:8],
		IsActive: true,
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected apperr.Error, got %T (%v)", err, err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected kind %v, got %v (%v)", kind, appErr.Kind, err)
	}
}
