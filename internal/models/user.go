package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleClient UserRole = "CLIENT"
)

// User is an account created on first OAuth login (or seeded as the superuser).
// YandexID and Email stay nil until linked; the unique index on yandex_id is
// what keeps concurrent callbacks for the same identity from creating duplicates.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	YandexID     *string        `gorm:"size:64;uniqueIndex" json:"-"`
	Email        *string        `gorm:"size:255;uniqueIndex" json:"email"`
	Login        string         `gorm:"size:255;not null" json:"login"`
	Name         *string        `gorm:"size:255" json:"name"`
	PasswordHash string         `gorm:"size:60" json:"-"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	Role         UserRole       `gorm:"size:10;not null;default:'CLIENT'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
