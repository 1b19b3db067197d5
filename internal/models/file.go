package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is the database record for one uploaded object. Path is unique and is
// only written after the object has been durably renamed into place.
type File struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Filename  string         `gorm:"size:255;not null" json:"filename"`
	Size      int64          `gorm:"not null" json:"size"`
	Format    string         `gorm:"size:255;not null" json:"format"`
	Path      string         `gorm:"size:512;not null;uniqueIndex" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
