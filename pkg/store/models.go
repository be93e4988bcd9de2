package store

import (
	"time"

	"gorm.io/datatypes"
)

// UserModel is the GORM row backing a user. The languages column holds the
// whole per-language story/word structure as one jsonb document.
type UserModel struct {
	ID           string         `gorm:"primaryKey"`
	Email        string         `gorm:"uniqueIndex;not null"`
	PasswordHash string         `gorm:"not null"`
	Coin         int            `gorm:"not null;default:0"`
	Languages    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time
}

// TableName keeps the table name aligned with the original schema.
func (UserModel) TableName() string {
	return "users"
}
