package models

import (
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a back-office operator account.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"column:email;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"password_hash"`
	FirstName    string     `gorm:"column:first_name;not null" json:"first_name"`
	LastName     string     `gorm:"column:last_name;not null" json:"last_name"`
	Role         enums.Role `gorm:"column:role;type:text;not null" json:"role"`
	IsActive     bool       `gorm:"column:is_active;not null" json:"is_active"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	u.ID = ensureID(u.ID)
	return nil
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	full := u.FirstName
	if u.LastName != "" {
		if full != "" {
			full += " "
		}
		full += u.LastName
	}
	if full == "" {
		return u.Username
	}
	return full
}
