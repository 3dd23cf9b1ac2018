package entity

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Dashboard roles, from most to least privileged.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
)

// ValidRole reports whether role is one of the dashboard roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleSales:
		return true
	}
	return false
}

// User is a dashboard operator.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"size:100;not null" json:"full_name"`
	Email        string    `gorm:"size:100;not null;default:''" json:"email,omitempty"`
	MobileNumber string    `gorm:"size:15;not null;uniqueIndex" json:"mobile_number"` // canonical 94XXXXXXXXX
	Password     string    `gorm:"size:100;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:'sales'" json:"role"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName sets the table name for GORM.
func (User) TableName() string {
	return "users"
}

// BeforeSave hashes the password unless it is already a bcrypt hash.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if len(u.Password) > 0 && !isBcryptHash(u.Password) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u.Password = string(hashed)
	}
	return nil
}

// CheckPassword compares password with the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// HasAnyRole reports whether the user holds one of roles.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
