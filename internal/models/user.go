package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	Email              string         `json:"email" gorm:"uniqueIndex;not null"`
	Name               string         `json:"name"`
	PasswordHash       string         `json:"-" gorm:"not null"`
	Role               string         `json:"role" gorm:"default:'customer'"` // customer, admin
	CredentialsResetAt *time.Time     `json:"-"`                              // sessions opened earlier are void
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleAdmin    UserRole = "admin"
)

func (u *User) IsAdmin() bool {
	return u.Role == string(RoleAdmin)
}
