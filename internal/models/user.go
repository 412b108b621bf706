package models

import (
	"time"
)

// UserStatus is the lifecycle state of a registered user.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// User is a registered account holding the server-issued pay-key.
type User struct {
	BaseModel
	UserID  string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"userId"`
	Status  UserStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	PayKey  string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"payKey"`
	RegDate time.Time  `gorm:"not null" json:"regDate"`
}

// IsActive reports whether the user may authenticate with its pay-key.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
