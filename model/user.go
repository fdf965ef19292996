package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a portal account
// @Description Portal account of a student, doctor or administrator
type User struct {
	gorm.Model
	Name           string `json:"name" gorm:"type:varchar(191);not null" example:"Jane Doe"`
	Email          string `json:"email" gorm:"type:varchar(191);uniqueIndex;not null" example:"jane@example.com"`
	Phone          string `json:"phone" gorm:"type:varchar(32)" example:"081234567890"`
	Password       string `json:"-" gorm:"not null"`
	PasswordSalt   string `json:"-"`
	RoleID         uint32 `json:"roleId" gorm:"not null;index" example:"1"`
	UniversityID   *uint  `json:"universityId,omitempty" gorm:"index" example:"1"`
	FailedAttempts int    `json:"-" gorm:"default:0"`
	LockedUntil    *int64 `json:"-"`
}

// Session is a login session bound to a signed token
type Session struct {
	gorm.Model
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	SessionToken string    `json:"session_token" gorm:"type:varchar(512);uniqueIndex;not null"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"index"`
	ClientIP     string    `json:"client_ip" gorm:"type:varchar(45)"`
	Browser      string    `json:"browser" gorm:"type:varchar(512)"`
}

// Profile is the user shape returned to the portal after login.
type Profile struct {
	ID           uint   `json:"id" example:"1"`
	Name         string `json:"name" example:"Jane Doe"`
	Email        string `json:"email" example:"jane@example.com"`
	Phone        string `json:"phone" example:"081234567890"`
	Role         string `json:"role" example:"student"`
	UniversityID *uint  `json:"universityId,omitempty" example:"1"`
}

// ProfileOf builds the public profile of u with the given role name.
func ProfileOf(u User, role string) Profile {
	return Profile{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		Role:         role,
		UniversityID: u.UniversityID,
	}
}

// IsLocked reports whether the account is locked at now, and until when.
func (u *User) IsLocked(now time.Time) (bool, time.Time) {
	if u.LockedUntil != nil && *u.LockedUntil > now.Unix() {
		return true, time.Unix(*u.LockedUntil, 0)
	}
	return false, time.Time{}
}
