package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Role names understood by the route guards.
const (
	RoleStudent         = "student"
	RoleAdmin           = "admin"
	RoleDoctor          = "doctor"
	RoleUniversityAdmin = "university_admin"
)

// Role represents an access role
// @Description Access role
type Role struct {
	ID        uint32    `gorm:"primaryKey;autoIncrement" json:"id" example:"1"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name" example:"student"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// RoleNames lists every role in seeding order.
var RoleNames = []string{RoleStudent, RoleAdmin, RoleDoctor, RoleUniversityAdmin}

// IsKnownRole reports whether name is one of RoleNames.
func IsKnownRole(name string) bool {
	for _, r := range RoleNames {
		if r == name {
			return true
		}
	}
	return false
}

func SeedRoles(db *gorm.DB) error {
	for _, name := range RoleNames {
		var existingRole Role
		err := db.Where("name = ?", name).First(&existingRole).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		role := Role{Name: name}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}
	}
	return nil
}

// FindRoleByName loads the role called name.
func FindRoleByName(db *gorm.DB, name string) (Role, error) {
	var role Role
	err := db.Where("name = ?", name).First(&role).Error
	return role, err
}

// FindRoleByID loads the role with the given id.
func FindRoleByID(db *gorm.DB, id uint32) (Role, error) {
	var role Role
	err := db.Where("id = ?", id).First(&role).Error
	return role, err
}
