package model

import "gorm.io/gorm"

// University groups students and the doctors assigned to them
// @Description University information
type University struct {
	gorm.Model
	Name     string   `json:"name" gorm:"type:varchar(191);uniqueIndex;not null" example:"Universitas Indonesia"`
	Location string   `json:"location" gorm:"type:varchar(255)" example:"Depok"`
	Doctors  []Doctor `json:"doctors,omitempty" gorm:"many2many:university_doctors;"`
}
