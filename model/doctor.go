package model

import (
	"sort"

	"github.com/ariebrainware/mindery/slot"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Consultation modes a doctor can offer.
const (
	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"
	AvailabilityBoth    = "both"
)

// Booking status of a doctor.
const (
	DoctorAvailable    = "available"
	DoctorNotAvailable = "not_available"
)

// Doctor represents a counsellor that students can book
// @Description Doctor information
type Doctor struct {
	gorm.Model
	UserID           *uint        `json:"userId,omitempty" gorm:"index"`
	Name             string       `json:"name" gorm:"type:varchar(191);not null" example:"Dr. Sari"`
	Specialization   string       `json:"specialization" gorm:"type:varchar(191);not null" example:"Clinical Psychology"`
	Email            string       `json:"email" gorm:"type:varchar(191);uniqueIndex;not null" example:"sari@example.com"`
	Phone            string       `json:"phone" gorm:"type:varchar(32)" example:"081234567890"`
	AvailabilityType string       `json:"availabilityType" gorm:"type:varchar(16);default:both" example:"both"`
	IsAvailable      string       `json:"isAvailable" gorm:"type:varchar(16);default:available" example:"available"`
	Universities     []University `json:"universities,omitempty" gorm:"many2many:university_doctors;"`
}

// DoctorSlot is one stored slot of a doctor on a date. Rows are replaced
// wholesale, so they are hard deleted.
type DoctorSlot struct {
	ID        uint   `gorm:"primaryKey"`
	DoctorID  uint   `gorm:"not null;uniqueIndex:idx_doctor_date_start"`
	Date      string `gorm:"type:varchar(10);not null;uniqueIndex:idx_doctor_date_start"`
	StartTime string `gorm:"type:varchar(5);not null;uniqueIndex:idx_doctor_date_start"`
	EndTime   string `gorm:"type:varchar(5);not null"`
}

// IsValidAvailabilityType reports whether t is online, offline or both.
func IsValidAvailabilityType(t string) bool {
	return t == AvailabilityOnline || t == AvailabilityOffline || t == AvailabilityBoth
}

// IsValidAvailabilityStatus reports whether s is available or not_available.
func IsValidAvailabilityStatus(s string) bool {
	return s == DoctorAvailable || s == DoctorNotAvailable
}

// IsBookable reports whether the doctor currently takes bookings.
func (d *Doctor) IsBookable() bool {
	return d.IsAvailable == DoctorAvailable
}

// AcceptsMode reports whether a booking in mode fits the doctor's
// availability type.
func (d *Doctor) AcceptsMode(mode string) bool {
	switch d.AvailabilityType {
	case AvailabilityBoth:
		return mode == AvailabilityOnline || mode == AvailabilityOffline
	default:
		return mode == d.AvailabilityType
	}
}

// DefaultMode is the mode preselected for a new booking.
func (d *Doctor) DefaultMode() string {
	if d.AvailabilityType == AvailabilityOffline {
		return AvailabilityOffline
	}
	return AvailabilityOnline
}

// LoadDateSlots returns every stored slot of the doctor grouped by date.
func LoadDateSlots(db *gorm.DB, doctorID uint) (slot.DateSlots, error) {
	var rows []DoctorSlot
	if err := db.Where("doctor_id = ?", doctorID).Order("date ASC, start_time ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return dateSlotsFromRows(rows), nil
}

// LoadDaySlots returns the stored slots of the doctor on date.
func LoadDaySlots(db *gorm.DB, doctorID uint, date string) ([]slot.Slot, error) {
	var rows []DoctorSlot
	if err := db.Where("doctor_id = ? AND date = ?", doctorID, date).Order("start_time ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return dateSlotsFromRows(rows)[date], nil
}

// ReplaceDateSlots swaps every stored slot of the doctor for dateSlots. Call
// it inside a transaction.
func ReplaceDateSlots(tx *gorm.DB, doctorID uint, dateSlots slot.DateSlots) error {
	if err := tx.Where("doctor_id = ?", doctorID).Delete(&DoctorSlot{}).Error; err != nil {
		return err
	}
	rows := rowsFromDateSlots(doctorID, dateSlots)
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

// ReplaceDaySlots swaps the doctor's stored slots on one date.
func ReplaceDaySlots(tx *gorm.DB, doctorID uint, date string, slots []slot.Slot) error {
	if err := tx.Where("doctor_id = ? AND date = ?", doctorID, date).Delete(&DoctorSlot{}).Error; err != nil {
		return err
	}
	rows := rowsFromDateSlots(doctorID, slot.DateSlots{date: slots})
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func dateSlotsFromRows(rows []DoctorSlot) slot.DateSlots {
	out := slot.DateSlots{}
	for _, r := range rows {
		out[r.Date] = append(out[r.Date], slot.Slot{StartTime: r.StartTime, EndTime: r.EndTime})
	}
	return out
}

func rowsFromDateSlots(doctorID uint, dateSlots slot.DateSlots) []DoctorSlot {
	dates := make([]string, 0, len(dateSlots))
	for date := range dateSlots {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	rows := make([]DoctorSlot, 0)
	for _, date := range dates {
		for _, s := range dateSlots[date] {
			rows = append(rows, DoctorSlot{DoctorID: doctorID, Date: date, StartTime: s.StartTime, EndTime: s.EndTime})
		}
	}
	return rows
}

// LockDoctor takes a row lock on the doctor for the rest of tx. Bookings of
// the same doctor queue on it so the live-booking check and the insert act
// as one step. SQLite has no row locks and serialises writers instead.
func LockDoctor(tx *gorm.DB, doctorID uint) (Doctor, error) {
	var d Doctor
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, doctorID).Error
	return d, err
}
