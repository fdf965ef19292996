package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/mindery/slot"
	"gorm.io/gorm"
)

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

var ErrInvalidTransition = errors.New("invalid appointment status transition")

// transitions lists the statuses reachable from each status.
var transitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

// LiveStatuses hold a slot: a doctor cannot be booked twice for them.
var LiveStatuses = []string{StatusPending, StatusApproved}

// Appointment represents a session booked by a student with a doctor. Slot
// timestamps are stored in UTC.
// @Description Appointment information
type Appointment struct {
	gorm.Model
	Reference string    `json:"reference" gorm:"type:varchar(36);uniqueIndex;not null" example:"3f1c2a7e-3b0e-4a7b-9d52-8d7e0c9e1f11"`
	DoctorID  uint      `json:"doctorId" gorm:"not null;index" example:"1"`
	StudentID uint      `json:"studentId" gorm:"not null;index" example:"2"`
	SlotStart time.Time `json:"slotStart" gorm:"not null;index" example:"2025-01-18T09:00:00+07:00"`
	SlotEnd   time.Time `json:"slotEnd" gorm:"not null" example:"2025-01-18T09:15:00+07:00"`
	Mode      string    `json:"mode" gorm:"type:varchar(16);not null" example:"online"`
	Notes     string    `json:"notes" gorm:"type:text" example:"Feeling anxious before exams"`
	Status    string    `json:"status" gorm:"type:varchar(16);not null;default:pending;index" example:"pending"`
}

// AppointmentView joins an appointment with the names shown in lists.
type AppointmentView struct {
	Appointment
	StudentName  string `json:"name" gorm:"column:student_name" example:"Jane Doe"`
	StudentEmail string `json:"email" gorm:"column:student_email" example:"jane@example.com"`
	StudentPhone string `json:"phone" gorm:"column:student_phone" example:"081234567890"`
	DoctorName   string `json:"doctorName" gorm:"column:doctor_name" example:"Dr. Sari"`
}

// IsValidStatus reports whether s is a known appointment status.
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether an appointment may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the appointment to status or returns
// ErrInvalidTransition.
func (a *Appointment) TransitionTo(status string) error {
	if !CanTransition(a.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, status)
	}
	a.Status = status
	return nil
}

// TakenSlots returns the slots of a doctor on date that are held by a live
// appointment, using loc to map timestamps back to wall-clock times.
func TakenSlots(db *gorm.DB, doctorID uint, date string, loc *time.Location) ([]slot.Slot, error) {
	day, err := time.ParseInLocation(slot.DateLayout, date, loc)
	if err != nil {
		return nil, err
	}
	var appts []Appointment
	err = db.Where("doctor_id = ? AND status IN ? AND slot_start >= ? AND slot_start < ?",
		doctorID, LiveStatuses, day.UTC(), day.AddDate(0, 0, 1).UTC()).
		Order("slot_start ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	taken := make([]slot.Slot, 0, len(appts))
	for _, a := range appts {
		taken = append(taken, slot.Slot{
			StartTime: a.SlotStart.In(loc).Format(slot.ClockLayout),
			EndTime:   a.SlotEnd.In(loc).Format(slot.ClockLayout),
		})
	}
	return taken, nil
}

// HasLiveBooking reports whether the doctor already has a live appointment
// starting at start.
func HasLiveBooking(db *gorm.DB, doctorID uint, start time.Time) (bool, error) {
	var count int64
	err := db.Model(&Appointment{}).
		Where("doctor_id = ? AND slot_start = ? AND status IN ?", doctorID, start.UTC(), LiveStatuses).
		Count(&count).Error
	return count > 0, err
}
