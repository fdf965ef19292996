// Package booking packages a portal selection into a create-appointment
// request and talks to the Mindery API on a student's or doctor's behalf.
package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariebrainware/mindery/slot"
)

var (
	// ErrMissingSelection means the doctor, date or slot was not chosen.
	ErrMissingSelection = errors.New("please select a doctor, a date and a time slot")
	// ErrInvalidSelection means a chosen value could not be interpreted.
	ErrInvalidSelection = errors.New("invalid booking selection")
)

// Modes accepted by the API.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

// Selection is what the student picked in the booking form.
type Selection struct {
	DoctorID uint
	Date     string
	Slot     slot.Slot
	Notes    string
	Mode     string
}

// Request is the create-appointment payload.
type Request struct {
	DoctorID  uint      `json:"doctorId" binding:"required" example:"3"`
	SlotStart time.Time `json:"slotStart" binding:"required" example:"2025-01-18T09:00:00+07:00"`
	SlotEnd   time.Time `json:"slotEnd" binding:"required" example:"2025-01-18T09:15:00+07:00"`
	Notes     string    `json:"notes" example:"Feeling anxious before exams"`
	Mode      string    `json:"mode" example:"online"`
}

// NormalizeMode lower-cases mode and defaults to online.
func NormalizeMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return ModeOnline
	}
	return mode
}

// NewRequest validates sel and resolves its slot on sel.Date in loc.
func NewRequest(sel Selection, loc *time.Location) (Request, error) {
	if sel.DoctorID == 0 || strings.TrimSpace(sel.Date) == "" || sel.Slot.StartTime == "" || sel.Slot.EndTime == "" {
		return Request{}, ErrMissingSelection
	}
	start, end, err := sel.Slot.Window(strings.TrimSpace(sel.Date), loc)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	return Request{
		DoctorID:  sel.DoctorID,
		SlotStart: start,
		SlotEnd:   end,
		Notes:     strings.TrimSpace(sel.Notes),
		Mode:      NormalizeMode(sel.Mode),
	}, nil
}

// ParseSlotValue decodes the slot picker's "HH:MM|HH:MM" value.
func ParseSlotValue(value string) (slot.Slot, error) {
	if strings.TrimSpace(value) == "" {
		return slot.Slot{}, ErrMissingSelection
	}
	start, end, ok := strings.Cut(value, "|")
	if !ok {
		return slot.Slot{}, fmt.Errorf("%w: slot %q", ErrInvalidSelection, value)
	}
	s := slot.Slot{StartTime: strings.TrimSpace(start), EndTime: strings.TrimSpace(end)}
	if err := s.Validate(); err != nil {
		return slot.Slot{}, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	return s, nil
}
