package booking

import (
	"context"
	"sync"

	"github.com/ariebrainware/mindery/slot"
)

// FetchFunc loads the bookable slots of a doctor on a date.
type FetchFunc func(ctx context.Context, doctorID uint, date string) ([]slot.Slot, error)

// SlotList is the slot list currently shown for one doctor and date.
type SlotList struct {
	DoctorID uint
	Date     string
	Slots    []slot.Slot
	Err      error
}

// SlotLoader keeps the slot list of one booking form. A fetch result is
// applied only when no newer fetch was started after it; stale fetches run
// to completion and are discarded. Safe for concurrent use.
type SlotLoader struct {
	mu      sync.Mutex
	seq     uint64
	current SlotList
	// selected is cleared whenever a new doctor or date is loaded.
	selected *slot.Slot
}

// Load fetches slots for (doctorID, date) and reports whether the result
// was applied.
func (l *SlotLoader) Load(ctx context.Context, doctorID uint, date string, fetch FetchFunc) (SlotList, bool) {
	l.mu.Lock()
	l.seq++
	mine := l.seq
	if l.current.DoctorID != doctorID || l.current.Date != date {
		l.selected = nil
	}
	l.mu.Unlock()

	slots, err := fetch(ctx, doctorID, date)
	result := SlotList{DoctorID: doctorID, Date: date, Slots: slots, Err: err}

	l.mu.Lock()
	defer l.mu.Unlock()
	if mine != l.seq {
		return result, false
	}
	l.current = result
	return result, true
}

// Current returns the applied slot list.
func (l *SlotLoader) Current() SlotList {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Select marks s as chosen. It fails with ErrInvalidSelection when s is not
// in the current list.
func (l *SlotLoader) Select(s slot.Slot) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !slot.Contains(l.current.Slots, s) {
		return ErrInvalidSelection
	}
	l.selected = &s
	return nil
}

// Selection builds a Selection from the loaded doctor, date and chosen slot.
func (l *SlotLoader) Selection(notes, mode string) (Selection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selected == nil {
		return Selection{}, ErrMissingSelection
	}
	return Selection{
		DoctorID: l.current.DoctorID,
		Date:     l.current.Date,
		Slot:     *l.selected,
		Notes:    notes,
		Mode:     mode,
	}, nil
}
