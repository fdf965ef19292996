// Package slot holds the bookable time window model: generating contiguous
// slots for a working window and filtering a doctor's stored slots down to
// the ones that can still be booked.
package slot

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// ClockLayout is the wall-clock format used for slot boundaries.
	ClockLayout = "15:04"
	// DateLayout is the format of the keys in DateSlots.
	DateLayout = "2006-01-02"
)

var (
	// ErrMalformedClock means a value is not a valid HH:MM between 00:00 and 24:00.
	ErrMalformedClock = errors.New("malformed clock value")
	// ErrEmptyWindow means a slot does not start before it ends.
	ErrEmptyWindow = errors.New("slot start must be before slot end")
	// ErrOverlap means two slots of the same date share time.
	ErrOverlap = errors.New("slots overlap")
)

// Slot is a bookable interval expressed as wall-clock times on some date.
type Slot struct {
	StartTime string `json:"startTime" example:"09:00"`
	EndTime   string `json:"endTime" example:"09:15"`
}

// DateSlots maps a YYYY-MM-DD date to the slots offered on that date.
type DateSlots map[string][]Slot

// DayAvailability is one date with the slots still bookable on it.
type DayAvailability struct {
	Date  string `json:"date" example:"2025-01-18"`
	Slots []Slot `json:"slots"`
}

// ParseClock converts HH:MM into minutes since midnight. 24:00 is accepted so
// a window can run to the end of the day.
func ParseClock(value string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedClock, value)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedClock, value)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedClock, value)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedClock, value)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Generate walks a cursor from start and emits [cursor, cursor+duration]
// while the slot still ends at or before end. A trailing remainder shorter
// than duration is dropped. Empty windows, non-positive durations and
// unparsable times all yield no slots.
func Generate(start, end string, durationMinutes int) []Slot {
	if durationMinutes <= 0 {
		return []Slot{}
	}
	from, err := ParseClock(start)
	if err != nil {
		return []Slot{}
	}
	to, err := ParseClock(end)
	if err != nil || from >= to {
		return []Slot{}
	}

	slots := make([]Slot, 0, (to-from)/durationMinutes)
	for cursor := from; cursor+durationMinutes <= to; cursor += durationMinutes {
		slots = append(slots, Slot{
			StartTime: FormatClock(cursor),
			EndTime:   FormatClock(cursor + durationMinutes),
		})
	}
	return slots
}

// Window returns the absolute start and end of the slot on date in loc.
func (s Slot) Window(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, err := ParseClock(s.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseClock(s.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from >= to {
		return time.Time{}, time.Time{}, ErrEmptyWindow
	}
	return atMinute(day, from), atMinute(day, to), nil
}

// Validate reports whether the slot is well formed with start before end.
func (s Slot) Validate() error {
	from, err := ParseClock(s.StartTime)
	if err != nil {
		return err
	}
	to, err := ParseClock(s.EndTime)
	if err != nil {
		return err
	}
	if from >= to {
		return fmt.Errorf("%w: %s-%s", ErrEmptyWindow, s.StartTime, s.EndTime)
	}
	return nil
}

// normalized zero-pads both boundaries. The slot must already be valid.
func (s Slot) normalized() Slot {
	from, _ := ParseClock(s.StartTime)
	to, _ := ParseClock(s.EndTime)
	return Slot{StartTime: FormatClock(from), EndTime: FormatClock(to)}
}

// String renders the slot the way the booking form encodes it.
func (s Slot) String() string {
	return s.StartTime + "|" + s.EndTime
}

// ValidateDay checks manually entered slots for one date. The slots are
// returned zero-padded and sorted by start time.
func ValidateDay(slots []Slot) ([]Slot, error) {
	sorted := make([]Slot, len(slots))
	for i, s := range slots {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		sorted[i] = s.normalized()
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := ParseClock(sorted[i].StartTime)
		b, _ := ParseClock(sorted[j].StartTime)
		return a < b
	})
	for i := 1; i < len(sorted); i++ {
		prevEnd, _ := ParseClock(sorted[i-1].EndTime)
		start, _ := ParseClock(sorted[i].StartTime)
		if start < prevEnd {
			return nil, fmt.Errorf("%w: %s and %s", ErrOverlap, sorted[i-1], sorted[i])
		}
	}
	return sorted, nil
}

// Exclude drops every slot whose start time is in taken.
func Exclude(slots []Slot, taken []Slot) []Slot {
	if len(taken) == 0 {
		return slots
	}
	busy := make(map[string]bool, len(taken))
	for _, t := range taken {
		busy[t.StartTime] = true
	}
	free := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if !busy[s.StartTime] {
			free = append(free, s)
		}
	}
	return free
}

// Contains reports whether slots holds a slot with the same boundaries as s.
func Contains(slots []Slot, s Slot) bool {
	for _, candidate := range slots {
		if candidate == s {
			return true
		}
	}
	return false
}

func atMinute(day time.Time, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, day.Location())
}
