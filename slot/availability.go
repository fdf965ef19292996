package slot

import "time"

// AvailableForDate returns the slots on date that can still be booked at now.
// Dates after today return every stored slot, today returns the slots that
// start at or after now, and past or unknown dates return nothing. The date
// is interpreted in now's location.
func AvailableForDate(dateSlots DateSlots, date string, now time.Time) []Slot {
	stored, ok := dateSlots[date]
	if !ok || len(stored) == 0 {
		return []Slot{}
	}
	loc := now.Location()
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return []Slot{}
	}
	today := startOfDay(now)

	switch {
	case day.After(today):
		out := make([]Slot, len(stored))
		copy(out, stored)
		return out
	case day.Equal(today):
		out := make([]Slot, 0, len(stored))
		for _, s := range stored {
			start, _, err := s.Window(date, loc)
			if err != nil {
				continue
			}
			if !start.Before(now) {
				out = append(out, s)
			}
		}
		return out
	default:
		return []Slot{}
	}
}

// UpcomingDates lists the next days calendar dates starting with today. When
// weekday is set only dates falling on that weekday are kept.
func UpcomingDates(now time.Time, days int, weekday *time.Weekday) []string {
	if days <= 0 {
		return []string{}
	}
	today := startOfDay(now)
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, i)
		if weekday != nil && d.Weekday() != *weekday {
			continue
		}
		dates = append(dates, d.Format(DateLayout))
	}
	return dates
}

// AvailableDates returns, in date order, the next days dates that still have
// bookable slots.
func AvailableDates(dateSlots DateSlots, now time.Time, days int) []DayAvailability {
	result := make([]DayAvailability, 0)
	for _, date := range UpcomingDates(now, days, nil) {
		slots := AvailableForDate(dateSlots, date, now)
		if len(slots) == 0 {
			continue
		}
		result = append(result, DayAvailability{Date: date, Slots: slots})
	}
	return result
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
