package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		duration int
		expected []Slot
	}{
		{
			name:     "empty window",
			start:    "09:00",
			end:      "09:00",
			duration: 15,
			expected: []Slot{},
		},
		{
			name:     "remainder discarded",
			start:    "09:00",
			end:      "09:31",
			duration: 15,
			expected: []Slot{{"09:00", "09:15"}, {"09:15", "09:30"}},
		},
		{
			name:     "exact fit",
			start:    "10:00",
			end:      "11:00",
			duration: 30,
			expected: []Slot{{"10:00", "10:30"}, {"10:30", "11:00"}},
		},
		{
			name:     "start after end",
			start:    "12:00",
			end:      "09:00",
			duration: 15,
			expected: []Slot{},
		},
		{
			name:     "zero duration",
			start:    "09:00",
			end:      "10:00",
			duration: 0,
			expected: []Slot{},
		},
		{
			name:     "negative duration",
			start:    "09:00",
			end:      "10:00",
			duration: -15,
			expected: []Slot{},
		},
		{
			name:     "duration longer than window",
			start:    "09:00",
			end:      "09:10",
			duration: 15,
			expected: []Slot{},
		},
		{
			name:     "runs to end of day",
			start:    "23:00",
			end:      "24:00",
			duration: 30,
			expected: []Slot{{"23:00", "23:30"}, {"23:30", "24:00"}},
		},
		{
			name:     "malformed start",
			start:    "9am",
			end:      "10:00",
			duration: 15,
			expected: []Slot{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.start, tt.end, tt.duration))
		})
	}
}

func TestGenerate_ContiguousCoverage(t *testing.T) {
	for _, duration := range []int{5, 7, 15, 20, 45, 60} {
		slots := Generate("08:10", "17:05", duration)
		from, _ := ParseClock("08:10")
		to, _ := ParseClock("17:05")
		k := (to - from) / duration
		require.Len(t, slots, k, "duration %d", duration)

		cursor := from
		for _, s := range slots {
			start, err := ParseClock(s.StartTime)
			require.NoError(t, err)
			end, err := ParseClock(s.EndTime)
			require.NoError(t, err)
			assert.Equal(t, cursor, start, "gap or overlap at %s", s)
			assert.Equal(t, duration, end-start)
			cursor = end
		}
		assert.LessOrEqual(t, cursor, to)
		assert.Less(t, to-cursor, duration)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	first := Generate("09:00", "12:00", 20)
	second := Generate("09:00", "12:00", 20)
	assert.Equal(t, first, second)
}

func TestParseClock(t *testing.T) {
	valid := map[string]int{"00:00": 0, "09:05": 545, "9:05": 545, "23:59": 1439, "24:00": 1440}
	for in, want := range valid {
		got, err := ParseClock(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "09", "09:5", "24:30", "25:00", "12:60", "ab:cd", "-1:00"} {
		_, err := ParseClock(in)
		assert.ErrorIs(t, err, ErrMalformedClock, in)
	}
}

func TestSlotWindow(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	start, end, err := Slot{"09:00", "09:15"}.Window("2025-01-18", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 18, 9, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 1, 18, 9, 15, 0, 0, loc), end)

	_, _, err = Slot{"09:15", "09:00"}.Window("2025-01-18", loc)
	assert.ErrorIs(t, err, ErrEmptyWindow)

	_, _, err = Slot{"09:00", "09:15"}.Window("18-01-2025", loc)
	assert.Error(t, err)
}

func TestValidateDay(t *testing.T) {
	sorted, err := ValidateDay([]Slot{{"10:00", "10:30"}, {"09:00", "09:30"}, {"09:30", "10:00"}})
	require.NoError(t, err)
	assert.Equal(t, []Slot{{"09:00", "09:30"}, {"09:30", "10:00"}, {"10:00", "10:30"}}, sorted)

	normalized, err := ValidateDay([]Slot{{"9:00", "9:30"}})
	require.NoError(t, err)
	assert.Equal(t, []Slot{{"09:00", "09:30"}}, normalized)

	_, err = ValidateDay([]Slot{{"09:00", "09:45"}, {"09:30", "10:00"}})
	assert.ErrorIs(t, err, ErrOverlap)

	_, err = ValidateDay([]Slot{{"09:30", "09:00"}})
	assert.ErrorIs(t, err, ErrEmptyWindow)

	_, err = ValidateDay([]Slot{{"nine", "09:00"}})
	assert.ErrorIs(t, err, ErrMalformedClock)
}

func TestExcludeAndContains(t *testing.T) {
	slots := Generate("09:00", "10:00", 15)
	free := Exclude(slots, []Slot{{"09:15", "09:30"}, {"09:45", "10:00"}})
	assert.Equal(t, []Slot{{"09:00", "09:15"}, {"09:30", "09:45"}}, free)
	assert.Equal(t, slots, Exclude(slots, nil))

	assert.True(t, Contains(slots, Slot{"09:30", "09:45"}))
	assert.False(t, Contains(slots, Slot{"09:30", "09:40"}))
}

func TestSlotString(t *testing.T) {
	assert.Equal(t, "09:00|09:15", Slot{"09:00", "09:15"}.String())
}
