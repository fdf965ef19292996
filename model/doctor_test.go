package model

import (
	"testing"

	"github.com/ariebrainware/mindery/slot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestDoctorAcceptsMode(t *testing.T) {
	tests := []struct {
		availability string
		mode         string
		expected     bool
	}{
		{AvailabilityBoth, AvailabilityOnline, true},
		{AvailabilityBoth, AvailabilityOffline, true},
		{AvailabilityBoth, "hybrid", false},
		{AvailabilityOnline, AvailabilityOnline, true},
		{AvailabilityOnline, AvailabilityOffline, false},
		{AvailabilityOffline, AvailabilityOffline, true},
		{AvailabilityOffline, AvailabilityOnline, false},
	}
	for _, tt := range tests {
		d := Doctor{AvailabilityType: tt.availability}
		assert.Equal(t, tt.expected, d.AcceptsMode(tt.mode), "%s accepts %s", tt.availability, tt.mode)
	}
}

func TestDoctorDefaultModeAndBookable(t *testing.T) {
	assert.Equal(t, AvailabilityOffline, (&Doctor{AvailabilityType: AvailabilityOffline}).DefaultMode())
	assert.Equal(t, AvailabilityOnline, (&Doctor{AvailabilityType: AvailabilityBoth}).DefaultMode())
	assert.True(t, (&Doctor{IsAvailable: DoctorAvailable}).IsBookable())
	assert.False(t, (&Doctor{IsAvailable: DoctorNotAvailable}).IsBookable())
}

func TestAvailabilityValidators(t *testing.T) {
	assert.True(t, IsValidAvailabilityType(AvailabilityBoth))
	assert.False(t, IsValidAvailabilityType("phone"))
	assert.True(t, IsValidAvailabilityStatus(DoctorNotAvailable))
	assert.False(t, IsValidAvailabilityStatus("busy"))
}

func TestReplaceAndLoadDateSlots(t *testing.T) {
	db := setupTestDB(t, "doctor_slots", &Doctor{}, &DoctorSlot{})
	doctor := Doctor{Name: "Dr. Sari", Specialization: "Psychology", Email: "sari@example.com"}
	require.NoError(t, db.Create(&doctor).Error)

	first := slot.DateSlots{
		"2025-01-19": slot.Generate("09:00", "10:00", 30),
		"2025-01-18": {{StartTime: "13:00", EndTime: "13:15"}},
	}
	require.NoError(t, ReplaceDateSlots(db, doctor.ID, first))

	loaded, err := LoadDateSlots(db, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, first, loaded)

	// replacing drops dates that are no longer present
	second := slot.DateSlots{"2025-01-20": slot.Generate("08:00", "08:30", 15)}
	require.NoError(t, ReplaceDateSlots(db, doctor.ID, second))
	loaded, err = LoadDateSlots(db, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, second, loaded)

	require.NoError(t, ReplaceDateSlots(db, doctor.ID, slot.DateSlots{}))
	loaded, err = LoadDateSlots(db, doctor.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestReplaceDaySlots(t *testing.T) {
	db := setupTestDB(t, "doctor_day_slots", &Doctor{}, &DoctorSlot{})
	doctor := Doctor{Name: "Dr. Budi", Specialization: "Counselling", Email: "budi@example.com"}
	require.NoError(t, db.Create(&doctor).Error)

	require.NoError(t, ReplaceDateSlots(db, doctor.ID, slot.DateSlots{
		"2025-01-18": slot.Generate("09:00", "10:00", 30),
		"2025-01-19": slot.Generate("09:00", "10:00", 30),
	}))
	require.NoError(t, ReplaceDaySlots(db, doctor.ID, "2025-01-18", slot.Generate("14:00", "14:45", 15)))

	day, err := LoadDaySlots(db, doctor.ID, "2025-01-18")
	require.NoError(t, err)
	assert.Equal(t, slot.Generate("14:00", "14:45", 15), day)

	other, err := LoadDaySlots(db, doctor.ID, "2025-01-19")
	require.NoError(t, err)
	assert.Len(t, other, 2)

	none, err := LoadDaySlots(db, doctor.ID, "2025-02-01")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLockDoctor(t *testing.T) {
	db := setupTestDB(t, "lock_doctor", &Doctor{})
	doctor := Doctor{Name: "Dr. Lock", Specialization: "Psychology", Email: "lock@example.com", AvailabilityType: AvailabilityBoth, IsAvailable: DoctorAvailable}
	require.NoError(t, db.Create(&doctor).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := LockDoctor(tx, doctor.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, doctor.ID, locked.ID)
		return nil
	})
	require.NoError(t, err)

	_, err = LockDoctor(db, doctor.ID+100)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLockDoctorSelectsForUpdate(t *testing.T) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/mindery?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	stmt := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&Doctor{}, 7).Statement
	assert.Contains(t, stmt.SQL.String(), "FOR UPDATE")

	_, err = LockDoctor(db, 7)
	assert.NoError(t, err)
}
