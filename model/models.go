package model

// All lists every model migrated at startup.
func All() []interface{} {
	return []interface{}{
		&Role{},
		&User{},
		&Session{},
		&University{},
		&Doctor{},
		&DoctorSlot{},
		&Appointment{},
		&Report{},
		&Assessment{},
		&AssessmentResult{},
		&SecurityLog{},
	}
}
