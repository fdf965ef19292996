package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserModel_UniqueEmail(t *testing.T) {
	db := setupTestDB(t, "users", &User{}, &Role{})

	user := User{Name: "Test User", Email: "test@test.com", Password: "hash", RoleID: 1}
	assert.NoError(t, db.Create(&user).Error)
	assert.NotZero(t, user.ID)

	dup := User{Name: "Other", Email: "test@test.com", Password: "hash", RoleID: 1}
	assert.Error(t, db.Create(&dup).Error)
}

func TestUserIsLocked(t *testing.T) {
	now := time.Now()
	u := User{}
	locked, _ := u.IsLocked(now)
	assert.False(t, locked)

	until := now.Add(10 * time.Minute).Unix()
	u.LockedUntil = &until
	locked, expiry := u.IsLocked(now)
	assert.True(t, locked)
	assert.Equal(t, until, expiry.Unix())

	past := now.Add(-time.Minute).Unix()
	u.LockedUntil = &past
	locked, _ = u.IsLocked(now)
	assert.False(t, locked)
}

func TestProfileOf(t *testing.T) {
	uni := uint(3)
	u := User{Name: "Jane", Email: "jane@example.com", Phone: "0812", UniversityID: &uni}
	u.ID = 7
	p := ProfileOf(u, RoleStudent)
	assert.Equal(t, Profile{ID: 7, Name: "Jane", Email: "jane@example.com", Phone: "0812", Role: RoleStudent, UniversityID: &uni}, p)
}

func TestSessionModel_ExpiredSession(t *testing.T) {
	db := setupTestDB(t, "sessions", &User{}, &Session{})
	user := User{Name: "S", Email: "s@test.com", Password: "hash", RoleID: 1}
	assert.NoError(t, db.Create(&user).Error)

	assert.NoError(t, db.Create(&Session{UserID: user.ID, SessionToken: "expired", ExpiresAt: time.Now().Add(-time.Hour)}).Error)
	assert.NoError(t, db.Create(&Session{UserID: user.ID, SessionToken: "valid", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	var active []Session
	err := db.Where("user_id = ? AND expires_at > ?", user.ID, time.Now()).Find(&active).Error
	assert.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, "valid", active[0].SessionToken)
}
