package util

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/ariebrainware/mindery/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	original := GetSecurityLoggerForTest()
	SetSecurityLoggerForTest(log.New(buf, "[SECURITY] ", log.Lmsgprefix))
	t.Cleanup(func() { SetSecurityLoggerForTest(original) })
	return buf
}

func setupSecurityDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:securitylog_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.SecurityLog{}))
	SetSecurityLoggerDB(db)
	t.Cleanup(func() { SetSecurityLoggerDB(nil) })
	return db
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello\nworld", "hello world"},
		{"hello\rworld", "hello world"},
		{"hello\tworld", "hello world"},
		{strings.Repeat("a", 250), strings.Repeat("a", 200) + "..."},
		{"", ""},
		{"line1\nline2\rline3\ttab", "line1 line2 line3 tab"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeLogValue(tt.input))
	}
}

func TestLogSecurityEvent_WritesSingleLine(t *testing.T) {
	buf := setupTestLogger(t)
	LogLoginFailure("evil@test.com\nEvent=FAKE", "1.2.3.4", "curl", "invalid password")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "Event=LOGIN_FAILURE")
	assert.Contains(t, out, "Email=evil@test.com Event=FAKE")
	assert.Contains(t, out, "Message=Login failed: invalid password")
}

func TestLogSecurityEvent_DetailsCount(t *testing.T) {
	buf := setupTestLogger(t)
	LogStatusChanged(4, "10.0.0.2", 77, model.StatusPending, model.StatusApproved)

	out := buf.String()
	assert.Contains(t, out, "Event=APPOINTMENT_STATUS_CHANGED")
	assert.Contains(t, out, "UserID=4")
	assert.Contains(t, out, "DetailsCount=3")
	assert.Contains(t, out, "from pending to approved")
}

func TestLogSecurityEvent_Persists(t *testing.T) {
	setupTestLogger(t)
	db := setupSecurityDB(t)

	appt := model.Appointment{Reference: "ref-1", DoctorID: 3, Mode: "online"}
	appt.ID = 9
	LogAppointmentBooked(12, "10.0.0.1", appt)
	LogSlotsReplaced(1, "10.0.0.1", 3, 2, 8)

	var logs []model.SecurityLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, string(EventAppointmentBooked), logs[0].EventType)
	assert.Equal(t, "12", logs[0].UserID)
	assert.Contains(t, string(logs[0].Details), `"reference":"ref-1"`)
	assert.Empty(t, logs[0].Location, "private addresses are not resolved")
	assert.Equal(t, string(EventSlotsReplaced), logs[1].EventType)
}

func TestLogHelpers_EventTypes(t *testing.T) {
	buf := setupTestLogger(t)

	LogLoginSuccess(1, "a@test.com", "1.1.1.1", "ua")
	LogSignup(2, "b@test.com", model.RoleStudent, "1.1.1.1", "ua")
	LogLogout(1, "a@test.com", "1.1.1.1", "ua")
	LogAccountLocked(1, "a@test.com", "1.1.1.1", "too many attempts")
	LogUnauthorizedAccess("", "", "1.1.1.1", "/api/me", "missing token")
	LogForbiddenAccess(2, model.RoleStudent, "1.1.1.1", "/api/admin/approved")
	LogRateLimitExceeded("a@test.com", "1.1.1.1", "/api/auth/login")

	out := buf.String()
	for _, ev := range []SecurityEventType{EventLoginSuccess, EventSignupSuccess, EventLogout, EventAccountLocked, EventUnauthorizedAccess, EventForbiddenAccess, EventRateLimitExceeded} {
		assert.Contains(t, out, "Event="+string(ev))
	}
	assert.Contains(t, out, "Role student may not access /api/admin/approved")
}
