package endpoint

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariebrainware/mindery/config"
	"github.com/ariebrainware/mindery/model"
	"github.com/ariebrainware/mindery/slot"
	"github.com/ariebrainware/mindery/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "password123"

var dbSeq atomic.Int64

// SetupTestServer opens a private in-memory database, migrates and seeds it
// and returns the full API router on top of it.
func SetupTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:endpoint_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	require.NoError(t, model.SeedRoles(db))
	require.NoError(t, model.SeedAssessments(db))

	config.ResetRedisClientForTest()
	util.FlushDirectory()
	util.InitUserContactCache(100)
	t.Cleanup(func() {
		util.FlushDirectory()
		SetMailer(nil)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	r := gin.New()
	RegisterRoutes(r, db)
	return r, db
}

type userParams struct {
	Name         string
	Email        string
	Role         string
	UniversityID *uint
}

func createUser(t *testing.T, db *gorm.DB, p userParams) model.User {
	t.Helper()
	role, err := model.FindRoleByName(db, p.Role)
	require.NoError(t, err)
	salt, err := util.GenerateSalt()
	require.NoError(t, err)
	hashed, err := util.HashPasswordArgon2(testPassword, salt)
	require.NoError(t, err)
	if p.Name == "" {
		p.Name = "Test " + p.Role
	}
	user := model.User{
		Name:         p.Name,
		Email:        p.Email,
		Phone:        "0812",
		Password:     hashed,
		PasswordSalt: salt,
		RoleID:       role.ID,
		UniversityID: p.UniversityID,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// loginToken issues a token for user and records its session row.
func loginToken(t *testing.T, db *gorm.DB, user model.User, role string) string {
	t.Helper()
	token, expires, err := util.IssueToken(user.ID, user.Email, role, time.Now())
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Session{UserID: user.ID, SessionToken: token, ExpiresAt: expires}).Error)
	return token
}

// createAccount is createUser followed by loginToken.
func createAccount(t *testing.T, db *gorm.DB, p userParams) (model.User, string) {
	t.Helper()
	user := createUser(t, db, p)
	return user, loginToken(t, db, user, p.Role)
}

type doctorParams struct {
	Name             string
	AvailabilityType string
	IsAvailable      string
	UserID           *uint
}

func createDoctor(t *testing.T, db *gorm.DB, p doctorParams) model.Doctor {
	t.Helper()
	if p.Name == "" {
		p.Name = "Dr. Test"
	}
	if p.AvailabilityType == "" {
		p.AvailabilityType = model.AvailabilityBoth
	}
	if p.IsAvailable == "" {
		p.IsAvailable = model.DoctorAvailable
	}
	doctor := model.Doctor{
		Name:             p.Name,
		Specialization:   "Counselling",
		Email:            fmt.Sprintf("doctor%d@example.com", dbSeq.Add(1)),
		AvailabilityType: p.AvailabilityType,
		IsAvailable:      p.IsAvailable,
		UserID:           p.UserID,
	}
	require.NoError(t, db.Create(&doctor).Error)
	return doctor
}

func storeSlots(t *testing.T, db *gorm.DB, doctorID uint, ds slot.DateSlots) {
	t.Helper()
	require.NoError(t, model.ReplaceDateSlots(db, doctorID, ds))
}

// pinClock fixes the handlers' clock at the given wall-clock time in the
// application zone.
func pinClock(t *testing.T, year int, month time.Month, day, hour, minute int) time.Time {
	t.Helper()
	now := time.Date(year, month, day, hour, minute, 0, 0, appLocation())
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = time.Now })
	return now
}

// at returns the absolute time of a wall clock on a date in the application
// zone.
func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, appLocation())
	require.NoError(t, err)
	return ts
}

func get(path, token string) requestSpec {
	return requestSpec{method: http.MethodGet, requestPath: path, token: token}
}

func send(method, path, token string, body interface{}) requestSpec {
	return requestSpec{method: method, requestPath: path, token: token, body: body}
}

// createAppointment stores an appointment for the slot start-end on date.
func createAppointment(t *testing.T, db *gorm.DB, doctorID, studentID uint, date, start, end, status string) model.Appointment {
	t.Helper()
	appt := model.Appointment{
		Reference: fmt.Sprintf("ref-%d", dbSeq.Add(1)),
		DoctorID:  doctorID,
		StudentID: studentID,
		SlotStart: at(t, date, start).UTC(),
		SlotEnd:   at(t, date, end).UTC(),
		Mode:      model.AvailabilityOnline,
		Status:    status,
	}
	require.NoError(t, db.Create(&appt).Error)
	return appt
}
