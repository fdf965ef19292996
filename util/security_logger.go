package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/ariebrainware/mindery/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityEventType names an audited event.
type SecurityEventType string

const (
	EventLoginSuccess       SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure       SecurityEventType = "LOGIN_FAILURE"
	EventSignupSuccess      SecurityEventType = "SIGNUP_SUCCESS"
	EventLogout             SecurityEventType = "LOGOUT"
	EventAccountLocked      SecurityEventType = "ACCOUNT_LOCKED"
	EventUnauthorizedAccess SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventForbiddenAccess    SecurityEventType = "FORBIDDEN_ACCESS"
	EventRateLimitExceeded  SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventEndpointCall       SecurityEventType = "ENDPOINT_CALL"

	EventAppointmentBooked SecurityEventType = "APPOINTMENT_BOOKED"
	EventStatusChanged     SecurityEventType = "APPOINTMENT_STATUS_CHANGED"
	EventSlotsReplaced     SecurityEventType = "SLOTS_REPLACED"
)

// SecurityEvent is one audit record.
type SecurityEvent struct {
	EventType SecurityEventType
	UserID    string
	Email     string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

var (
	securityMu     sync.RWMutex
	securityLogger = log.New(os.Stdout, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix)
	securityDB     *gorm.DB
)

// SetSecurityLoggerDB enables persistence of events to security_logs.
func SetSecurityLoggerDB(db *gorm.DB) {
	securityMu.Lock()
	defer securityMu.Unlock()
	securityDB = db
}

const maxLogValue = 200

// sanitizeLogValue flattens control whitespace and truncates long values so
// a single event stays on one line.
func sanitizeLogValue(value string) string {
	value = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(value)
	if len(value) > maxLogValue {
		value = value[:maxLogValue] + "..."
	}
	return value
}

// LogSecurityEvent writes the event to the security log and, when a DB is
// configured, persists it. Persistence failures are logged and swallowed.
func LogSecurityEvent(event SecurityEvent) {
	securityMu.RLock()
	logger, db := securityLogger, securityDB
	securityMu.RUnlock()

	line := fmt.Sprintf("Event=%s UserID=%s Email=%s IP=%s UserAgent=%s Message=%s",
		sanitizeLogValue(string(event.EventType)),
		sanitizeLogValue(event.UserID),
		sanitizeLogValue(event.Email),
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.UserAgent),
		sanitizeLogValue(event.Message),
	)
	if len(event.Details) > 0 {
		line = fmt.Sprintf("%s DetailsCount=%d", line, len(event.Details))
	}
	logger.Println(line)

	if db == nil {
		return
	}
	var details datatypes.JSON
	if len(event.Details) > 0 {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}
	entry := model.SecurityLog{
		EventType: string(event.EventType),
		UserID:    sanitizeLogValue(event.UserID),
		Email:     sanitizeLogValue(event.Email),
		IP:        sanitizeLogValue(event.IP),
		Location:  sanitizeLogValue(GetIPLocation(event.IP).String()),
		UserAgent: sanitizeLogValue(event.UserAgent),
		Message:   sanitizeLogValue(event.Message),
		Details:   details,
	}
	if err := db.Create(&entry).Error; err != nil {
		logger.Printf("Failed to persist security event: %v", err)
	}
}

func userIDString(id uint) string {
	if id == 0 {
		return ""
	}
	return fmt.Sprintf("%d", id)
}

func LogLoginSuccess(userID uint, email, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		UserID:    userIDString(userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged in successfully",
	})
}

func LogLoginFailure(email, ip, userAgent, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "Login failed: " + reason,
	})
}

func LogSignup(userID uint, email, role, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventSignupSuccess,
		UserID:    userIDString(userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User signed up",
		Details:   map[string]interface{}{"role": role},
	})
}

func LogLogout(userID uint, email, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLogout,
		UserID:    userIDString(userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged out",
	})
}

func LogAccountLocked(userID uint, email, ip, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventAccountLocked,
		UserID:    userIDString(userID),
		Email:     email,
		IP:        ip,
		Message:   "Account locked: " + reason,
	})
}

func LogUnauthorizedAccess(userID, email, ip, resource, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		UserID:    userID,
		Email:     email,
		IP:        ip,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", resource, reason),
	})
}

// LogForbiddenAccess records an authenticated caller hitting a route its
// role is not allowed on.
func LogForbiddenAccess(userID uint, role, ip, resource string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventForbiddenAccess,
		UserID:    userIDString(userID),
		IP:        ip,
		Message:   fmt.Sprintf("Role %s may not access %s", role, resource),
	})
}

func LogRateLimitExceeded(email, ip, endpoint string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		Email:     email,
		IP:        ip,
		Message:   "Rate limit exceeded for endpoint: " + endpoint,
	})
}

// LogAppointmentBooked records a new booking.
func LogAppointmentBooked(studentID uint, ip string, appt model.Appointment) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventAppointmentBooked,
		UserID:    userIDString(studentID),
		IP:        ip,
		Message:   "Appointment booked",
		Details: map[string]interface{}{
			"appointment_id": appt.ID,
			"reference":      appt.Reference,
			"doctor_id":      appt.DoctorID,
			"slot_start":     appt.SlotStart,
			"mode":           appt.Mode,
		},
	})
}

// LogStatusChanged records an appointment status transition.
func LogStatusChanged(actorID uint, ip string, appointmentID uint, from, to string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventStatusChanged,
		UserID:    userIDString(actorID),
		IP:        ip,
		Message:   fmt.Sprintf("Appointment %d moved from %s to %s", appointmentID, from, to),
		Details:   map[string]interface{}{"appointment_id": appointmentID, "from": from, "to": to},
	})
}

// LogSlotsReplaced records an admin replacing a doctor's slot schedule.
func LogSlotsReplaced(actorID uint, ip string, doctorID uint, dates, slots int) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventSlotsReplaced,
		UserID:    userIDString(actorID),
		IP:        ip,
		Message:   fmt.Sprintf("Slots of doctor %d replaced", doctorID),
		Details:   map[string]interface{}{"doctor_id": doctorID, "dates": dates, "slots": slots},
	})
}

// GetSecurityLoggerForTest returns the current security logger.
func GetSecurityLoggerForTest() *log.Logger {
	securityMu.RLock()
	defer securityMu.RUnlock()
	return securityLogger
}

// SetSecurityLoggerForTest swaps the security logger.
func SetSecurityLoggerForTest(logger *log.Logger) {
	securityMu.Lock()
	defer securityMu.Unlock()
	securityLogger = logger
}
