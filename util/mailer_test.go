package util

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ariebrainware/mindery/config"
	"github.com/ariebrainware/mindery/model"
	"github.com/go-gomail/gomail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailer_Unconfigured(t *testing.T) {
	assert.Nil(t, NewMailer(nil))
	assert.Nil(t, NewMailer(&config.Config{}))

	var m *Mailer
	assert.NoError(t, m.NotifyStatus(Contact{Email: "a@b.c"}, "Dr. X", model.Appointment{}, nil))
	m.NotifyStatusAsync(Contact{Email: "a@b.c"}, "Dr. X", model.Appointment{}, nil)
}

func TestNewMailer_Configured(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "smtp.example.com", SMTPUser: "bot@example.com"})
	require.NotNil(t, m)
	assert.Equal(t, "bot@example.com", m.from)
	assert.NotNil(t, m.send)
}

func TestNewMailer_DialsConfiguredServer(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "127.0.0.1", SMTPPort: 1, SMTPFrom: "noreply@mindery.test"})
	require.NotNil(t, m)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", "student@example.com")
	msg.SetBody("text/plain", "hello")
	assert.Error(t, m.send(msg), "nothing listens on port 1")
}

func TestNotifyStatus_ComposesMessage(t *testing.T) {
	var (
		gotFrom string
		gotTo   []string
		raw     bytes.Buffer
	)
	sender := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		gotFrom, gotTo = from, to
		_, err := msg.WriteTo(&raw)
		return err
	})
	m := NewMailerWithSender("noreply@mindery.test", sender)

	loc := time.FixedZone("WIB", 7*3600)
	appt := model.Appointment{
		Reference: "ref-123",
		Mode:      model.AvailabilityOnline,
		Status:    model.StatusApproved,
		SlotStart: time.Date(2025, 1, 18, 2, 0, 0, 0, time.UTC),
		SlotEnd:   time.Date(2025, 1, 18, 2, 15, 0, 0, time.UTC),
	}
	err := m.NotifyStatus(Contact{Name: "Jane", Email: "jane@example.com"}, "Dr. Sari", appt, loc)
	require.NoError(t, err)

	assert.Equal(t, "noreply@mindery.test", gotFrom)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)
	text := raw.String()
	assert.Contains(t, text, "Your counselling session is confirmed")
	assert.Contains(t, text, "09:00-09:15")
	assert.Contains(t, text, "ref-123")
}

func TestNotifyStatus_SendError(t *testing.T) {
	m := NewMailerWithSender("x@y.z", gomail.SendFunc(func(string, []string, io.WriterTo) error {
		return errors.New("smtp down")
	}))
	err := m.NotifyStatus(Contact{Email: "jane@example.com"}, "Dr", model.Appointment{Status: model.StatusRejected}, nil)
	assert.ErrorContains(t, err, "smtp down")
}

func TestStatusSubject(t *testing.T) {
	assert.Contains(t, statusSubject(model.StatusRejected), "declined")
	assert.Contains(t, statusSubject(model.StatusCompleted), "Thank you")
	assert.Contains(t, statusSubject("other"), "updated")
}
