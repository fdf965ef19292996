package util

import (
	"fmt"
	"log"
	"time"

	"github.com/ariebrainware/mindery/config"
	"github.com/ariebrainware/mindery/model"
	"github.com/go-gomail/gomail"
)

// Mailer sends appointment notifications to students. A nil or unconfigured
// Mailer silently drops messages.
type Mailer struct {
	from string
	send func(m *gomail.Message) error
}

// NewMailer builds a Mailer from the SMTP settings. It returns nil when no
// SMTP host is configured.
func NewMailer(cfg *config.Config) *Mailer {
	if cfg == nil || cfg.SMTPHost == "" {
		return nil
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	d := gomail.NewDialer(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPass)
	return &Mailer{from: from, send: func(m *gomail.Message) error { return d.DialAndSend(m) }}
}

// NewMailerWithSender is used by tests to capture outgoing mail.
func NewMailerWithSender(from string, s gomail.Sender) *Mailer {
	return &Mailer{from: from, send: func(m *gomail.Message) error { return gomail.Send(s, m) }}
}

func statusSubject(status string) string {
	switch status {
	case model.StatusApproved:
		return "Your counselling session is confirmed"
	case model.StatusRejected:
		return "Your counselling session request was declined"
	case model.StatusCompleted:
		return "Thank you for attending your counselling session"
	default:
		return "Your counselling session was updated"
	}
}

// NotifyStatus mails the student about a status change of appt. Times are
// rendered in loc.
func (m *Mailer) NotifyStatus(to Contact, doctorName string, appt model.Appointment, loc *time.Location) error {
	if m == nil || to.Email == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	start := appt.SlotStart.In(loc)
	body := fmt.Sprintf("Hi %s,\n\nYour %s session with %s on %s at %s-%s is now %s.\n\nReference: %s\n",
		to.Name, appt.Mode, doctorName,
		start.Format("Monday, 2 January 2006"), start.Format("15:04"), appt.SlotEnd.In(loc).Format("15:04"),
		appt.Status, appt.Reference)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to.Email)
	msg.SetHeader("Subject", statusSubject(appt.Status))
	msg.SetBody("text/plain", body, gomail.SetPartEncoding(gomail.Unencoded))

	if err := m.send(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// NotifyStatusAsync sends in the background and only logs failures.
func (m *Mailer) NotifyStatusAsync(to Contact, doctorName string, appt model.Appointment, loc *time.Location) {
	if m == nil || to.Email == "" {
		return
	}
	go func() {
		if err := m.NotifyStatus(to, doctorName, appt, loc); err != nil {
			log.Printf("Failed to notify %s about appointment %d: %v", to.Email, appt.ID, err)
		}
	}()
}
