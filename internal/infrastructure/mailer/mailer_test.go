package mailer

import (
	"errors"
	"testing"

	"aquasense-http-service/internal/infrastructure/config"
)

func TestNewFallsBackToLogMailer(t *testing.T) {
	if _, ok := New(&config.Config{SMTPEnabled: false}).(*LogMailer); !ok {
		t.Fatal("expected LogMailer when SMTP is disabled")
	}
	if _, ok := New(&config.Config{SMTPEnabled: true}).(*LogMailer); !ok {
		t.Fatal("expected LogMailer when SMTP user is missing")
	}
	m := New(&config.Config{SMTPEnabled: true, SMTPUser: "a@b.c", SMTPHost: "smtp.example.com", SMTPPort: 587, SMTPFromName: "Aquasense"})
	smtp, ok := m.(*SMTPMailer)
	if !ok {
		t.Fatal("expected SMTPMailer")
	}
	if smtp.from != `"Aquasense" <a@b.c>` {
		t.Fatalf("unexpected sender %s", smtp.from)
	}
}

func TestLogMailerRecordsAndFails(t *testing.T) {
	m := &LogMailer{}
	if err := m.SendOTPEmail("u@test", "code", "<b>123456</b>"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := m.SendEmail("", "x", "y"); !errors.Is(err, ErrNoRecipient) {
		t.Fatalf("expected ErrNoRecipient, got %v", err)
	}
	last, ok := m.Last("u@test")
	if !ok || last.Body != "<b>123456</b>" {
		t.Fatalf("unexpected last email %+v", last)
	}

	boom := errors.New("smtp down")
	m.Err = boom
	if err := m.SendEmail("u@test", "s", "t"); !errors.Is(err, boom) {
		t.Fatalf("expected configured error, got %v", err)
	}
	if len(m.Sent()) != 1 {
		t.Fatalf("failed sends must not be recorded")
	}
}
