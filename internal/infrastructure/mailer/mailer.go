package mailer

import (
	"crypto/tls"
	"errors"
	"fmt"
	"sync"

	"aquasense-http-service/internal/infrastructure/config"
	Logger "aquasense-http-service/pkg/logger"

	"gopkg.in/gomail.v2"
)

// Mailer 发送邮件的接口，失败时记录日志并把错误返回给调用方，不做重试
type Mailer interface {
	// SendEmail 发送纯文本邮件
	SendEmail(to, subject, text string) error
	// SendOTPEmail 发送验证码邮件，body 为 HTML
	SendOTPEmail(to, subject, body string) error
}

var ErrNoRecipient = errors.New("mailer: empty recipient")

// New 根据配置返回 SMTP 邮件发送器，未启用 SMTP 时只写日志
func New(cfg *config.Config) Mailer {
	if !cfg.SMTPEnabled || cfg.SMTPUser == "" {
		Logger.Info("SMTP未启用，邮件只写入日志")
		return &LogMailer{}
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer 通过 gomail 发送邮件
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer 587端口使用 STARTTLS
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}
	d.SSL = cfg.SMTPPort == 465

	m := gomail.NewMessage()
	return &SMTPMailer{
		dialer: d,
		from:   m.FormatAddress(cfg.SMTPUser, cfg.SMTPFromName),
	}
}

// 1 SendEmail 发送纯文本邮件
func (s *SMTPMailer) SendEmail(to, subject, text string) error {
	return s.send(to, subject, "text/plain", text)
}

// 2 SendOTPEmail 发送HTML格式的验证码邮件
func (s *SMTPMailer) SendOTPEmail(to, subject, body string) error {
	return s.send(to, subject, "text/html", body)
}

func (s *SMTPMailer) send(to, subject, contentType, body string) error {
	if to == "" {
		return ErrNoRecipient
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody(contentType, body)

	if err := s.dialer.DialAndSend(m); err != nil {
		Logger.Error("发送邮件到%s失败: %v", to, err)
		return fmt.Errorf("send email: %w", err)
	}
	Logger.Info("邮件已发送到%s: %s", to, subject)
	return nil
}

// SentEmail 记录一封已发送的邮件
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// LogMailer 不发送邮件，只写日志并保留最近的邮件，供本地开发和测试使用
type LogMailer struct {
	mu   sync.Mutex
	sent []SentEmail
	// Err 不为空时每次发送都返回该错误
	Err error
}

func (l *LogMailer) SendEmail(to, subject, text string) error {
	return l.record(to, subject, text)
}

func (l *LogMailer) SendOTPEmail(to, subject, body string) error {
	return l.record(to, subject, body)
}

func (l *LogMailer) record(to, subject, body string) error {
	if to == "" {
		return ErrNoRecipient
	}
	if l.Err != nil {
		Logger.Error("发送邮件到%s失败: %v", to, l.Err)
		return l.Err
	}

	l.mu.Lock()
	l.sent = append(l.sent, SentEmail{To: to, Subject: subject, Body: body})
	l.mu.Unlock()
	Logger.Info("[MAIL] to=%s subject=%s", to, subject)
	return nil
}

// Sent 返回已记录邮件的副本
func (l *LogMailer) Sent() []SentEmail {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SentEmail(nil), l.sent...)
}

// Last 返回最后一封发给 to 的邮件
func (l *LogMailer) Last(to string) (SentEmail, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.sent) - 1; i >= 0; i-- {
		if l.sent[i].To == to {
			return l.sent[i], true
		}
	}
	return SentEmail{}, false
}
