package email

import (
	"bytes"
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"

	"github.com/Dan9191/reasonable-comp/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send:   (*email.Email).Send,
	}
}

// Report is a rendered compensation report ready to mail
type Report struct {
	ClientName string
	HTML       string
	Text       string
	PDF        []byte
	Filename   string
}

// SendReport mails the report summary with the PDF attached
func (s *Sender) SendReport(to string, report Report) error {
	if _, err := mail.ParseAddress(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	if len(report.PDF) == 0 {
		return errors.New("report has no PDF content")
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Reasonable Compensation Analysis - %s", report.ClientName)
	e.HTML = []byte(report.HTML)

	body := "Hello,\n\n"
	body += fmt.Sprintf("Attached is the reasonable compensation analysis for %s.\n\n", report.ClientName)
	if report.Text != "" {
		body += report.Text + "\n"
	}
	body += "\nBest regards,\n" + s.cfg.ReportBrand
	e.Text = []byte(body)

	if _, err := e.Attach(bytes.NewReader(report.PDF), report.Filename, "application/pdf"); err != nil {
		return fmt.Errorf("failed to attach report: %w", err)
	}

	// Send email
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send report to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
