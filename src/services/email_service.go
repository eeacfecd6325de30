package services

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/birizinit/meuacessor/src/config"
	"github.com/birizinit/meuacessor/src/logger"
)

type smtpEmailService struct{}

// NewEmailService returns the SMTP-backed sender. When SMTP_SERVER is not
// configured, messages are logged instead of sent so local development
// works without a mail relay.
func NewEmailService() EmailService {
	if config.Cfg.SMTPServer == "" {
		logger.L.Warn("SMTP_SERVER not configured, emails will only be logged")
	}
	return &smtpEmailService{}
}

func (s *smtpEmailService) send(toEmail, subject, body string) error {
	if config.Cfg.SMTPServer == "" {
		logger.L.Info("Email (log only)", "to", toEmail, "subject", subject, "body", body)
		return nil
	}

	from := config.Cfg.SenderEmail
	msg := strings.Join([]string{
		"From: " + fmt.Sprintf("%s <%s>", config.Cfg.SenderName, from),
		"To: " + toEmail,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", config.Cfg.SMTPServer, config.Cfg.SMTPPort)
	auth := smtp.PlainAuth("", config.Cfg.SMTPUser, config.Cfg.SMTPPassword, config.Cfg.SMTPServer)
	if err := smtp.SendMail(addr, auth, from, []string{toEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("sending email to %s: %w", toEmail, err)
	}
	return nil
}

func (s *smtpEmailService) SendVerificationEmail(toEmail, name, token string) error {
	link := fmt.Sprintf("%s%s?token=%s", config.Cfg.FrontendBaseURL, config.Cfg.VerificationEmailBaseURL, token)
	body := fmt.Sprintf(
		"Olá %s,\n\nConfirme o seu email acedendo ao link abaixo:\n\n%s\n\nSe não criou esta conta, ignore esta mensagem.",
		name, link)
	return s.send(toEmail, "Confirme o seu email", body)
}

func (s *smtpEmailService) SendPasswordResetEmail(toEmail, name, token string) error {
	link := fmt.Sprintf("%s%s?token=%s", config.Cfg.FrontendBaseURL, config.Cfg.PasswordResetBaseURL, token)
	body := fmt.Sprintf(
		"Olá %s,\n\nRecebemos um pedido para redefinir a sua senha. Aceda ao link abaixo:\n\n%s\n\nSe não foi você, ignore esta mensagem.",
		name, link)
	return s.send(toEmail, "Redefinição de senha", body)
}
