package email

import (
	"context"
	"fmt"
	"net/smtp"

	"taskflow/internal/config"
	"taskflow/pkg/logger"
)

// SendVerification sends the email-verification message. When SMTP
// credentials are not configured it logs and returns nil so callers treat
// delivery as best-effort.
func SendVerification(ctx context.Context, to, name, token string) error {
	cfg := config.Get()
	if cfg.SMTPUser == "" || cfg.SMTPPassword == "" {
		logger.Warn(ctx, "SMTP credentials not configured; skipping verification email", "to", to)
		return nil
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", cfg.FrontendURL, token)
	body := fmt.Sprintf("Hi %s,\r\n\r\n"+
		"Welcome to Task Manager! Please verify your email address by visiting:\r\n\r\n%s\r\n\r\n"+
		"This link expires in 24 hours. If you did not create an account, you can ignore this email.\r\n",
		name, link)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Verify your email address\r\n"+
		"MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		cfg.SMTPFrom, to, body)

	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	if err := smtp.SendMail(addr, auth, cfg.SMTPUser, []string{to}, []byte(msg)); err != nil {
		logger.Error(ctx, "Verification email send failed", "error", err, "to", to)
		return err
	}
	logger.Info(ctx, "Verification email sent", "to", to)
	return nil
}
