package authcore

import "log/slog"

// SendEmail lets applications plug in their own mail delivery for password
// reset links.
type SendEmail interface {
	SendPasswordResetEmail(to string, resetLink string) error
}

// ConsoleEmailSender is a development implementation that logs instead of
// sending.
type ConsoleEmailSender struct{}

func (c *ConsoleEmailSender) SendPasswordResetEmail(to string, resetLink string) error {
	slog.Info("password reset email", "to", to, "link", resetLink)
	return nil
}
