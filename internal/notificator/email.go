package notificator

import (
	"fmt"
	"net/smtp"
	"strconv"
)

type EmailNotificator struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPSender   string

	SMTPAuth smtp.Auth

	recipients []string
	sendMail   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotificator(SMTPHost string, SMTPPort int, SMTPUser string, SMTPPassword string, SMTPSender string, recipients []string) *EmailNotificator {
	var auth smtp.Auth
	if SMTPUser != "" {
		auth = smtp.PlainAuth(
			"",
			SMTPUser,
			SMTPPassword,
			SMTPHost,
		)
	}

	return &EmailNotificator{
		SMTPAuth:     auth,
		SMTPHost:     SMTPHost,
		SMTPPort:     SMTPPort,
		SMTPUser:     SMTPUser,
		SMTPPassword: SMTPPassword,
		SMTPSender:   SMTPSender,
		recipients:   recipients,
		sendMail:     smtp.SendMail,
	}
}

// Recipients returns the admin mailboxes alerts are mailed to.
func (e *EmailNotificator) Recipients() []string {
	return e.recipients
}

func (e *EmailNotificator) SendNotification(to, message string) error {
	addr := fmt.Sprintf("%s:%s", e.SMTPHost, strconv.Itoa(e.SMTPPort))
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		e.SMTPSender, // From address
		to,           // To address
		"Rota alert", // Subject
		message,      // Email body
	)
	if err := e.sendMail(addr, e.SMTPAuth, e.SMTPSender, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
