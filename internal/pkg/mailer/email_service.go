package mailer

import (
	"context"
	"fmt"
	"os"
	"time"

	"doc-assistant-be/pkg/render"

	"gopkg.in/gomail.v2"
)

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// ArchiveMailer mails every exported artifact, attached, to an archive mailbox.
type ArchiveMailer struct {
	dialer      Dialer
	senderEmail string
	senderName  string
	archiveTo   string
}

func NewArchiveMailer(host string, port int, username, password, senderEmail, senderName, archiveTo string) *ArchiveMailer {
	return NewArchiveMailerWithDialer(gomail.NewDialer(host, port, username, password), senderEmail, senderName, archiveTo)
}

func NewArchiveMailerWithDialer(d Dialer, senderEmail, senderName, archiveTo string) *ArchiveMailer {
	return &ArchiveMailer{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
		archiveTo:   archiveTo,
	}
}

func (s *ArchiveMailer) Send(ctx context.Context, userID string, artifact render.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(artifact.Handle); err != nil {
		return fmt.Errorf("artifact %s: %w", artifact.Handle, err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", s.archiveTo)
	m.SetHeader("Subject", fmt.Sprintf("[doc-assistant] %s for %s", artifact.Filename, userID))
	m.SetBody("text/plain", fmt.Sprintf(
		"Sender: %s\nFormat: %s\nSize: %d bytes\nExported: %s\n",
		userID, artifact.Format, artifact.Size, time.Now().UTC().Format(time.RFC3339),
	))
	m.Attach(artifact.Handle, gomail.Rename(artifact.Filename))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("mail artifact to %s: %w", s.archiveTo, err)
	}
	return nil
}
