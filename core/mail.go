package core

import (
	"bytes"
	"net/mail"
)

type (
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	// EmailMessage carries ready-to-send content; bodies are built by the
	// domain services (inline HTML, matching what the frontend expects).
	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		TextContent string
		HTMLContent string
		Attachments []Attachment
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently. Send failures are
		// logged, never surfaced: a failed email must not fail the
		// operation that triggered it.
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }
