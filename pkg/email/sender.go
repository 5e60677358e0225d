package email

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered transactional email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"-"`
	// Tag groups messages in provider statistics, e.g. "trial-extension-proposed".
	Tag string `json:"tag,omitempty"`
}

// Validate rejects messages no backend could deliver.
func (m Message) Validate() error {
	if err := validAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient: %w", ErrInvalidMessage, err)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is empty", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.HTML) == "" {
		return fmt.Errorf("%w: body is empty", ErrInvalidMessage)
	}
	return nil
}

// NewSender returns a Postmark sender when cfg enables it and a FileSender otherwise.
func NewSender(cfg Config) (Sender, error) {
	if !cfg.Enabled() {
		return NewFileSender(cfg.OutboxDir), nil
	}
	return NewPostmarkSender(cfg)
}

// validAddress accepts a bare address only; display names are not allowed.
func validAddress(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return err
	}
	if addr.Name != "" || addr.Address != strings.TrimSpace(s) {
		return fmt.Errorf("%q is not a bare address", s)
	}
	return nil
}
