package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// FileSender writes every message to a directory instead of sending it:
// the body as <stamp>_<tag>.html next to a .json envelope.
type FileSender struct {
	dir string
	now func() time.Time
}

// NewFileSender creates a sender writing into dir, created on first use.
func NewFileSender(dir string) *FileSender {
	return &FileSender{dir: dir, now: time.Now}
}

type fileEnvelope struct {
	Message
	WrittenAt time.Time `json:"written_at"`
}

func (s *FileSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create outbox: %w", ErrSendFailed, err)
	}

	now := s.now().UTC()
	label := msg.Tag
	if label == "" {
		label = msg.Subject
	}
	base := filepath.Join(s.dir, now.Format("20060102T150405.000000000")+"_"+slug(label))

	if err := os.WriteFile(base+".html", []byte(msg.HTML), 0o644); err != nil {
		return fmt.Errorf("%w: write body: %w", ErrSendFailed, err)
	}
	meta, err := json.MarshalIndent(fileEnvelope{Message: msg, WrittenAt: now}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode envelope: %w", ErrSendFailed, err)
	}
	if err := os.WriteFile(base+".json", meta, 0o644); err != nil {
		return fmt.Errorf("%w: write envelope: %w", ErrSendFailed, err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9_.-]+`)

// slug makes s safe for a file name.
func slug(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(strings.ReplaceAll(s, " ", "-")), "")
	if len(s) > 64 {
		s = s[:64]
	}
	if s == "" {
		return "message"
	}
	return s
}
