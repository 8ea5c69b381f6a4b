package session

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ExportFileName is the name of the file written by WriteExport.
const ExportFileName = "chat_history.json"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

var (
	ErrInvalidRole = errors.New("invalid message role")
	ErrClosed      = errors.New("session is closed")
)

// Message is one transcript entry. Field order matters for export.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session holds the transcript of one interactive session. It is owned by a
// single actor and is not safe for concurrent use.
type Session struct {
	ID        string
	StartedAt time.Time

	messages []Message
	closed   bool
}

func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		messages:  []Message{},
	}
}

// Append adds one message at the end of the transcript.
func (s *Session) Append(role Role, content string) error {
	if s.closed {
		return ErrClosed
	}
	if !role.Valid() {
		return errors.Wrapf(ErrInvalidRole, "role %q", string(role))
	}
	s.messages = append(s.messages, Message{Role: role, Content: content})
	return nil
}

// Clear empties the transcript.
func (s *Session) Clear() {
	s.messages = []Message{}
}

func (s *Session) Len() int {
	return len(s.messages)
}

// Messages returns a copy of the transcript in insertion order.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Export serializes the transcript as an indented JSON array of
// {role, content} objects. An empty transcript yields "[]".
func (s *Session) Export() ([]byte, error) {
	messages := s.messages
	if messages == nil {
		messages = []Message{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(messages); err != nil {
		return nil, errors.Wrap(err, "encode transcript")
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteExport writes the exported transcript to dir/chat_history.json and
// returns the written path. An empty dir means the working directory.
func (s *Session) WriteExport(dir string) (string, error) {
	data, err := s.Export()
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create export dir")
	}
	path := filepath.Join(dir, ExportFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write export")
	}
	return path, nil
}

// Close ends the session. Later appends fail with ErrClosed.
func (s *Session) Close() {
	s.closed = true
}

func (s *Session) Closed() bool {
	return s.closed
}
