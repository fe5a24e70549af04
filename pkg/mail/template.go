package mail

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// Template renders a subject and plain-text body from the same data value.
type Template struct {
	Name    string
	subject *template.Template
	body    *template.Template
}

// MustTemplate parses subject and body templates, panicking on syntax errors.
// Intended for package-level template declarations.
func MustTemplate(name, subject, body string) *Template {
	return &Template{
		Name:    name,
		subject: template.Must(template.New(name + ".subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Option("missingkey=zero").Parse(body)),
	}
}

// Render executes the template into a Message addressed to the given recipients.
func (t *Template) Render(data any, to ...string) (Message, error) {
	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("mail: render %s subject: %w", t.Name, err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("mail: render %s body: %w", t.Name, err)
	}
	return Message{
		To:       to,
		Subject:  strings.TrimSpace(subject.String()),
		Body:     body.String(),
		Template: t.Name,
	}, nil
}

// MemoryMailer records messages instead of delivering them.
type MemoryMailer struct {
	mu   sync.Mutex
	sent []Message
	// Err, when set, is returned from Send after recording the message.
	Err error
}

func (m *MemoryMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.Err
}

// Sent returns a copy of every recorded message.
func (m *MemoryMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
