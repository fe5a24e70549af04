package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTemplateRender(t *testing.T) {
	tmpl := MustTemplate("greeting", "Hello {{.Name}}", "Welcome aboard, {{.Name}}.\n")

	msg, err := tmpl.Render(struct{ Name string }{Name: "Aisha"}, "aisha@example.com")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "Hello Aisha" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Welcome aboard, Aisha.") {
		t.Fatalf("unexpected body %q", msg.Body)
	}
	if msg.Template != "greeting" || len(msg.To) != 1 {
		t.Fatalf("unexpected message metadata: %+v", msg)
	}
}

func TestMemoryMailerRecordsEvenOnError(t *testing.T) {
	mailer := &MemoryMailer{Err: errors.New("relay down")}

	err := mailer.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "x"})
	if err == nil {
		t.Fatal("expected configured error")
	}
	if got := mailer.Sent(); len(got) != 1 || got[0].Subject != "x" {
		t.Fatalf("unexpected recorded messages: %+v", got)
	}
}
