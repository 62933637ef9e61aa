package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/models"
)

type captureSender struct {
	sendErr error
	calls   int
	last    OutboundEmail
}

func (s *captureSender) Send(_ context.Context, msg OutboundEmail) (string, error) {
	s.calls++
	s.last = msg
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return "msg_1", nil
}

func TestForward_NoDestinationIsSkipped(t *testing.T) {
	sender := &captureSender{}
	f := NewForwardService(sender, "", zap.NewNop())

	id, err := f.Forward(context.Background(), models.EmailEventData{EmailID: "em_1"})
	if !errors.Is(err, ErrForwardSkipped) {
		t.Fatalf("Forward() error = %v, want ErrForwardSkipped", err)
	}
	if id != "" || sender.calls != 0 {
		t.Error("Expected no send without a forwarding address")
	}
}

func TestForward_BuildsMessage(t *testing.T) {
	sender := &captureSender{}
	f := NewForwardService(sender, "owner@example.com", zap.NewNop())

	data := models.EmailEventData{
		From:    models.SenderField{Raw: "Jane Doe <jane@example.com>"},
		To:      []string{"inbox@kamidev.app"},
		CC:      []string{"cc@kamidev.app"},
		Subject: "Project inquiry",
		EmailID: "em_1",
	}

	id, err := f.Forward(context.Background(), data)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if id != "msg_1" {
		t.Errorf("id = %q, want msg_1", id)
	}

	if len(sender.last.To) != 1 || sender.last.To[0] != "owner@example.com" {
		t.Errorf("To = %v", sender.last.To)
	}
	if sender.last.ReplyTo != "jane@example.com" {
		t.Errorf("ReplyTo = %q, want original sender address", sender.last.ReplyTo)
	}
	if sender.last.Subject != "📧 Forwarded: Project inquiry" {
		t.Errorf("Subject = %q", sender.last.Subject)
	}
	if !strings.Contains(sender.last.HTML, "Jane Doe <jane@example.com>") {
		t.Error("HTML should include the original sender")
	}
	if !strings.Contains(sender.last.HTML, "cc@kamidev.app") {
		t.Error("HTML should include the CC block when present")
	}
	if !strings.Contains(sender.last.Text, "https://resend.com/emails/em_1") {
		t.Error("Text should link to the provider dashboard")
	}
}

func TestForward_EmptySubjectUsesPlaceholder(t *testing.T) {
	sender := &captureSender{}
	f := NewForwardService(sender, "owner@example.com", zap.NewNop())

	_, err := f.Forward(context.Background(), models.EmailEventData{EmailID: "em_1"})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if sender.last.Subject != "📧 Forwarded: "+NoSubjectPlaceholder {
		t.Errorf("Subject = %q", sender.last.Subject)
	}
}

func TestForward_SendErrorPropagates(t *testing.T) {
	sender := &captureSender{sendErr: errors.New("sendgrid unavailable")}
	f := NewForwardService(sender, "owner@example.com", zap.NewNop())

	if _, err := f.Forward(context.Background(), models.EmailEventData{}); err == nil {
		t.Error("Expected send error to propagate")
	}
}
