package services

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// OutboundEmail は送信メールの内容です
type OutboundEmail struct {
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
	Headers map[string]string
}

// EmailSender はトランザクションメールの送信を抽象化します。
// 戻り値はプロバイダーが割り当てたメッセージIDです。
type EmailSender interface {
	Send(ctx context.Context, msg OutboundEmail) (string, error)
}

// SendGridSender はSendGrid経由でメールを送信します
type SendGridSender struct {
	apiKey   string
	fromName string
	fromAddr string
}

func NewSendGridSender(apiKey, fromName, fromAddr string) *SendGridSender {
	return &SendGridSender{
		apiKey:   apiKey,
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg OutboundEmail) (string, error) {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.fromName, s.fromAddr))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, addr := range msg.To {
		p.AddTos(mail.NewEmail("", addr))
	}
	m.AddPersonalizations(p)

	// text/plain を text/html より先に追加する必要がある
	if msg.Text != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}

	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}
	for key, value := range msg.Headers {
		m.SetHeader(key, value)
	}

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.SendWithContext(ctx, m)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	// SendGridのレスポンス検証
	if response.StatusCode >= 300 {
		return "", fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}

	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
