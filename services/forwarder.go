package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/models"
)

// ErrForwardSkipped は転送先が未設定で転送が行われなかったことを示します。
// 障害ではないため、呼び出し側は失敗として扱わないでください。
var ErrForwardSkipped = errors.New("forwarding address not configured")

// EmailForwarder は受信メールの人間可読なコピーを転送します
type EmailForwarder interface {
	Forward(ctx context.Context, data models.EmailEventData) (string, error)
}

// ForwardService は受信メールをオーナーの実際の受信箱へ転送します。
// 永続化・通知とは独立したベストエフォートの経路です。
type ForwardService struct {
	sender    EmailSender
	forwardTo string
	logger    *zap.Logger
}

func NewForwardService(sender EmailSender, forwardTo string, logger *zap.Logger) *ForwardService {
	return &ForwardService{
		sender:    sender,
		forwardTo: forwardTo,
		logger:    logger,
	}
}

// Forward は転送メールを作成して送信します。転送先が未設定の場合は
// 送信せずErrForwardSkippedを返します。reply-toを元の送信者に
// 設定するため、受信箱からそのまま返信できます。
func (f *ForwardService) Forward(ctx context.Context, data models.EmailEventData) (string, error) {
	if f.forwardTo == "" {
		f.logger.Info("転送先アドレスが未設定のため転送をスキップします")
		return "", ErrForwardSkipped
	}

	subject := defaultSubject(data.Subject)
	msg := OutboundEmail{
		To:      []string{f.forwardTo},
		ReplyTo: ParseSender(data.From).Email,
		Subject: "📧 Forwarded: " + subject,
		HTML:    buildForwardHTML(data, subject),
		Text:    buildForwardText(data, subject),
	}

	id, err := f.sender.Send(ctx, msg)
	if err != nil {
		return "", err
	}

	f.logger.Info("メールを転送しました",
		zap.String("forwardedTo", f.forwardTo),
		zap.String("providerId", id),
	)
	return id, nil
}

func buildForwardHTML(data models.EmailEventData, subject string) string {
	var ccBlock string
	if len(data.CC) > 0 {
		ccBlock = fmt.Sprintf(`
        <div style="margin-bottom: 16px;">
          <label style="display: block; font-size: 12px; text-transform: uppercase; letter-spacing: 1px; color: #00d4ff; margin-bottom: 4px;">CC</label>
          <p style="margin: 0; font-size: 16px;">%s</p>
        </div>`, strings.Join(data.CC, ", "))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #0a0a0a; color: #ffffff;">
  <div style="max-width: 600px; margin: 0 auto; padding: 40px 20px;">
    <div style="background: linear-gradient(135deg, #1a1a2e 0%%, #16213e 100%%); border-radius: 16px; padding: 40px; border: 1px solid rgba(255,255,255,0.1);">
      <div style="text-align: center; margin-bottom: 32px;">
        <h1 style="margin: 0; font-size: 28px; font-weight: 700; color: #00d4ff;">Email Received</h1>
      </div>
      <div style="background: rgba(0,0,0,0.3); border-radius: 12px; padding: 24px; margin-bottom: 24px;">
        <div style="margin-bottom: 16px;">
          <label style="display: block; font-size: 12px; text-transform: uppercase; letter-spacing: 1px; color: #00d4ff; margin-bottom: 4px;">From</label>
          <p style="margin: 0; font-size: 16px; font-weight: 600;">%s</p>
        </div>
        <div style="margin-bottom: 16px;">
          <label style="display: block; font-size: 12px; text-transform: uppercase; letter-spacing: 1px; color: #00d4ff; margin-bottom: 4px;">To</label>
          <p style="margin: 0; font-size: 16px;">%s</p>
        </div>%s
        <div>
          <label style="display: block; font-size: 12px; text-transform: uppercase; letter-spacing: 1px; color: #00d4ff; margin-bottom: 4px;">Subject</label>
          <p style="margin: 0; font-size: 18px; font-weight: 600;">%s</p>
        </div>
      </div>
      <div style="text-align: center; margin-top: 32px; padding-top: 24px; border-top: 1px solid rgba(255,255,255,0.1);">
        <p style="margin: 0 0 8px; color: #00ff88; font-size: 14px;">
          <a href="https://resend.com/emails/%s" style="color: #00ff88; text-decoration: none;">View in Resend Dashboard →</a>
        </p>
        <p style="margin: 0; color: #666; font-size: 12px;">Received at kamidev.app • %s</p>
      </div>
    </div>
  </div>
</body>
</html>`,
		data.From.Display(),
		strings.Join(data.To, ", "),
		ccBlock,
		subject,
		data.EmailID,
		time.Now().Format("Monday, January 2, 2006"),
	)
}

func buildForwardText(data models.EmailEventData, subject string) string {
	var b strings.Builder
	b.WriteString("Email Received\n\n")
	fmt.Fprintf(&b, "From: %s\n", data.From.Display())
	fmt.Fprintf(&b, "To: %s\n", strings.Join(data.To, ", "))
	if len(data.CC) > 0 {
		fmt.Fprintf(&b, "CC: %s\n", strings.Join(data.CC, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\n\n", subject)
	b.WriteString("To view the full email with attachments, check your Resend dashboard:\n")
	fmt.Fprintf(&b, "https://resend.com/emails/%s\n\n", data.EmailID)
	b.WriteString("---\nReceived at kamidev.app\n")
	b.WriteString(time.Now().Format("Monday, January 2, 2006"))
	b.WriteString("\n")
	return b.String()
}
