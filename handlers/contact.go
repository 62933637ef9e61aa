package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/logger"
	"github.com/KamiDeveloper/kamidev-portfolio/models"
	"github.com/KamiDeveloper/kamidev-portfolio/services"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ProposalWriter はコンタクトフォーム送信の永続化を抽象化します
type ProposalWriter interface {
	AddProposal(ctx context.Context, p models.Proposal) (string, error)
}

// ContactHandler はポートフォリオのコンタクトフォーム送信を処理します
type ContactHandler struct {
	limiter   services.RateLimiter
	sender    services.EmailSender
	proposals ProposalWriter
	toAddr    string
}

func NewContactHandler(limiter services.RateLimiter, sender services.EmailSender, proposals ProposalWriter, toAddr string) *ContactHandler {
	return &ContactHandler{
		limiter:   limiter,
		sender:    sender,
		proposals: proposals,
		toAddr:    toAddr,
	}
}

type contactRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Message  string `json:"message"`
	Honeypot string `json:"honeypot"`
}

// HandleContact はレート制限 → バリデーション → スパム判定 → 送信 → 永続化
// の順で処理します。スパムはヒントを与えないため偽の成功を返します。
func (h *ContactHandler) HandleContact(c *gin.Context) {
	log := logger.Logger
	ctx := c.Request.Context()

	ip := clientIdentity(c)
	limit, err := h.limiter.Allow(ctx, ip)
	if err != nil {
		// レート制限ストアの障害でフォームを止めない
		log.Error("レート制限の判定に失敗しました", zap.Error(err))
	} else if !limit.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":    false,
			"error":      "rate_limit",
			"message":    "Too many requests. Please try again later.",
			"retryAfter": limit.RetryAfter,
		})
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation",
			"message": "Invalid request body.",
		})
		return
	}

	if field, message, ok := validateContact(req); !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation",
			"field":   field,
			"message": message,
		})
		return
	}

	if services.IsSpam(services.ContactSubmission{
		Name:     req.Name,
		Email:    req.Email,
		Message:  req.Message,
		Honeypot: req.Honeypot,
	}) {
		// スパム送信者にヒントを与えないため成功として応答する
		log.Info("スパムを検出しました", zap.String("email", req.Email))
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message sent successfully."})
		return
	}

	name := truncate(strings.TrimSpace(req.Name), 100)
	email := truncate(strings.ToLower(strings.TrimSpace(req.Email)), 254)
	message := truncate(strings.TrimSpace(req.Message), 5000)

	providerID, err := h.sender.Send(ctx, services.OutboundEmail{
		To:      []string{h.toAddr},
		ReplyTo: email,
		Subject: "🚀 New Portfolio Message from " + name,
		HTML:    buildContactHTML(name, email, message),
		Text:    buildContactText(name, email, message),
	})
	if err != nil {
		log.Error("コンタクトメールの送信に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "email",
			"message": "Failed to send email. Please try again later.",
		})
		return
	}

	// 提案レコードの保存はベストエフォート（送信成功を覆さない）
	docID, err := h.proposals.AddProposal(ctx, models.Proposal{
		Name:    name,
		Email:   email,
		Message: message,
		Status:  models.StatusUnread,
		Replies: []models.Reply{},
		Source:  "contact_form",
	})
	if err != nil {
		log.Error("提案レコードの保存に失敗しました", zap.Error(err))
	} else {
		log.Info("提案レコードを保存しました", zap.String("docId", docID))
	}

	log.Info("コンタクトメールを送信しました", zap.String("providerId", providerID))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Message sent successfully.",
		"id":      providerID,
	})
}

// HandleContactMethodNotAllowed はPOST以外のメソッドへの応答です
func (h *ContactHandler) HandleContactMethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Contact API - POST method required"})
}

func validateContact(req contactRequest) (field, message string, ok bool) {
	if len(strings.TrimSpace(req.Name)) < 2 {
		return "name", "Name is required and must be at least 2 characters.", false
	}
	if !emailPattern.MatchString(strings.TrimSpace(req.Email)) {
		return "email", "A valid email address is required.", false
	}
	if len(strings.TrimSpace(req.Message)) < 10 {
		return "message", "Message is required and must be at least 10 characters.", false
	}
	return "", "", true
}

// clientIdentity はレート制限用のクライアント識別子を返します
func clientIdentity(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// truncate はバイト数上限で切り詰めます。マルチバイト文字の途中で
// 切らないよう、ルーン境界まで戻します。
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func buildContactHTML(name, email, message string) string {
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
        <h1 style="margin: 0; font-size: 28px; font-weight: 700; color: #00d4ff;">New Transmission Received</h1>
        <p style="margin: 8px 0 0; color: #888; font-size: 14px;">KamiDev Portfolio Contact Form</p>
      </div>
      <div style="background: rgba(0,0,0,0.3); border-radius: 12px; padding: 24px; margin-bottom: 24px;">
        <div style="margin-bottom: 16px;">
          <label style="display: block; font-size: 12px; text-transform: uppercase; letter-spacing: 1px; color: #00d4ff; margin-bottom: 4px;">From</label>
          <p style="margin: 0; font-size: 18px; font-weight: 600;">%s</p>
        </div>
        <div>
          <label style="display: block; font-size: 12px; text-transform: uppercase; letter-spacing: 1px; color: #00d4ff; margin-bottom: 4px;">Email</label>
          <a href="mailto:%s" style="color: #00ff88; text-decoration: none; font-size: 16px;">%s</a>
        </div>
      </div>
      <div style="background: rgba(0,0,0,0.3); border-radius: 12px; padding: 24px;">
        <label style="display: block; font-size: 12px; text-transform: uppercase; letter-spacing: 1px; color: #00d4ff; margin-bottom: 12px;">Project Vision</label>
        <p style="margin: 0; font-size: 16px; line-height: 1.6; white-space: pre-wrap;">%s</p>
      </div>
    </div>
  </div>
</body>
</html>`, name, email, email, message)
}

func buildContactText(name, email, message string) string {
	return fmt.Sprintf("New Portfolio Message\n\nFrom: %s\nEmail: %s\n\nProject Vision:\n%s\n\n---\nSent from kamidev.app\n", name, email, message)
}
