package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/logger"
	"github.com/KamiDeveloper/kamidev-portfolio/models"
	"github.com/KamiDeveloper/kamidev-portfolio/services"
)

// ReplyStore は返信の追記を抽象化します
type ReplyStore interface {
	AppendReply(ctx context.Context, id string, reply models.Reply) error
}

// ReplyHandler は受信メールへの返信送信を処理します
type ReplyHandler struct {
	sender services.EmailSender
	store  ReplyStore
}

func NewReplyHandler(sender services.EmailSender, store ReplyStore) *ReplyHandler {
	return &ReplyHandler{
		sender: sender,
		store:  store,
	}
}

// recipientList は文字列と配列の両方を受け付けます
type recipientList []string

func (r *recipientList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*r = []string{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*r = list
	return nil
}

type replyRequest struct {
	EmailID   string        `json:"emailId"`
	To        recipientList `json:"to"`
	Subject   string        `json:"subject"`
	Message   string        `json:"message"`
	InReplyTo string        `json:"inReplyTo"`
}

// HandleReply は返信を送信し、元レコードに返信履歴を追記します。
// 履歴の追記はベストエフォートで、失敗しても送信の成功は覆しません。
func (h *ReplyHandler) HandleReply(c *gin.Context) {
	log := logger.Logger
	ctx := c.Request.Context()

	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if len(req.To) == 0 || req.Subject == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing required fields: to, subject, and message are required",
		})
		return
	}
	if len(strings.TrimSpace(req.Message)) < 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message must be at least 10 characters"})
		return
	}

	subject := req.Subject
	if !strings.HasPrefix(subject, "Re:") {
		subject = "Re: " + subject
	}

	var headers map[string]string
	if req.InReplyTo != "" {
		headers = map[string]string{"In-Reply-To": req.InReplyTo}
	}

	providerID, err := h.sender.Send(ctx, services.OutboundEmail{
		To:      req.To,
		Subject: subject,
		HTML:    buildReplyHTML(req.Message),
		Text:    buildReplyText(req.Message),
		Headers: headers,
	})
	if err != nil {
		log.Error("返信の送信に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email"})
		return
	}

	if req.EmailID != "" {
		reply := models.Reply{
			SentAt:     time.Now(),
			To:         req.To,
			Subject:    subject,
			Message:    req.Message,
			ProviderID: providerID,
		}
		if err := h.store.AppendReply(ctx, req.EmailID, reply); err != nil {
			log.Error("返信履歴の保存に失敗しました",
				zap.String("emailId", req.EmailID),
				zap.Error(err),
			)
		}
	}

	log.Info("返信を送信しました", zap.String("providerId", providerID))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      providerID,
		"message": "Reply sent successfully",
	})
}

func buildReplyHTML(message string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; background-color: #ffffff; color: #1a1a1a;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="white-space: pre-wrap; font-size: 16px; line-height: 1.6;">%s</div>
    <div style="margin-top: 40px; padding-top: 20px; border-top: 1px solid #e5e5e5;">
      <p style="margin: 0 0 4px; font-weight: 600; font-size: 16px; color: #1a1a1a;">Jorge Medrano</p>
      <p style="margin: 0 0 4px; font-size: 14px; color: #666;">Full Stack Developer</p>
      <p style="margin: 0; font-size: 14px;">
        <a href="https://kamidev.app" style="color: #00d4ff; text-decoration: none;">kamidev.app</a>
      </p>
    </div>
  </div>
</body>
</html>`, message)
}

func buildReplyText(message string) string {
	return message + "\n\n—\nJorge Medrano\nFull Stack Developer\nkamidev.app"
}
