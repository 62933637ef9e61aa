package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/logger"
	"github.com/KamiDeveloper/kamidev-portfolio/services"
)

// ResendFallbackHandler はFirestoreを経由せずプロバイダーAPIから直接
// 受信メールを読むフォールバック経路です
type ResendFallbackHandler struct {
	client *services.ResendClient
}

func NewResendFallbackHandler(client *services.ResendClient) *ResendFallbackHandler {
	return &ResendFallbackHandler{client: client}
}

// HandleListEmails はプロバイダーAPIからメール一覧または単一メールを返します
func (h *ResendFallbackHandler) HandleListEmails(c *gin.Context) {
	log := logger.Logger
	ctx := c.Request.Context()

	if !h.client.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Resend API key not configured"})
		return
	}

	if emailID := c.Query("emailId"); emailID != "" {
		record, err := h.client.GetEmail(ctx, emailID)
		if err != nil {
			log.Error("Resend APIからのメール取得に失敗しました",
				zap.String("emailId", emailID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch email from Resend"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"email":  record,
			"source": "resend_api",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	emails, err := h.client.ListEmails(ctx, limit)
	if err != nil {
		log.Error("Resend APIからのメール一覧取得に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch emails from Resend"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"emails": emails,
		"total":  len(emails),
		"source": "resend_api",
	})
}

// HandleAttachments は添付ファイルの一覧または単一の取得を処理します
func (h *ResendFallbackHandler) HandleAttachments(c *gin.Context) {
	log := logger.Logger
	ctx := c.Request.Context()

	if !h.client.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Resend API key not configured"})
		return
	}

	emailID := c.Param("emailId")
	if emailID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emailId is required"})
		return
	}

	if attachmentID := c.Query("attachmentId"); attachmentID != "" {
		attachment, err := h.client.GetAttachment(ctx, emailID, attachmentID)
		if err != nil {
			log.Error("添付ファイルの取得に失敗しました",
				zap.String("emailId", emailID),
				zap.String("attachmentId", attachmentID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch attachment"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"attachment": attachment,
			"source":     "resend_api",
		})
		return
	}

	attachments, err := h.client.ListAttachments(ctx, emailID)
	if err != nil {
		log.Error("添付ファイル一覧の取得に失敗しました",
			zap.String("emailId", emailID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch attachments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attachments": attachments,
		"total":       len(attachments),
		"source":      "resend_api",
	})
}
