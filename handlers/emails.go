package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/logger"
	"github.com/KamiDeveloper/kamidev-portfolio/models"
	"github.com/KamiDeveloper/kamidev-portfolio/store"
)

// EmailsHandler はモバイルアプリ向けのメール管理APIです
type EmailsHandler struct {
	store *store.EmailStore
}

func NewEmailsHandler(s *store.EmailStore) *EmailsHandler {
	return &EmailsHandler{store: s}
}

// HandleListEmails は受信メールの一覧と未読件数を返します
func (h *EmailsHandler) HandleListEmails(c *gin.Context) {
	log := logger.Logger
	ctx := c.Request.Context()

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	status := c.Query("status")
	if status != "" && !models.EmailStatus(status).IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Must be: unread, read, or replied"})
		return
	}

	emails, err := h.store.ListEmails(ctx, store.ListOptions{
		Limit:  limit,
		Status: status,
		Cursor: c.Query("cursor"),
	})
	if err != nil {
		log.Error("メール一覧の取得に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch emails"})
		return
	}

	unreadCount, err := h.store.CountUnread(ctx)
	if err != nil {
		log.Error("未読件数の取得に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch emails"})
		return
	}

	var nextCursor interface{}
	if len(emails) > 0 {
		nextCursor = emails[len(emails)-1].ID
	}

	c.JSON(http.StatusOK, gin.H{
		"emails":      emails,
		"unreadCount": unreadCount,
		"hasMore":     len(emails) == limit,
		"nextCursor":  nextCursor,
	})
}

type updateEmailRequest struct {
	EmailID string `json:"emailId"`
	Status  string `json:"status"`
}

// HandleUpdateEmail は既読状態を更新します。遷移の単方向性
// （unread→read→replied）は呼び出し側の規約であり、ストアでは
// 強制しません。
func (h *EmailsHandler) HandleUpdateEmail(c *gin.Context) {
	log := logger.Logger

	var req updateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.EmailID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emailId is required"})
		return
	}

	if !models.EmailStatus(req.Status).IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Must be: unread, read, or replied"})
		return
	}

	if err := h.store.UpdateStatus(c.Request.Context(), req.EmailID, models.EmailStatus(req.Status)); err != nil {
		log.Error("メールステータスの更新に失敗しました",
			zap.String("emailId", req.EmailID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleDeleteEmail はレコードを削除します
func (h *EmailsHandler) HandleDeleteEmail(c *gin.Context) {
	log := logger.Logger

	emailID := c.Query("emailId")
	if emailID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emailId is required"})
		return
	}

	if err := h.store.DeleteEmail(c.Request.Context(), emailID); err != nil {
		log.Error("メールの削除に失敗しました",
			zap.String("emailId", emailID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
