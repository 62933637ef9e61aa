package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/logger"
	"github.com/KamiDeveloper/kamidev-portfolio/models"
	"github.com/KamiDeveloper/kamidev-portfolio/services"
	"github.com/KamiDeveloper/kamidev-portfolio/store"
)

// ProposalsHandler は案件相談レコードの管理APIです
type ProposalsHandler struct {
	store  *store.ProposalStore
	sender services.EmailSender
}

func NewProposalsHandler(s *store.ProposalStore, sender services.EmailSender) *ProposalsHandler {
	return &ProposalsHandler{
		store:  s,
		sender: sender,
	}
}

// HandleListProposals は一覧と未読件数を返します
func (h *ProposalsHandler) HandleListProposals(c *gin.Context) {
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

	proposals, err := h.store.ListProposals(ctx, store.ListOptions{
		Limit:  limit,
		Status: status,
	})
	if err != nil {
		log.Error("提案一覧の取得に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch proposals"})
		return
	}

	unreadCount, err := h.store.CountUnread(ctx)
	if err != nil {
		log.Error("提案の未読件数の取得に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch proposals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proposals":   proposals,
		"unreadCount": unreadCount,
		"total":       len(proposals),
	})
}

type updateProposalRequest struct {
	ProposalID string `json:"proposalId"`
	Status     string `json:"status"`
}

// HandleUpdateProposal はステータスを更新します
func (h *ProposalsHandler) HandleUpdateProposal(c *gin.Context) {
	log := logger.Logger

	var req updateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProposalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposalId is required"})
		return
	}

	if !models.EmailStatus(req.Status).IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Must be: unread, read, or replied"})
		return
	}

	if err := h.store.UpdateStatus(c.Request.Context(), req.ProposalID, models.EmailStatus(req.Status)); err != nil {
		log.Error("提案ステータスの更新に失敗しました",
			zap.String("proposalId", req.ProposalID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update proposal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleDeleteProposal はレコードを削除します
func (h *ProposalsHandler) HandleDeleteProposal(c *gin.Context) {
	log := logger.Logger

	proposalID := c.Query("proposalId")
	if proposalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposalId is required"})
		return
	}

	if err := h.store.DeleteProposal(c.Request.Context(), proposalID); err != nil {
		log.Error("提案の削除に失敗しました",
			zap.String("proposalId", proposalID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete proposal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type proposalReplyRequest struct {
	ProposalID string        `json:"proposalId"`
	To         recipientList `json:"to"`
	Subject    string        `json:"subject"`
	Message    string        `json:"message"`
}

// HandleProposalReply は提案への返信を送信し、履歴を追記します
func (h *ProposalsHandler) HandleProposalReply(c *gin.Context) {
	log := logger.Logger
	ctx := c.Request.Context()

	var req proposalReplyRequest
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

	subject := req.Subject
	if !strings.HasPrefix(subject, "Re:") {
		subject = "Re: " + subject
	}

	providerID, err := h.sender.Send(ctx, services.OutboundEmail{
		To:      req.To,
		Subject: subject,
		HTML:    buildReplyHTML(req.Message),
		Text:    buildReplyText(req.Message),
	})
	if err != nil {
		log.Error("提案への返信の送信に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email"})
		return
	}

	if req.ProposalID != "" {
		reply := models.Reply{
			SentAt:     time.Now(),
			To:         req.To,
			Subject:    subject,
			Message:    req.Message,
			ProviderID: providerID,
		}
		if err := h.store.AppendReply(ctx, req.ProposalID, reply); err != nil {
			log.Error("提案の返信履歴の保存に失敗しました",
				zap.String("proposalId", req.ProposalID),
				zap.Error(err),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      providerID,
		"message": "Reply sent successfully",
	})
}
