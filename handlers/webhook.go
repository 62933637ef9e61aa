package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/logger"
	"github.com/KamiDeveloper/kamidev-portfolio/models"
	"github.com/KamiDeveloper/kamidev-portfolio/pkg/metrics"
	"github.com/KamiDeveloper/kamidev-portfolio/services"
)

// WebhookHandler は受信プロバイダーからのWebhookを処理します
type WebhookHandler struct {
	pipeline *services.Pipeline
	secret   string
	metrics  *metrics.Metrics
}

func NewWebhookHandler(pipeline *services.Pipeline, secret string, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{
		pipeline: pipeline,
		secret:   secret,
		metrics:  m,
	}
}

// HandleWebhook は署名検証 → イベント種別の判定 → パイプライン実行を行います。
// 署名検証は他のあらゆる処理に先立って行い、失敗時は一切の副作用を
// 発生させません（fail-closed）。
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	log := logger.Logger

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Error("リクエストボディの読み取りに失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	signature := c.GetHeader("svix-signature")
	timestamp := c.GetHeader("svix-timestamp")

	if signature == "" || timestamp == "" || h.secret == "" {
		log.Error("Webhook検証用のヘッダーまたはシークレットがありません")
		h.metrics.IncRejected()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing verification headers"})
		return
	}

	valid, err := services.VerifyWebhookSignature(body, signature, timestamp, h.secret)
	if err != nil {
		log.Error("署名検証の処理に失敗しました", zap.Error(err))
		h.metrics.IncRejected()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Signature verification failed"})
		return
	}
	if !valid {
		log.Error("Webhook署名が一致しません")
		h.metrics.IncRejected()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var event models.InboundEmailEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("Webhookペイロードのパースに失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	log.Info("Webhookイベントを受信しました", zap.String("type", event.Type))

	// 未対応のイベント種別はそのままACKする（前方互換）
	if event.Type != models.EventEmailReceived {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	result := h.pipeline.Process(c.Request.Context(), event.Data, "webhook")

	response := gin.H{
		"success": true,
		"message": "Email received and forwarded",
	}
	if result.DocID != "" {
		response["firestoreDocId"] = result.DocID
	}
	c.JSON(http.StatusOK, response)
}

// HandleWebhookStatus は疎通確認用のエンドポイントです
func (h *WebhookHandler) HandleWebhookStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Resend webhook endpoint",
		"status":  "active",
	})
}
