package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/logger"
	"github.com/KamiDeveloper/kamidev-portfolio/models"
	"github.com/KamiDeveloper/kamidev-portfolio/services"
)

// ReceiveHandler は生のMIMEメッセージの取り込みエンドポイントです。
// Webhook経路が使えない転送元（Cloud Functionsのメールブリッジ等）が
// メール本文をそのままPOSTしてくる経路を受け持ちます。
type ReceiveHandler struct {
	pipeline *services.Pipeline
}

func NewReceiveHandler(pipeline *services.Pipeline) *ReceiveHandler {
	return &ReceiveHandler{pipeline: pipeline}
}

// createResponse はレスポンス構造体を生成します
func createResponse(status string, code int, message string, traceID string, errInfo *models.ErrorInfo) models.APIResponse {
	return models.APIResponse{
		Status:    status,
		Code:      code,
		Message:   message,
		TraceID:   traceID,
		Timestamp: time.Now().Format(time.RFC3339),
		Error:     errInfo,
	}
}

// HandleReceive は生のMIMEメッセージをパースし、取り込みパイプラインへ渡します
func (h *ReceiveHandler) HandleReceive(c *gin.Context) {
	log := logger.Logger
	ctx := c.Request.Context()

	messageID := c.GetHeader("X-Message-ID")
	if messageID == "" {
		messageID = fmt.Sprintf("gen-%d", time.Now().UnixNano())
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Error("リクエストボディの読み取りに失敗しました",
			zap.String("trace_id", messageID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, createResponse("error", http.StatusBadRequest,
			"Failed to read request body", messageID, &models.ErrorInfo{
				Type:    "read_error",
				Message: err.Error(),
			}))
		return
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(body))
	if err != nil {
		log.Error("MIMEメッセージのパースに失敗しました",
			zap.String("trace_id", messageID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, createResponse("error", http.StatusBadRequest,
			"Failed to parse MIME message", messageID, &models.ErrorInfo{
				Type:    "parse_error",
				Message: err.Error(),
			}))
		return
	}

	data := envelopeToEvent(env, messageID)

	result := h.pipeline.Process(ctx, data, "mime")
	if result.PersistErr != nil {
		c.JSON(http.StatusInternalServerError, createResponse("error", http.StatusInternalServerError,
			"Failed to store email", messageID, &models.ErrorInfo{
				Type:    "store_error",
				Message: result.PersistErr.Error(),
			}))
		return
	}

	log.Info("MIMEメッセージを取り込みました",
		zap.String("trace_id", messageID),
		zap.String("docId", result.DocID),
	)
	c.JSON(http.StatusOK, createResponse("success", http.StatusOK,
		"Email received", messageID, nil))
}

// envelopeToEvent はパース済みのMIMEメッセージをイベント形式に変換します
func envelopeToEvent(env *enmime.Envelope, messageID string) models.EmailEventData {
	data := models.EmailEventData{
		From:      models.SenderField{Raw: env.GetHeader("From")},
		To:        splitAddresses(env.GetHeader("To")),
		CC:        splitAddresses(env.GetHeader("Cc")),
		BCC:       splitAddresses(env.GetHeader("Bcc")),
		Subject:   env.GetHeader("Subject"),
		MessageID: env.GetHeader("Message-Id"),
		Text:      env.Text,
		HTML:      env.HTML,
		EmailID:   messageID,
	}

	for _, att := range env.Attachments {
		data.Attachments = append(data.Attachments, models.EventAttachment{
			Filename:    att.FileName,
			ContentType: att.ContentType,
			Size:        int64(len(att.Content)),
		})
	}
	return data
}

func splitAddresses(header string) []string {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	addrs := make([]string, 0, len(parts))
	for _, part := range parts {
		if addr := strings.TrimSpace(part); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}
