package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/logger"
	"github.com/KamiDeveloper/kamidev-portfolio/store"
)

// NotificationsHandler はプッシュトークンの登録・解除APIです
type NotificationsHandler struct {
	devices *store.DeviceStore
}

func NewNotificationsHandler(devices *store.DeviceStore) *NotificationsHandler {
	return &NotificationsHandler{devices: devices}
}

type registerTokenRequest struct {
	FCMToken   string                 `json:"fcmToken"`
	DeviceInfo map[string]interface{} `json:"deviceInfo"`
}

// HandleRegisterToken はオーナー端末のFCMトークンを登録します
func (h *NotificationsHandler) HandleRegisterToken(c *gin.Context) {
	log := logger.Logger

	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FCMToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fcmToken is required"})
		return
	}

	if err := h.devices.SaveToken(c.Request.Context(), req.FCMToken, req.DeviceInfo); err != nil {
		log.Error("FCMトークンの登録に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register FCM token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "FCM token registered successfully",
	})
}

// HandleRemoveToken はトークンを解除します（ログアウト時）
func (h *NotificationsHandler) HandleRemoveToken(c *gin.Context) {
	log := logger.Logger

	if err := h.devices.ClearToken(c.Request.Context()); err != nil {
		log.Error("FCMトークンの解除に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove FCM token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "FCM token removed successfully",
	})
}
