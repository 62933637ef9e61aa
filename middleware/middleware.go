// middleware/middleware.go

package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/logger"
)

// APIKeyAuth はモバイルアプリ向けAPIの認証ミドルウェアです。
// Bearerトークンが設定済みのAPIキーと一致するかを検証します。
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			logger.Logger.Error("PERSONAL_APP_API_KEYが設定されていません")
			abortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if !bearerTokenMatches(c, apiKey) {
			logUnauthorizedRequest(c)
			abortWithError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}

// ServiceTokenAuth はサービス間呼び出し用の認証ミドルウェアです
func ServiceTokenAuth(serviceToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serviceToken == "" || !bearerTokenMatches(c, serviceToken) {
			logUnauthorizedRequest(c)
			abortWithError(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}

func bearerTokenMatches(c *gin.Context, expected string) bool {
	authHeader := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// abortWithError エラーレスポンスを返す補助関数
func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// logUnauthorizedRequest 未認証リクエストのログ出力
func logUnauthorizedRequest(c *gin.Context) {
	headers := make(map[string][]string)
	for name, values := range c.Request.Header {
		if !isProtectedHeader(name) {
			headers[name] = values
		}
	}

	logger.Logger.Warn("未認証リクエスト",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Any("headers", headers),
		zap.String("client_ip", c.ClientIP()),
	)
}

// isProtectedHeader センシティブなヘッダーかどうかを判定
func isProtectedHeader(header string) bool {
	switch strings.ToLower(header) {
	case "authorization", "cookie", "set-cookie":
		return true
	}
	return false
}

// GinLogger ロギングミドルウェア
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user-agent", c.Request.UserAgent()),
		}

		if errors := c.Errors.ByType(gin.ErrorTypePrivate).String(); errors != "" {
			fields = append(fields, zap.String("errors", errors))
		}

		if traceID := getTraceID(c); traceID != "" {
			fields = append(fields, zap.String("logging.googleapis.com/trace", traceID))
		}

		logRequestWithLevel(c, fields...)
	}
}

// getTraceID トレースIDの取得と整形
func getTraceID(c *gin.Context) string {
	traceHeader := c.Request.Header.Get("X-Cloud-Trace-Context")
	if traceHeader == "" {
		return ""
	}

	traceParts := strings.Split(traceHeader, "/")
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" || len(traceParts) == 0 {
		return ""
	}

	return fmt.Sprintf("projects/%s/traces/%s", projectID, traceParts[0])
}

// logRequestWithLevel ステータスコードに応じたログレベルでログを出力
func logRequestWithLevel(c *gin.Context, fields ...zap.Field) {
	switch {
	case c.Writer.Status() >= 500:
		logger.Logger.Error("サーバーエラー", fields...)
	case c.Writer.Status() >= 400:
		logger.Logger.Warn("クライアントエラー", fields...)
	default:
		logger.Logger.Info("リクエスト完了", fields...)
	}
}
