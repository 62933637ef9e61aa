package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/config"
	"github.com/KamiDeveloper/kamidev-portfolio/handlers"
	"github.com/KamiDeveloper/kamidev-portfolio/logger"
	"github.com/KamiDeveloper/kamidev-portfolio/middleware"
	"github.com/KamiDeveloper/kamidev-portfolio/pkg/metrics"
	"github.com/KamiDeveloper/kamidev-portfolio/services"
	"github.com/KamiDeveloper/kamidev-portfolio/store"
)

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		logger.Logger.Fatal("設定の初期化に失敗しました", zap.Error(err))
	}

	ctx := context.Background()

	// Firestore / FCM クライアントの初期化
	clients, err := store.NewClients(ctx, cfg.FirebaseProjectID, cfg.FirebaseClientEmail, cfg.PrivateKeyPEM())
	if err != nil {
		logger.Logger.Fatal("Firebaseクライアントの初期化に失敗しました", zap.Error(err))
	}
	defer clients.Close()

	// ストア層
	emails := store.NewEmailStore(clients.Firestore, logger.Logger)
	devices := store.NewDeviceStore(clients.Firestore, logger.Logger)
	proposals := store.NewProposalStore(clients.Firestore, logger.Logger)

	// サービス層
	m := metrics.New()
	sender := services.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddr)
	forwarder := services.NewForwardService(sender, cfg.ForwardToAddr, logger.Logger)
	dispatcher := services.NewDispatcher(devices, services.NewFCMSender(clients.Messaging), logger.Logger)
	pipeline := services.NewPipeline(emails, dispatcher, forwarder, m, logger.Logger)
	resendClient := services.NewResendClient(cfg.ResendAPIKey, cfg.ResendBaseURL, logger.Logger)

	limiter, err := services.NewRateLimiter(cfg.RedisURL, cfg.RateLimitWindow, cfg.RateLimitMax)
	if err != nil {
		logger.Logger.Fatal("レート制限の初期化に失敗しました", zap.Error(err))
	}

	// ハンドラー層
	webhookHandler := handlers.NewWebhookHandler(pipeline, cfg.WebhookSecret, m)
	contactHandler := handlers.NewContactHandler(limiter, sender, proposals, cfg.ForwardToAddr)
	emailsHandler := handlers.NewEmailsHandler(emails)
	replyHandler := handlers.NewReplyHandler(sender, emails)
	proposalsHandler := handlers.NewProposalsHandler(proposals, sender)
	notificationsHandler := handlers.NewNotificationsHandler(devices)
	receiveHandler := handlers.NewReceiveHandler(pipeline)
	fallbackHandler := handlers.NewResendFallbackHandler(resendClient)

	// ルーターの設定
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.GinLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// Webhook（署名検証はハンドラー内で行う）
	r.GET("/webhooks/resend", webhookHandler.HandleWebhookStatus)
	r.POST("/webhooks/resend", webhookHandler.HandleWebhook)

	// 生MIMEの取り込み（サービス間トークン認証）
	r.POST("/receive", middleware.ServiceTokenAuth(cfg.ServiceToken), receiveHandler.HandleReceive)

	// コンタクトフォーム（公開エンドポイント、レート制限あり）
	r.POST("/api/contact", contactHandler.HandleContact)
	r.GET("/api/contact", contactHandler.HandleContactMethodNotAllowed)

	// モバイルアプリ向けAPI（APIキー認証）
	api := r.Group("/api", middleware.APIKeyAuth(cfg.PersonalAPIKey))
	{
		api.GET("/emails", emailsHandler.HandleListEmails)
		api.PATCH("/emails", emailsHandler.HandleUpdateEmail)
		api.DELETE("/emails", emailsHandler.HandleDeleteEmail)
		api.POST("/emails/reply", replyHandler.HandleReply)

		// Firestore障害時のフォールバック読み取り
		api.GET("/emails/resend", fallbackHandler.HandleListEmails)
		api.GET("/emails/:emailId/attachments", fallbackHandler.HandleAttachments)

		api.POST("/notifications/register", notificationsHandler.HandleRegisterToken)
		api.DELETE("/notifications/register", notificationsHandler.HandleRemoveToken)

		api.GET("/proposals", proposalsHandler.HandleListProposals)
		api.PATCH("/proposals", proposalsHandler.HandleUpdateProposal)
		api.DELETE("/proposals", proposalsHandler.HandleDeleteProposal)
		api.POST("/proposals/reply", proposalsHandler.HandleProposalReply)
	}

	// サーバーの設定と起動
	srv := config.SetupServer(r, cfg)

	// グレースフルシャットダウンの実装
	handleGracefulShutdown(srv, cfg)
}

func handleGracefulShutdown(srv *http.Server, cfg *config.ServerConfig) {
	// サーバーを別のゴルーチンで起動
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("サーバーの起動に失敗しました", zap.Error(err))
		}
	}()

	// シグナルの受信設定
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Logger.Info("シャットダウンを開始します...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("サーバーのシャットダウンでエラーが発生", zap.Error(err))
	}

	logger.Logger.Info("サーバーを正常に終了しました")
}
