package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/models"
)

// DeviceStore はオーナー端末の登録情報の読み取りとトークンのクリアを提供します
type DeviceStore interface {
	GetRegistration(ctx context.Context) (*models.DeviceRegistration, error)
	ClearToken(ctx context.Context) error
}

// Notifier は新着メールのプッシュ通知を送ります
type Notifier interface {
	Notify(ctx context.Context, in NotifyInput) error
}

// NotifyInput はプッシュ通知1件分の入力です
type NotifyInput struct {
	RecordID    string
	From        models.EmailAddress
	Subject     string
	UnreadCount int
}

// Dispatcher は登録済み端末へのプッシュ通知送信と、
// 失効トークンの自己修復（クリア）を担当します
type Dispatcher struct {
	devices DeviceStore
	sender  PushSender
	logger  *zap.Logger
}

func NewDispatcher(devices DeviceStore, sender PushSender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		devices: devices,
		sender:  sender,
		logger:  logger,
	}
}

// Notify は登録済みトークンへプッシュ通知を送ります。トークン未登録は
// 正常なno-opです。失効トークンを検出した場合は登録をクリアし、
// 以後の送信が同じ失敗を繰り返さないようにします。
func (d *Dispatcher) Notify(ctx context.Context, in NotifyInput) error {
	reg, err := d.devices.GetRegistration(ctx)
	if err != nil {
		return fmt.Errorf("failed to load device registration: %w", err)
	}
	if reg == nil || reg.FCMToken == "" {
		d.logger.Info("プッシュトークンが未登録のため通知をスキップします")
		return nil
	}

	notification := PushNotification{
		Title: in.From.Display(),
		Body:  in.Subject,
		Data: map[string]string{
			"type":    "new_email",
			"emailId": in.RecordID,
			"from":    in.From.Email,
			"subject": in.Subject,
		},
		Badge: in.UnreadCount,
	}

	if err := d.sender.Send(ctx, reg.FCMToken, notification); err != nil {
		if errors.Is(err, ErrTokenUnregistered) {
			d.logger.Warn("失効したプッシュトークンを検出したためクリアします", zap.Error(err))
			if clearErr := d.devices.ClearToken(ctx); clearErr != nil {
				d.logger.Error("トークンのクリアに失敗しました", zap.Error(clearErr))
			}
			return nil
		}
		return err
	}

	d.logger.Info("プッシュ通知を送信しました",
		zap.String("emailId", in.RecordID),
		zap.Int("badge", in.UnreadCount),
	)
	return nil
}
