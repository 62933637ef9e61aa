package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/KamiDeveloper/kamidev-portfolio/models"
)

const (
	collectionUsers = "users"
	// シングルユーザー構成のため固定ドキュメントを使う
	ownerDocID = "owner"
)

// DeviceStore はオーナー端末のプッシュトークン登録を管理します
type DeviceStore struct {
	client *firestore.Client
	logger *zap.Logger
}

func NewDeviceStore(client *firestore.Client, logger *zap.Logger) *DeviceStore {
	return &DeviceStore{
		client: client,
		logger: logger,
	}
}

func (s *DeviceStore) ownerDoc() *firestore.DocumentRef {
	return s.client.Collection(collectionUsers).Doc(ownerDocID)
}

// GetRegistration は登録情報を取得します。未登録の場合は
// 空のレコードを返します（エラーではありません）。
func (s *DeviceStore) GetRegistration(ctx context.Context) (*models.DeviceRegistration, error) {
	snap, err := s.ownerDoc().Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &models.DeviceRegistration{}, nil
		}
		return nil, fmt.Errorf("failed to get device registration: %w", err)
	}

	var reg models.DeviceRegistration
	if err := snap.DataTo(&reg); err != nil {
		return nil, fmt.Errorf("failed to decode device registration: %w", err)
	}
	return &reg, nil
}

// SaveToken はトークンと端末情報を登録（上書き）します
func (s *DeviceStore) SaveToken(ctx context.Context, token string, deviceInfo map[string]interface{}) error {
	if deviceInfo == nil {
		deviceInfo = map[string]interface{}{}
	}

	_, err := s.ownerDoc().Set(ctx, map[string]interface{}{
		"fcmToken":   token,
		"deviceInfo": deviceInfo,
		"updatedAt":  firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}

	s.logger.Info("プッシュトークンを登録しました")
	return nil
}

// ClearToken はトークンをnullにします。失効検出時の自己修復と
// ログアウトの両方から呼ばれます。
func (s *DeviceStore) ClearToken(ctx context.Context) error {
	_, err := s.ownerDoc().Update(ctx, []firestore.Update{
		{Path: "fcmToken", Value: nil},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("failed to clear device token: %w", err)
	}

	s.logger.Info("プッシュトークンをクリアしました")
	return nil
}
