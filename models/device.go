package models

import "time"

// DeviceRegistration はオーナー端末のプッシュトークン登録情報です。
// シングルユーザー構成のため users/owner の1ドキュメントのみを使います。
type DeviceRegistration struct {
	FCMToken   string                 `json:"fcmToken" firestore:"fcmToken"`
	DeviceInfo map[string]interface{} `json:"deviceInfo" firestore:"deviceInfo"`
	UpdatedAt  time.Time              `json:"updatedAt" firestore:"updatedAt"`
}
