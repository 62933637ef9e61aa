package services

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// ErrTokenUnregistered はトークンが失効している場合のエラーです。
// 検出されると登録済みトークンのクリアにつながります。
var ErrTokenUnregistered = errors.New("push token no longer registered")

// PushNotification は端末へ送るプッシュ通知の内容です
type PushNotification struct {
	Title string
	Body  string
	Data  map[string]string
	Badge int
}

// PushSender はプッシュ通知の送信を抽象化します
type PushSender interface {
	Send(ctx context.Context, token string, n PushNotification) error
}

// FCMSender はFirebase Cloud Messaging経由でプッシュ通知を送信します
type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{client: client}
}

func (s *FCMSender) Send(ctx context.Context, token string, n PushNotification) error {
	badge := n.Badge
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Badge: &badge,
					Sound: "default",
				},
			},
		},
	}

	_, err := s.client.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) {
			return fmt.Errorf("%w: %v", ErrTokenUnregistered, err)
		}
		return err
	}
	return nil
}
