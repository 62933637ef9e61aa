package store

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Clients はFirebase Admin SDKから取得したクライアントの束です
type Clients struct {
	Firestore *firestore.Client
	Messaging *messaging.Client
}

// NewClients はFirebaseを初期化します。サービスアカウントの認証情報が
// 環境変数で渡されていればそれを使い、なければ実行環境の
// デフォルト認証情報にフォールバックします。
func NewClients(ctx context.Context, projectID, clientEmail, privateKeyPEM string) (*Clients, error) {
	var opts []option.ClientOption

	if projectID != "" && clientEmail != "" && privateKeyPEM != "" {
		credentials, err := json.Marshal(map[string]string{
			"type":         "service_account",
			"project_id":   projectID,
			"client_email": clientEmail,
			"private_key":  privateKeyPEM,
			"token_uri":    "https://oauth2.googleapis.com/token",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(credentials))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	fsClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		fsClient.Close()
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return &Clients{
		Firestore: fsClient,
		Messaging: msgClient,
	}, nil
}

// Close はFirestoreクライアントを閉じます
func (c *Clients) Close() {
	if c.Firestore != nil {
		c.Firestore.Close()
	}
}
