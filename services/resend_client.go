package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/models"
)

// ResendClient は受信プロバイダーのREST APIを直接叩くクライアントです。
// Firestoreのデータが参照できない場合のフォールバック読み取りに使います。
type ResendClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewResendClient(apiKey, baseURL string, logger *zap.Logger) *ResendClient {
	return &ResendClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Configured はAPIキーが設定されているかどうかを返します
func (c *ResendClient) Configured() bool {
	return c.apiKey != ""
}

type resendEmail struct {
	ID string `json:"id"`
	models.EmailEventData
}

type resendListResponse struct {
	Data []resendEmail `json:"data"`
}

type resendAttachmentsResponse struct {
	Data []models.EventAttachment `json:"data"`
}

// ListEmails はプロバイダー側の受信メール一覧を取得し、正規形に変換して返します
func (c *ResendClient) ListEmails(ctx context.Context, limit int) ([]models.EmailRecord, error) {
	var resp resendListResponse
	if err := c.get(ctx, "/emails/receiving", &resp); err != nil {
		return nil, err
	}

	emails := make([]models.EmailRecord, 0, limit)
	for _, item := range resp.Data {
		if len(emails) >= limit {
			break
		}
		emails = append(emails, c.transform(item))
	}
	return emails, nil
}

// GetEmail は特定の受信メールを取得します
func (c *ResendClient) GetEmail(ctx context.Context, emailID string) (*models.EmailRecord, error) {
	var item resendEmail
	if err := c.get(ctx, "/emails/receiving/"+emailID, &item); err != nil {
		return nil, err
	}
	record := c.transform(item)
	return &record, nil
}

// ListAttachments はメールの添付ファイル一覧を取得します
func (c *ResendClient) ListAttachments(ctx context.Context, emailID string) ([]models.Attachment, error) {
	var resp resendAttachmentsResponse
	if err := c.get(ctx, "/emails/"+emailID+"/attachments", &resp); err != nil {
		return nil, err
	}

	attachments := make([]models.Attachment, 0, len(resp.Data))
	for _, att := range resp.Data {
		attachments = append(attachments, models.Attachment{
			ID:          att.ID,
			Filename:    defaultString(att.Filename, "attachment"),
			ContentType: defaultString(att.ContentType, "application/octet-stream"),
			Size:        att.Size,
		})
	}
	return attachments, nil
}

// GetAttachment は特定の添付ファイルのメタデータ／ダウンロード情報を取得します
func (c *ResendClient) GetAttachment(ctx context.Context, emailID, attachmentID string) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := c.get(ctx, "/emails/"+emailID+"/attachments/"+attachmentID, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// transform はプロバイダー形式をアプリの正規形に変換します。
// デフォルト値の扱いはWebhook経路の正規化と同じです。
func (c *ResendClient) transform(item resendEmail) models.EmailRecord {
	data := item.EmailEventData
	if data.EmailID == "" {
		data.EmailID = item.ID
	}
	record := NormalizeEvent(data, "resend_api")
	record.ID = item.ID

	if data.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, data.CreatedAt); err == nil {
			record.ReceivedAt = ts
		}
	}
	return record
}

func (c *ResendClient) get(ctx context.Context, path string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call resend API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Resend APIがエラーを返しました",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("path", path),
		)
		return fmt.Errorf("resend API returned status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
