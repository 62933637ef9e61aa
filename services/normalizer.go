package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KamiDeveloper/kamidev-portfolio/models"
)

// NoSubjectPlaceholder は件名が空の場合に保存される文字列です
const NoSubjectPlaceholder = "(No subject)"

var displayNamePattern = regexp.MustCompile(`^(.+?)\s*<(.+)>$`)

// NormalizeEvent はプロバイダー形式のメールイベントを保存用の正規形に変換します。
// 常に成功し、欠落フィールドはドキュメント化されたデフォルトに退化します。
// ID と ReceivedAt はストア側で割り当てられるため設定しません。
func NormalizeEvent(data models.EmailEventData, source string) models.EmailRecord {
	return models.EmailRecord{
		EmailID:     data.EmailID,
		From:        ParseSender(data.From),
		To:          defaultSlice(data.To),
		CC:          defaultSlice(data.CC),
		BCC:         defaultSlice(data.BCC),
		Subject:     defaultSubject(data.Subject),
		MessageID:   defaultString(data.MessageID, data.EmailID),
		TextBody:    data.Text,
		HTMLBody:    data.HTML,
		Attachments: normalizeAttachments(data.Attachments),
		Status:      models.StatusUnread,
		Replies:     []models.Reply{},
		Source:      source,
	}
}

// ParseSender はfromフィールドを構造化アドレスに変換します。
// "Name <addr>" 形式は名前とアドレスに分割し、素のアドレスは
// 名前なしとして扱います。構造化済みの値はそのまま通します。
func ParseSender(from models.SenderField) models.EmailAddress {
	if from.Structured {
		return models.EmailAddress{Email: from.Email, Name: from.Name}
	}

	if m := displayNamePattern.FindStringSubmatch(from.Raw); m != nil {
		return models.EmailAddress{
			Name:  strings.TrimSpace(m[1]),
			Email: strings.TrimSpace(m[2]),
		}
	}
	return models.EmailAddress{Email: from.Raw, Name: ""}
}

func normalizeAttachments(atts []models.EventAttachment) []models.Attachment {
	result := make([]models.Attachment, 0, len(atts))
	for _, att := range atts {
		id := att.ID
		if id == "" {
			// 表示用IDなので一意性はベストエフォートで十分
			id = fmt.Sprintf("att-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
		}
		result = append(result, models.Attachment{
			ID:          id,
			Filename:    defaultString(att.Filename, "attachment"),
			ContentType: defaultString(att.ContentType, "application/octet-stream"),
			Size:        att.Size,
		})
	}
	return result
}

func defaultSubject(subject string) string {
	if subject == "" {
		return NoSubjectPlaceholder
	}
	return subject
}

func defaultSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
