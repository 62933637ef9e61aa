package models

import "encoding/json"

// イベントタイプ定数
const (
	EventEmailReceived = "email.received"
)

// InboundEmailEvent はプロバイダーから届くWebhookペイロードを定義します
type InboundEmailEvent struct {
	Type string         `json:"type"`
	Data EmailEventData `json:"data"`
}

// EmailEventData はemail.receivedイベントのデータ部を定義します
type EmailEventData struct {
	From        SenderField       `json:"from"`
	To          []string          `json:"to"`
	CC          []string          `json:"cc"`
	BCC         []string          `json:"bcc"`
	Subject     string            `json:"subject"`
	MessageID   string            `json:"message_id"`
	Text        string            `json:"text"`
	HTML        string            `json:"html"`
	Attachments []EventAttachment `json:"attachments"`
	EmailID     string            `json:"email_id"`
	CreatedAt   string            `json:"created_at"`
}

// EventAttachment はプロバイダー形式の添付ファイル記述子です
type EventAttachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// SenderField はプロバイダーのバージョンによって
// 文字列（"Name <addr>" または素のアドレス）とオブジェクトの
// 両方の形で届くfromフィールドを表します
type SenderField struct {
	Raw        string
	Name       string
	Email      string
	Structured bool
}

// UnmarshalJSON は両方の形を受け付けます。不正な形はゼロ値に落とし、
// エラーにはしません（正規化側でデフォルトに退化させるため）
func (s *SenderField) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Raw = str
		return nil
	}

	var obj struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		*s = SenderField{}
		return nil
	}
	s.Structured = true
	s.Name = obj.Name
	s.Email = obj.Email
	return nil
}

// MarshalJSON はログ出力等のために構造化形式で出力します
func (s SenderField) MarshalJSON() ([]byte, error) {
	if !s.Structured && s.Raw != "" {
		return json.Marshal(s.Raw)
	}
	return json.Marshal(struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}{Name: s.Name, Email: s.Email})
}

// Display は転送メールなどに表示するための文字列を返します
func (s SenderField) Display() string {
	if !s.Structured {
		return s.Raw
	}
	if s.Name != "" && s.Email != "" {
		return s.Name + " <" + s.Email + ">"
	}
	if s.Email != "" {
		return s.Email
	}
	return s.Name
}
