package models

import "time"

// EmailStatus はメールの既読状態を表します
type EmailStatus string

const (
	StatusUnread  EmailStatus = "unread"
	StatusRead    EmailStatus = "read"
	StatusReplied EmailStatus = "replied"
)

// IsValid はステータス値が定義済みかどうかを判定します
func (s EmailStatus) IsValid() bool {
	switch s {
	case StatusUnread, StatusRead, StatusReplied:
		return true
	}
	return false
}

// EmailAddress は正規化済みの送信者情報です
type EmailAddress struct {
	Email string `json:"email" firestore:"email"`
	Name  string `json:"name" firestore:"name"`
}

// Display は表示用の文字列を返します（名前がなければアドレス）
func (a EmailAddress) Display() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

// Attachment は正規化済みの添付ファイル記述子です
type Attachment struct {
	ID          string `json:"id" firestore:"id"`
	Filename    string `json:"filename" firestore:"filename"`
	ContentType string `json:"contentType" firestore:"contentType"`
	Size        int64  `json:"size" firestore:"size"`
}

// Reply は送信済みの返信を表します
type Reply struct {
	SentAt     time.Time `json:"sentAt" firestore:"sentAt"`
	To         []string  `json:"to" firestore:"to"`
	Subject    string    `json:"subject" firestore:"subject"`
	Message    string    `json:"message" firestore:"message"`
	ProviderID string    `json:"providerId" firestore:"providerId"`
}

// EmailRecord はFirestoreのemailsコレクションに保存される正規化済みレコードです。
// ReceivedAtはゼロ値のままPutするとサーバー側でタイムスタンプが割り当てられます。
type EmailRecord struct {
	ID          string       `json:"id" firestore:"-"`
	EmailID     string       `json:"emailId" firestore:"emailId"`
	From        EmailAddress `json:"from" firestore:"from"`
	To          []string     `json:"to" firestore:"to"`
	CC          []string     `json:"cc" firestore:"cc"`
	BCC         []string     `json:"bcc" firestore:"bcc"`
	Subject     string       `json:"subject" firestore:"subject"`
	MessageID   string       `json:"messageId" firestore:"messageId"`
	TextBody    string       `json:"textBody" firestore:"textBody"`
	HTMLBody    string       `json:"htmlBody" firestore:"htmlBody"`
	Attachments []Attachment `json:"attachments" firestore:"attachments"`
	ReceivedAt  time.Time    `json:"receivedAt" firestore:"receivedAt,serverTimestamp"`
	Status      EmailStatus  `json:"status" firestore:"status"`
	Replies     []Reply      `json:"replies" firestore:"replies"`
	Source      string       `json:"source" firestore:"source"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}
