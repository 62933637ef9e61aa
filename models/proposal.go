package models

import "time"

// Proposal はコンタクトフォーム経由の案件相談レコードです
type Proposal struct {
	ID        string      `json:"id" firestore:"-"`
	Name      string      `json:"name" firestore:"name"`
	Email     string      `json:"email" firestore:"email"`
	Message   string      `json:"message" firestore:"message"`
	Status    EmailStatus `json:"status" firestore:"status"`
	Replies   []Reply     `json:"replies" firestore:"replies"`
	Source    string      `json:"source" firestore:"source"`
	CreatedAt time.Time   `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt time.Time   `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}
