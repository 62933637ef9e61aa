package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firestorepb "cloud.google.com/go/firestore/apiv1/firestorepb"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/KamiDeveloper/kamidev-portfolio/models"
)

const collectionEmails = "emails"

// EmailStore はemailsコレクションへの読み書きを提供します
type EmailStore struct {
	client *firestore.Client
	logger *zap.Logger
}

func NewEmailStore(client *firestore.Client, logger *zap.Logger) *EmailStore {
	return &EmailStore{
		client: client,
		logger: logger,
	}
}

// AddEmail は正規化済みレコードを追加し、自動採番されたIDを返します。
// ReceivedAtはサーバータイムスタンプが割り当てられます。
func (s *EmailStore) AddEmail(ctx context.Context, rec models.EmailRecord) (string, error) {
	ref, _, err := s.client.Collection(collectionEmails).Add(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("failed to add email document: %w", err)
	}

	s.logger.Debug("メールレコードを保存しました",
		zap.String("docId", ref.ID),
		zap.String("emailId", rec.EmailID),
	)
	return ref.ID, nil
}

// CountUnread はstatus=unreadのレコード件数を集計クエリで取得します
func (s *EmailStore) CountUnread(ctx context.Context) (int, error) {
	unreadQuery := s.client.Collection(collectionEmails).
		Where("status", "==", string(models.StatusUnread))
	query := unreadQuery.NewAggregationQuery().WithCount("all")

	results, err := query.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread emails: %w", err)
	}

	value, ok := results["all"]
	if !ok {
		return 0, fmt.Errorf("count aggregation returned no result")
	}
	count, ok := value.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count aggregation type %T", value)
	}
	return int(count.GetIntegerValue()), nil
}

// ListOptions は一覧取得の条件です
type ListOptions struct {
	Limit  int
	Status string
	Cursor string // 前ページ最後のドキュメントID
}

// ListEmails は受信日時の降順で一覧を返します
func (s *EmailStore) ListEmails(ctx context.Context, opts ListOptions) ([]models.EmailRecord, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	query := s.client.Collection(collectionEmails).
		OrderBy("receivedAt", firestore.Desc)

	if opts.Status != "" {
		query = query.Where("status", "==", opts.Status)
	}

	if opts.Cursor != "" {
		snap, err := s.client.Collection(collectionEmails).Doc(opts.Cursor).Get(ctx)
		if err == nil && snap.Exists() {
			query = query.StartAfter(snap)
		}
	}

	iter := query.Limit(opts.Limit).Documents(ctx)
	defer iter.Stop()

	emails := make([]models.EmailRecord, 0, opts.Limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate emails: %w", err)
		}

		var rec models.EmailRecord
		if err := doc.DataTo(&rec); err != nil {
			s.logger.Warn("メールレコードのデコードに失敗しました",
				zap.String("docId", doc.Ref.ID),
				zap.Error(err),
			)
			continue
		}
		rec.ID = doc.Ref.ID
		emails = append(emails, rec)
	}
	return emails, nil
}

// UpdateStatus は既読状態を更新します
func (s *EmailStore) UpdateStatus(ctx context.Context, id string, status models.EmailStatus) error {
	_, err := s.client.Collection(collectionEmails).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("failed to update email status: %w", err)
	}
	return nil
}

// AppendReply は返信を追記し、ステータスをrepliedにします
func (s *EmailStore) AppendReply(ctx context.Context, id string, reply models.Reply) error {
	_, err := s.client.Collection(collectionEmails).Doc(id).Update(ctx, []firestore.Update{
		{Path: "replies", Value: firestore.ArrayUnion(reply)},
		{Path: "status", Value: string(models.StatusReplied)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("failed to append reply: %w", err)
	}
	return nil
}

// DeleteEmail はレコードを削除します（管理操作）
func (s *EmailStore) DeleteEmail(ctx context.Context, id string) error {
	_, err := s.client.Collection(collectionEmails).Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete email: %w", err)
	}
	return nil
}
