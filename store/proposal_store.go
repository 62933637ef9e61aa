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

const collectionProposals = "proposals"

// ProposalStore はコンタクトフォーム経由の案件相談レコードを管理します
type ProposalStore struct {
	client *firestore.Client
	logger *zap.Logger
}

func NewProposalStore(client *firestore.Client, logger *zap.Logger) *ProposalStore {
	return &ProposalStore{
		client: client,
		logger: logger,
	}
}

// AddProposal は新規レコードを追加してIDを返します
func (s *ProposalStore) AddProposal(ctx context.Context, p models.Proposal) (string, error) {
	ref, _, err := s.client.Collection(collectionProposals).Add(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to add proposal: %w", err)
	}
	return ref.ID, nil
}

// ListProposals は作成日時の降順で一覧を返します
func (s *ProposalStore) ListProposals(ctx context.Context, opts ListOptions) ([]models.Proposal, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	query := s.client.Collection(collectionProposals).
		OrderBy("createdAt", firestore.Desc)

	if opts.Status != "" {
		query = query.Where("status", "==", opts.Status)
	}

	iter := query.Limit(opts.Limit).Documents(ctx)
	defer iter.Stop()

	proposals := make([]models.Proposal, 0, opts.Limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate proposals: %w", err)
		}

		var p models.Proposal
		if err := doc.DataTo(&p); err != nil {
			s.logger.Warn("提案レコードのデコードに失敗しました",
				zap.String("docId", doc.Ref.ID),
				zap.Error(err),
			)
			continue
		}
		p.ID = doc.Ref.ID
		proposals = append(proposals, p)
	}
	return proposals, nil
}

// CountUnread はstatus=unreadの件数を返します
func (s *ProposalStore) CountUnread(ctx context.Context) (int, error) {
	unreadQuery := s.client.Collection(collectionProposals).
		Where("status", "==", string(models.StatusUnread))
	query := unreadQuery.NewAggregationQuery().WithCount("all")

	results, err := query.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread proposals: %w", err)
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

// UpdateStatus は既読状態を更新します
func (s *ProposalStore) UpdateStatus(ctx context.Context, id string, status models.EmailStatus) error {
	_, err := s.client.Collection(collectionProposals).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("failed to update proposal status: %w", err)
	}
	return nil
}

// AppendReply は返信を追記し、ステータスをrepliedにします
func (s *ProposalStore) AppendReply(ctx context.Context, id string, reply models.Reply) error {
	_, err := s.client.Collection(collectionProposals).Doc(id).Update(ctx, []firestore.Update{
		{Path: "replies", Value: firestore.ArrayUnion(reply)},
		{Path: "status", Value: string(models.StatusReplied)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("failed to append proposal reply: %w", err)
	}
	return nil
}

// DeleteProposal はレコードを削除します
func (s *ProposalStore) DeleteProposal(ctx context.Context, id string) error {
	_, err := s.client.Collection(collectionProposals).Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete proposal: %w", err)
	}
	return nil
}
