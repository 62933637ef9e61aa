package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/models"
	"github.com/KamiDeveloper/kamidev-portfolio/pkg/metrics"
)

// EmailWriter は受信メールの永続化と未読件数の取得を提供します
type EmailWriter interface {
	AddEmail(ctx context.Context, rec models.EmailRecord) (string, error)
	CountUnread(ctx context.Context) (int, error)
}

// StepOutcome はパイプライン各ステップの結果です
type StepOutcome struct {
	Step   string
	OK     bool
	Detail string
}

// PipelineResult は1回の取り込み処理の結果レポートです。
// 永続化の失敗はPersistErrに記録されますが、転送は独立して実行されるため
// レスポンスの成否には影響しません。
type PipelineResult struct {
	DocID       string
	UnreadCount int
	PersistErr  error
	Outcomes    []StepOutcome
}

// Pipeline は受信メールの 正規化 → 永続化 → プッシュ通知 → 転送 を統括します。
// 通知と転送はベストエフォートで、失敗はレポートに記録されるだけです。
type Pipeline struct {
	store     EmailWriter
	notifier  Notifier
	forwarder EmailForwarder
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewPipeline(store EmailWriter, notifier Notifier, forwarder EmailForwarder, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		notifier:  notifier,
		forwarder: forwarder,
		metrics:   m,
		logger:    logger,
	}
}

// Process は受信メールイベントを処理します。永続化が失敗しても
// 転送は必ず試行されます。通知は永続化が成功し未読件数が
// 確定した後にのみ行います。
func (p *Pipeline) Process(ctx context.Context, data models.EmailEventData, source string) PipelineResult {
	p.metrics.IncReceived()

	rec := NormalizeEvent(data, source)
	result := PipelineResult{}

	docID, err := p.store.AddEmail(ctx, rec)
	if err != nil {
		result.PersistErr = err
		result.Outcomes = append(result.Outcomes, StepOutcome{Step: "persist", OK: false, Detail: err.Error()})
		p.metrics.IncFailed()
		p.logger.Error("メールの永続化に失敗しました", zap.Error(err))
	} else {
		result.DocID = docID
		result.Outcomes = append(result.Outcomes, StepOutcome{Step: "persist", OK: true})
		p.metrics.IncPersisted()

		count, err := p.store.CountUnread(ctx)
		if err != nil {
			// バッジ用の参考値なので失敗しても続行する
			p.logger.Warn("未読件数の取得に失敗しました", zap.Error(err))
		} else {
			result.UnreadCount = count
		}

		notifyErr := p.notifier.Notify(ctx, NotifyInput{
			RecordID:    docID,
			From:        rec.From,
			Subject:     rec.Subject,
			UnreadCount: result.UnreadCount,
		})
		if notifyErr != nil {
			result.Outcomes = append(result.Outcomes, StepOutcome{Step: "notify", OK: false, Detail: notifyErr.Error()})
			p.logger.Error("プッシュ通知の送信に失敗しました", zap.Error(notifyErr))
		} else {
			result.Outcomes = append(result.Outcomes, StepOutcome{Step: "notify", OK: true})
			p.metrics.IncNotified()
		}
	}

	// 転送は永続化・通知の結果にかかわらず実行する
	forwardID, err := p.forwarder.Forward(ctx, data)
	switch {
	case errors.Is(err, ErrForwardSkipped):
		// 未設定によるスキップは失敗でも送信でもない
		result.Outcomes = append(result.Outcomes, StepOutcome{Step: "forward", OK: true, Detail: "skipped"})
	case err != nil:
		result.Outcomes = append(result.Outcomes, StepOutcome{Step: "forward", OK: false, Detail: err.Error()})
		p.logger.Error("メールの転送に失敗しました", zap.Error(err))
	default:
		result.Outcomes = append(result.Outcomes, StepOutcome{Step: "forward", OK: true, Detail: forwardID})
		p.metrics.IncForwarded()
	}

	p.logOutcomes(source, result)
	return result
}

func (p *Pipeline) logOutcomes(source string, result PipelineResult) {
	fields := []zap.Field{
		zap.String("source", source),
		zap.String("docId", result.DocID),
		zap.Int("unreadCount", result.UnreadCount),
	}
	for _, outcome := range result.Outcomes {
		fields = append(fields, zap.Bool("step_"+outcome.Step, outcome.OK))
	}
	p.logger.Info("取り込みパイプラインが完了しました", fields...)
}
