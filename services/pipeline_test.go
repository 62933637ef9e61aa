package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/models"
	"github.com/KamiDeveloper/kamidev-portfolio/pkg/metrics"
)

type fakeEmailWriter struct {
	addErr   error
	countErr error
	count    int
	added    []models.EmailRecord
}

func (f *fakeEmailWriter) AddEmail(_ context.Context, rec models.EmailRecord) (string, error) {
	if f.addErr != nil {
		return "", f.addErr
	}
	f.added = append(f.added, rec)
	return "doc_1", nil
}

func (f *fakeEmailWriter) CountUnread(_ context.Context) (int, error) {
	return f.count, f.countErr
}

type fakeNotifier struct {
	calls int
	last  NotifyInput
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, in NotifyInput) error {
	f.calls++
	f.last = in
	return f.err
}

type fakeForwarder struct {
	calls int
	last  models.EmailEventData
	err   error
}

func (f *fakeForwarder) Forward(_ context.Context, data models.EmailEventData) (string, error) {
	f.calls++
	f.last = data
	if f.err != nil {
		return "", f.err
	}
	return "fwd_1", nil
}

func newTestPipeline(store *fakeEmailWriter, notifier *fakeNotifier, forwarder *fakeForwarder) *Pipeline {
	return NewPipeline(store, notifier, forwarder, metrics.New(), zap.NewNop())
}

func TestPipeline_SuccessPath(t *testing.T) {
	store := &fakeEmailWriter{count: 5}
	notifier := &fakeNotifier{}
	forwarder := &fakeForwarder{}
	p := newTestPipeline(store, notifier, forwarder)

	data := models.EmailEventData{
		From:    models.SenderField{Raw: "Jane <jane@example.com>"},
		Subject: "Hello",
		EmailID: "em_1",
	}

	result := p.Process(context.Background(), data, "webhook")

	if result.PersistErr != nil {
		t.Fatalf("PersistErr = %v", result.PersistErr)
	}
	if result.DocID != "doc_1" {
		t.Errorf("DocID = %q, want doc_1", result.DocID)
	}
	if result.UnreadCount != 5 {
		t.Errorf("UnreadCount = %d, want 5", result.UnreadCount)
	}
	if notifier.calls != 1 {
		t.Fatalf("notifier.calls = %d, want 1", notifier.calls)
	}
	if notifier.last.UnreadCount != 5 || notifier.last.RecordID != "doc_1" {
		t.Errorf("NotifyInput = %+v", notifier.last)
	}
	if forwarder.calls != 1 {
		t.Errorf("forwarder.calls = %d, want 1", forwarder.calls)
	}
	if len(store.added) != 1 || store.added[0].Source != "webhook" {
		t.Errorf("stored record = %+v", store.added)
	}
}

func TestPipeline_PersistFailureSkipsNotifyButForwards(t *testing.T) {
	store := &fakeEmailWriter{addErr: errors.New("firestore down")}
	notifier := &fakeNotifier{}
	forwarder := &fakeForwarder{}
	p := newTestPipeline(store, notifier, forwarder)

	result := p.Process(context.Background(), models.EmailEventData{EmailID: "em_1"}, "webhook")

	if result.PersistErr == nil {
		t.Fatal("Expected PersistErr to be recorded")
	}
	if result.DocID != "" {
		t.Errorf("DocID = %q, want empty", result.DocID)
	}
	if notifier.calls != 0 {
		t.Error("Notification must be skipped when persistence fails")
	}
	if forwarder.calls != 1 {
		t.Error("Forwarding must still run when persistence fails")
	}
}

func TestPipeline_CountErrorContinuesWithZeroBadge(t *testing.T) {
	store := &fakeEmailWriter{countErr: errors.New("aggregation failed")}
	notifier := &fakeNotifier{}
	forwarder := &fakeForwarder{}
	p := newTestPipeline(store, notifier, forwarder)

	result := p.Process(context.Background(), models.EmailEventData{EmailID: "em_1"}, "webhook")

	if result.PersistErr != nil {
		t.Fatalf("PersistErr = %v", result.PersistErr)
	}
	if notifier.calls != 1 {
		t.Fatal("Notification should still be attempted")
	}
	if notifier.last.UnreadCount != 0 {
		t.Errorf("UnreadCount = %d, want 0 on count failure", notifier.last.UnreadCount)
	}
}

func TestPipeline_SkippedForwardIsNotCounted(t *testing.T) {
	store := &fakeEmailWriter{count: 1}
	notifier := &fakeNotifier{}
	forwarder := &fakeForwarder{err: ErrForwardSkipped}
	m := metrics.New()
	p := NewPipeline(store, notifier, forwarder, m, zap.NewNop())

	result := p.Process(context.Background(), models.EmailEventData{EmailID: "em_1"}, "webhook")

	var forward *StepOutcome
	for i, outcome := range result.Outcomes {
		if outcome.Step == "forward" {
			forward = &result.Outcomes[i]
		}
	}
	if forward == nil {
		t.Fatal("Expected a forward outcome to be recorded")
	}
	if !forward.OK || forward.Detail != "skipped" {
		t.Errorf("forward outcome = %+v, want OK with detail \"skipped\"", *forward)
	}

	// スキップは送信件数として数えない
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	var counts map[string]int64
	if err := json.Unmarshal(w.Body.Bytes(), &counts); err != nil {
		t.Fatalf("Failed to decode metrics: %v", err)
	}
	if counts["forwarded"] != 0 {
		t.Errorf("forwarded = %d, want 0 for a skipped forward", counts["forwarded"])
	}
	if counts["persisted"] != 1 {
		t.Errorf("persisted = %d, want 1", counts["persisted"])
	}
}

func TestPipeline_NotifyAndForwardFailuresAreBestEffort(t *testing.T) {
	store := &fakeEmailWriter{count: 1}
	notifier := &fakeNotifier{err: errors.New("push failed")}
	forwarder := &fakeForwarder{err: errors.New("sendgrid failed")}
	p := newTestPipeline(store, notifier, forwarder)

	result := p.Process(context.Background(), models.EmailEventData{EmailID: "em_1"}, "webhook")

	if result.PersistErr != nil {
		t.Fatalf("PersistErr = %v", result.PersistErr)
	}
	if result.DocID != "doc_1" {
		t.Errorf("DocID = %q, want doc_1 despite downstream failures", result.DocID)
	}

	var notifyOK, forwardOK *bool
	for _, outcome := range result.Outcomes {
		ok := outcome.OK
		switch outcome.Step {
		case "notify":
			notifyOK = &ok
		case "forward":
			forwardOK = &ok
		}
	}
	if notifyOK == nil || *notifyOK {
		t.Error("Expected notify outcome to be recorded as failed")
	}
	if forwardOK == nil || *forwardOK {
		t.Error("Expected forward outcome to be recorded as failed")
	}
}
