package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/KamiDeveloper/kamidev-portfolio/models"
	"github.com/KamiDeveloper/kamidev-portfolio/services"
)

type fakeRateLimiter struct {
	result services.RateLimitResult
	err    error
}

func (f *fakeRateLimiter) Allow(_ context.Context, _ string) (services.RateLimitResult, error) {
	return f.result, f.err
}

type fakeEmailSender struct {
	sendErr error
	calls   int
	last    services.OutboundEmail
}

func (f *fakeEmailSender) Send(_ context.Context, msg services.OutboundEmail) (string, error) {
	f.calls++
	f.last = msg
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return "msg_1", nil
}

type fakeProposalWriter struct {
	added []models.Proposal
	err   error
}

func (f *fakeProposalWriter) AddProposal(_ context.Context, p models.Proposal) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.added = append(f.added, p)
	return "prop_1", nil
}

type contactFixture struct {
	handler   *ContactHandler
	limiter   *fakeRateLimiter
	sender    *fakeEmailSender
	proposals *fakeProposalWriter
}

func newContactFixture() *contactFixture {
	limiter := &fakeRateLimiter{result: services.RateLimitResult{Allowed: true}}
	sender := &fakeEmailSender{}
	proposals := &fakeProposalWriter{}
	return &contactFixture{
		handler:   NewContactHandler(limiter, sender, proposals, "owner@kamidev.app"),
		limiter:   limiter,
		sender:    sender,
		proposals: proposals,
	}
}

func performContact(h *ContactHandler, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/api/contact", h.HandleContact)

	req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleContact_Success(t *testing.T) {
	fx := newContactFixture()

	w := performContact(fx.handler, `{
		"name": "Jane Doe",
		"email": "Jane@Example.com",
		"message": "I would like to discuss a new project with you."
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	if resp["success"] != true || resp["id"] != "msg_1" {
		t.Errorf("response = %v", resp)
	}
	if fx.sender.calls != 1 {
		t.Fatalf("sender.calls = %d, want 1", fx.sender.calls)
	}
	if fx.sender.last.ReplyTo != "jane@example.com" {
		t.Errorf("ReplyTo = %q, want lowercased address", fx.sender.last.ReplyTo)
	}
	if len(fx.sender.last.To) != 1 || fx.sender.last.To[0] != "owner@kamidev.app" {
		t.Errorf("To = %v", fx.sender.last.To)
	}
	if len(fx.proposals.added) != 1 {
		t.Fatalf("proposals = %d, want 1", len(fx.proposals.added))
	}
	if fx.proposals.added[0].Source != "contact_form" {
		t.Errorf("Source = %q", fx.proposals.added[0].Source)
	}
	if fx.proposals.added[0].Status != models.StatusUnread {
		t.Errorf("Status = %q", fx.proposals.added[0].Status)
	}
}

func TestHandleContact_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "short name",
			body:      `{"name":"J","email":"jane@example.com","message":"A long enough message."}`,
			wantField: "name",
		},
		{
			name:      "invalid email",
			body:      `{"name":"Jane","email":"not-an-email","message":"A long enough message."}`,
			wantField: "email",
		},
		{
			name:      "short message",
			body:      `{"name":"Jane","email":"jane@example.com","message":"short"}`,
			wantField: "message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newContactFixture()

			w := performContact(fx.handler, tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			resp := decodeBody(t, w)
			if resp["error"] != "validation" || resp["field"] != tt.wantField {
				t.Errorf("response = %v", resp)
			}
			if fx.sender.calls != 0 {
				t.Error("No email should be sent for invalid input")
			}
		})
	}
}

func TestHandleContact_HoneypotFakeSuccess(t *testing.T) {
	fx := newContactFixture()

	w := performContact(fx.handler, `{
		"name": "Jane Doe",
		"email": "jane@example.com",
		"message": "A perfectly normal looking message.",
		"honeypot": "filled-by-bot"
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (fake success)", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["success"] != true {
		t.Errorf("response = %v", resp)
	}
	if fx.sender.calls != 0 || len(fx.proposals.added) != 0 {
		t.Error("Spam must not be sent or persisted")
	}
}

func TestHandleContact_RateLimited(t *testing.T) {
	fx := newContactFixture()
	fx.limiter.result = services.RateLimitResult{Allowed: false, RetryAfter: 42}

	w := performContact(fx.handler, `{
		"name": "Jane Doe",
		"email": "jane@example.com",
		"message": "A long enough message for validation."
	}`)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["error"] != "rate_limit" {
		t.Errorf("error = %v", resp["error"])
	}
	if resp["retryAfter"] != float64(42) {
		t.Errorf("retryAfter = %v, want 42", resp["retryAfter"])
	}
	if fx.sender.calls != 0 {
		t.Error("No email should be sent for rate-limited requests")
	}
}

func TestHandleContact_LimiterErrorFailsOpen(t *testing.T) {
	fx := newContactFixture()
	fx.limiter.err = errors.New("redis down")

	w := performContact(fx.handler, `{
		"name": "Jane Doe",
		"email": "jane@example.com",
		"message": "A long enough message for validation."
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (fail-open)", w.Code)
	}
	if fx.sender.calls != 1 {
		t.Error("Limiter store failures must not block the form")
	}
}

func TestTruncate_RuneBoundaries(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under limit unchanged", "short", 100, "short"},
		{"ascii cut at limit", strings.Repeat("a", 10), 5, "aaaaa"},
		{"multibyte not split", strings.Repeat("a", 99) + "日本語", 100, strings.Repeat("a", 99)},
		{"cut between runes", "日本語", 6, "日本"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestHandleContact_MultibyteNameStaysValid(t *testing.T) {
	fx := newContactFixture()

	name := strings.Repeat("あいうえお", 8) // 120 bytes, over the 100-byte cap
	w := performContact(fx.handler, `{
		"name": "`+name+`",
		"email": "jane@example.com",
		"message": "A long enough message for validation."
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if fx.sender.calls != 1 {
		t.Fatal("Expected the email to be sent")
	}
	if !utf8.ValidString(fx.sender.last.Subject) {
		t.Errorf("Subject contains invalid UTF-8: %q", fx.sender.last.Subject)
	}
	if !utf8.ValidString(fx.sender.last.HTML) {
		t.Error("HTML body contains invalid UTF-8")
	}
}

func TestHandleContact_SendFailure(t *testing.T) {
	fx := newContactFixture()
	fx.sender.sendErr = errors.New("sendgrid unavailable")

	w := performContact(fx.handler, `{
		"name": "Jane Doe",
		"email": "jane@example.com",
		"message": "A long enough message for validation."
	}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["error"] != "email" {
		t.Errorf("error = %v", resp["error"])
	}
	if len(fx.proposals.added) != 0 {
		t.Error("Proposal must not be persisted when the email fails")
	}
}
