package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

const rawTestMessage = "From: Jane Doe <jane@example.com>\r\n" +
	"To: inbox@kamidev.app, second@kamidev.app\r\n" +
	"Subject: Project inquiry\r\n" +
	"Message-Id: <abc123@mail.example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello, I would like to discuss a project.\r\n"

func performReceive(h *ReceiveHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/receive", h.HandleReceive)

	req := httptest.NewRequest(http.MethodPost, "/receive", bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleReceive_ParsesAndStores(t *testing.T) {
	fx := newWebhookFixture(nil)
	h := NewReceiveHandler(fx.handler.pipeline)

	w := performReceive(h, rawTestMessage, map[string]string{
		"X-Message-ID": "trace-123",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	if resp["status"] != "success" || resp["trace_id"] != "trace-123" {
		t.Errorf("response = %v", resp)
	}

	if len(fx.store.added) != 1 {
		t.Fatalf("stored = %d records, want 1", len(fx.store.added))
	}
	rec := fx.store.added[0]
	if rec.Source != "mime" {
		t.Errorf("Source = %q, want mime", rec.Source)
	}
	if rec.From.Name != "Jane Doe" || rec.From.Email != "jane@example.com" {
		t.Errorf("From = %+v", rec.From)
	}
	if len(rec.To) != 2 {
		t.Errorf("To = %v, want 2 recipients", rec.To)
	}
	if rec.Subject != "Project inquiry" {
		t.Errorf("Subject = %q", rec.Subject)
	}
	if !strings.Contains(rec.TextBody, "discuss a project") {
		t.Errorf("TextBody = %q", rec.TextBody)
	}
	if fx.forwarder.calls != 1 {
		t.Error("Ingested mail should be forwarded like webhook mail")
	}
}

func TestHandleReceive_GeneratesTraceID(t *testing.T) {
	fx := newWebhookFixture(nil)
	h := NewReceiveHandler(fx.handler.pipeline)

	w := performReceive(h, rawTestMessage, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeBody(t, w)
	traceID, _ := resp["trace_id"].(string)
	if !strings.HasPrefix(traceID, "gen-") {
		t.Errorf("trace_id = %q, want generated id", traceID)
	}
}

func TestHandleReceive_StoreFailure(t *testing.T) {
	fx := newWebhookFixture(errors.New("firestore down"))
	h := NewReceiveHandler(fx.handler.pipeline)

	w := performReceive(h, rawTestMessage, nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 for the service-to-service path", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["status"] != "error" {
		t.Errorf("response = %v", resp)
	}
}
