package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookPostsMessage(t *testing.T) {
	var got Message
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook := NewWebhook(server.URL, "secret-token")
	err := webhook.Send(context.Background(), Message{
		To:      "cliente@example.com",
		Subject: "Su equipo está listo",
		Body:    "Orden WO-1 lista para recoger.",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got.To != "cliente@example.com" || got.Subject == "" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if auth != "Bearer secret-token" {
		t.Fatalf("missing bearer token, got %q", auth)
	}
}

func TestWebhookRejectsGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	webhook := NewWebhook(server.URL, "")
	if err := webhook.Send(context.Background(), Message{To: "a@b.c"}); err == nil {
		t.Fatalf("expected error on non-2xx status")
	}
}

func TestWebhookRequiresRecipient(t *testing.T) {
	webhook := NewWebhook("http://127.0.0.1:0", "")
	if err := webhook.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected error for empty recipient")
	}
}
