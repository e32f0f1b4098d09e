package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testAPI(t *testing.T, handler http.HandlerFunc) *BotAPI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger, _ := zap.NewDevelopment()
	return NewBotAPI("123:token", Options{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, logger)
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	})

	if err := api.SendMessage(context.Background(), "-100", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if gotPath != "/bot123:token/sendMessage" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotPayload["chat_id"] != "-100" || gotPayload["text"] != "hello" {
		t.Errorf("unexpected payload: %v", gotPayload)
	}
	if gotPayload["parse_mode"] != "HTML" {
		t.Errorf("parse_mode = %v, want HTML", gotPayload["parse_mode"])
	}
}

func TestSendMessageAPIError(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"bot was kicked"}`))
	})

	err := api.SendMessage(context.Background(), "-100", "hello")
	if err == nil || !strings.Contains(err.Error(), "bot was kicked") {
		t.Fatalf("expected API error with description, got %v", err)
	}
}

func TestGetUpdates(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["offset"] != float64(7) {
			t.Errorf("offset = %v, want 7", payload["offset"])
		}
		w.Write([]byte(`{"ok":true,"result":[
			{"update_id":8,"message":{"message_id":1,"text":"/status","chat":{"id":-100,"type":"group"},"from":{"id":42,"username":"alice"}}}
		]}`))
	})

	updates, err := api.GetUpdates(context.Background(), 7, 10*time.Second)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	u := updates[0]
	if u.UpdateID != 8 || u.Message == nil || u.Message.Text != "/status" {
		t.Errorf("unexpected update: %+v", u)
	}
	if u.Message.Chat.ID != -100 || u.Message.From.ID != 42 {
		t.Errorf("unexpected message identity: %+v", u.Message)
	}
}

func TestGetChatAdministrators(t *testing.T) {
	api := testAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":[
			{"user":{"id":42,"username":"alice"},"status":"creator"},
			{"user":{"id":43,"username":"bob"},"status":"administrator"}
		]}`))
	})

	admins, err := api.GetChatAdministrators(context.Background(), "-100")
	if err != nil {
		t.Fatalf("GetChatAdministrators failed: %v", err)
	}
	if len(admins) != 2 || admins[0].User.ID != 42 || admins[1].Status != "administrator" {
		t.Errorf("unexpected admins: %+v", admins)
	}
}
