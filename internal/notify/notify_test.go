package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/HarmlessHarm/AoC-LeaderBot/internal/telegram"
)

type fakeAPI struct {
	mu    sync.Mutex
	sent  []string
	chats []string
	fail  map[int]error // index -> error
}

func (f *fakeAPI) SendMessage(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.sent)
	f.sent = append(f.sent, text)
	f.chats = append(f.chats, chatID)
	if err, ok := f.fail[idx]; ok {
		return err
	}
	return nil
}

func (f *fakeAPI) GetUpdates(context.Context, int64, time.Duration) ([]telegram.Update, error) {
	return nil, nil
}

func (f *fakeAPI) GetChatAdministrators(context.Context, string) ([]telegram.ChatMember, error) {
	return nil, nil
}

func TestSendMessages(t *testing.T) {
	api := &fakeAPI{}
	logger, _ := zap.NewDevelopment()
	client := NewClient(api, logger)

	err := client.SendMessages(context.Background(), "-100", []string{"one", "two"})
	if err != nil {
		t.Fatalf("SendMessages failed: %v", err)
	}
	if len(api.sent) != 2 || api.sent[0] != "one" || api.sent[1] != "two" {
		t.Errorf("unexpected sent messages: %v", api.sent)
	}
	if api.chats[0] != "-100" {
		t.Errorf("unexpected chat: %v", api.chats)
	}
}

// A failed message does not stop later messages.
func TestSendMessagesContinuesAfterFailure(t *testing.T) {
	api := &fakeAPI{fail: map[int]error{0: errors.New("flood control")}}
	logger, _ := zap.NewDevelopment()
	client := NewClient(api, logger)

	err := client.SendMessages(context.Background(), "-100", []string{"one", "two"})
	if err == nil {
		t.Fatal("expected error from first message")
	}
	if len(api.sent) != 2 {
		t.Errorf("expected both messages attempted, got %d", len(api.sent))
	}
}

func TestEventSinkDeliverText(t *testing.T) {
	api := &fakeAPI{}
	logger, _ := zap.NewDevelopment()
	sink := NewEventSink(NewClient(api, logger), nil, logger)

	if err := sink.DeliverText(context.Background(), "-100", "hello"); err != nil {
		t.Fatalf("DeliverText failed: %v", err)
	}
	if len(api.sent) != 1 || api.sent[0] != "hello" {
		t.Errorf("unexpected sent: %v", api.sent)
	}
}
