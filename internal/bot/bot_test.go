package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeAPI stands in for the Telegram Bot API: it records sendMessage calls
// and answers the handful of methods the long-poll listener uses.
type fakeAPI struct {
	srv *httptest.Server

	mu     sync.Mutex
	sends  []sendMessageRequest
	status map[int64]int // per-chat sendMessage response status; default 200

	failGetMe bool
	getMeHits int
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{status: make(map[int64]int)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.sends = append(f.sends, req)
		st, ok := f.status[req.ChatID]
		f.mu.Unlock()
		if ok && st != http.StatusOK {
			http.Error(w, `{"ok":false}`, st)
			return
		}
		w.Write([]byte(`{"ok":true,"result":{}}`))
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		f.mu.Lock()
		f.getMeHits++
		fail := f.failGetMe
		f.mu.Unlock()
		if fail {
			http.Error(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"site","username":"site_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/getUpdates"):
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte(`{"ok":true,"result":[]}`))
	default:
		w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func (f *fakeAPI) sentTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sends {
		if s.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

func (f *fakeAPI) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakeSink struct {
	mu     sync.Mutex
	secret string
	err    error
}

func (s *fakeSink) StoreSecret(secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.secret = secret
	return nil
}

func (s *fakeSink) stored() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secret
}

const testAdminID int64 = 42

func newTestBot(t *testing.T, api *fakeAPI, sink *fakeSink) *NotificationBot {
	t.Helper()
	store := NewRecipientStore(filepath.Join(t.TempDir(), "auth_users.json"), testLogger())
	b, err := New(Options{
		Token:       "123:abc",
		Password:    "hunter2",
		AdminChatID: testAdminID,
		APIBaseURL:  api.srv.URL,
		Store:       store,
		Secrets:     sink,
		Logger:      testLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
	}}
}

func commandUpdate(chatID int64, cmd string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: cmd,
		Chat: &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd)},
		},
	}}
}

func TestNewValidation(t *testing.T) {
	store := NewRecipientStore(filepath.Join(t.TempDir(), "auth_users.json"), testLogger())
	valid := Options{
		Token:       "123:abc",
		Password:    "hunter2",
		AdminChatID: testAdminID,
		Store:       store,
		Secrets:     &fakeSink{},
		Logger:      testLogger(),
	}

	cases := []struct {
		name   string
		mutate func(*Options)
	}{
		{"missing token", func(o *Options) { o.Token = "" }},
		{"missing password", func(o *Options) { o.Password = "" }},
		{"missing admin chat id", func(o *Options) { o.AdminChatID = 0 }},
		{"nil store", func(o *Options) { o.Store = nil }},
		{"nil secret sink", func(o *Options) { o.Secrets = nil }},
		{"nil logger", func(o *Options) { o.Logger = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := valid
			tc.mutate(&opts)
			if _, err := New(opts); err == nil {
				t.Error("New succeeded with invalid options")
			}
		})
	}

	if _, err := New(valid); err != nil {
		t.Errorf("New with valid options: %v", err)
	}
}

func TestSendMessageEmptyStore(t *testing.T) {
	api := newFakeAPI(t)
	b := newTestBot(t, api, &fakeSink{})

	if b.SendMessage(context.Background(), "hello") {
		t.Error("SendMessage returned true with no recipients")
	}
	if n := api.sendCount(); n != 0 {
		t.Errorf("outbound calls = %d, want 0", n)
	}
}

func TestSendMessagePartialFailure(t *testing.T) {
	api := newFakeAPI(t)
	b := newTestBot(t, api, &fakeSink{})
	b.store.Add(1)
	b.store.Add(2)
	b.store.Add(3)
	api.status[2] = http.StatusInternalServerError

	if !b.SendMessage(context.Background(), "hello") {
		t.Error("SendMessage returned false although two deliveries succeeded")
	}
	if n := api.sendCount(); n != 3 {
		t.Errorf("outbound calls = %d, want 3 (failure must not abort the loop)", n)
	}
}

func TestSendMessageAllFail(t *testing.T) {
	api := newFakeAPI(t)
	b := newTestBot(t, api, &fakeSink{})
	b.store.Add(1)
	b.store.Add(2)
	api.status[1] = http.StatusBadGateway
	api.status[2] = http.StatusBadGateway

	if b.SendMessage(context.Background(), "hello") {
		t.Error("SendMessage returned true although every delivery failed")
	}
}

func TestAuthorizationFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("start command prompts for password", func(t *testing.T) {
		api := newFakeAPI(t)
		b := newTestBot(t, api, &fakeSink{})

		b.handleUpdate(ctx, commandUpdate(99, "/start"))

		got := api.sentTo(99)
		if len(got) != 1 || got[0] != replyPasswordPrompt {
			t.Errorf("replies = %v, want password prompt", got)
		}
		if b.store.Len() != 0 {
			t.Error("/start must not change the recipient set")
		}
	})

	t.Run("non-admin is denied even with the correct password", func(t *testing.T) {
		api := newFakeAPI(t)
		b := newTestBot(t, api, &fakeSink{})

		b.handleUpdate(ctx, textUpdate(99, "hunter2"))

		got := api.sentTo(99)
		if len(got) != 1 || got[0] != replyAccessDenied {
			t.Errorf("replies = %v, want access denied", got)
		}
		if b.store.Len() != 0 {
			t.Error("non-admin chat was authorized")
		}
	})

	t.Run("admin with wrong password", func(t *testing.T) {
		api := newFakeAPI(t)
		b := newTestBot(t, api, &fakeSink{})

		b.handleUpdate(ctx, textUpdate(testAdminID, "wrong"))

		got := api.sentTo(testAdminID)
		if len(got) != 1 || got[0] != replyInvalidPassword {
			t.Errorf("replies = %v, want invalid password", got)
		}
		if b.store.Len() != 0 {
			t.Error("wrong password authorized the admin")
		}
	})

	t.Run("admin with correct password", func(t *testing.T) {
		api := newFakeAPI(t)
		b := newTestBot(t, api, &fakeSink{})

		b.handleUpdate(ctx, textUpdate(testAdminID, "hunter2"))

		got := api.sentTo(testAdminID)
		if len(got) != 1 || got[0] != replyAccessGranted {
			t.Errorf("replies = %v, want access granted", got)
		}
		snap := b.store.Snapshot()
		if len(snap) != 1 || snap[0] != testAdminID {
			t.Errorf("recipients = %v, want [%d]", snap, testAdminID)
		}
	})

	t.Run("unknown commands are ignored", func(t *testing.T) {
		api := newFakeAPI(t)
		b := newTestBot(t, api, &fakeSink{})

		b.handleUpdate(ctx, commandUpdate(testAdminID, "/help"))

		if n := api.sendCount(); n != 0 {
			t.Errorf("replies = %d, want 0", n)
		}
	})
}

func TestAuthorizationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t)
	b := newTestBot(t, api, &fakeSink{})

	b.handleUpdate(ctx, textUpdate(testAdminID, "hunter2"))
	b.handleUpdate(ctx, textUpdate(testAdminID, "hunter2"))

	if n := b.store.Len(); n != 1 {
		t.Errorf("recipients = %d, want 1 (no duplicates)", n)
	}
	got := api.sentTo(testAdminID)
	if len(got) != 2 || got[0] != replyAccessGranted || got[1] != replyAccessGranted {
		t.Errorf("replies = %v, want access granted twice", got)
	}
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t)
	sink := &fakeSink{}
	b := newTestBot(t, api, sink)

	b.handleUpdate(ctx, textUpdate(testAdminID, "hunter2"))
	if b.store.Len() != 1 {
		t.Fatal("admin was not authorized")
	}

	if err := b.UpdatePassword("correct horse"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	if n := b.store.Len(); n != 0 {
		t.Errorf("recipients = %d after rotation, want 0", n)
	}
	if sink.stored() != "correct horse" {
		t.Errorf("persisted secret = %q", sink.stored())
	}

	// The old password no longer authorizes.
	b.handleUpdate(ctx, textUpdate(testAdminID, "hunter2"))
	if b.store.Len() != 0 {
		t.Error("old password still authorizes after rotation")
	}

	// The new password does.
	b.handleUpdate(ctx, textUpdate(testAdminID, "correct horse"))
	if b.store.Len() != 1 {
		t.Error("new password does not authorize after rotation")
	}
}

func TestUpdatePasswordPersistFailure(t *testing.T) {
	api := newFakeAPI(t)
	sink := &fakeSink{err: errors.New("disk full")}
	b := newTestBot(t, api, sink)
	b.store.Add(testAdminID)

	if err := b.UpdatePassword("next"); err == nil {
		t.Error("UpdatePassword did not surface the persistence failure")
	}
	// Revocation is not rolled back.
	if n := b.store.Len(); n != 0 {
		t.Errorf("recipients = %d, want 0", n)
	}
}

func TestUpdatePasswordEmpty(t *testing.T) {
	api := newFakeAPI(t)
	b := newTestBot(t, api, &fakeSink{})
	if err := b.UpdatePassword(""); err == nil {
		t.Error("UpdatePassword accepted an empty password")
	}
}

// TestOptInScenario walks the documented happy path end to end: /start,
// password, broadcast.
func TestOptInScenario(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t)
	b := newTestBot(t, api, &fakeSink{})

	b.handleUpdate(ctx, commandUpdate(testAdminID, "/start"))
	b.handleUpdate(ctx, textUpdate(testAdminID, "hunter2"))

	snap := b.store.Snapshot()
	if len(snap) != 1 || snap[0] != testAdminID {
		t.Fatalf("recipients = %v, want [%d]", snap, testAdminID)
	}

	before := api.sendCount()
	if !b.SendMessage(ctx, "hello") {
		t.Fatal("SendMessage returned false")
	}
	if n := api.sendCount() - before; n != 1 {
		t.Errorf("broadcast made %d outbound calls, want 1", n)
	}
	got := api.sentTo(testAdminID)
	if got[len(got)-1] != "hello" {
		t.Errorf("last message = %q, want %q", got[len(got)-1], "hello")
	}
}

func TestRunAndShutdown(t *testing.T) {
	api := newFakeAPI(t)
	b := newTestBot(t, api, &fakeSink{})

	b.RunInBackground()
	time.Sleep(100 * time.Millisecond)

	api.mu.Lock()
	hits := api.getMeHits
	api.mu.Unlock()
	if hits == 0 {
		t.Error("listener never contacted the API")
	}

	start := time.Now()
	b.Shutdown()
	if elapsed := time.Since(start); elapsed > shutdownTimeout {
		t.Errorf("Shutdown took %s, want <= %s", elapsed, shutdownTimeout)
	}

	select {
	case <-b.done:
	default:
		t.Error("listener still running after Shutdown")
	}
}

func TestRunInvalidCredential(t *testing.T) {
	api := newFakeAPI(t)
	api.failGetMe = true
	b := newTestBot(t, api, &fakeSink{})

	done := make(chan struct{})
	go func() {
		b.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit on a credential failure")
	}
}

func TestShutdownWithoutRun(t *testing.T) {
	api := newFakeAPI(t)
	b := newTestBot(t, api, &fakeSink{})

	start := time.Now()
	b.Shutdown()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown without Run took %s", elapsed)
	}
}
