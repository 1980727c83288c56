package bot_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"imagegen-bot/internal/bot"
	"imagegen-bot/internal/mocks"
	"imagegen-bot/internal/models"
)

const testToken = "123456:TEST"

// fakeBotAPI имитирует Bot API: отвечает на методы по имени и запоминает вызовы.
type fakeBotAPI struct {
	mu      sync.Mutex
	calls   []string
	failing map[string]bool
}

func (f *fakeBotAPI) called(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == method {
			return true
		}
	}
	return false
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	f.mu.Lock()
	f.calls = append(f.calls, method)
	failing := f.failing[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": false, "error_code": 400, "description": "Bad Request: chat not found",
		})
		return
	}

	var result interface{}
	switch method {
	case "getMe":
		result = map[string]interface{}{"id": 987, "is_bot": true, "first_name": "Image Bot", "username": "image_test_bot"}
	case "sendMessage", "sendPhoto":
		result = map[string]interface{}{"message_id": 55, "date": 0, "chat": map[string]interface{}{"id": 1001, "type": "private"}}
	default:
		result = true
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
}

func newTestMessenger(t *testing.T, fake *fakeBotAPI) *bot.TelegramMessenger {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	api, err := bot.NewBotAPI(testToken, server.URL+"/bot%s/%s", false)
	require.NoError(t, err)
	return bot.NewTelegramMessenger(api, zap.NewNop())
}

func TestTelegramMessenger_Calls(t *testing.T) {
	fake := &fakeBotAPI{}
	m := newTestMessenger(t, fake)
	ctx := context.Background()

	id, err := m.SendText(ctx, 1001, "hello")
	require.NoError(t, err)
	assert.Equal(t, 55, id)

	require.NoError(t, m.SendTyping(ctx, 1001))
	require.NoError(t, m.DeleteMessage(ctx, 1001, 55))

	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG"), 0o644))
	require.NoError(t, m.SendPhoto(ctx, 1001, path, "caption"))

	for _, method := range []string{"getMe", "sendMessage", "sendChatAction", "deleteMessage", "sendPhoto"} {
		assert.True(t, fake.called(method), method)
	}
}

func TestTelegramMessenger_GetIdentity(t *testing.T) {
	m := newTestMessenger(t, &fakeBotAPI{})

	identity, err := m.GetIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BotIdentity{ID: 987, Username: "image_test_bot", FirstName: "Image Bot"}, identity)
}

func TestTelegramMessenger_Errors(t *testing.T) {
	fake := &fakeBotAPI{failing: map[string]bool{"sendMessage": true, "sendPhoto": true}}
	m := newTestMessenger(t, fake)

	_, err := m.SendText(context.Background(), 1001, "hello")
	require.Error(t, err)
	assert.Equal(t, models.KindTransport, models.KindOf(err))

	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG"), 0o644))
	err = m.SendPhoto(context.Background(), 1001, path, "caption")
	require.Error(t, err)
	assert.Equal(t, models.KindDelivery, models.KindOf(err))
}

func TestTelegramMessenger_UnreachableAPIHidesToken(t *testing.T) {
	server := httptest.NewServer(&fakeBotAPI{})
	api, err := bot.NewBotAPI(testToken, server.URL+"/bot%s/%s", false)
	require.NoError(t, err)
	m := bot.NewTelegramMessenger(api, zap.NewNop())
	server.Close()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG"), 0o644))

	_, identityErr := m.GetIdentity(ctx)
	_, textErr := m.SendText(ctx, 1001, "hello")
	errs := map[string]error{
		"getMe":          identityErr,
		"sendMessage":    textErr,
		"sendChatAction": m.SendTyping(ctx, 1001),
		"sendPhoto":      m.SendPhoto(ctx, 1001, path, "caption"),
		"deleteMessage":  m.DeleteMessage(ctx, 1001, 55),
	}
	for method, err := range errs {
		require.Error(t, err, method)
		assert.NotContains(t, err.Error(), testToken, method)
		assert.Contains(t, err.Error(), "[REDACTED]", method)

		var botErr *models.BotError
		require.True(t, errors.As(err, &botErr), method)
		assert.NotContains(t, botErr.Detail, testToken, method)
		for unwrapped := errors.Unwrap(err); unwrapped != nil; unwrapped = errors.Unwrap(unwrapped) {
			assert.NotContains(t, unwrapped.Error(), testToken, method)
		}
	}
}

func TestNewBotAPI_UnreachableHidesToken(t *testing.T) {
	server := httptest.NewServer(&fakeBotAPI{})
	server.Close()

	_, err := bot.NewBotAPI(testToken, server.URL+"/bot%s/%s", false)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testToken)
}

func TestBotLogger_HidesToken(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := bot.NewBotLogger(testToken, zap.New(core))

	l.Println("Failed to get updates:", "Post \"http://api/bot"+testToken+"/getUpdates\": EOF")
	l.Printf("request to /bot%s/getMe failed", testToken)

	entries := logs.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotContains(t, e.Message, testToken)
		assert.Contains(t, e.Message, "[REDACTED]")
	}
	assert.False(t, strings.HasSuffix(entries[0].Message, "\n"))
}

func TestToIncomingMessage(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 9,
		From:      &tgbotapi.User{ID: 42},
		Chat:      &tgbotapi.Chat{ID: 1001},
		Text:      "a red balloon",
	}}
	msg, ok := bot.ToIncomingMessage(update)
	require.True(t, ok)
	assert.Equal(t, bot.IncomingMessage{ChatID: 1001, UserID: 42, MessageID: 9, Text: "a red balloon"}, msg)

	_, ok = bot.ToIncomingMessage(tgbotapi.Update{})
	assert.False(t, ok)

	_, ok = bot.ToIncomingMessage(tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42}, Chat: &tgbotapi.Chat{ID: 1001},
	}})
	assert.False(t, ok, "non-text messages are skipped")
}

type fakeUpdateSource struct {
	ch      chan tgbotapi.Update
	stopped chan struct{}
	once    sync.Once
}

func newFakeUpdateSource() *fakeUpdateSource {
	return &fakeUpdateSource{ch: make(chan tgbotapi.Update, 10), stopped: make(chan struct{})}
}

func (s *fakeUpdateSource) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return s.ch
}

func (s *fakeUpdateSource) StopReceivingUpdates() {
	s.once.Do(func() { close(s.stopped) })
}

type handlerFunc func(ctx context.Context, msg bot.IncomingMessage) error

func (f handlerFunc) HandleMessage(ctx context.Context, msg bot.IncomingMessage) error {
	return f(ctx, msg)
}

func textUpdate(chat int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: chat},
		Text: text,
	}}
}

func TestPoller_RecoversAndApologizes(t *testing.T) {
	source := newFakeUpdateSource()
	messenger := mocks.NewMockMessenger(t)

	handler := handlerFunc(func(_ context.Context, msg bot.IncomingMessage) error {
		switch msg.Text {
		case "panic please":
			panic("boom")
		case "fail please":
			return errors.New("send failed")
		}
		return nil
	})

	var apologies sync.WaitGroup
	apologies.Add(2)
	messenger.On("SendText", mock.Anything, int64(1), messages.Apology()).
		Run(func(mock.Arguments) { apologies.Done() }).Return(1, nil).Once()
	messenger.On("SendText", mock.Anything, int64(2), messages.Apology()).
		Run(func(mock.Arguments) { apologies.Done() }).Return(2, nil).Once()

	p := bot.NewPoller(source, handler, messenger, messages, 0, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	source.ch <- textUpdate(1, "panic please")
	source.ch <- textUpdate(2, "fail please")
	source.ch <- textUpdate(3, "all good")
	source.ch <- tgbotapi.Update{}

	apologies.Wait()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	select {
	case <-source.stopped:
	default:
		t.Fatal("StopReceivingUpdates was not called")
	}
}

func TestPoller_WaitsForInFlightHandlers(t *testing.T) {
	source := newFakeUpdateSource()
	started := make(chan struct{})
	release := make(chan struct{})
	var finished bool
	var mu sync.Mutex

	handler := handlerFunc(func(ctx context.Context, _ bot.IncomingMessage) error {
		close(started)
		<-release
		mu.Lock()
		finished = ctx.Err() == nil
		mu.Unlock()
		return nil
	})

	p := bot.NewPoller(source, handler, mocks.NewMockMessenger(t), messages, 0, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	source.ch <- textUpdate(1, "a long running prompt")
	<-started
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned before the handler finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, finished, "handler context must survive shutdown")
}
