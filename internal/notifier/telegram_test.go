package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	fails   int
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return tgbotapi.Message{}, errors.New("429 too many requests")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func newTestNotifier(api *fakeAPI) *TelegramNotifier {
	n := NewTelegramNotifierWithAPI(api, 42, nil)
	n.retryBase = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	api := &fakeAPI{}
	require.NoError(t, newTestNotifier(api).Send("<b>hi</b>"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(42), msgs[0].ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msgs[0].ParseMode)
	assert.Equal(t, "<b>hi</b>", msgs[0].Text)
}

func TestSendWithRetry(t *testing.T) {
	api := &fakeAPI{fails: 2}
	require.NoError(t, newTestNotifier(api).SendWithRetry(context.Background(), "x", 3))
	assert.Len(t, api.messages(), 1)

	api = &fakeAPI{fails: 10}
	err := newTestNotifier(api).SendWithRetry(context.Background(), "x", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api = &fakeAPI{fails: 10}
	n := newTestNotifier(api)
	n.retryBase = time.Hour
	assert.ErrorIs(t, n.SendWithRetry(ctx, "x", 3), context.Canceled)
}

func TestSendPhoto(t *testing.T) {
	api := &fakeAPI{}
	require.NoError(t, newTestNotifier(api).SendPhoto("chart", "a.png", []byte("\x89PNG")))
	require.Len(t, api.sent, 1)
	photo, ok := api.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "chart", photo.Caption)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	text := "aaaa\nbbbb\ncccc\n"
	parts := splitMessage(text, 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, parts)
	assert.Equal(t, text, strings.Join(parts, ""))

	parts = splitMessage(strings.Repeat("x", 25), 10)
	assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, parts)
}

func TestSplitMessage_RuneBoundary(t *testing.T) {
	text := strings.Repeat("📉", 5)
	parts := splitMessage(text, 10)
	assert.Equal(t, []string{"📉📉", "📉📉", "📉"}, parts)
	for _, p := range parts {
		assert.True(t, utf8.ValidString(p))
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestStartPolling(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 3)}
	n := newTestNotifier(api)

	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: " /help ", Chat: &tgbotapi.Chat{ID: 42}}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "/run", Chat: &tgbotapi.Chat{ID: 7}}}
	api.updates <- tgbotapi.Update{}
	close(api.updates)

	var got []string
	n.StartPolling(context.Background(), func(_ context.Context, cmd string) string {
		got = append(got, cmd)
		return "reply to " + cmd
	})

	assert.Equal(t, []string{"/help"}, got, "foreign chats are ignored")
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "reply to /help", msgs[0].Text)
	assert.True(t, api.stopped)
}
