// Package bot relays site notifications to Telegram chats and runs the
// password-gated opt-in flow that decides who receives them.
package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/OneTus27/site/internal/metrics"
)

const (
	replyPasswordPrompt  = "🔑 Enter the password to get access:"
	replyAccessGranted   = "🔐 Access granted"
	replyAccessDenied    = "❌ Access denied"
	replyInvalidPassword = "❌ Invalid password"
)

// SecretSink persists a rotated password to durable configuration.
type SecretSink interface {
	StoreSecret(secret string) error
}

// NotificationBot owns the recipient set and the shared password. Only the
// listener goroutine mutates them; HTTP callers read through SendMessage and
// UpdatePassword, so both are mutex-guarded.
type NotificationBot struct {
	token       string
	adminChatID int64
	apiBaseURL  string
	api         *apiClient
	store       *RecipientStore
	secrets     SecretSink
	log         *zerolog.Logger

	mu       sync.Mutex // guards password
	password string

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type Options struct {
	Token       string
	Password    string
	AdminChatID int64
	APIBaseURL  string // defaults to https://api.telegram.org
	Store       *RecipientStore
	Secrets     SecretSink
	Logger      *zerolog.Logger
}

// New validates the configuration and builds the bot. Validation failures
// are fatal for the caller: without a token, password and admin chat id the
// component cannot operate.
func New(opts Options) (*NotificationBot, error) {
	if opts.Token == "" {
		return nil, errors.New("bot token is required")
	}
	if opts.Password == "" {
		return nil, errors.New("bot password is required")
	}
	if opts.AdminChatID == 0 {
		return nil, errors.New("admin chat id is required")
	}
	if opts.Store == nil {
		return nil, errors.New("recipient store is nil")
	}
	if opts.Secrets == nil {
		return nil, errors.New("secret sink is nil")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is nil")
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = "https://api.telegram.org"
	}

	compLog := opts.Logger.With().Str("component", "bot").Logger()
	return &NotificationBot{
		token:       opts.Token,
		adminChatID: opts.AdminChatID,
		apiBaseURL:  opts.APIBaseURL,
		api:         newAPIClient(opts.APIBaseURL, opts.Token),
		store:       opts.Store,
		secrets:     opts.Secrets,
		log:         &compLog,
		password:    opts.Password,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}, nil
}

// handleUpdate processes one inbound update. Every text message is checked
// independently; there is no multi-step handshake.
func (b *NotificationBot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.log.Info().Int64("chat_id", chatID).Msg("received /start")
			b.reply(ctx, chatID, replyPasswordPrompt)
		}
		return
	}
	if msg.Text == "" {
		// Not a text message (photo, sticker, ...), nothing to check.
		return
	}

	if chatID != b.adminChatID {
		metrics.IncAuthAttempt("denied")
		b.reply(ctx, chatID, replyAccessDenied)
		return
	}

	if msg.Text == b.currentPassword() {
		b.store.Add(chatID)
		metrics.IncAuthAttempt("granted")
		b.log.Info().Int64("chat_id", chatID).Msg("chat authorized for notifications")
		b.reply(ctx, chatID, replyAccessGranted)
		return
	}

	metrics.IncAuthAttempt("invalid")
	b.log.Warn().Int64("chat_id", chatID).Msg("failed authorization attempt")
	b.reply(ctx, chatID, replyInvalidPassword)
}

func (b *NotificationBot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.api.sendMessage(ctx, chatID, text); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}

func (b *NotificationBot) currentPassword() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.password
}

// UpdatePassword swaps the shared password, revokes every authorized
// recipient and persists the new password. The revocation happens even when
// persistence fails; only the persistence error is returned.
func (b *NotificationBot) UpdatePassword(newSecret string) error {
	if newSecret == "" {
		return errors.New("new password must not be empty")
	}

	b.mu.Lock()
	b.password = newSecret
	b.mu.Unlock()

	b.store.Clear()

	if err := b.secrets.StoreSecret(newSecret); err != nil {
		b.log.Error().Err(err).Msg("failed to persist rotated password")
		return err
	}
	b.log.Info().Msg("password rotated; all recipients deauthorized")
	return nil
}
