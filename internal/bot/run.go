package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	stopPollInterval = time.Second
	shutdownTimeout  = 5 * time.Second
	longPollSeconds  = 30
)

// Run starts the long-poll listener and blocks until the stop signal is set
// or ctx is canceled. A startup failure (for example an invalid credential)
// is logged and Run returns; there is no automatic restart.
func (b *NotificationBot) Run(ctx context.Context) {
	b.started.Store(true)
	defer close(b.done)

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(b.token, b.apiBaseURL+"/bot%s/%s")
	if err != nil {
		b.log.Error().Err(err).Msg("critical: bot listener failed to start")
		return
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = longPollSeconds
	updates := api.GetUpdatesChan(u)
	b.log.Info().Str("bot", api.Self.UserName).Msg("bot listener started")

	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				b.log.Info().Msg("update stream closed")
				return
			}
			b.handleUpdate(ctx, update)
		case <-ticker.C:
			select {
			case <-b.stop:
				api.StopReceivingUpdates()
				b.log.Info().Msg("bot listener stopping")
				return
			default:
			}
		case <-ctx.Done():
			api.StopReceivingUpdates()
			b.log.Info().Msg("bot listener stopping: context canceled")
			return
		}
	}
}

// RunInBackground starts the listener on its own goroutine so the HTTP
// serving path never blocks on bot I/O.
func (b *NotificationBot) RunInBackground() {
	b.started.Store(true)
	go b.Run(context.Background())
	b.log.Info().Msg("bot listener running in background")
}

// Shutdown sets the stop signal and waits for the listener with a bounded
// join. If the listener does not stop in time, shutdown proceeds anyway.
func (b *NotificationBot) Shutdown() {
	b.stopOnce.Do(func() { close(b.stop) })
	if !b.started.Load() {
		return
	}
	select {
	case <-b.done:
		b.log.Info().Msg("bot listener stopped")
	case <-time.After(shutdownTimeout):
		b.log.Warn().Msgf("bot listener did not stop within %s; continuing shutdown", shutdownTimeout)
	}
}
