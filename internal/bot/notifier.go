package bot

import (
	"context"

	"github.com/OneTus27/site/internal/metrics"
)

// SendMessage broadcasts text to every authorized recipient sequentially,
// each delivery bounded by its own timeout. A per-recipient failure is
// logged and skipped. It returns true when at least one delivery succeeded;
// callers cannot tell full delivery from partial delivery.
func (b *NotificationBot) SendMessage(ctx context.Context, text string) bool {
	recipients := b.store.Snapshot()
	if len(recipients) == 0 {
		b.log.Warn().Msg("send attempted with no authorized recipients")
		return false
	}

	delivered := false
	for _, chatID := range recipients {
		if err := b.api.sendMessage(ctx, chatID, text); err != nil {
			metrics.IncTelegramSend(false)
			b.log.Error().Err(err).Int64("chat_id", chatID).Msg("delivery failed")
			continue
		}
		metrics.IncTelegramSend(true)
		b.log.Info().Int64("chat_id", chatID).Msg("message delivered")
		delivered = true
	}
	return delivered
}
