package notifications

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects a bot to the given chat. apiEndpoint is optional and
// follows the library's "https://host/bot%s/%s" format.
func NewTelegram(botToken, chatID, apiEndpoint string) (*Telegram, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}

	var bot *tgbotapi.BotAPI
	if apiEndpoint != "" {
		bot, err = tgbotapi.NewBotAPIWithAPIEndpoint(botToken, apiEndpoint)
	} else {
		bot, err = tgbotapi.NewBotAPI(botToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Telegram{bot: bot, chatID: id}, nil
}

func (t *Telegram) Notify(ctx context.Context, failure ShareFailure) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, formatFailure(failure))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

func formatFailure(f ShareFailure) string {
	var b strings.Builder

	if f.Fatal {
		fmt.Fprintf(&b, "❌ %s run failed\n\n", f.Service)
	} else {
		fmt.Fprintf(&b, "⚠️ %s share failure\n\n", f.Service)
	}

	if f.NASName != "" {
		fmt.Fprintf(&b, "📁 NAS: %s\n", f.NASName)
	}
	if f.ShareID != "" {
		fmt.Fprintf(&b, "🆔 Share: %s\n", f.ShareID)
	}
	if f.Action != "" {
		fmt.Fprintf(&b, "⚙️ Action: %s\n", f.Action)
	}
	fmt.Fprintf(&b, "💬 %s\n", f.Message)
	fmt.Fprintf(&b, "🔖 Run: %s", f.RunID)

	return b.String()
}
