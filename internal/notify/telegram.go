package notify

import (
	"context"

	"github.com/mymmrac/telego"
)

// Sender delivers a text message to one recipient. Implementations must be
// safe for concurrent use.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// TelegramSender sends through the Telegram Bot API.
type TelegramSender struct {
	Bot *telego.Bot
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	bot, err := telego.NewBot(token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, err
	}
	return &TelegramSender{Bot: bot}, nil
}

func (t *TelegramSender) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := t.Bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	return err
}
