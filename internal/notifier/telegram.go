package notifier

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects messages longer than this.
const telegramMaxLength = 4096

// TelegramNotifier posts the plain-text brief to a chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

// NewTelegramNotifier authorizes the bot and posts to chatID.
func NewTelegramNotifier(token string, chatID int64, log *slog.Logger) (*TelegramNotifier, error) {
	return newTelegramNotifier(token, tgbotapi.APIEndpoint, chatID, log)
}

func newTelegramNotifier(token, endpoint string, chatID int64, log *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		log:    log.With("component", "telegram"),
	}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, subject, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, telegramText(subject, text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	err := blocking(ctx, func() error {
		_, err := n.bot.Send(msg)
		return err
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.log.Info("telegram notification sent", "chat_id", n.chatID)

	return nil
}

// telegramText puts the subject in bold above the brief body.
func telegramText(subject, text string) string {
	header := "*" + escapeMarkdown(subject) + "*\n\n"
	return header + fitEscaped(text, telegramMaxLength-len([]rune(header)))
}
