// Package notify holds notification channels for the notification service.
package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"freight/internal/service"
)

// Sender is the part of the Telegram bot API used to post messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink posts notifications to one Telegram chat, typically the
// dispatch channel of the fleet.
type TelegramSink struct {
	bot    Sender
	chatID int64
}

// NewTelegramSink creates a new TelegramSink.
func NewTelegramSink(bot Sender, chatID int64) *TelegramSink {
	return &TelegramSink{bot: bot, chatID: chatID}
}

// NewTelegramBot connects to the Bot API with the given token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	log.Printf("[NOTIFICATION] Telegram bot authorized as @%s", bot.Self.UserName)
	return bot, nil
}

// Deliver implements service.NotificationSink.
func (s *TelegramSink) Deliver(ctx context.Context, n service.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(s.chatID, formatMessage(n))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: send %s: %w", n.Type, err)
	}
	return nil
}

func formatMessage(n service.Notification) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(n.Title))
	b.WriteString("</b>\n")
	b.WriteString(html.EscapeString(n.Message))
	if loadID, ok := n.Data["load_id"].(string); ok && loadID != "" {
		b.WriteString("\nLoad: <code>")
		b.WriteString(html.EscapeString(loadID))
		b.WriteString("</code>")
	}
	return b.String()
}

var _ service.NotificationSink = (*TelegramSink)(nil)
