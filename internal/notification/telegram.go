package notification

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mbehrens/kalle-tracker/internal/protocol"
	"github.com/mbehrens/kalle-tracker/pkg/config"
)

// TelegramNotifier pushes anomaly alerts and walk reminders to the
// owner's Telegram chat. The phone app shows the same anomalies on its
// dashboard; Telegram covers the case where the app is closed.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier creates a notifier. Returns nil without error when
// no bot token is configured, so callers can skip it.
func NewTelegramNotifier(cfg *config.TelegramConfig) (*TelegramNotifier, error) {
	if cfg.BotToken == "" {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	fmt.Printf("Telegram bot authorized as %s\n", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: cfg.ChatID}, nil
}

// SendAlertNotification sends an anomaly alert to the configured chat
func (t *TelegramNotifier) SendAlertNotification(alert *protocol.AlertNotification) error {
	prefix, ok := severityPrefix[alert.Severity]
	if !ok {
		prefix = "ℹ️"
	}

	text := fmt.Sprintf("%s *%s*\n%s\n\n_%s_",
		prefix, alert.Title, alert.Description,
		alert.Timestamp.Format("02.01.2006 15:04"))

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}
