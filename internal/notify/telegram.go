// Package notify alerts the support operators about chat activity they
// would otherwise miss. Notifications are best-effort: failures are
// logged and never propagate into the chat core.
package notify

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const previewLimit = 120

// TelegramNotifier posts offline-message alerts to an operator chat.
type TelegramNotifier struct {
	BotAPI *tgbotapi.BotAPI
	ChatID int64
}

// NewTelegramNotifier authorizes the bot and returns a notifier bound to
// the operator chat.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to start telegram bot: %w", err)
	}
	bot.Debug = false
	log.Printf("Operator alerts authorized on account %s", bot.Self.UserName)

	return &TelegramNotifier{BotAPI: bot, ChatID: chatID}, nil
}

// NotifyOffline posts an alert about a message whose receiver has no live
// connection.
func (n *TelegramNotifier) NotifyOffline(receiverID, senderEmail, roomID, preview string) {
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "…"
	}
	text := fmt.Sprintf("New message from %s in room %s while %s is offline:\n%s",
		senderEmail, roomID, receiverID, preview)

	if _, err := n.BotAPI.Send(tgbotapi.NewMessage(n.ChatID, text)); err != nil {
		log.Printf("WARNING: operator alert failed: %v", err)
	}
}
