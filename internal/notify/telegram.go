// Package notify forwards booking events to a Telegram chat for the
// operations team.
package notify

import (
	"encoding/json"
	"fmt"

	"kovorka/internal/config"
	"kovorka/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the slice of the Telegram API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts booking event summaries to one chat.
type TelegramNotifier struct {
	sender Sender
	chatID int64
	logger zerolog.Logger
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug

	return &TelegramNotifier{
		sender: bot,
		chatID: cfg.ChatID,
		logger: logger.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// NewTelegramNotifierWithSender is used by tests and custom transports.
func NewTelegramNotifierWithSender(sender Sender, chatID int64, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		chatID: chatID,
		logger: logger.With().Str("component", "telegram_notifier").Logger(),
	}
}

// SendMessage posts plain text to the configured chat.
func (n *TelegramNotifier) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// SubscribeToBus wires the notifier to every booking event type.
func (n *TelegramNotifier) SubscribeToBus(bus *events.EventBus) {
	types := []string{
		events.EventBookingCreated,
		events.EventBookingExtended,
		events.EventBookingCancelled,
		events.EventBookingConflicted,
		events.EventBookingReassigned,
		events.EventEquipmentAttached,
		events.EventEquipmentDetached,
	}
	for _, eventType := range types {
		bus.Subscribe(eventType, n.handleEvent)
	}
}

func (n *TelegramNotifier) handleEvent(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode event payload")
		return err
	}

	text := formatEvent(event.Type, payload)
	if err := n.SendMessage(text); err != nil {
		n.logger.Error().Err(err).Str("event_type", event.Type).Msg("notify failed")
		return err
	}
	return nil
}

func formatEvent(eventType string, p events.BookingEventPayload) string {
	var action string
	switch eventType {
	case events.EventBookingCreated:
		action = "created"
	case events.EventBookingExtended:
		action = "extended"
	case events.EventBookingCancelled:
		action = "cancelled"
	case events.EventBookingConflicted:
		action = "conflicted"
	case events.EventBookingReassigned:
		action = "moved"
	case events.EventEquipmentAttached:
		action = "equipment attached"
	case events.EventEquipmentDetached:
		action = "equipment detached"
	default:
		action = eventType
	}

	text := fmt.Sprintf("Booking #%d %s\n%s (%s)\n%s - %s",
		p.BookingID, action,
		p.ResourceName, p.BookingType,
		p.Start.Format("02.01.2006 15:04"), p.End.Format("02.01.2006 15:04"))
	if p.Detail != "" {
		text += "\n" + p.Detail
	}
	return text
}
