// Package telegram adapts the Telegram Bot API to chat events and messages.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/marcus/taskbot/internal/chat"
)

// API is the subset of *tgbotapi.BotAPI the adapter uses
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

const maxRetryAfter = 30 * time.Second

// Client sends messages and polls for updates
type Client struct {
	api         API
	pollTimeout int
	log         *slog.Logger
}

var (
	_ chat.Sender           = (*Client)(nil)
	_ chat.CallbackAnswerer = (*Client)(nil)
)

// Dial authenticates with the bot token and returns a client
func Dial(token string, pollTimeout time.Duration, debug bool, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := tgbotapi.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)); err != nil {
		return nil, fmt.Errorf("telegram logger: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	bot.Debug = debug
	logger.Info("telegram authorized", "bot", bot.Self.UserName)
	return New(bot, pollTimeout, logger), nil
}

// New wraps an API implementation
func New(api API, pollTimeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	secs := int(pollTimeout / time.Second)
	if secs <= 0 {
		secs = 30
	}
	return &Client{api: api, pollTimeout: secs, log: logger.With("component", "telegram")}
}

// Send delivers a message. A rate-limit reply is retried once after the
// delay Telegram asks for.
func (c *Client) Send(ctx context.Context, m chat.Message) error {
	cfg := BuildMessage(m)
	_, err := c.api.Send(cfg)

	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		wait := time.Duration(tgErr.RetryAfter) * time.Second
		if wait > maxRetryAfter {
			return fmt.Errorf("send to %d: %w", m.ChatID, err)
		}
		c.log.Warn("rate limited", "chat", m.ChatID, "retry_after", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		_, err = c.api.Send(cfg)
	}
	if err != nil {
		return fmt.Errorf("send to %d: %w", m.ChatID, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press so the client stops its spinner
func (c *Client) AnswerCallback(_ context.Context, id, text string) error {
	if _, err := c.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// Run long-polls for updates and hands each one to dispatch until ctx is
// cancelled or dispatch fails
func (c *Client) Run(ctx context.Context, dispatch func(context.Context, chat.Event) error) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	updates := c.api.GetUpdatesChan(u)
	defer c.api.StopReceivingUpdates()

	c.log.Info("polling started", "timeout", c.pollTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			ev, ok := EventFromUpdate(upd)
			if !ok {
				continue
			}
			if err := dispatch(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("dispatch update %d: %w", upd.UpdateID, err)
			}
		}
	}
}

// EventFromUpdate converts text messages and button presses. Anything else
// is ignored.
func EventFromUpdate(u tgbotapi.Update) (chat.Event, bool) {
	switch {
	case u.Message != nil:
		m := u.Message
		if m.Chat == nil || m.From == nil || m.Text == "" {
			return chat.Event{}, false
		}
		return chat.Event{
			ChatID:   m.Chat.ID,
			UserID:   m.From.ID,
			UserName: displayName(m.From),
			Text:     m.Text,
		}, true
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		if q.From == nil {
			return chat.Event{}, false
		}
		chatID := q.From.ID
		if q.Message != nil && q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
		}
		return chat.Event{
			ChatID:       chatID,
			UserID:       q.From.ID,
			UserName:     displayName(q.From),
			CallbackID:   q.ID,
			CallbackData: q.Data,
		}, true
	}
	return chat.Event{}, false
}

// BuildMessage renders a chat message. Inline buttons take precedence over
// the reply keyboard since Telegram accepts one markup per message.
func BuildMessage(m chat.Message) tgbotapi.MessageConfig {
	cfg := tgbotapi.NewMessage(m.ChatID, m.Text)
	switch {
	case len(m.Buttons) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(m.Buttons))
		for _, b := range m.Buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data)))
		}
		cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	case len(m.Keyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(m.Keyboard))
		for _, labels := range m.Keyboard {
			row := make([]tgbotapi.KeyboardButton, 0, len(labels))
			for _, l := range labels {
				row = append(row, tgbotapi.NewKeyboardButton(l))
			}
			rows = append(rows, row)
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		cfg.ReplyMarkup = kb
	}
	return cfg
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
