package notifier

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// TelegramSender posts plain-text messages to one chat (and optional forum thread).
type TelegramSender struct {
	bot      *tele.Bot
	chat     *tele.Chat
	threadID int
}

// NewTelegram builds a send-only bot; it never polls for updates.
func NewTelegram(token string, chatID int64, threadID int) (*TelegramSender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: token, Offline: true})
	if err != nil {
		return nil, err
	}
	return &TelegramSender{bot: b, chat: &tele.Chat{ID: chatID}, threadID: threadID}, nil
}

func (t *TelegramSender) Send(ctx context.Context, text string) error {
	opt := &tele.SendOptions{
		ThreadID:              t.threadID,
		DisableWebPagePreview: true,
	}
	// telebot has no context support; abandon the call when ctx ends.
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(t.chat, text, opt)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
