// Package telegram posts a one-line notice per exported event to Telegram
// chats.
package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sakuffo/sakwatch/internal/logger"
	"github.com/sakuffo/sakwatch/internal/output"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Output sends "[cluster] description" to every configured chat.
type Output struct {
	bot     sender
	chatIDs []int64
	log     logger.Logger
}

// New authenticates the bot and returns an output for the given chats.
func New(token string, chatIDs []int64, log logger.Logger) (*Output, error) {
	if len(chatIDs) == 0 {
		return nil, errors.New("telegram output: no chat ids")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram output: %w", err)
	}
	log.Info("Telegram output authorized as %s", bot.Self.UserName)
	return &Output{bot: bot, chatIDs: chatIDs, log: log}, nil
}

// Message returns the notice text for doc.
func Message(doc output.Document) string {
	return fmt.Sprintf("[%s] %s", doc.ClusterName, doc.Description)
}

// Write sends the notice to each chat. A failing chat does not stop the rest.
func (o *Output) Write(ctx context.Context, doc output.Document) error {
	text := Message(doc)
	var errs []error
	for _, id := range o.chatIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := o.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
			errs = append(errs, fmt.Errorf("telegram output: chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (o *Output) Close() error {
	return nil
}
