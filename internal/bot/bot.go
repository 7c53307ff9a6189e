// Package bot connects the wizard to Telegram.
package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/maingberg-rgb/finansi/internal/bot/wizard"
	"github.com/maingberg-rgb/finansi/internal/logger"
)

// Handler processes one inbound chat event.
type Handler interface {
	Handle(ctx context.Context, in wizard.Inbound) ([]wizard.Reply, error)
}

// Bot receives Telegram updates and hands them to the wizard.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler Handler
	gateway *Gateway
	log     *zap.SugaredLogger
	wg      sync.WaitGroup
}

// New authorizes against the Bot API.
func New(token string, debug bool, handler Handler) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = debug

	b := newBot(api, handler)
	b.api = api
	return b, nil
}

func newBot(api Sender, handler Handler) *Bot {
	log := logger.Named("bot")
	return &Bot{
		handler: handler,
		gateway: NewGateway(api, log),
		log:     log,
	}
}

// Start long-polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.log.Infow("telegram bot started", "account", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	return b.Serve(ctx, updates)
}

// Serve handles updates, one goroutine each, until ctx is cancelled or the
// channel is closed. It waits for in-flight updates before returning.
func (b *Bot) Serve(ctx context.Context, updates <-chan tgbotapi.Update) error {
	// In-flight updates finish their writes even after shutdown starts.
	work := context.WithoutCancel(ctx)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(work, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	in, target, ok := toInbound(update)
	if !ok {
		if update.CallbackQuery != nil {
			b.gateway.Deliver(Target{CallbackID: update.CallbackQuery.ID}, []wizard.Reply{{Mode: wizard.ModeAck}})
		}
		return
	}

	replies, err := b.handler.Handle(ctx, in)
	if err != nil {
		b.log.Warnw("failed to handle update", "chat_id", in.ChatID, "error", err)
		return
	}
	b.gateway.Deliver(target, replies)
}

// toInbound extracts the chat event from an update. Updates without a chat,
// and messages without text, are not for the wizard.
func toInbound(update tgbotapi.Update) (wizard.Inbound, Target, bool) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.Message == nil || q.Message.Chat == nil {
			return wizard.Inbound{}, Target{}, false
		}
		in := wizard.Inbound{
			ChatID:     q.Message.Chat.ID,
			Sender:     firstName(q.From),
			IsCallback: true,
			Data:       q.Data,
		}
		target := Target{
			ChatID:     q.Message.Chat.ID,
			MessageID:  q.Message.MessageID,
			CallbackID: q.ID,
		}
		return in, target, true

	case update.Message != nil:
		msg := update.Message
		if msg.Text == "" || msg.Chat == nil {
			return wizard.Inbound{}, Target{}, false
		}
		return wizard.Inbound{
			ChatID: msg.Chat.ID,
			Sender: firstName(msg.From),
			Text:   msg.Text,
		}, Target{ChatID: msg.Chat.ID}, true
	}
	return wizard.Inbound{}, Target{}, false
}

func firstName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.FirstName
}
