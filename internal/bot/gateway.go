package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/maingberg-rgb/finansi/internal/bot/wizard"
)

// Sender is the part of *tgbotapi.BotAPI the gateway needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Target identifies where replies to an inbound event go.
type Target struct {
	ChatID int64
	// MessageID is the message carrying the pressed button, zero for text messages.
	MessageID int
	// CallbackID is the button press to acknowledge, empty for text messages.
	CallbackID string
}

// Gateway performs wizard replies against Telegram.
type Gateway struct {
	api Sender
	log *zap.SugaredLogger
}

// NewGateway creates a Gateway.
func NewGateway(api Sender, log *zap.SugaredLogger) *Gateway {
	return &Gateway{api: api, log: log}
}

// Deliver performs replies in order. Failures are logged and do not stop the
// remaining replies.
func (g *Gateway) Deliver(target Target, replies []wizard.Reply) {
	for _, r := range replies {
		var err error
		switch r.Mode {
		case wizard.ModeAck:
			if target.CallbackID == "" {
				continue
			}
			_, err = g.api.Request(tgbotapi.NewCallback(target.CallbackID, r.Text))
		case wizard.ModeEdit:
			if target.MessageID == 0 {
				err = g.send(target.ChatID, r)
				break
			}
			err = g.edit(target.ChatID, target.MessageID, r)
		default:
			err = g.send(target.ChatID, r)
		}
		if err != nil {
			g.log.Warnw("failed to deliver reply", "chat_id", target.ChatID, "mode", r.Mode, "error", err)
		}
	}
}

func (g *Gateway) send(chatID int64, r wizard.Reply) error {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(r.Keyboard) > 0 {
		msg.ReplyMarkup = inlineKeyboard(r.Keyboard)
	}
	_, err := g.api.Send(msg)
	return err
}

// edit rewrites the message. Without a keyboard the old buttons are removed.
func (g *Gateway) edit(chatID int64, messageID int, r wizard.Reply) error {
	var edit tgbotapi.EditMessageTextConfig
	if len(r.Keyboard) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, r.Text, inlineKeyboard(r.Keyboard))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, r.Text)
	}
	if r.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	_, err := g.api.Send(edit)
	return err
}

func inlineKeyboard(kb wizard.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
