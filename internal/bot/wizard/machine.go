// Package wizard implements the chat flow that turns an amount message into a
// saved transaction: amount, type, parent category, optional sub-category or new
// category, optional note, save.
//
// The machine is transport independent. It consumes parsed inbound messages and
// returns the replies the transport has to perform.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/maingberg-rgb/finansi/internal/bot/session"
	apperrors "github.com/maingberg-rgb/finansi/internal/errors"
	"github.com/maingberg-rgb/finansi/internal/logger"
	"github.com/maingberg-rgb/finansi/internal/models"
	"github.com/maingberg-rgb/finansi/internal/services"
)

// Categories is the part of the Category Store the wizard reads and writes.
type Categories interface {
	ListRootCategories(ctx context.Context, categoryType models.CategoryType) ([]models.Category, error)
	ListSubCategories(ctx context.Context, parentID uint) ([]models.Category, error)
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	CreateCategory(ctx context.Context, name string, categoryType models.CategoryType, parentID *uint) (*models.Category, error)
}

// Transactions is the part of the Transaction Ledger the wizard writes.
type Transactions interface {
	CreateTransaction(ctx context.Context, in services.CreateTransactionInput) ([]models.Transaction, error)
}

// Inbound is one message or button press from a chat.
type Inbound struct {
	ChatID int64
	Sender string
	// Text is set for messages.
	Text string
	// IsCallback marks a button press; Data holds its payload.
	IsCallback bool
	Data       string
}

// ReplyMode says how the transport delivers a Reply.
type ReplyMode int

const (
	// ModeSend posts a new message.
	ModeSend ReplyMode = iota
	// ModeEdit rewrites the message carrying the pressed button.
	ModeEdit
	// ModeAck answers the button press, Text is shown as a toast when set.
	ModeAck
)

// Reply is an outbound action.
type Reply struct {
	Mode     ReplyMode
	Text     string
	Markdown bool
	Keyboard Keyboard
}

// Machine drives the wizard of every chat.
type Machine struct {
	categories   Categories
	transactions Transactions
	sessions     session.Store
	log          *zap.SugaredLogger
}

// NewMachine creates a Machine.
func NewMachine(categories Categories, transactions Transactions, sessions session.Store) *Machine {
	return &Machine{
		categories:   categories,
		transactions: transactions,
		sessions:     sessions,
		log:          logger.Named("wizard"),
	}
}

// outcome is the result of one transition. A nil next with clear unset keeps
// the stored session as it was.
type outcome struct {
	next    *session.Session
	clear   bool
	replies []Reply
}

func keep(replies ...Reply) outcome { return outcome{replies: replies} }

func advance(next session.Session, replies ...Reply) outcome {
	return outcome{next: &next, replies: replies}
}

func finish(replies ...Reply) outcome { return outcome{clear: true, replies: replies} }

func send(text string, kb Keyboard) Reply { return Reply{Mode: ModeSend, Text: text, Keyboard: kb} }

func edit(text string, kb Keyboard) Reply { return Reply{Mode: ModeEdit, Text: text, Keyboard: kb} }

func markdown(r Reply) Reply {
	r.Markdown = true
	return r
}

func ack(text string) Reply { return Reply{Mode: ModeAck, Text: text} }

// Handle processes one inbound event. Events of the same chat are handled one
// at a time; the returned error is non-nil only when ctx ended while waiting.
func (m *Machine) Handle(ctx context.Context, in Inbound) ([]Reply, error) {
	unlock, err := m.sessions.Lock(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var current *session.Session
	if s, ok := m.sessions.Get(in.ChatID); ok {
		current = &s
	}

	var ev Event
	if in.IsCallback {
		ev = ParseCallback(in.Data)
	} else {
		ev = ParseText(current, in.Text)
	}

	out := m.transition(ctx, in, current, ev)

	switch {
	case out.clear:
		m.sessions.Delete(in.ChatID)
	case out.next != nil:
		m.sessions.Set(in.ChatID, *out.next)
	}

	if out.clear || out.next != nil {
		m.log.Debugw("wizard transition",
			"chat_id", in.ChatID,
			"from_step", stepName(current),
			"to_step", stepName(out.next),
		)
	}

	if in.IsCallback && !hasAck(out.replies) {
		out.replies = append(out.replies, ack(""))
	}
	return out.replies, nil
}

func (m *Machine) transition(ctx context.Context, in Inbound, current *session.Session, ev Event) outcome {
	if cmd, ok := ev.(CommandIssued); ok {
		return m.command(cmd)
	}

	if current == nil {
		if in.IsCallback {
			return keep(ack(textSessionExpired))
		}
		if amount, ok := ev.(AmountEntered); ok {
			sender := strings.TrimSpace(in.Sender)
			if sender == "" {
				sender = defaultSenderName
			}
			return advance(
				session.Session{Step: session.StepType, Amount: amount.Amount, AddedBy: sender},
				send(fmt.Sprintf(textAmountReceived, FormatAmount(amount.Amount)), typeKeyboard()),
			)
		}
		return keep(send(textNotUnderstood, nil))
	}

	s := *current
	switch e := ev.(type) {
	case TypeChosen:
		if s.Step == session.StepType {
			return m.chooseType(ctx, s, e)
		}
	case ParentChosen:
		if s.Step == session.StepParentCategory {
			return m.chooseParent(ctx, s, e)
		}
	case NewParentRequested:
		if s.Step == session.StepParentCategory {
			s.Step = session.StepNewParentName
			return advance(s, edit(textAskParentName, nil))
		}
	case SubChosen:
		if s.Step == session.StepSubCategory {
			return m.chooseSub(ctx, s, e)
		}
	case NewSubRequested:
		if s.Step == session.StepSubCategory {
			s.Step = session.StepNewSubName
			return advance(s, edit(textAskSubName, nil))
		}
	case NewCategoryNamed:
		return m.createCategory(ctx, s, e)
	case NoteChosen:
		if s.Step == session.StepConfirmNote {
			if e.Add {
				s.Step = session.StepWaitForNote
				return advance(s, edit(textAskNote, nil))
			}
			return m.save(ctx, s, "", ModeEdit)
		}
	case NoteEntered:
		return m.save(ctx, s, e.Text, ModeSend)
	}

	if in.IsCallback {
		return keep(ack(textStaleButton))
	}
	return keep(send(textUseButtons, nil))
}

func (m *Machine) command(cmd CommandIssued) outcome {
	switch cmd.Name {
	case "start":
		return keep(send(textGreeting, nil))
	case "cancel":
		return finish(send(textCancelled, nil))
	}
	return keep()
}

func (m *Machine) chooseType(ctx context.Context, s session.Session, e TypeChosen) outcome {
	roots, err := m.categories.ListRootCategories(ctx, e.Type)
	if err != nil {
		return m.failed(s, err, textLookupFailed)
	}
	s.Type = e.Type
	s.Step = session.StepParentCategory
	return advance(s, edit(textChooseParent, parentKeyboard(roots)))
}

func (m *Machine) chooseParent(ctx context.Context, s session.Session, e ParentChosen) outcome {
	parent, err := m.categories.GetCategory(ctx, e.ID)
	if err != nil {
		return m.failed(s, err, textLookupFailed)
	}
	if !parent.IsRoot() || parent.Type != s.Type {
		return keep(ack(textStaleButton))
	}
	subs, err := m.categories.ListSubCategories(ctx, parent.ID)
	if err != nil {
		return m.failed(s, err, textLookupFailed)
	}

	s.ParentID = parent.ID
	if len(subs) == 0 {
		s.CategoryID = parent.ID
		s.Step = session.StepConfirmNote
		return advance(s, markdown(edit(fmt.Sprintf(textSelected, escape(parent.Name)), noteKeyboard())))
	}
	s.Step = session.StepSubCategory
	return advance(s, markdown(edit(fmt.Sprintf(textChooseSub, escape(parent.Name)), subKeyboard(parent, subs))))
}

func (m *Machine) chooseSub(ctx context.Context, s session.Session, e SubChosen) outcome {
	category, err := m.categories.GetCategory(ctx, e.ID)
	if err != nil {
		return m.failed(s, err, textLookupFailed)
	}
	underParent := category.ParentID != nil && *category.ParentID == s.ParentID
	if category.ID != s.ParentID && !underParent {
		return keep(ack(textStaleButton))
	}

	s.CategoryID = category.ID
	s.Step = session.StepConfirmNote
	return advance(s, markdown(edit(fmt.Sprintf(textSelected, escape(category.Name)), noteKeyboard())))
}

func (m *Machine) createCategory(ctx context.Context, s session.Session, e NewCategoryNamed) outcome {
	var parentID *uint
	created, failure := textParentCreated, textParentFailed
	if s.Step == session.StepNewSubName {
		id := s.ParentID
		parentID = &id
		created, failure = textSubCreated, textSubFailed
	}

	category, err := m.categories.CreateCategory(ctx, e.Name, s.Type, parentID)
	if err != nil {
		return m.failed(s, err, failure)
	}

	s.CategoryID = category.ID
	s.Step = session.StepConfirmNote
	return advance(s, send(fmt.Sprintf(created, category.Name), noteKeyboard()))
}

// save writes the transaction and ends the wizard. mode is Edit when the save
// was triggered by a button and Send when triggered by the note text.
func (m *Machine) save(ctx context.Context, s session.Session, note string, mode ReplyMode) outcome {
	rows, err := m.transactions.CreateTransaction(ctx, services.CreateTransactionInput{
		Amount:       s.Amount,
		Description:  note,
		CategoryID:   s.CategoryID,
		AddedBy:      s.AddedBy,
		Installments: 1,
	})
	if err != nil {
		return m.failed(s, err, textSaveFailed)
	}

	name := ""
	if len(rows) > 0 && rows[0].Category != nil {
		name = rows[0].Category.Name
	} else if category, err := m.categories.GetCategory(ctx, s.CategoryID); err == nil {
		name = category.Name
	}

	return finish(markdown(Reply{Mode: mode, Text: savedText(s.Amount, name, note)}))
}

// failed keeps the session as it is so the user can retry the same step.
// Store failures get the apology, validation and lookup failures their own message.
func (m *Machine) failed(s session.Session, err error, apology string) outcome {
	if apperrors.IsPersistence(err) {
		m.log.Errorw("wizard step failed", "step", s.Step, "error", err)
		return keep(send(apology, nil))
	}
	var appErr *apperrors.AppError
	errors.As(err, &appErr)
	return keep(send(appErr.Message, nil))
}

func hasAck(replies []Reply) bool {
	for _, r := range replies {
		if r.Mode == ModeAck {
			return true
		}
	}
	return false
}

func stepName(s *session.Session) string {
	if s == nil {
		return "idle"
	}
	return string(s.Step)
}
