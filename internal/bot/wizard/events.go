package wizard

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/maingberg-rgb/finansi/internal/bot/session"
	"github.com/maingberg-rgb/finansi/internal/models"
)

// Button payloads.
const (
	dataTypePrefix   = "type_"
	dataParentPrefix = "parent_"
	dataSubPrefix    = "sub_"
	dataNewParent    = "new_parent"
	dataNewSub       = "new_sub"
	dataNoteAdd      = "note_add"
	dataNoteSkip     = "note_skip"
)

// Event is an inbound chat event after parsing. The set of variants is closed.
type Event interface {
	isEvent()
}

// AmountEntered starts a wizard.
type AmountEntered struct{ Amount decimal.Decimal }

// TypeChosen picks expense or income.
type TypeChosen struct{ Type models.CategoryType }

// ParentChosen picks a root category.
type ParentChosen struct{ ID uint }

// NewParentRequested asks to create a root category.
type NewParentRequested struct{}

// SubChosen picks a sub-category, or the parent itself via "finish here".
type SubChosen struct{ ID uint }

// NewSubRequested asks to create a sub-category under the chosen parent.
type NewSubRequested struct{}

// NoteChosen answers whether a note will be added.
type NoteChosen struct{ Add bool }

// NewCategoryNamed carries the name typed for a new category.
type NewCategoryNamed struct{ Name string }

// NoteEntered carries the note text.
type NoteEntered struct{ Text string }

// CommandIssued is a slash command such as /start.
type CommandIssued struct{ Name string }

// Unrecognized is anything that fits no other variant.
type Unrecognized struct{ Raw string }

func (AmountEntered) isEvent()      {}
func (TypeChosen) isEvent()         {}
func (ParentChosen) isEvent()       {}
func (NewParentRequested) isEvent() {}
func (SubChosen) isEvent()          {}
func (NewSubRequested) isEvent()    {}
func (NoteChosen) isEvent()         {}
func (NewCategoryNamed) isEvent()   {}
func (NoteEntered) isEvent()        {}
func (CommandIssued) isEvent()      {}
func (Unrecognized) isEvent()       {}

// ParseCallback turns a button payload into an Event.
func ParseCallback(data string) Event {
	switch data {
	case dataNewParent:
		return NewParentRequested{}
	case dataNewSub:
		return NewSubRequested{}
	case dataNoteAdd:
		return NoteChosen{Add: true}
	case dataNoteSkip:
		return NoteChosen{Add: false}
	}

	switch {
	case strings.HasPrefix(data, dataTypePrefix):
		t := models.CategoryType(strings.TrimPrefix(data, dataTypePrefix))
		if t.Valid() {
			return TypeChosen{Type: t}
		}
	case strings.HasPrefix(data, dataParentPrefix):
		if id, ok := parseID(strings.TrimPrefix(data, dataParentPrefix)); ok {
			return ParentChosen{ID: id}
		}
	case strings.HasPrefix(data, dataSubPrefix):
		if id, ok := parseID(strings.TrimPrefix(data, dataSubPrefix)); ok {
			return SubChosen{ID: id}
		}
	}
	return Unrecognized{Raw: data}
}

// ParseText turns a text message into an Event. What free text means depends on
// the step the chat is in; current is nil when the chat has no session.
func ParseText(current *session.Session, text string) Event {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		return CommandIssued{Name: commandName(text)}
	}

	if current == nil {
		if amount, ok := ParseAmount(text); ok {
			return AmountEntered{Amount: amount}
		}
		return Unrecognized{Raw: text}
	}

	switch current.Step {
	case session.StepNewParentName, session.StepNewSubName:
		return NewCategoryNamed{Name: text}
	case session.StepWaitForNote:
		return NoteEntered{Text: text}
	}
	return Unrecognized{Raw: text}
}

// ParseAmount accepts a decimal, optionally followed or preceded by ₪, that
// rounds to a storable money amount. The result is rounded to agorot.
func ParseAmount(text string) (decimal.Decimal, bool) {
	text = strings.TrimSpace(strings.Trim(strings.TrimSpace(text), "₪"))
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return models.NormalizeAmount(amount)
}

func parseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// commandName strips the slash, arguments and any @botname suffix.
func commandName(text string) string {
	name := strings.TrimPrefix(strings.Fields(text)[0], "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name)
}
