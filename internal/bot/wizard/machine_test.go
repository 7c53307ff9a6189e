package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/maingberg-rgb/finansi/internal/bot/session"
	apperrors "github.com/maingberg-rgb/finansi/internal/errors"
	"github.com/maingberg-rgb/finansi/internal/logger"
	"github.com/maingberg-rgb/finansi/internal/models"
	"github.com/maingberg-rgb/finansi/internal/services"
)

func init() {
	logger.Init("test")
}

// --- fake stores ---

type fakeLedger struct {
	mu         sync.Mutex
	categories []models.Category
	rows       []models.Transaction
	nextID     uint

	listErr   error
	createErr error
	saveErr   error
}

var (
	_ Categories   = (*fakeLedger)(nil)
	_ Transactions = (*fakeLedger)(nil)
)

func (f *fakeLedger) addCategory(name string, t models.CategoryType, parentID *uint) models.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := models.Category{Base: models.Base{ID: f.nextID}, Name: name, Type: t, ParentID: parentID}
	f.categories = append(f.categories, c)
	return c
}

func (f *fakeLedger) ListRootCategories(_ context.Context, t models.CategoryType) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Category
	for _, c := range f.categories {
		if c.Type == t && c.ParentID == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListSubCategories(_ context.Context, parentID uint) ([]models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Category
	for _, c := range f.categories {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeLedger) GetCategory(_ context.Context, id uint) (*models.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.categories {
		if f.categories[i].ID == id {
			c := f.categories[i]
			return &c, nil
		}
	}
	return nil, apperrors.ErrCategoryNotFound
}

func (f *fakeLedger) CreateCategory(_ context.Context, name string, t models.CategoryType, parentID *uint) (*models.Category, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "שם הקטגוריה הוא שדה חובה")
	}
	c := f.addCategory(name, t, parentID)
	return &c, nil
}

func (f *fakeLedger) CreateTransaction(ctx context.Context, in services.CreateTransactionInput) ([]models.Transaction, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	category, err := f.GetCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row := models.Transaction{
		Base:        models.Base{ID: uint(len(f.rows) + 1)},
		Amount:      in.Amount,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		AddedBy:     in.AddedBy,
		Category:    category,
	}
	f.rows = append(f.rows, row)
	return []models.Transaction{row}, nil
}

func (f *fakeLedger) transactions() []models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Transaction(nil), f.rows...)
}

// --- helpers ---

const chat int64 = 1001

func newTestMachine() (*Machine, *fakeLedger, *session.MemoryStore) {
	ledger := &fakeLedger{}
	store := session.NewMemoryStore()
	return NewMachine(ledger, ledger, store), ledger, store
}

func say(t *testing.T, m *Machine, chatID int64, text string) []Reply {
	t.Helper()
	replies, err := m.Handle(context.Background(), Inbound{ChatID: chatID, Sender: "דנה", Text: text})
	if err != nil {
		t.Fatalf("handle text %q: %v", text, err)
	}
	return replies
}

func press(t *testing.T, m *Machine, chatID int64, data string) []Reply {
	t.Helper()
	replies, err := m.Handle(context.Background(), Inbound{ChatID: chatID, Sender: "דנה", IsCallback: true, Data: data})
	if err != nil {
		t.Fatalf("handle button %q: %v", data, err)
	}
	return replies
}

// prompt returns the single non-ack reply.
func prompt(t *testing.T, replies []Reply) Reply {
	t.Helper()
	var out []Reply
	for _, r := range replies {
		if r.Mode != ModeAck {
			out = append(out, r)
		}
	}
	if len(out) != 1 {
		t.Fatalf("expected one prompt, got %+v", replies)
	}
	return out[0]
}

func ackText(t *testing.T, replies []Reply) string {
	t.Helper()
	for _, r := range replies {
		if r.Mode == ModeAck {
			return r.Text
		}
	}
	t.Fatalf("expected an ack, got %+v", replies)
	return ""
}

func mustSession(t *testing.T, store *session.MemoryStore, chatID int64) session.Session {
	t.Helper()
	s, ok := store.Get(chatID)
	if !ok {
		t.Fatal("expected a session")
	}
	return s
}

func buttonData(kb Keyboard) []string {
	var out []string
	for _, row := range kb {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

// --- tests ---

func TestMachine_IdleText(t *testing.T) {
	t.Run("amount_starts_a_session", func(t *testing.T) {
		m, _, store := newTestMachine()

		r := prompt(t, say(t, m, chat, "1234.5"))

		if r.Mode != ModeSend {
			t.Errorf("expected send, got %v", r.Mode)
		}
		if r.Text != "קיבלתי: 1,234.5 ₪.\nהאם זו הוצאה או הכנסה?" {
			t.Errorf("unexpected text %q", r.Text)
		}
		if got := buttonData(r.Keyboard); len(got) != 2 || got[0] != "type_expense" || got[1] != "type_income" {
			t.Errorf("unexpected keyboard %v", got)
		}
		s := mustSession(t, store, chat)
		if s.Step != session.StepType || !s.Amount.Equal(decimal.RequireFromString("1234.5")) || s.AddedBy != "דנה" {
			t.Errorf("unexpected session %+v", s)
		}
	})

	t.Run("non_numeric_never_creates_a_session", func(t *testing.T) {
		m, _, store := newTestMachine()

		for _, text := range []string{"שלום", "abc", "-3", "0"} {
			r := prompt(t, say(t, m, chat, text))
			if r.Text != textNotUnderstood {
				t.Errorf("%q: unexpected reply %q", text, r.Text)
			}
		}
		if store.Size() != 0 {
			t.Errorf("expected no session, got %d", store.Size())
		}
	})

	t.Run("unstorable_amount_never_creates_a_session", func(t *testing.T) {
		m, _, store := newTestMachine()

		for _, text := range []string{"0.001", "10000000000", "1e7000"} {
			r := prompt(t, say(t, m, chat, text))
			if r.Text != textNotUnderstood {
				t.Errorf("%q: unexpected reply %q", text, r.Text)
			}
		}
		if store.Size() != 0 {
			t.Errorf("expected no session, got %d", store.Size())
		}
	})

	t.Run("amount_is_saved_rounded_to_agorot", func(t *testing.T) {
		m, ledger, store := newTestMachine()
		food := ledger.addCategory("מזון", models.CategoryTypeExpense, nil)

		r := prompt(t, say(t, m, chat, "19.999"))
		if r.Text != "קיבלתי: 20 ₪.\nהאם זו הוצאה או הכנסה?" {
			t.Errorf("unexpected text %q", r.Text)
		}
		if s := mustSession(t, store, chat); !s.Amount.Equal(decimal.NewFromInt(20)) {
			t.Errorf("expected session amount 20, got %s", s.Amount)
		}

		press(t, m, chat, "type_expense")
		press(t, m, chat, fmt.Sprintf("parent_%d", food.ID))
		press(t, m, chat, "note_skip")

		rows := ledger.transactions()
		if len(rows) != 1 || !rows[0].Amount.Equal(decimal.NewFromInt(20)) {
			t.Errorf("expected one transaction of 20, got %+v", rows)
		}
	})

	t.Run("sender_falls_back_to_default_name", func(t *testing.T) {
		m, _, store := newTestMachine()

		if _, err := m.Handle(context.Background(), Inbound{ChatID: chat, Text: "10"}); err != nil {
			t.Fatalf("handle: %v", err)
		}
		if s := mustSession(t, store, chat); s.AddedBy != defaultSenderName {
			t.Errorf("expected default sender, got %q", s.AddedBy)
		}
	})
}

func TestMachine_ParentWithoutSubsSkipsToNote(t *testing.T) {
	m, ledger, store := newTestMachine()
	fuel := ledger.addCategory("דלק", models.CategoryTypeExpense, nil)
	ledger.addCategory("משכורת", models.CategoryTypeIncome, nil)

	say(t, m, chat, "200")

	replies := press(t, m, chat, "type_expense")
	r := prompt(t, replies)
	if r.Mode != ModeEdit || r.Text != textChooseParent {
		t.Fatalf("unexpected reply %+v", r)
	}
	want := []string{fmt.Sprintf("parent_%d", fuel.ID), "new_parent"}
	if got := buttonData(r.Keyboard); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected keyboard %v, got %v", want, got)
	}
	if ackText(t, replies) != "" {
		t.Error("expected a silent ack")
	}

	r = prompt(t, press(t, m, chat, fmt.Sprintf("parent_%d", fuel.ID)))
	if r.Mode != ModeEdit || !r.Markdown || r.Text != "נבחר: *דלק*.\nתרצה להוסיף הערה לתנועה?" {
		t.Errorf("unexpected reply %+v", r)
	}
	if got := buttonData(r.Keyboard); fmt.Sprint(got) != "[note_add note_skip]" {
		t.Errorf("unexpected keyboard %v", got)
	}
	s := mustSession(t, store, chat)
	if s.Step != session.StepConfirmNote || s.CategoryID != fuel.ID || s.ParentID != fuel.ID {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestMachine_ParentWithSubs(t *testing.T) {
	m, ledger, store := newTestMachine()
	insurance := ledger.addCategory("ביטוחים", models.CategoryTypeExpense, nil)
	life := ledger.addCategory("חיים", models.CategoryTypeExpense, &insurance.ID)
	car := ledger.addCategory("רכב", models.CategoryTypeExpense, &insurance.ID)

	say(t, m, chat, "80")
	press(t, m, chat, "type_expense")

	r := prompt(t, press(t, m, chat, fmt.Sprintf("parent_%d", insurance.ID)))

	if r.Mode != ModeEdit || r.Text != "בחר תת-קטגוריה תחת *ביטוחים*:" {
		t.Errorf("unexpected reply %+v", r)
	}
	want := []string{
		fmt.Sprintf("sub_%d", life.ID),
		fmt.Sprintf("sub_%d", car.ID),
		fmt.Sprintf("sub_%d", insurance.ID),
		"new_sub",
	}
	if got := buttonData(r.Keyboard); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected keyboard %v, got %v", want, got)
	}
	finishHere := 0
	for _, row := range r.Keyboard {
		for _, b := range row {
			if b.Data == fmt.Sprintf("sub_%d", insurance.ID) {
				finishHere++
				if b.Text != buttonFinishHere {
					t.Errorf("expected finish-here label, got %q", b.Text)
				}
			}
		}
	}
	if finishHere != 1 {
		t.Errorf("expected exactly one finish-here button, got %d", finishHere)
	}
	if s := mustSession(t, store, chat); s.Step != session.StepSubCategory || s.ParentID != insurance.ID {
		t.Errorf("unexpected session %+v", s)
	}

	t.Run("sub_selection", func(t *testing.T) {
		r := prompt(t, press(t, m, chat, fmt.Sprintf("sub_%d", car.ID)))
		if r.Text != "נבחר: *רכב*.\nתרצה להוסיף הערה לתנועה?" {
			t.Errorf("unexpected text %q", r.Text)
		}
		if s := mustSession(t, store, chat); s.Step != session.StepConfirmNote || s.CategoryID != car.ID {
			t.Errorf("unexpected session %+v", s)
		}
	})
}

func TestMachine_FinishHereSelectsParent(t *testing.T) {
	m, ledger, store := newTestMachine()
	insurance := ledger.addCategory("ביטוחים", models.CategoryTypeExpense, nil)
	ledger.addCategory("חיים", models.CategoryTypeExpense, &insurance.ID)

	say(t, m, chat, "80")
	press(t, m, chat, "type_expense")
	press(t, m, chat, fmt.Sprintf("parent_%d", insurance.ID))
	press(t, m, chat, fmt.Sprintf("sub_%d", insurance.ID))

	if s := mustSession(t, store, chat); s.CategoryID != insurance.ID {
		t.Errorf("expected parent as category, got %d", s.CategoryID)
	}
}

func TestMachine_SkipNoteSaves(t *testing.T) {
	m, ledger, store := newTestMachine()
	food := ledger.addCategory("מזון", models.CategoryTypeExpense, nil)

	say(t, m, chat, "42.5")
	press(t, m, chat, "type_expense")
	press(t, m, chat, fmt.Sprintf("parent_%d", food.ID))

	r := prompt(t, press(t, m, chat, "note_skip"))

	if r.Mode != ModeEdit || !r.Markdown {
		t.Errorf("expected markdown edit, got %+v", r)
	}
	if r.Text != "נשמר בהצלחה! ✅\n42.5 ₪ (*מזון*)" {
		t.Errorf("unexpected text %q", r.Text)
	}
	if _, ok := store.Get(chat); ok {
		t.Error("expected session to be deleted")
	}
	rows := ledger.transactions()
	if len(rows) != 1 {
		t.Fatalf("expected one transaction, got %d", len(rows))
	}
	if rows[0].CategoryID != food.ID || rows[0].Description != "" || rows[0].AddedBy != "דנה" {
		t.Errorf("unexpected transaction %+v", rows[0])
	}
	if !rows[0].Amount.Equal(decimal.RequireFromString("42.5")) {
		t.Errorf("unexpected amount %s", rows[0].Amount)
	}
}

func TestMachine_NoteTextSaves(t *testing.T) {
	m, ledger, store := newTestMachine()
	food := ledger.addCategory("מזון", models.CategoryTypeExpense, nil)

	say(t, m, chat, "18")
	press(t, m, chat, "type_expense")
	press(t, m, chat, fmt.Sprintf("parent_%d", food.ID))

	r := prompt(t, press(t, m, chat, "note_add"))
	if r.Mode != ModeEdit || r.Text != textAskNote {
		t.Fatalf("unexpected reply %+v", r)
	}
	if s := mustSession(t, store, chat); s.Step != session.StepWaitForNote {
		t.Fatalf("expected WAIT_FOR_NOTE, got %s", s.Step)
	}

	r = prompt(t, say(t, m, chat, "קפה"))

	if r.Mode != ModeSend || r.Text != "נשמר בהצלחה! ✅\n18 ₪ (*מזון*)\nהערה: קפה" {
		t.Errorf("unexpected reply %+v", r)
	}
	if _, ok := store.Get(chat); ok {
		t.Error("expected session to be deleted")
	}
	rows := ledger.transactions()
	if len(rows) != 1 || rows[0].Description != "קפה" || rows[0].CategoryID != food.ID {
		t.Errorf("unexpected transactions %+v", rows)
	}
}

func TestMachine_NewParentCategory(t *testing.T) {
	m, ledger, store := newTestMachine()

	say(t, m, chat, "60")
	press(t, m, chat, "type_income")

	r := prompt(t, press(t, m, chat, "new_parent"))
	if r.Mode != ModeEdit || r.Text != textAskParentName || r.Keyboard != nil {
		t.Fatalf("unexpected reply %+v", r)
	}

	r = prompt(t, say(t, m, chat, "מתנות"))

	if r.Mode != ModeSend || r.Text != "סידרתי! הקטגוריה \"מתנות\" נוספה.\nתרצה להוסיף הערה לתנועה?" {
		t.Errorf("unexpected reply %+v", r)
	}
	roots, _ := ledger.ListRootCategories(context.Background(), models.CategoryTypeIncome)
	if len(roots) != 1 || roots[0].Name != "מתנות" {
		t.Fatalf("expected created income root, got %+v", roots)
	}
	if s := mustSession(t, store, chat); s.Step != session.StepConfirmNote || s.CategoryID != roots[0].ID {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestMachine_NewSubCategory(t *testing.T) {
	m, ledger, store := newTestMachine()
	car := ledger.addCategory("רכב", models.CategoryTypeExpense, nil)
	ledger.addCategory("טיפולים", models.CategoryTypeExpense, &car.ID)

	say(t, m, chat, "350")
	press(t, m, chat, "type_expense")
	press(t, m, chat, fmt.Sprintf("parent_%d", car.ID))

	r := prompt(t, press(t, m, chat, "new_sub"))
	if r.Text != textAskSubName {
		t.Fatalf("unexpected reply %+v", r)
	}

	r = prompt(t, say(t, m, chat, "צמיגים"))

	if r.Text != "מעולה! תת-הקטגוריה \"צמיגים\" נוספה.\nתרצה להוסיף הערה לתנועה?" {
		t.Errorf("unexpected text %q", r.Text)
	}
	subs, _ := ledger.ListSubCategories(context.Background(), car.ID)
	if len(subs) != 2 || subs[1].Name != "צמיגים" || subs[1].Type != models.CategoryTypeExpense {
		t.Fatalf("expected new sub under parent, got %+v", subs)
	}
	if s := mustSession(t, store, chat); s.CategoryID != subs[1].ID {
		t.Errorf("expected session category %d, got %d", subs[1].ID, s.CategoryID)
	}
}

func TestMachine_FailuresKeepSession(t *testing.T) {
	storeDown := apperrors.Wrap(apperrors.ErrInternalServer, errors.New("connection refused"))

	t.Run("category_creation", func(t *testing.T) {
		m, ledger, store := newTestMachine()
		say(t, m, chat, "60")
		press(t, m, chat, "type_expense")
		press(t, m, chat, "new_parent")
		before := mustSession(t, store, chat)

		ledger.createErr = storeDown
		r := prompt(t, say(t, m, chat, "חיות"))

		if r.Mode != ModeSend || r.Text != textParentFailed {
			t.Errorf("unexpected reply %+v", r)
		}
		if after := mustSession(t, store, chat); after != before {
			t.Errorf("expected session unchanged, got %+v", after)
		}

		ledger.createErr = nil
		say(t, m, chat, "חיות")
		if s := mustSession(t, store, chat); s.Step != session.StepConfirmNote {
			t.Errorf("expected retry to advance, got %s", s.Step)
		}
	})

	t.Run("empty_category_name", func(t *testing.T) {
		m, _, store := newTestMachine()
		say(t, m, chat, "60")
		press(t, m, chat, "type_expense")
		press(t, m, chat, "new_parent")

		r := prompt(t, say(t, m, chat, "   "))

		if r.Text != "שם הקטגוריה הוא שדה חובה" {
			t.Errorf("unexpected reply %q", r.Text)
		}
		if s := mustSession(t, store, chat); s.Step != session.StepNewParentName {
			t.Errorf("expected to stay in NEW_PARENT_NAME, got %s", s.Step)
		}
	})

	t.Run("transaction_save", func(t *testing.T) {
		m, ledger, store := newTestMachine()
		food := ledger.addCategory("מזון", models.CategoryTypeExpense, nil)
		say(t, m, chat, "42")
		press(t, m, chat, "type_expense")
		press(t, m, chat, fmt.Sprintf("parent_%d", food.ID))
		before := mustSession(t, store, chat)

		ledger.saveErr = storeDown
		r := prompt(t, press(t, m, chat, "note_skip"))

		if r.Mode != ModeSend || r.Text != textSaveFailed {
			t.Errorf("unexpected reply %+v", r)
		}
		if after := mustSession(t, store, chat); after != before {
			t.Errorf("expected session unchanged, got %+v", after)
		}
		if len(ledger.transactions()) != 0 {
			t.Error("expected no transaction")
		}
	})

	t.Run("category_listing", func(t *testing.T) {
		m, ledger, store := newTestMachine()
		say(t, m, chat, "42")

		ledger.listErr = storeDown
		r := prompt(t, press(t, m, chat, "type_expense"))

		if r.Text != textLookupFailed {
			t.Errorf("unexpected reply %q", r.Text)
		}
		if s := mustSession(t, store, chat); s.Step != session.StepType {
			t.Errorf("expected to stay in TYPE, got %s", s.Step)
		}
	})

	t.Run("deleted_parent", func(t *testing.T) {
		m, _, store := newTestMachine()
		say(t, m, chat, "42")
		press(t, m, chat, "type_expense")

		r := prompt(t, press(t, m, chat, "parent_99"))

		if r.Text != apperrors.ErrCategoryNotFound.Message {
			t.Errorf("unexpected reply %q", r.Text)
		}
		if s := mustSession(t, store, chat); s.Step != session.StepParentCategory {
			t.Errorf("expected to stay in PARENT_CATEGORY, got %s", s.Step)
		}
	})
}

func TestMachine_ButtonsWithoutSession(t *testing.T) {
	m, _, store := newTestMachine()

	replies := press(t, m, chat, "note_skip")

	if len(replies) != 1 || replies[0].Mode != ModeAck || replies[0].Text != textSessionExpired {
		t.Errorf("expected only the expired ack, got %+v", replies)
	}
	if store.Size() != 0 {
		t.Error("expected no session")
	}
}

func TestMachine_StaleButtons(t *testing.T) {
	m, ledger, store := newTestMachine()
	food := ledger.addCategory("מזון", models.CategoryTypeExpense, nil)
	salary := ledger.addCategory("משכורת", models.CategoryTypeIncome, nil)
	say(t, m, chat, "42")
	press(t, m, chat, "type_expense")

	t.Run("parent_of_the_other_type", func(t *testing.T) {
		replies := press(t, m, chat, fmt.Sprintf("parent_%d", salary.ID))
		if ackText(t, replies) != textStaleButton || len(replies) != 1 {
			t.Errorf("expected stale ack only, got %+v", replies)
		}
		if s := mustSession(t, store, chat); s.Step != session.StepParentCategory {
			t.Errorf("unexpected step %s", s.Step)
		}
	})

	press(t, m, chat, fmt.Sprintf("parent_%d", food.ID))
	before := mustSession(t, store, chat)

	for _, data := range []string{"type_income", "new_parent", "new_sub", fmt.Sprintf("sub_%d", salary.ID), "garbage"} {
		t.Run(data, func(t *testing.T) {
			replies := press(t, m, chat, data)
			if ackText(t, replies) != textStaleButton {
				t.Errorf("expected stale ack, got %+v", replies)
			}
			if after := mustSession(t, store, chat); after != before {
				t.Errorf("expected session unchanged, got %+v", after)
			}
		})
	}
}

func TestMachine_TextWhileButtonExpected(t *testing.T) {
	m, _, store := newTestMachine()
	say(t, m, chat, "42")

	r := prompt(t, say(t, m, chat, "77"))

	if r.Text != textUseButtons {
		t.Errorf("unexpected reply %q", r.Text)
	}
	if s := mustSession(t, store, chat); !s.Amount.Equal(decimal.NewFromInt(42)) || s.Step != session.StepType {
		t.Errorf("expected session unchanged, got %+v", s)
	}
}

func TestMachine_Commands(t *testing.T) {
	t.Run("start_keeps_the_session", func(t *testing.T) {
		m, _, store := newTestMachine()
		say(t, m, chat, "42")

		r := prompt(t, say(t, m, chat, "/start"))

		if r.Text != textGreeting {
			t.Errorf("unexpected reply %q", r.Text)
		}
		if s := mustSession(t, store, chat); s.Step != session.StepType {
			t.Errorf("expected session untouched, got %+v", s)
		}
	})

	t.Run("cancel_removes_the_session", func(t *testing.T) {
		m, _, store := newTestMachine()
		say(t, m, chat, "42")

		r := prompt(t, say(t, m, chat, "/cancel"))

		if r.Text != textCancelled {
			t.Errorf("unexpected reply %q", r.Text)
		}
		if _, ok := store.Get(chat); ok {
			t.Error("expected session to be deleted")
		}
	})

	t.Run("other_commands_are_ignored", func(t *testing.T) {
		m, _, store := newTestMachine()
		say(t, m, chat, "42")

		if replies := say(t, m, chat, "/help"); len(replies) != 0 {
			t.Errorf("expected no replies, got %+v", replies)
		}
		if store.Size() != 1 {
			t.Error("expected session untouched")
		}
	})
}

func TestMachine_Concurrency(t *testing.T) {
	t.Run("one_session_per_chat", func(t *testing.T) {
		m, _, store := newTestMachine()
		var wg sync.WaitGroup
		var mu sync.Mutex
		started := 0

		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				replies, err := m.Handle(context.Background(), Inbound{ChatID: chat, Text: fmt.Sprint(n + 1)})
				if err != nil {
					t.Errorf("handle: %v", err)
					return
				}
				if len(replies) == 1 && strings.HasPrefix(replies[0].Text, "קיבלתי") {
					mu.Lock()
					started++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		if started != 1 {
			t.Errorf("expected exactly one wizard to start, got %d", started)
		}
		if store.Size() != 1 {
			t.Errorf("expected one session, got %d", store.Size())
		}
	})

	t.Run("double_tapped_save_writes_once", func(t *testing.T) {
		m, ledger, _ := newTestMachine()
		food := ledger.addCategory("מזון", models.CategoryTypeExpense, nil)
		say(t, m, chat, "42")
		press(t, m, chat, "type_expense")
		press(t, m, chat, fmt.Sprintf("parent_%d", food.ID))

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := m.Handle(context.Background(), Inbound{ChatID: chat, IsCallback: true, Data: "note_skip"}); err != nil {
					t.Errorf("handle: %v", err)
				}
			}()
		}
		wg.Wait()

		if n := len(ledger.transactions()); n != 1 {
			t.Errorf("expected exactly one transaction, got %d", n)
		}
	})

	t.Run("chats_are_independent", func(t *testing.T) {
		m, ledger, store := newTestMachine()
		food := ledger.addCategory("מזון", models.CategoryTypeExpense, nil)
		var wg sync.WaitGroup

		for i := int64(1); i <= 10; i++ {
			wg.Add(1)
			go func(chatID int64) {
				defer wg.Done()
				steps := []Inbound{
					{ChatID: chatID, Text: fmt.Sprint(chatID * 10)},
					{ChatID: chatID, IsCallback: true, Data: "type_expense"},
					{ChatID: chatID, IsCallback: true, Data: fmt.Sprintf("parent_%d", food.ID)},
					{ChatID: chatID, IsCallback: true, Data: "note_add"},
					{ChatID: chatID, Text: fmt.Sprintf("chat %d", chatID)},
				}
				for _, in := range steps {
					if _, err := m.Handle(context.Background(), in); err != nil {
						t.Errorf("handle: %v", err)
						return
					}
				}
			}(i)
		}
		wg.Wait()

		rows := ledger.transactions()
		if len(rows) != 10 {
			t.Fatalf("expected 10 transactions, got %d", len(rows))
		}
		for _, row := range rows {
			var chatID int64
			fmt.Sscanf(row.Description, "chat %d", &chatID)
			if !row.Amount.Equal(decimal.NewFromInt(chatID * 10)) {
				t.Errorf("transaction %q has amount %s", row.Description, row.Amount)
			}
		}
		if store.Size() != 0 {
			t.Errorf("expected all sessions closed, got %d", store.Size())
		}
	})

	t.Run("cancelled_context", func(t *testing.T) {
		m, _, store := newTestMachine()
		unlock, err := store.Lock(context.Background(), chat)
		if err != nil {
			t.Fatalf("lock: %v", err)
		}
		defer unlock()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := m.Handle(ctx, Inbound{ChatID: chat, Text: "5"}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
