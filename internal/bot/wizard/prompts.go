package wizard

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/maingberg-rgb/finansi/internal/models"
)

const (
	textGreeting       = "שלום! אני בוט הניהול הפיננסי שלך.\nכדי להתחיל, פשוט שלח לי את הסכום של התנועה (למשל: 100)."
	textNotUnderstood  = "לא הבנתי... שלח לי מספר (סכום) כדי להתחיל."
	textAmountReceived = "קיבלתי: %s ₪.\nהאם זו הוצאה או הכנסה?"
	textChooseParent   = "בחר קטגוריה ראשית:"
	textChooseSub      = "בחר תת-קטגוריה תחת *%s*:"
	textSelected       = "נבחר: *%s*.\nתרצה להוסיף הערה לתנועה?"
	textParentCreated  = "סידרתי! הקטגוריה \"%s\" נוספה.\nתרצה להוסיף הערה לתנועה?"
	textSubCreated     = "מעולה! תת-הקטגוריה \"%s\" נוספה.\nתרצה להוסיף הערה לתנועה?"
	textAskNote        = "רשום לי עכשיו את ההערה שלך:"
	textAskParentName  = "רשום לי עכשיו את השם של הקטגוריה החדשה שאתה רוצה ליצור:"
	textAskSubName     = "רשום לי עכשיו את השם של תת-הקטגוריה החדשה:"
	textSaved          = "נשמר בהצלחה! ✅\n%s ₪ (*%s*)"
	textSavedNote      = "\nהערה: %s"
	textUseButtons     = "בחר באחת האפשרויות שבכפתורים, או שלח /cancel כדי להתחיל מחדש."
	textCancelled      = "בוטל. שלח סכום כדי להתחיל מחדש."
	textParentFailed   = "שגיאה ביצירת הקטגוריה."
	textSubFailed      = "שגיאה ביצירת תת-הקטגוריה."
	textSaveFailed     = "אופס, קרתה שגיאה בשמירה."
	textLookupFailed   = "אופס, קרתה שגיאה. נסה שוב."
	textSessionExpired = "הסשן פג תוקף"
	textStaleButton    = "הכפתור הזה כבר לא רלוונטי"
	defaultSenderName  = "משתמש טלגרם"
	buttonExpense      = "🔴 הוצאה"
	buttonIncome       = "🟢 הכנסה"
	buttonNewParent    = "➕ הוסף קטגוריה חדשה"
	buttonFinishHere   = "✅ סיים כאן (בלי תת-קטגוריה)"
	buttonNewSub       = "➕ הוסף תת-קטגוריה חדשה"
	buttonAddNote      = "✍️ הוסף הערה"
	buttonSkipNote     = "⏩ דלג ושמור"
	subCategoryBullet  = "↳ "
)

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is a list of button rows.
type Keyboard [][]Button

func typeKeyboard() Keyboard {
	return Keyboard{{
		{Text: buttonExpense, Data: dataTypePrefix + string(models.CategoryTypeExpense)},
		{Text: buttonIncome, Data: dataTypePrefix + string(models.CategoryTypeIncome)},
	}}
}

func parentKeyboard(roots []models.Category) Keyboard {
	kb := make(Keyboard, 0, len(roots)+1)
	for _, c := range roots {
		kb = append(kb, []Button{{Text: c.Name, Data: fmt.Sprintf("%s%d", dataParentPrefix, c.ID)}})
	}
	return append(kb, []Button{{Text: buttonNewParent, Data: dataNewParent}})
}

// subKeyboard lists the children of parent, then "finish here" which selects
// the parent itself, then "add new sub".
func subKeyboard(parent *models.Category, subs []models.Category) Keyboard {
	kb := make(Keyboard, 0, len(subs)+2)
	for _, c := range subs {
		kb = append(kb, []Button{{Text: subCategoryBullet + c.Name, Data: fmt.Sprintf("%s%d", dataSubPrefix, c.ID)}})
	}
	return append(kb,
		[]Button{{Text: buttonFinishHere, Data: fmt.Sprintf("%s%d", dataSubPrefix, parent.ID)}},
		[]Button{{Text: buttonNewSub, Data: dataNewSub}},
	)
}

func noteKeyboard() Keyboard {
	return Keyboard{{
		{Text: buttonAddNote, Data: dataNoteAdd},
		{Text: buttonSkipNote, Data: dataNoteSkip},
	}}
}

func savedText(amount decimal.Decimal, categoryName, note string) string {
	text := fmt.Sprintf(textSaved, FormatAmount(amount), escape(categoryName))
	if note != "" {
		text += fmt.Sprintf(textSavedNote, escape(note))
	}
	return text
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousands separators and at most two
// decimals, e.g. 1234.5 -> "1,234.5".
func FormatAmount(amount decimal.Decimal) string {
	amount = amount.Round(2)
	sign := ""
	if amount.IsNegative() {
		sign, amount = "-", amount.Neg()
	}
	whole := amount.Truncate(0)
	frac := strings.TrimPrefix(amount.Sub(whole).String(), "0")

	intPart := whole.BigInt()
	if !intPart.IsInt64() {
		return sign + whole.String() + frac
	}
	return sign + amountPrinter.Sprintf("%d", intPart.Int64()) + frac
}

// escape protects user-supplied text inside Markdown messages.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
