package core

import (
	"strings"
	"time"
)

const (
	Daily        RecurrenceFrequency = "DAILY"
	Weekly       RecurrenceFrequency = "WEEKLY"
	Biweekly     RecurrenceFrequency = "BIWEEKLY"
	Monthly      RecurrenceFrequency = "MONTHLY"
	Quarterly    RecurrenceFrequency = "QUARTERLY"
	SemiAnnually RecurrenceFrequency = "SEMI_ANNUALLY"
	Annually     RecurrenceFrequency = "ANNUALLY"
)

const (
	Cash          PaymentMethod = "CASH"
	CreditCard    PaymentMethod = "CREDIT_CARD"
	DebitCard     PaymentMethod = "DEBIT_CARD"
	BankTransfer  PaymentMethod = "BANK_TRANSFER"
	DigitalWallet PaymentMethod = "DIGITAL_WALLET"
	Check         PaymentMethod = "CHECK"
	OtherPayment  PaymentMethod = "OTHER"
)

const (
	BudgetDaily     BudgetType = "DAILY"
	BudgetWeekly    BudgetType = "WEEKLY"
	BudgetMonthly   BudgetType = "MONTHLY"
	BudgetQuarterly BudgetType = "QUARTERLY"
	BudgetYearly    BudgetType = "YEARLY"
	BudgetCustom    BudgetType = "CUSTOM"
)

const maxDescriptionLen = 200

type (
	RecurrenceFrequency string
	PaymentMethod       string
	BudgetType          string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// ExpenseRecord is a single financial event. When IsRecurring is set it is a
	// template from which dated instances are materialized.
	ExpenseRecord struct {
		ID                  int64
		UserID              int64
		Description         string
		Amount              Money
		Date                Date
		CategoryID          int64 // 0 means uncategorized
		PaymentMethod       PaymentMethod
		Notes               string
		IsRecurring         bool
		RecurrenceFrequency RecurrenceFrequency
		RecurrenceEndDate   Date // zero means open-ended
		LastRecurrenceDate  Date // zero until the first instance is materialized
		SourceTemplateID    int64
		CreatedAt           time.Time
		UpdatedAt           time.Time
	}

	// BudgetRecord caps spend for a user over an inclusive period, optionally
	// scoped to one category (CategoryID 0 is the overall budget).
	BudgetRecord struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Name        string
		Amount      Money
		PeriodStart Date
		PeriodEnd   Date
		Active      bool
		Type        BudgetType
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var frequencyNames = map[RecurrenceFrequency]string{
	Daily:        "Daily",
	Weekly:       "Weekly",
	Biweekly:     "Bi-weekly",
	Monthly:      "Monthly",
	Quarterly:    "Quarterly",
	SemiAnnually: "Semi-annually",
	Annually:     "Annually",
}

var paymentMethodNames = map[PaymentMethod]string{
	Cash:          "Cash",
	CreditCard:    "Credit Card",
	DebitCard:     "Debit Card",
	BankTransfer:  "Bank Transfer",
	DigitalWallet: "Digital Wallet",
	Check:         "Check",
	OtherPayment:  "Other",
}

var budgetTypeNames = map[BudgetType]string{
	BudgetDaily:     "Daily",
	BudgetWeekly:    "Weekly",
	BudgetMonthly:   "Monthly",
	BudgetQuarterly: "Quarterly",
	BudgetYearly:    "Yearly",
	BudgetCustom:    "Custom Period",
}

func (f RecurrenceFrequency) IsValid() bool {
	_, ok := frequencyNames[f]
	return ok
}

// DisplayName returns a human readable label, or the raw value when unknown.
func (f RecurrenceFrequency) DisplayName() string {
	if n, ok := frequencyNames[f]; ok {
		return n
	}
	return string(f)
}

func (p PaymentMethod) IsValid() bool {
	_, ok := paymentMethodNames[p]
	return ok
}

func (p PaymentMethod) DisplayName() string {
	if n, ok := paymentMethodNames[p]; ok {
		return n
	}
	return string(p)
}

func (b BudgetType) IsValid() bool {
	_, ok := budgetTypeNames[b]
	return ok
}

func (b BudgetType) DisplayName() string {
	if n, ok := budgetTypeNames[b]; ok {
		return n
	}
	return string(b)
}

func (e ExpenseRecord) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return invalid("description", ErrEmptyDescription)
	}
	if len(e.Description) > maxDescriptionLen {
		return invalid("description", ErrDescriptionTooLong)
	}
	if err := e.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if e.PaymentMethod != "" && !e.PaymentMethod.IsValid() {
		return invalid("payment_method", ErrInvalidPaymentMethod)
	}
	if !e.IsRecurring {
		return nil
	}
	if e.RecurrenceFrequency == "" {
		return invalid("recurrence_frequency", ErrMissingFrequency)
	}
	if !e.RecurrenceFrequency.IsValid() {
		return invalid("recurrence_frequency", ErrInvalidFrequency)
	}
	if !e.RecurrenceEndDate.IsEmpty() && e.RecurrenceEndDate.Before(e.Date.Time) {
		return invalid("recurrence_end_date", ErrInvalidPeriod)
	}
	return nil
}

func (b BudgetRecord) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if err := b.PeriodStart.Validate(); err != nil {
		return invalid("period_start", err)
	}
	if err := b.PeriodEnd.Validate(); err != nil {
		return invalid("period_end", err)
	}
	if b.PeriodEnd.Before(b.PeriodStart.Time) {
		return invalid("period_end", ErrInvalidPeriod)
	}
	if b.Type != "" && !b.Type.IsValid() {
		return invalid("budget_type", ErrInvalidBudgetType)
	}
	return nil
}

// IsOverall reports whether the budget spans every category.
func (b BudgetRecord) IsOverall() bool {
	return b.CategoryID == 0
}

// Covers reports whether d falls inside the budget period, bounds included.
func (b BudgetRecord) Covers(d Date) bool {
	return d.InRange(b.PeriodStart, b.PeriodEnd)
}

// Applies reports whether an expense counts against the budget.
func (b BudgetRecord) Applies(e ExpenseRecord) bool {
	if !b.Covers(e.Date) {
		return false
	}
	if b.UserID != 0 && e.UserID != b.UserID {
		return false
	}
	return b.IsOverall() || e.CategoryID == b.CategoryID
}
