package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"expenses/internal/budget"
	"expenses/internal/core"
)

const (
	EventExpenseCreated = "expense.created"
	EventBudgetAlert    = "budget.alert"
)

// ExpenseCreatedMessage announces an instance materialized from a recurring template.
type ExpenseCreatedMessage struct {
	MessageID   string    `json:"message_id"`
	Event       string    `json:"event"`
	ExpenseID   int64     `json:"expense_id"`
	TemplateID  int64     `json:"template_id"`
	UserID      int64     `json:"user_id"`
	CategoryID  int64     `json:"category_id,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseCreatedMessage(e core.ExpenseRecord) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		MessageID:   uuid.NewString(),
		Event:       EventExpenseCreated,
		ExpenseID:   e.ID,
		TemplateID:  e.SourceTemplateID,
		UserID:      e.UserID,
		CategoryID:  e.CategoryID,
		AmountCents: e.Amount.Cents,
		Date:        e.Date.String(),
		Timestamp:   time.Now().UTC(),
	}
}

func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessage carries a non-NONE budget alert to whatever delivers it.
type BudgetAlertMessage struct {
	MessageID      string    `json:"message_id"`
	Event          string    `json:"event"`
	Level          string    `json:"level"`
	BudgetID       int64     `json:"budget_id"`
	BudgetName     string    `json:"budget_name"`
	UserID         int64     `json:"user_id"`
	CategoryID     int64     `json:"category_id,omitempty"`
	BudgetCents    int64     `json:"budget_cents"`
	SpentCents     int64     `json:"spent_cents"`
	RemainingCents int64     `json:"remaining_cents"`
	PercentageUsed string    `json:"percentage_used"`
	PeriodStart    string    `json:"period_start"`
	PeriodEnd      string    `json:"period_end"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewBudgetAlertMessage(a budget.Alert) *BudgetAlertMessage {
	b := a.Status.Budget
	return &BudgetAlertMessage{
		MessageID:      uuid.NewString(),
		Event:          EventBudgetAlert,
		Level:          string(a.Level),
		BudgetID:       b.ID,
		BudgetName:     b.Name,
		UserID:         b.UserID,
		CategoryID:     b.CategoryID,
		BudgetCents:    b.Amount.Cents,
		SpentCents:     a.Status.TotalExpenses.Cents,
		RemainingCents: a.Status.RemainingAmount.Cents,
		PercentageUsed: a.Status.PercentageUsed.StringFixed(2),
		PeriodStart:    b.PeriodStart.String(),
		PeriodEnd:      b.PeriodEnd.String(),
		Timestamp:      time.Now().UTC(),
	}
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
