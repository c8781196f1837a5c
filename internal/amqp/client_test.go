package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"expenses/internal/budget"
	"expenses/internal/core"
)

type sentMessage struct {
	routingKey string
	messageID  string
	body       []byte
}

// recordingSender stands in for the broker. Each attempt pops the next
// scripted error; an exhausted script means success.
type recordingSender struct {
	mu    sync.Mutex
	errs  []error
	calls int
	sent  []sentMessage
}

func (r *recordingSender) send(_ context.Context, routingKey, messageID string, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return err
		}
	}
	r.sent = append(r.sent, sentMessage{routingKey: routingKey, messageID: messageID, body: body})
	return nil
}

func newTestClient(r *recordingSender) *Client {
	c := newClient("amqp://unused", "expenses", "expense_created", "budget_alerts")
	c.send = r.send
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func testAlert() budget.Alert {
	return budget.Alert{
		Level: budget.AlertOver,
		Status: budget.Status{
			Budget: core.BudgetRecord{
				ID:          4,
				UserID:      1,
				Name:        "Dining",
				CategoryID:  2,
				Amount:      core.Money{Cents: 5000},
				PeriodStart: core.NewDate(2024, 3, 1),
				PeriodEnd:   core.NewDate(2024, 3, 31),
			},
			TotalExpenses:   core.Money{Cents: 6000},
			RemainingAmount: core.Money{Cents: -1000},
			PercentageUsed:  decimal.NewFromInt(120),
		},
	}
}

func TestClient_RoutesEachEventToItsQueue(t *testing.T) {
	r := &recordingSender{}
	c := newTestClient(r)
	ctx := context.Background()

	instance := core.ExpenseRecord{ID: 11, UserID: 1, SourceTemplateID: 3, Amount: core.Money{Cents: 999}, Date: core.NewDate(2024, 3, 5)}
	if err := c.PublishExpenseCreated(ctx, instance); err != nil {
		t.Fatalf("PublishExpenseCreated() error = %v", err)
	}
	if err := c.PublishBudgetAlert(ctx, testAlert()); err != nil {
		t.Fatalf("PublishBudgetAlert() error = %v", err)
	}

	if len(r.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(r.sent))
	}

	expense, alert := r.sent[0], r.sent[1]
	if expense.routingKey != "expense_created" {
		t.Errorf("expense routing key = %q, want expense_created", expense.routingKey)
	}
	if alert.routingKey != "budget_alerts" {
		t.Errorf("alert routing key = %q, want budget_alerts", alert.routingKey)
	}

	var created ExpenseCreatedMessage
	if err := json.Unmarshal(expense.body, &created); err != nil {
		t.Fatalf("unmarshal expense body: %v", err)
	}
	if created.MessageID != expense.messageID {
		t.Errorf("publishing id %q differs from body id %q", expense.messageID, created.MessageID)
	}
	if created.Event != EventExpenseCreated || created.ExpenseID != 11 || created.TemplateID != 3 {
		t.Errorf("unexpected expense message: %+v", created)
	}

	var over BudgetAlertMessage
	if err := json.Unmarshal(alert.body, &over); err != nil {
		t.Fatalf("unmarshal alert body: %v", err)
	}
	if over.MessageID != alert.messageID {
		t.Errorf("publishing id %q differs from body id %q", alert.messageID, over.MessageID)
	}
	if over.Event != EventBudgetAlert || over.Level != "OVER" || over.RemainingCents != -1000 {
		t.Errorf("unexpected alert message: %+v", over)
	}
}

func TestClient_RetriesConnectionErrors(t *testing.T) {
	r := &recordingSender{errs: []error{amqp091.ErrClosed}}
	c := newTestClient(r)

	if err := c.PublishBudgetAlert(context.Background(), testAlert()); err != nil {
		t.Fatalf("PublishBudgetAlert() error = %v", err)
	}
	if r.calls != 2 {
		t.Errorf("send called %d times, want 2", r.calls)
	}
	if len(r.sent) != 1 || r.sent[0].routingKey != "budget_alerts" {
		t.Errorf("retry should land on the alert queue, got %+v", r.sent)
	}
	if got := atomic.LoadInt64(&c.failureCount); got != 0 {
		t.Errorf("failureCount = %d after success, want 0", got)
	}
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	r := &recordingSender{errs: []error{amqp091.ErrClosed, amqp091.ErrClosed, amqp091.ErrClosed}}
	c := newTestClient(r)

	err := c.PublishExpenseCreated(context.Background(), core.ExpenseRecord{ID: 1, Date: core.NewDate(2024, 1, 1)})
	if !errors.Is(err, amqp091.ErrClosed) {
		t.Fatalf("error = %v, want wrapped ErrClosed", err)
	}
	if r.calls != publishRetries {
		t.Errorf("send called %d times, want %d", r.calls, publishRetries)
	}
}

func TestClient_DoesNotRetryOtherErrors(t *testing.T) {
	rejected := errors.New("NOT_FOUND - no exchange 'expenses'")
	r := &recordingSender{errs: []error{rejected}}
	c := newTestClient(r)

	err := c.PublishBudgetAlert(context.Background(), testAlert())
	if !errors.Is(err, rejected) {
		t.Fatalf("error = %v, want %v", err, rejected)
	}
	if r.calls != 1 {
		t.Errorf("send called %d times, want 1", r.calls)
	}
}

func TestClient_CircuitOpensAndRecovers(t *testing.T) {
	rejected := errors.New("PRECONDITION_FAILED")
	r := &recordingSender{}
	for i := 0; i < maxFailures; i++ {
		r.errs = append(r.errs, rejected)
	}
	c := newTestClient(r)
	ctx := context.Background()

	for i := 0; i < maxFailures; i++ {
		if err := c.PublishBudgetAlert(ctx, testAlert()); err == nil {
			t.Fatalf("publish %d should fail", i+1)
		}
	}
	if got := atomic.LoadInt32(&c.state); got != StateOpen {
		t.Fatalf("state = %d after %d failures, want open", got, maxFailures)
	}

	err := c.PublishExpenseCreated(ctx, core.ExpenseRecord{ID: 2, Date: core.NewDate(2024, 1, 1)})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("error = %v, want ErrCircuitOpen", err)
	}
	if r.calls != maxFailures {
		t.Errorf("open circuit must not reach the broker: %d calls", r.calls)
	}

	c.mu.Lock()
	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	c.mu.Unlock()

	if err := c.PublishExpenseCreated(ctx, core.ExpenseRecord{ID: 2, Date: core.NewDate(2024, 1, 1)}); err != nil {
		t.Fatalf("half-open publish error = %v", err)
	}
	if got := atomic.LoadInt32(&c.state); got != StateClosed {
		t.Errorf("state = %d after half-open success, want closed", got)
	}
	if len(r.sent) != 1 || r.sent[0].routingKey != "expense_created" {
		t.Errorf("unexpected deliveries: %+v", r.sent)
	}
}

func TestClient_HalfOpenFailureReopens(t *testing.T) {
	r := &recordingSender{errs: []error{errors.New("NOT_ALLOWED")}}
	c := newTestClient(r)
	atomic.StoreInt32(&c.state, StateOpen)
	c.lastFailure = time.Now().Add(-openTimeout - time.Second)

	if err := c.PublishBudgetAlert(context.Background(), testAlert()); err == nil {
		t.Fatal("expected failure")
	}
	if got := atomic.LoadInt32(&c.state); got != StateOpen {
		t.Errorf("state = %d, want open after a half-open failure", got)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	r := &recordingSender{}
	c := newTestClient(r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.PublishBudgetAlert(ctx, testAlert())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if r.calls != 0 {
		t.Errorf("send called %d times on a cancelled context", r.calls)
	}
}

func TestExponentialBackoffIsCapped(t *testing.T) {
	if got := exponentialBackoff(0); got != time.Second {
		t.Errorf("first backoff = %v, want 1s", got)
	}
	if got := exponentialBackoff(10); got != maxBackoff {
		t.Errorf("backoff(10) = %v, want %v", got, maxBackoff)
	}
}

func TestNewExpenseCreatedMessage(t *testing.T) {
	instance := core.ExpenseRecord{
		ID:               42,
		UserID:           3,
		SourceTemplateID: 7,
		CategoryID:       5,
		Amount:           core.Money{Cents: 1250},
		Date:             core.NewDate(2024, 2, 29),
	}

	msg := NewExpenseCreatedMessage(instance)

	if _, err := uuid.Parse(msg.MessageID); err != nil {
		t.Errorf("MessageID %q is not a UUID: %v", msg.MessageID, err)
	}
	if msg.Event != EventExpenseCreated {
		t.Errorf("Event = %q, want %q", msg.Event, EventExpenseCreated)
	}
	if msg.ExpenseID != 42 || msg.TemplateID != 7 || msg.UserID != 3 || msg.CategoryID != 5 {
		t.Errorf("unexpected ids in message: %+v", msg)
	}
	if msg.Date != "2024-02-29" {
		t.Errorf("Date = %q, want 2024-02-29", msg.Date)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
	if NewExpenseCreatedMessage(instance).MessageID == msg.MessageID {
		t.Error("message ids must be unique per message")
	}
}

func TestBudgetAlertMessage_JSON(t *testing.T) {
	alert := budget.Alert{
		Level: budget.AlertApproaching,
		Status: budget.Status{
			Budget: core.BudgetRecord{
				ID:          9,
				UserID:      1,
				Name:        "Groceries",
				Amount:      core.Money{Cents: 10000},
				PeriodStart: core.NewDate(2024, 3, 1),
				PeriodEnd:   core.NewDate(2024, 3, 31),
			},
			TotalExpenses:   core.Money{Cents: 8500},
			RemainingAmount: core.Money{Cents: 1500},
			PercentageUsed:  decimal.NewFromInt(85),
		},
	}

	body, err := NewBudgetAlertMessage(alert).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"event":           EventBudgetAlert,
		"level":           "APPROACHING",
		"budget_name":     "Groceries",
		"percentage_used": "85.00",
		"period_start":    "2024-03-01",
		"period_end":      "2024-03-31",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("%s = %v, want %v", k, fields[k], v)
		}
	}
	if _, ok := fields["category_id"]; ok {
		t.Error("overall budget alert should omit category_id")
	}
}
