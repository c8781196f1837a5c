package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldTemplateID  = "template_id"
	FieldExpenseID   = "expense_id"
	FieldBudgetID    = "budget_id"
	FieldCategoryID  = "category_id"
	FieldOccurrence  = "occurrence"
	FieldAmountCents = "amount_cents"
	FieldInterval    = "interval"
)

// Component names
const (
	ComponentApp    = "app"
	ComponentWorker = "recurring_worker"
	ComponentCLI    = "budgetctl"
)

// Operations
const (
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
	OpRecurring = "process_recurring"
	OpAlerts    = "check_alerts"
)
