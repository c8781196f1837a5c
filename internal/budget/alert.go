package budget

import "github.com/shopspring/decimal"

type AlertLevel string

const (
	AlertNone        AlertLevel = "NONE"
	AlertApproaching AlertLevel = "APPROACHING"
	AlertOver        AlertLevel = "OVER"
)

// ApproachingThreshold is the percentage at which a budget starts warning.
var ApproachingThreshold = decimal.NewFromInt(80)

// Alert pairs a status with its classification.
type Alert struct {
	Level  AlertLevel
	Status Status
}

// Evaluate classifies a status. Over-budget wins over the percentage check.
func Evaluate(s Status) AlertLevel {
	switch {
	case s.IsOverBudget:
		return AlertOver
	case s.PercentageUsed.GreaterThanOrEqual(ApproachingThreshold):
		return AlertApproaching
	default:
		return AlertNone
	}
}

// EvaluateAll classifies every status, keeping input order.
func EvaluateAll(statuses []Status) []Alert {
	alerts := make([]Alert, len(statuses))
	for i, s := range statuses {
		alerts[i] = Alert{Level: Evaluate(s), Status: s}
	}
	return alerts
}
