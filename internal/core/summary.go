package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64
	Amount     Money
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Total      Money
	Count      int
	ByCategory []CategoryAmount
}
