package models

// MonthlyEarning is the paid total for one calendar month.
type MonthlyEarning struct {
	Month  string  `json:"month"` // "Jan".."Dec"
	Amount float64 `json:"amount"`
}

// EarningsSummary aggregates paid payments for a year.
type EarningsSummary struct {
	Year    int              `json:"year"`
	Total   float64          `json:"total"`
	Pending float64          `json:"pending"`
	Months  []MonthlyEarning `json:"months"`
}
