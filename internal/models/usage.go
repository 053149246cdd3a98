package models

import "time"

// UsageSummary aggregates chat events over a period.
type UsageSummary struct {
	// Since is the start of the period; nil means all time.
	Since *time.Time `json:"since,omitempty"`

	Questions     int64 `json:"questions"`
	Answers       int64 `json:"answers"`
	Rejections    int64 `json:"rejections"`
	RateLimited   int64 `json:"rate_limited"`
	UniqueClients int64 `json:"unique_clients"`
}

// DailyUsage is one UTC day of chat activity.
type DailyUsage struct {
	// Date is the day (YYYY-MM-DD).
	Date string `json:"date"`

	Questions   int64 `json:"questions"`
	Answers     int64 `json:"answers"`
	Rejections  int64 `json:"rejections"`
	RateLimited int64 `json:"rate_limited"`
}

// Total returns all events recorded on the day.
func (d DailyUsage) Total() int64 {
	return d.Questions + d.Answers + d.Rejections + d.RateLimited
}
