package entities

import "time"

type ActivityType string

const (
	ActivityMatching ActivityType = "matching"
	ActivityError    ActivityType = "error"
)

type Activity struct {
	Type        ActivityType   `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"createdAt"`
}
