package model

import "time"

// Plan is a purchasable subscription plan. Prices are whole CLP.
type Plan struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Price        int64     `json:"price"`
	DurationDays int       `json:"duration_days"`
	CreatedAt    time.Time `json:"created_at"`
}
