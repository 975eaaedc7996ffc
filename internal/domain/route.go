package domain

import "github.com/shopspring/decimal"

// Route is read-only reference data from the route catalog.
type Route struct {
	ID                int64           `json:"id"`
	DepartureLocation string          `json:"departure_location"`
	Destination       string          `json:"destination"`
	DistanceKm        float64         `json:"distance_km"`
	EstimatedTime     string          `json:"estimated_time"`
	BasePrice         decimal.Decimal `json:"base_price"`
}
