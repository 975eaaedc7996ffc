package kafka

import "time"

const (
	EventBookingCreated   = "booking_created"
	EventBookingUpdated   = "booking_updated"
	EventBookingCancelled = "booking_cancelled"
)

// BookingEvent is published on the booking events topic after a state change.
type BookingEvent struct {
	Type        string    `json:"type"`
	BookingID   int64     `json:"booking_id"`
	OwnerID     *int64    `json:"owner_id,omitempty"`
	Email       string    `json:"email"`
	Departure   string    `json:"departure_location"`
	Destination string    `json:"destination"`
	TravelDate  string    `json:"travel_date"`
	TicketClass string    `json:"ticket_class"`
	TotalPrice  string    `json:"total_price"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}
