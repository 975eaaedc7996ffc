package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type TicketClass string

const (
	TicketClassEconomy  TicketClass = "economy"
	TicketClassBusiness TicketClass = "business"
	TicketClassPremium  TicketClass = "premium"
)

// TicketClasses lists the closed set of classes a booking may carry.
var TicketClasses = []TicketClass{TicketClassEconomy, TicketClassBusiness, TicketClassPremium}

func (c TicketClass) Valid() bool {
	for _, known := range TicketClasses {
		if c == known {
			return true
		}
	}
	return false
}

// DateLayout is the wire format of a travel date.
const DateLayout = "2006-01-02"

// Booking is a passenger snapshot plus itinerary taken at booking time.
// OwnerID is nil for guest bookings.
type Booking struct {
	ID                int64
	OwnerID           *int64
	FullName          string
	Email             string
	PhoneNumber       string
	DepartureLocation string
	Destination       string
	TravelDate        time.Time
	TicketClass       TicketClass
	TotalPrice        decimal.Decimal
	Status            BookingStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (b *Booking) OwnedBy(userID int64) bool {
	return b.OwnerID != nil && *b.OwnerID == userID
}
