package ticket

import (
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/smartticket/internal/domain"
)

const (
	Title         = "SmartTicket Rwanda"
	Subtitle      = "OFFICIAL TRAVEL TICKET"
	BoardingNote  = "Thank you for choosing SmartTicket Rwanda. Please present this ticket (digital or printed) during boarding."
	SupportFooter = "For support: support@smartticket.rw | +250 788 000 000"
)

type Line struct {
	Label string
	Value string
}

type Section struct {
	Heading string
	Lines   []Line
}

// Document is the structured content of a ticket. Everything except
// GeneratedAt is derived from the booking snapshot alone.
type Document struct {
	BookingID   int64
	Title       string
	Subtitle    string
	Sections    []Section
	Footer      []string
	GeneratedAt time.Time
}

// Section returns the section with the given heading.
func (d Document) Section(heading string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Heading == heading {
			return s, true
		}
	}
	return Section{}, false
}

const (
	SectionPassenger = "PASSENGER DETAILS"
	SectionTrip      = "TRIP DETAILS"
	SectionPayment   = "PAYMENT SUMMARY"
)

func compose(b domain.Booking, currency string, generatedAt time.Time) Document {
	return Document{
		BookingID: b.ID,
		Title:     Title,
		Subtitle:  Subtitle,
		Sections: []Section{
			{
				Heading: SectionPassenger,
				Lines: []Line{
					{Label: "Name", Value: b.FullName},
					{Label: "Email", Value: b.Email},
					{Label: "Phone", Value: b.PhoneNumber},
				},
			},
			{
				Heading: SectionTrip,
				Lines: []Line{
					{Label: "Booking", Value: fmt.Sprintf("#%d", b.ID)},
					{Label: "From", Value: b.DepartureLocation},
					{Label: "To", Value: b.Destination},
					{Label: "Date", Value: b.TravelDate.Format(domain.DateLayout)},
					{Label: "Class", Value: strings.ToUpper(string(b.TicketClass))},
				},
			},
			{
				Heading: SectionPayment,
				Lines: []Line{
					{Label: "Total Amount", Value: b.TotalPrice.StringFixed(2) + " " + currency},
					{Label: "Booking Status", Value: strings.ToUpper(string(b.Status))},
				},
			},
		},
		Footer:      []string{BoardingNote, SupportFooter},
		GeneratedAt: generatedAt,
	}
}
