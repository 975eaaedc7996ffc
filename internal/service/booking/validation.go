package booking

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/go-playground/validator/v10"
)

type CreateBookingInput struct {
	FullName          string `json:"fullName" validate:"required,min=2,max=100,personname"`
	Email             string `json:"email" validate:"required,email,max=255"`
	PhoneNumber       string `json:"phoneNumber" validate:"required,max=32,phone"`
	DepartureLocation string `json:"departureLocation" validate:"required,min=2,max=100"`
	Destination       string `json:"destination" validate:"required,min=2,max=100"`
	TravelDate        string `json:"travelDate" validate:"required"`
	TicketClass       string `json:"ticketType" validate:"required,oneof=economy business premium"`
}

// UpdateBookingInput is a patch: nil fields keep their current value,
// non-nil fields are validated like on create and replace the stored value.
type UpdateBookingInput struct {
	FullName          *string `json:"fullName" validate:"omitnil,min=2,max=100,personname"`
	Email             *string `json:"email" validate:"omitnil,email,max=255"`
	PhoneNumber       *string `json:"phoneNumber" validate:"omitnil,min=1,max=32,phone"`
	DepartureLocation *string `json:"departureLocation" validate:"omitnil,min=2,max=100"`
	Destination       *string `json:"destination" validate:"omitnil,min=2,max=100"`
	TravelDate        *string `json:"travelDate" validate:"omitnil,min=1"`
	TicketClass       *string `json:"ticketType" validate:"omitnil,oneof=economy business premium"`
	Status            *string `json:"status" validate:"omitnil,oneof=confirmed cancelled"`
}

var (
	personNamePattern = regexp.MustCompile(`^[\p{L}\s]+$`)
	phonePattern      = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)
)

var fieldMessages = map[string]string{
	"fullName":          "Full name must be between 2 and 100 characters and contain only letters and spaces",
	"email":             "Please provide a valid email address",
	"phoneNumber":       "Please provide a valid phone number",
	"departureLocation": "Departure location must be between 2 and 100 characters",
	"destination":       "Destination must be between 2 and 100 characters",
	"travelDate":        "Please provide a valid travel date",
	"ticketType":        "Ticket type must be economy, business, or premium",
	"status":            "Status must be confirmed or cancelled",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// toValidationError converts validator output into a field-level list,
// one entry per field.
func toValidationError(err error) *domain.ValidationError {
	out := &domain.ValidationError{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add("body", err.Error())
		return out
	}
	seen := make(map[string]bool)
	for _, fe := range verrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		msg, ok := fieldMessages[field]
		if !ok {
			msg = "is invalid"
		}
		out.Add(field, msg)
	}
	return out
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func (in *CreateBookingInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.DepartureLocation = strings.TrimSpace(in.DepartureLocation)
	in.Destination = strings.TrimSpace(in.Destination)
	in.TravelDate = strings.TrimSpace(in.TravelDate)
	in.TicketClass = strings.ToLower(strings.TrimSpace(in.TicketClass))
}

func (in *UpdateBookingInput) normalize() {
	for _, s := range []*string{in.FullName, in.PhoneNumber, in.DepartureLocation, in.Destination, in.TravelDate} {
		trimPtr(s)
	}
	for _, s := range []*string{in.Email, in.TicketClass, in.Status} {
		if s != nil {
			*s = strings.ToLower(strings.TrimSpace(*s))
		}
	}
}

// parseTravelDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar date in loc as a UTC midnight value.
func parseTravelDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(domain.DateLayout, value, loc); err == nil {
		return dateOnly(t), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return dateOnly(t.In(loc)), nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// validateTravelDate parses value and rejects dates before today in loc.
// Today itself is allowed.
func validateTravelDate(value string, now time.Time, loc *time.Location, verr *domain.ValidationError) time.Time {
	date, err := parseTravelDate(value, loc)
	if err != nil {
		verr.Add("travelDate", fieldMessages["travelDate"])
		return time.Time{}
	}
	if date.Before(dateOnly(now.In(loc))) {
		verr.Add("travelDate", "Travel date cannot be in the past")
		return time.Time{}
	}
	return date
}
