package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/Domenick1991/smartticket/internal/fare"
	"github.com/Domenick1991/smartticket/internal/kafka"
	"github.com/Domenick1991/smartticket/internal/logger"
	"github.com/Domenick1991/smartticket/internal/metrics"
	"github.com/Domenick1991/smartticket/internal/notification"
	"github.com/Domenick1991/smartticket/internal/repository"
	"github.com/Domenick1991/smartticket/internal/ticket"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CancellationCutoff is how far ahead of the travel start a booking must be
// cancelled. The boundary itself is rejected.
const CancellationCutoff = 24 * time.Hour

type BookingUseCase interface {
	CreateBooking(ctx context.Context, requester domain.Requester, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64, requester domain.Requester) (*domain.Booking, error)
	ListMyBookings(ctx context.Context, requester domain.Requester) ([]domain.Booking, error)
	UpdateBooking(ctx context.Context, id int64, requester domain.Requester, input UpdateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int64, requester domain.Requester) (*domain.Booking, error)
	DownloadTicket(ctx context.Context, id int64, requester domain.Requester) (*ticket.Artifact, error)
	ListAllBookings(ctx context.Context, requester domain.Requester) ([]domain.Booking, error)
	DeleteBooking(ctx context.Context, id int64, requester domain.Requester) error
}

type FareResolver interface {
	ResolveBaseFare(ctx context.Context, departure, destination string) (decimal.Decimal, error)
}

type TicketGenerator interface {
	Generate(ctx context.Context, b domain.Booking) (*ticket.Artifact, error)
}

type Notifier interface {
	Send(ctx context.Context, kind notification.Kind, b domain.Booking, attachment *ticket.Artifact) error
}

// TicketStore keeps rendered tickets per booking snapshot, so a ticket
// rendered from an older state never matches a newer one. GetTicket returns
// nil, nil on a miss. DeleteTickets drops every stored version of a booking.
type TicketStore interface {
	GetTicket(ctx context.Context, b domain.Booking) ([]byte, error)
	SetTicket(ctx context.Context, b domain.Booking, content []byte) error
	DeleteTickets(ctx context.Context, bookingID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings       repository.BookingRepository
	fares          FareResolver
	tickets        TicketGenerator
	notifier       Notifier
	tasks          *TaskRunner
	store          TicketStore
	producer       Producer
	eventsTopic    string
	publicDownload bool
	loc            *time.Location
	now            func() time.Time
	log            logger.Logger
	metrics        *metrics.Metrics
	validate       *validator.Validate
}

type BookingServiceOption func(*BookingService)

func WithTicketStore(store TicketStore) BookingServiceOption {
	return func(s *BookingService) {
		s.store = store
	}
}

func WithEvents(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

// WithPublicTicketDownload controls whether anyone who knows a booking id may
// download its ticket.
func WithPublicTicketDownload(public bool) BookingServiceOption {
	return func(s *BookingService) {
		s.publicDownload = public
	}
}

func WithLocation(loc *time.Location) BookingServiceOption {
	return func(s *BookingService) {
		s.loc = loc
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithLogger(log logger.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func WithMetrics(m *metrics.Metrics) BookingServiceOption {
	return func(s *BookingService) {
		s.metrics = m
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	fares FareResolver,
	tickets TicketGenerator,
	notifier Notifier,
	tasks *TaskRunner,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:       bookings,
		fares:          fares,
		tickets:        tickets,
		notifier:       notifier,
		tasks:          tasks,
		publicDownload: true,
		loc:            time.UTC,
		now:            time.Now,
		log:            logger.NewNop(),
		validate:       newValidator(),
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.metrics == nil {
		service.metrics = metrics.NewNop()
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, requester domain.Requester, input CreateBookingInput) (*domain.Booking, error) {
	input.normalize()
	verr := &domain.ValidationError{}
	if err := s.validate.Struct(input); err != nil {
		verr = toValidationError(err)
	}
	var travelDate time.Time
	if input.TravelDate != "" {
		travelDate = validateTravelDate(input.TravelDate, s.now(), s.loc, verr)
	}
	if !verr.Empty() {
		return nil, verr
	}

	base, err := s.fares.ResolveBaseFare(ctx, input.DepartureLocation, input.Destination)
	if err != nil {
		return nil, domain.Dependency("resolve base fare", err)
	}
	class := domain.TicketClass(input.TicketClass)

	booking := &domain.Booking{
		FullName:          input.FullName,
		Email:             input.Email,
		PhoneNumber:       input.PhoneNumber,
		DepartureLocation: input.DepartureLocation,
		Destination:       input.Destination,
		TravelDate:        travelDate,
		TicketClass:       class,
		TotalPrice:        fare.Price(base, class),
		Status:            domain.BookingStatusConfirmed,
	}
	if requester.Authenticated {
		owner := requester.ID
		booking.OwnerID = &owner
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("create_booking").Inc()
		return nil, domain.Dependency("create booking", err)
	}
	s.metrics.BookingsCreated.Inc()
	s.log.Info("booking created", "bookingID", booking.ID, "class", booking.TicketClass, "total", booking.TotalPrice.String())

	snapshot := *booking
	s.tasks.Go(ctx, "booking_confirmation", func(ctx context.Context) error {
		return s.afterCreate(ctx, snapshot)
	})
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64, requester domain.Requester) (*domain.Booking, error) {
	return s.load(ctx, id, requester)
}

func (s *BookingService) ListMyBookings(ctx context.Context, requester domain.Requester) ([]domain.Booking, error) {
	if !requester.Authenticated {
		return nil, domain.ErrForbidden
	}
	bookings, err := s.bookings.ListByOwner(ctx, requester.ID)
	if err != nil {
		return nil, domain.Dependency("list bookings", err)
	}
	return bookings, nil
}

func (s *BookingService) UpdateBooking(ctx context.Context, id int64, requester domain.Requester, input UpdateBookingInput) (*domain.Booking, error) {
	input.normalize()
	verr := &domain.ValidationError{}
	if err := s.validate.Struct(input); err != nil {
		verr = toValidationError(err)
	}
	var travelDate time.Time
	if input.TravelDate != nil && *input.TravelDate != "" {
		travelDate = validateTravelDate(*input.TravelDate, s.now(), s.loc, verr)
	}
	if !verr.Empty() {
		return nil, verr
	}

	current, err := s.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		if input.Status != nil && domain.BookingStatus(*input.Status) == domain.BookingStatusConfirmed {
			return nil, domain.NewPolicyError("Cancelled bookings cannot be re-confirmed")
		}
		return nil, domain.NewPolicyError("Cancelled bookings cannot be modified")
	}

	next := *current
	applyPatch(&next, input, travelDate)

	cancelling := next.Status == domain.BookingStatusCancelled
	if cancelling {
		if err := s.checkCancellationWindow(current.TravelDate); err != nil {
			return nil, err
		}
	}

	if next.TicketClass != current.TicketClass {
		base, err := s.fares.ResolveBaseFare(ctx, next.DepartureLocation, next.Destination)
		if err != nil {
			return nil, domain.Dependency("resolve base fare", err)
		}
		next.TotalPrice = fare.Price(base, next.TicketClass)
	}

	updated, err := s.bookings.Update(ctx, &next, current.Status)
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, domain.NewPolicyError("Booking was cancelled while it was being updated")
		}
		s.metrics.ErrorsCount.WithLabelValues("update_booking").Inc()
		return nil, domain.Dependency("update booking", err)
	}
	s.dropTicket(ctx, id)

	snapshot := *updated
	if cancelling {
		s.metrics.BookingsCancelled.Inc()
		s.log.Info("booking cancelled through update", "bookingID", id)
		s.tasks.Go(ctx, "booking_cancellation", func(ctx context.Context) error {
			return s.afterCancel(ctx, snapshot)
		})
	} else {
		s.tasks.Go(ctx, "booking_updated_event", func(ctx context.Context) error {
			return s.publish(ctx, kafka.EventBookingUpdated, snapshot)
		})
	}
	return updated, nil
}

func applyPatch(b *domain.Booking, in UpdateBookingInput, travelDate time.Time) {
	if in.FullName != nil {
		b.FullName = *in.FullName
	}
	if in.Email != nil {
		b.Email = *in.Email
	}
	if in.PhoneNumber != nil {
		b.PhoneNumber = *in.PhoneNumber
	}
	if in.DepartureLocation != nil {
		b.DepartureLocation = *in.DepartureLocation
	}
	if in.Destination != nil {
		b.Destination = *in.Destination
	}
	if in.TravelDate != nil {
		b.TravelDate = travelDate
	}
	if in.TicketClass != nil {
		b.TicketClass = domain.TicketClass(*in.TicketClass)
	}
	if in.Status != nil {
		b.Status = domain.BookingStatus(*in.Status)
	}
}

func (s *BookingService) CancelBooking(ctx context.Context, id int64, requester domain.Requester) (*domain.Booking, error) {
	current, err := s.load(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.BookingStatusConfirmed {
		return nil, domain.NewPolicyError("Booking is already cancelled")
	}
	if err := s.checkCancellationWindow(current.TravelDate); err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, domain.BookingStatusConfirmed, domain.BookingStatusCancelled)
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, domain.NewPolicyError("Booking is already cancelled")
		}
		s.metrics.ErrorsCount.WithLabelValues("cancel_booking").Inc()
		return nil, domain.Dependency("cancel booking", err)
	}
	s.dropTicket(ctx, id)
	s.metrics.BookingsCancelled.Inc()
	s.log.Info("booking cancelled", "bookingID", id)

	snapshot := *updated
	s.tasks.Go(ctx, "booking_cancellation", func(ctx context.Context) error {
		return s.afterCancel(ctx, snapshot)
	})
	return updated, nil
}

// DownloadTicket returns the stored ticket or renders a fresh one from the
// current booking state.
func (s *BookingService) DownloadTicket(ctx context.Context, id int64, requester domain.Requester) (*ticket.Artifact, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Dependency("load booking", err)
	}
	if !s.publicDownload && !requester.CanAccess(b) {
		return nil, domain.ErrForbidden
	}

	if s.store != nil {
		content, err := s.store.GetTicket(ctx, *b)
		if err != nil {
			s.log.Warn("read stored ticket, regenerating", "bookingID", id, "error", err)
		} else if content != nil {
			return &ticket.Artifact{
				BookingID:   id,
				FileName:    ticket.FileName(id),
				ContentType: ticket.ContentTypePDF,
				Content:     content,
			}, nil
		}
	}

	artifact, err := s.generate(ctx, *b)
	if err != nil {
		return nil, domain.Dependency("generate ticket", err)
	}
	s.storeTicket(ctx, *b, artifact)
	return artifact, nil
}

func (s *BookingService) ListAllBookings(ctx context.Context, requester domain.Requester) ([]domain.Booking, error) {
	if !requester.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	bookings, err := s.bookings.ListAll(ctx)
	if err != nil {
		return nil, domain.Dependency("list all bookings", err)
	}
	return bookings, nil
}

// DeleteBooking physically removes a booking. Only administrators may do so.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64, requester domain.Requester) error {
	if !requester.IsAdmin() {
		return domain.ErrForbidden
	}
	if err := s.bookings.Delete(ctx, id); err != nil {
		return domain.Dependency("delete booking", err)
	}
	s.dropTicket(ctx, id)
	s.log.Info("booking deleted", "bookingID", id, "by", requester.ID)
	return nil
}

// load fetches a booking and applies the owner-or-admin rule. A missing
// booking is reported before authorization.
func (s *BookingService) load(ctx context.Context, id int64, requester domain.Requester) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Dependency("load booking", err)
	}
	if !requester.CanAccess(b) {
		return nil, domain.ErrForbidden
	}
	return b, nil
}

func (s *BookingService) travelStart(travelDate time.Time) time.Time {
	y, m, d := travelDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *BookingService) checkCancellationWindow(travelDate time.Time) error {
	if s.travelStart(travelDate).Sub(s.now()) <= CancellationCutoff {
		return domain.NewPolicyError("Cannot cancel booking less than 24 hours before travel date")
	}
	return nil
}

func (s *BookingService) generate(ctx context.Context, b domain.Booking) (*ticket.Artifact, error) {
	start := time.Now()
	artifact, err := s.tickets.Generate(ctx, b)
	s.metrics.TicketRenderTime.Observe(time.Since(start).Seconds())
	return artifact, err
}

// storeTicket saves artifact under the snapshot it was rendered from.
func (s *BookingService) storeTicket(ctx context.Context, b domain.Booking, artifact *ticket.Artifact) {
	if s.store == nil {
		return
	}
	if err := s.store.SetTicket(ctx, b, artifact.Content); err != nil {
		s.log.Warn("store ticket", "bookingID", b.ID, "error", err)
	}
}

func (s *BookingService) dropTicket(ctx context.Context, id int64) {
	if s.store == nil {
		return
	}
	if err := s.store.DeleteTickets(ctx, id); err != nil {
		s.log.Warn("drop stored ticket", "bookingID", id, "error", err)
	}
}

// afterCreate renders the ticket and mails it. A rendering failure still
// sends the confirmation, without attachment.
func (s *BookingService) afterCreate(ctx context.Context, b domain.Booking) error {
	var errs []error

	artifact, err := s.generate(ctx, b)
	if err != nil {
		errs = append(errs, fmt.Errorf("generate ticket: %w", err))
		artifact = nil
	} else {
		s.storeTicket(ctx, b, artifact)
	}

	if err := s.notify(ctx, notification.KindConfirmation, b, artifact); err != nil {
		errs = append(errs, err)
	}
	if err := s.publish(ctx, kafka.EventBookingCreated, b); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *BookingService) afterCancel(ctx context.Context, b domain.Booking) error {
	return errors.Join(
		s.notify(ctx, notification.KindCancellation, b, nil),
		s.publish(ctx, kafka.EventBookingCancelled, b),
	)
}

func (s *BookingService) notify(ctx context.Context, kind notification.Kind, b domain.Booking, attachment *ticket.Artifact) error {
	if err := s.notifier.Send(ctx, kind, b, attachment); err != nil {
		s.metrics.Notifications.WithLabelValues(string(kind), "failed").Inc()
		return err
	}
	s.metrics.Notifications.WithLabelValues(string(kind), "sent").Inc()
	return nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, b domain.Booking) error {
	if s.producer == nil || s.eventsTopic == "" {
		return nil
	}
	event := kafka.BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		OwnerID:     b.OwnerID,
		Email:       b.Email,
		Departure:   b.DepartureLocation,
		Destination: b.Destination,
		TravelDate:  b.TravelDate.Format(domain.DateLayout),
		TicketClass: string(b.TicketClass),
		TotalPrice:  b.TotalPrice.StringFixed(2),
		Status:      string(b.Status),
		OccurredAt:  s.now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, fmt.Sprintf("%d", b.ID), event); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

var _ BookingUseCase = (*BookingService)(nil)
