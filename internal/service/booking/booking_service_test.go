package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/smartticket/internal/domain"
	"github.com/Domenick1991/smartticket/internal/kafka"
	"github.com/Domenick1991/smartticket/internal/logger"
	"github.com/Domenick1991/smartticket/internal/metrics"
	"github.com/Domenick1991/smartticket/internal/notification"
	"github.com/Domenick1991/smartticket/internal/repository"
	"github.com/Domenick1991/smartticket/internal/ticket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListAll(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Update(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, booking, expected)
	if fn, ok := args.Get(0).(func(context.Context, *domain.Booking, domain.BookingStatus) *domain.Booking); ok {
		return fn(ctx, booking, expected), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockFareResolver struct {
	mock.Mock
}

func (m *MockFareResolver) ResolveBaseFare(ctx context.Context, departure, destination string) (decimal.Decimal, error) {
	args := m.Called(ctx, departure, destination)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockTicketGenerator struct {
	mock.Mock
}

func (m *MockTicketGenerator) Generate(ctx context.Context, b domain.Booking) (*ticket.Artifact, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Artifact), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, kind notification.Kind, b domain.Booking, attachment *ticket.Artifact) error {
	args := m.Called(ctx, kind, b, attachment)
	return args.Error(0)
}

type MockTicketStore struct {
	mock.Mock
}

func (m *MockTicketStore) GetTicket(ctx context.Context, b domain.Booking) ([]byte, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockTicketStore) SetTicket(ctx context.Context, b domain.Booking, content []byte) error {
	args := m.Called(ctx, b, content)
	return args.Error(0)
}

func (m *MockTicketStore) DeleteTickets(ctx context.Context, bookingID int64) error {
	args := m.Called(ctx, bookingID)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

// fixture wires a BookingService to mocks with a fixed clock in UTC.
type fixture struct {
	repo     *MockBookingRepository
	fares    *MockFareResolver
	tickets  *MockTicketGenerator
	notifier *MockNotifier
	store    *MockTicketStore
	producer *MockProducer
	tasks    *TaskRunner
	logs     *observer.ObservedLogs
	service  *BookingService
}

var fixedNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, now time.Time, opts ...BookingServiceOption) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromZap(zap.New(core))
	m := metrics.NewNop()

	f := &fixture{
		repo:     &MockBookingRepository{},
		fares:    &MockFareResolver{},
		tickets:  &MockTicketGenerator{},
		notifier: &MockNotifier{},
		store:    &MockTicketStore{},
		producer: &MockProducer{},
		logs:     logs,
	}
	f.tasks = NewTaskRunner(log, m)

	base := []BookingServiceOption{
		WithTicketStore(f.store),
		WithEvents(f.producer, "booking-events"),
		WithClock(func() time.Time { return now }),
		WithLogger(log),
		WithMetrics(m),
	}
	f.service = NewBookingService(f.repo, f.fares, f.tickets, f.notifier, f.tasks, append(base, opts...)...)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.tasks.Wait()
	f.repo.AssertExpectations(t)
	f.fares.AssertExpectations(t)
	f.tickets.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.store.AssertExpectations(t)
	f.producer.AssertExpectations(t)
}

func owner(id int64) domain.Requester {
	return domain.Requester{ID: id, Role: "user", Authenticated: true}
}

func admin() domain.Requester {
	return domain.Requester{ID: 1, Role: domain.RoleAdmin, Authenticated: true}
}

func int64Ptr(v int64) *int64 {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func validInput() CreateBookingInput {
	return CreateBookingInput{
		FullName:          "Aline Uwase",
		Email:             "Aline@Example.com",
		PhoneNumber:       "+250 788 123 456",
		DepartureLocation: "Kigali",
		Destination:       "Musanze",
		TravelDate:        "2026-03-20",
		TicketClass:       "business",
	}
}

func storedBooking(id int64, ownerID int64, travel time.Time) *domain.Booking {
	return &domain.Booking{
		ID:                id,
		OwnerID:           int64Ptr(ownerID),
		FullName:          "Aline Uwase",
		Email:             "aline@example.com",
		PhoneNumber:       "+250788123456",
		DepartureLocation: "Kigali",
		Destination:       "Musanze",
		TravelDate:        travel,
		TicketClass:       domain.TicketClassEconomy,
		TotalPrice:        decimal.NewFromInt(2500),
		Status:            domain.BookingStatusConfirmed,
	}
}

func artifactFor(id int64) *ticket.Artifact {
	return &ticket.Artifact{
		BookingID:   id,
		FileName:    ticket.FileName(id),
		ContentType: ticket.ContentTypePDF,
		Content:     []byte("%PDF-1.3 ticket"),
	}
}

func TestBookingService_CreateBooking_Success(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	art := artifactFor(42)

	f.fares.On("ResolveBaseFare", ctx, "Kigali", "Musanze").Return(decimal.NewFromInt(2500), nil).Once()
	f.repo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			b := args.Get(1).(*domain.Booking)
			b.ID = 42
		}).
		Return(nil).Once()
	f.tickets.On("Generate", mock.Anything, mock.MatchedBy(func(b domain.Booking) bool { return b.ID == 42 })).Return(art, nil).Once()
	f.store.On("SetTicket", mock.Anything, mock.MatchedBy(func(b domain.Booking) bool { return b.ID == 42 }), art.Content).Return(nil).Once()
	f.notifier.On("Send", mock.Anything, notification.KindConfirmation, mock.AnythingOfType("domain.Booking"), art).Return(nil).Once()
	f.producer.On("Publish", mock.Anything, "booking-events", "42", mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingCreated && e.TotalPrice == "3750.00"
	})).Return(nil).Once()

	result, err := f.service.CreateBooking(ctx, owner(7), validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(42), result.ID)
	assert.True(t, result.TotalPrice.Equal(decimal.NewFromInt(3750)))
	assert.Equal(t, domain.BookingStatusConfirmed, result.Status)
	assert.Equal(t, domain.TicketClassBusiness, result.TicketClass)
	assert.Equal(t, "aline@example.com", result.Email)
	assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), result.TravelDate)
	require.NotNil(t, result.OwnerID)
	assert.Equal(t, int64(7), *result.OwnerID)

	f.assertExpectations(t)
}

func TestBookingService_CreateBooking_Guest(t *testing.T) {
	f := newFixture(t, fixedNow, WithEvents(nil, ""))
	ctx := context.Background()

	f.fares.On("ResolveBaseFare", ctx, "Kigali", "Musanze").Return(decimal.NewFromInt(2500), nil).Once()
	f.repo.On("Create", ctx, mock.MatchedBy(func(b *domain.Booking) bool { return b.OwnerID == nil })).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Booking).ID = 5 }).
		Return(nil).Once()
	f.tickets.On("Generate", mock.Anything, mock.Anything).Return(artifactFor(5), nil).Once()
	f.store.On("SetTicket", mock.Anything, mock.MatchedBy(func(b domain.Booking) bool { return b.ID == 5 }), mock.Anything).Return(nil).Once()
	f.notifier.On("Send", mock.Anything, notification.KindConfirmation, mock.Anything, mock.Anything).Return(nil).Once()

	result, err := f.service.CreateBooking(ctx, domain.Anonymous(), validInput())

	require.NoError(t, err)
	assert.Nil(t, result.OwnerID)
	f.assertExpectations(t)
}

func TestBookingService_CreateBooking_TravelDateBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		wantErr bool
	}{
		{name: "today", date: "2026-03-10"},
		{name: "tomorrow", date: "2026-03-11"},
		{name: "yesterday", date: "2026-03-09", wantErr: true},
		{name: "malformed", date: "10/03/2026", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixedNow, WithEvents(nil, ""))
			ctx := context.Background()
			input := validInput()
			input.TravelDate = tt.date

			if !tt.wantErr {
				f.fares.On("ResolveBaseFare", ctx, "Kigali", "Musanze").Return(decimal.NewFromInt(2500), nil).Once()
				f.repo.On("Create", ctx, mock.Anything).Return(nil).Once()
				f.tickets.On("Generate", mock.Anything, mock.Anything).Return(artifactFor(0), nil).Once()
				f.store.On("SetTicket", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
				f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
			}

			_, err := f.service.CreateBooking(ctx, owner(7), input)

			if tt.wantErr {
				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				require.Len(t, verr.Fields, 1)
				assert.Equal(t, "travelDate", verr.Fields[0].Field)
			} else {
				require.NoError(t, err)
			}
			f.assertExpectations(t)
		})
	}
}

func TestBookingService_CreateBooking_TodayInServiceZone(t *testing.T) {
	kigali, err := time.LoadLocation("Africa/Kigali")
	require.NoError(t, err)

	// 23:30 UTC on the 9th is already the 10th in Kigali (UTC+2).
	now := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)
	f := newFixture(t, now, WithLocation(kigali))
	input := validInput()
	input.TravelDate = "2026-03-09"

	_, err = f.service.CreateBooking(context.Background(), owner(7), input)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Travel date cannot be in the past", verr.Fields[0].Message)
	f.assertExpectations(t)
}

func TestBookingService_CreateBooking_ValidationCollectsAllFields(t *testing.T) {
	f := newFixture(t, fixedNow)

	_, err := f.service.CreateBooking(context.Background(), owner(7), CreateBookingInput{
		FullName:    "A1",
		Email:       "not-an-email",
		PhoneNumber: "call me",
		TicketClass: "first",
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, fe := range verr.Fields {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{
		"fullName", "email", "phoneNumber", "departureLocation", "destination", "travelDate", "ticketType",
	}, fields)
	f.assertExpectations(t)
}

func TestBookingService_CreateBooking_PersistFailure(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()

	f.fares.On("ResolveBaseFare", ctx, "Kigali", "Musanze").Return(decimal.NewFromInt(2500), nil).Once()
	f.repo.On("Create", ctx, mock.Anything).Return(errors.New("connection refused")).Once()

	result, err := f.service.CreateBooking(ctx, owner(7), validInput())

	assert.Nil(t, result)
	var derr *domain.DependencyError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "create booking", derr.Op)
	f.assertExpectations(t)
}

func TestBookingService_CreateBooking_NotificationFailureIsOnlyLogged(t *testing.T) {
	f := newFixture(t, fixedNow, WithEvents(nil, ""))
	ctx := context.Background()

	f.fares.On("ResolveBaseFare", ctx, "Kigali", "Musanze").Return(decimal.NewFromInt(2500), nil).Once()
	f.repo.On("Create", ctx, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Booking).ID = 9 }).
		Return(nil).Once()
	f.tickets.On("Generate", mock.Anything, mock.Anything).Return(artifactFor(9), nil).Once()
	f.store.On("SetTicket", mock.Anything, mock.MatchedBy(func(b domain.Booking) bool { return b.ID == 9 }), mock.Anything).Return(nil).Once()
	f.notifier.On("Send", mock.Anything, notification.KindConfirmation, mock.Anything, mock.Anything).
		Return(errors.New("smtp unavailable")).Once()

	result, err := f.service.CreateBooking(ctx, owner(7), validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(9), result.ID)

	f.assertExpectations(t)
	failures := f.logs.FilterMessage("background task failed").All()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].ContextMap()["error"], "smtp unavailable")
}

func TestBookingService_CreateBooking_RenderFailureStillNotifies(t *testing.T) {
	f := newFixture(t, fixedNow, WithEvents(nil, ""))
	ctx := context.Background()

	f.fares.On("ResolveBaseFare", ctx, "Kigali", "Musanze").Return(decimal.NewFromInt(2500), nil).Once()
	f.repo.On("Create", ctx, mock.Anything).Return(nil).Once()
	f.tickets.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("font missing")).Once()
	f.notifier.On("Send", mock.Anything, notification.KindConfirmation, mock.Anything, (*ticket.Artifact)(nil)).Return(nil).Once()

	_, err := f.service.CreateBooking(ctx, owner(7), validInput())

	require.NoError(t, err)
	f.assertExpectations(t)
	assert.Equal(t, 1, f.logs.FilterMessage("background task failed").Len())
}

func TestBookingService_GetBooking(t *testing.T) {
	travel := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		requester domain.Requester
		stored    *domain.Booking
		repoErr   error
		wantErr   error
	}{
		{name: "owner", requester: owner(7), stored: storedBooking(3, 7, travel)},
		{name: "admin", requester: admin(), stored: storedBooking(3, 7, travel)},
		{name: "other user", requester: owner(8), stored: storedBooking(3, 7, travel), wantErr: domain.ErrForbidden},
		{name: "anonymous", requester: domain.Anonymous(), stored: storedBooking(3, 7, travel), wantErr: domain.ErrForbidden},
		{name: "missing", requester: owner(8), repoErr: domain.ErrNotFound, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixedNow)
			ctx := context.Background()
			if tt.stored != nil {
				f.repo.On("GetByID", ctx, int64(3)).Return(tt.stored, nil).Once()
			} else {
				f.repo.On("GetByID", ctx, int64(3)).Return(nil, tt.repoErr).Once()
			}

			result, err := f.service.GetBooking(ctx, 3, tt.requester)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(3), result.ID)
			}
			f.assertExpectations(t)
		})
	}
}

func TestBookingService_ListMyBookings(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	travel := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	list := []domain.Booking{*storedBooking(2, 7, travel), *storedBooking(1, 7, travel)}
	f.repo.On("ListByOwner", ctx, int64(7)).Return(list, nil).Once()

	result, err := f.service.ListMyBookings(ctx, owner(7))
	require.NoError(t, err)
	assert.Len(t, result, 2)

	_, err = f.service.ListMyBookings(ctx, domain.Anonymous())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	f.assertExpectations(t)
}

func TestBookingService_CancelBooking_Window(t *testing.T) {
	travel := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	start := travel

	tests := []struct {
		name    string
		now     time.Time
		wantErr bool
	}{
		{name: "24h05m ahead", now: start.Add(-(24*time.Hour + 5*time.Minute))},
		{name: "exactly 24h ahead", now: start.Add(-24 * time.Hour), wantErr: true},
		{name: "23h55m ahead", now: start.Add(-(23*time.Hour + 55*time.Minute)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.now)
			ctx := context.Background()
			current := storedBooking(3, 7, travel)
			f.repo.On("GetByID", ctx, int64(3)).Return(current, nil).Once()

			if !tt.wantErr {
				cancelled := *current
				cancelled.Status = domain.BookingStatusCancelled
				f.repo.On("UpdateStatus", ctx, int64(3), domain.BookingStatusConfirmed, domain.BookingStatusCancelled).
					Return(&cancelled, nil).Once()
				f.store.On("DeleteTickets", ctx, int64(3)).Return(nil).Once()
				f.notifier.On("Send", mock.Anything, notification.KindCancellation, cancelled, (*ticket.Artifact)(nil)).Return(nil).Once()
				f.producer.On("Publish", mock.Anything, "booking-events", "3", mock.MatchedBy(func(e kafka.BookingEvent) bool {
					return e.Type == kafka.EventBookingCancelled && e.Status == "cancelled"
				})).Return(nil).Once()
			}

			result, err := f.service.CancelBooking(ctx, 3, owner(7))

			if tt.wantErr {
				var perr *domain.PolicyError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "Cannot cancel booking less than 24 hours before travel date", perr.Reason)
				assert.Equal(t, domain.BookingStatusConfirmed, current.Status)
				f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, domain.BookingStatusCancelled, result.Status)
			}
			f.assertExpectations(t)
		})
	}
}

func TestBookingService_CancelBooking_WindowUsesServiceZone(t *testing.T) {
	kigali, err := time.LoadLocation("Africa/Kigali")
	require.NoError(t, err)

	// Travel starts at 2026-03-20T00:00+02:00, i.e. 2026-03-19T22:00Z.
	travel := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 18, 22, 30, 0, 0, time.UTC)

	f := newFixture(t, now, WithLocation(kigali))
	ctx := context.Background()
	f.repo.On("GetByID", ctx, int64(3)).Return(storedBooking(3, 7, travel), nil).Once()

	_, err = f.service.CancelBooking(ctx, 3, owner(7))

	var perr *domain.PolicyError
	assert.ErrorAs(t, err, &perr)
	f.assertExpectations(t)
}

func TestBookingService_CancelBooking_AlreadyCancelled(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	current := storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC))
	current.Status = domain.BookingStatusCancelled
	f.repo.On("GetByID", ctx, int64(3)).Return(current, nil).Once()

	_, err := f.service.CancelBooking(ctx, 3, owner(7))

	var perr *domain.PolicyError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Booking is already cancelled", perr.Reason)
	f.assertExpectations(t)
}

func TestBookingService_CancelBooking_ConcurrentCancel(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	f.repo.On("GetByID", ctx, int64(3)).Return(storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)), nil).Once()
	f.repo.On("UpdateStatus", ctx, int64(3), domain.BookingStatusConfirmed, domain.BookingStatusCancelled).
		Return(nil, repository.ErrStatusChanged).Once()

	_, err := f.service.CancelBooking(ctx, 3, owner(7))

	var perr *domain.PolicyError
	assert.ErrorAs(t, err, &perr)
	f.assertExpectations(t)
}

func TestBookingService_CancelBooking_Forbidden(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	f.repo.On("GetByID", ctx, int64(3)).Return(storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)), nil).Once()

	_, err := f.service.CancelBooking(ctx, 3, owner(8))

	assert.ErrorIs(t, err, domain.ErrForbidden)
	f.assertExpectations(t)
}

func TestBookingService_UpdateBooking_ClassChangeRecomputesPrice(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	current := storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC))
	f.repo.On("GetByID", ctx, int64(3)).Return(current, nil).Once()
	f.fares.On("ResolveBaseFare", ctx, "Kigali", "Musanze").Return(decimal.NewFromInt(2500), nil).Once()
	f.repo.On("Update", ctx, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.TicketClass == domain.TicketClassPremium && b.TotalPrice.Equal(decimal.NewFromInt(5000))
	}), domain.BookingStatusConfirmed).
		Return(func(_ context.Context, b *domain.Booking, _ domain.BookingStatus) *domain.Booking { return b }, nil).Once()
	f.store.On("DeleteTickets", ctx, int64(3)).Return(nil).Once()
	f.producer.On("Publish", mock.Anything, "booking-events", "3", mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingUpdated && e.TotalPrice == "5000.00"
	})).Return(nil).Once()

	result, err := f.service.UpdateBooking(ctx, 3, owner(7), UpdateBookingInput{TicketClass: strPtr("premium")})

	require.NoError(t, err)
	assert.True(t, result.TotalPrice.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "Aline Uwase", result.FullName)
	assert.True(t, current.TotalPrice.Equal(decimal.NewFromInt(2500)))
	f.assertExpectations(t)
}

func TestBookingService_UpdateBooking_KeepsPriceWithoutClassChange(t *testing.T) {
	f := newFixture(t, fixedNow, WithEvents(nil, ""))
	ctx := context.Background()
	f.repo.On("GetByID", ctx, int64(3)).Return(storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)), nil).Once()
	f.repo.On("Update", ctx, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.FullName == "Jean Bosco" && b.TotalPrice.Equal(decimal.NewFromInt(2500))
	}), domain.BookingStatusConfirmed).
		Return(func(_ context.Context, b *domain.Booking, _ domain.BookingStatus) *domain.Booking { return b }, nil).Once()
	f.store.On("DeleteTickets", ctx, int64(3)).Return(nil).Once()

	result, err := f.service.UpdateBooking(ctx, 3, owner(7), UpdateBookingInput{FullName: strPtr(" Jean Bosco ")})

	require.NoError(t, err)
	assert.Equal(t, "Jean Bosco", result.FullName)
	f.fares.AssertNotCalled(t, "ResolveBaseFare", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestBookingService_UpdateBooking_Forbidden(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	f.repo.On("GetByID", ctx, int64(3)).Return(storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)), nil).Once()

	_, err := f.service.UpdateBooking(ctx, 3, owner(8), UpdateBookingInput{FullName: strPtr("Jean Bosco")})

	assert.ErrorIs(t, err, domain.ErrForbidden)
	f.assertExpectations(t)
}

func TestBookingService_UpdateBooking_InvalidPatch(t *testing.T) {
	f := newFixture(t, fixedNow)

	_, err := f.service.UpdateBooking(context.Background(), 3, owner(7), UpdateBookingInput{
		Email:      strPtr("nope"),
		TravelDate: strPtr("2026-03-01"),
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
	f.assertExpectations(t)
}

func TestBookingService_UpdateBooking_CancelledBooking(t *testing.T) {
	tests := []struct {
		name   string
		input  UpdateBookingInput
		reason string
	}{
		{name: "re-confirm", input: UpdateBookingInput{Status: strPtr("confirmed")}, reason: "Cancelled bookings cannot be re-confirmed"},
		{name: "edit", input: UpdateBookingInput{FullName: strPtr("Jean Bosco")}, reason: "Cancelled bookings cannot be modified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fixedNow)
			ctx := context.Background()
			current := storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC))
			current.Status = domain.BookingStatusCancelled
			f.repo.On("GetByID", ctx, int64(3)).Return(current, nil).Once()

			_, err := f.service.UpdateBooking(ctx, 3, owner(7), tt.input)

			var perr *domain.PolicyError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.reason, perr.Reason)
			f.assertExpectations(t)
		})
	}
}

func TestBookingService_UpdateBooking_StatusCancelledAppliesWindow(t *testing.T) {
	travel := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	f.repo.On("GetByID", ctx, int64(3)).Return(storedBooking(3, 7, travel), nil).Once()

	_, err := f.service.UpdateBooking(ctx, 3, owner(7), UpdateBookingInput{Status: strPtr("cancelled")})

	var perr *domain.PolicyError
	require.ErrorAs(t, err, &perr)
	f.assertExpectations(t)
}

func TestBookingService_UpdateBooking_StatusCancelledNotifies(t *testing.T) {
	f := newFixture(t, fixedNow, WithEvents(nil, ""))
	ctx := context.Background()
	f.repo.On("GetByID", ctx, int64(3)).Return(storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)), nil).Once()
	f.repo.On("Update", ctx, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.Status == domain.BookingStatusCancelled
	}), domain.BookingStatusConfirmed).
		Return(func(_ context.Context, b *domain.Booking, _ domain.BookingStatus) *domain.Booking { return b }, nil).Once()
	f.store.On("DeleteTickets", ctx, int64(3)).Return(nil).Once()
	f.notifier.On("Send", mock.Anything, notification.KindCancellation, mock.Anything, (*ticket.Artifact)(nil)).Return(nil).Once()

	result, err := f.service.UpdateBooking(ctx, 3, admin(), UpdateBookingInput{Status: strPtr("cancelled")})

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, result.Status)
	f.assertExpectations(t)
}

func TestBookingService_UpdateBooking_CancelledConcurrently(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	f.repo.On("GetByID", ctx, int64(3)).Return(storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)), nil).Once()
	f.repo.On("Update", ctx, mock.Anything, domain.BookingStatusConfirmed).Return(nil, repository.ErrStatusChanged).Once()

	_, err := f.service.UpdateBooking(ctx, 3, owner(7), UpdateBookingInput{FullName: strPtr("Jean Bosco")})

	var perr *domain.PolicyError
	assert.ErrorAs(t, err, &perr)
	f.assertExpectations(t)
}

func TestBookingService_DownloadTicket_PublicByDefault(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	stored := storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC))
	f.repo.On("GetByID", ctx, int64(3)).Return(stored, nil).Once()
	f.store.On("GetTicket", ctx, *stored).Return([]byte("%PDF-cached"), nil).Once()

	art, err := f.service.DownloadTicket(ctx, 3, domain.Anonymous())

	require.NoError(t, err)
	assert.Equal(t, "SmartTicket_3.pdf", art.FileName)
	assert.Equal(t, []byte("%PDF-cached"), art.Content)
	f.assertExpectations(t)
}

func TestBookingService_DownloadTicket_RegeneratesOnMiss(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	stored := storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC))
	art := artifactFor(3)
	f.repo.On("GetByID", ctx, int64(3)).Return(stored, nil).Once()
	f.store.On("GetTicket", ctx, *stored).Return(nil, nil).Once()
	f.tickets.On("Generate", ctx, *stored).Return(art, nil).Once()
	f.store.On("SetTicket", ctx, *stored, art.Content).Return(errors.New("redis down")).Once()

	result, err := f.service.DownloadTicket(ctx, 3, owner(8))

	require.NoError(t, err)
	assert.Equal(t, art, result)
	f.assertExpectations(t)
}

func TestBookingService_DownloadTicket_Restricted(t *testing.T) {
	f := newFixture(t, fixedNow, WithPublicTicketDownload(false))
	ctx := context.Background()
	f.repo.On("GetByID", ctx, int64(3)).Return(storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)), nil).Once()

	_, err := f.service.DownloadTicket(ctx, 3, owner(8))

	assert.ErrorIs(t, err, domain.ErrForbidden)
	f.assertExpectations(t)
}

func TestBookingService_DownloadTicket_GenerateFailure(t *testing.T) {
	f := newFixture(t, fixedNow, WithTicketStore(nil))
	ctx := context.Background()
	stored := storedBooking(3, 7, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC))
	f.repo.On("GetByID", ctx, int64(3)).Return(stored, nil).Once()
	f.tickets.On("Generate", ctx, *stored).Return(nil, errors.New("render failed")).Once()

	_, err := f.service.DownloadTicket(ctx, 3, domain.Anonymous())

	var derr *domain.DependencyError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "generate ticket", derr.Op)
	f.assertExpectations(t)
}

func TestBookingService_AdminOperations(t *testing.T) {
	f := newFixture(t, fixedNow)
	ctx := context.Background()
	travel := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	f.repo.On("ListAll", ctx).Return([]domain.Booking{*storedBooking(1, 7, travel)}, nil).Once()
	f.repo.On("Delete", ctx, int64(1)).Return(nil).Once()
	f.repo.On("Delete", ctx, int64(2)).Return(domain.ErrNotFound).Once()
	f.store.On("DeleteTickets", ctx, int64(1)).Return(nil).Once()

	all, err := f.service.ListAllBookings(ctx, admin())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.service.ListAllBookings(ctx, owner(7))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.ErrorIs(t, f.service.DeleteBooking(ctx, 1, owner(7)), domain.ErrForbidden)
	assert.NoError(t, f.service.DeleteBooking(ctx, 1, admin()))
	assert.ErrorIs(t, f.service.DeleteBooking(ctx, 2, admin()), domain.ErrNotFound)

	f.assertExpectations(t)
}

func TestTaskRunner_RecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	runner := NewTaskRunner(logger.FromZap(zap.New(core)), metrics.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	var sawCancel bool
	runner.Go(ctx, "panics", func(context.Context) error { panic("boom") })
	cancel()
	runner.Go(ctx, "detached", func(ctx context.Context) error {
		sawCancel = ctx.Err() != nil
		return nil
	})
	runner.Wait()

	assert.Equal(t, 1, logs.FilterMessage("background task panicked").Len())
	assert.False(t, sawCancel)
}
