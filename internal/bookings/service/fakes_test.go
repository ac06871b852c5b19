package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	bookingserrors "cardetail/internal/bookings/errors"
	"cardetail/internal/bookings/validator"
	"cardetail/internal/payments"
	"cardetail/pkg/config"
	mongotx "cardetail/pkg/db/mongo"
	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	clock    time.Time
	failOn   string

	transactions int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings: map[string]*model.Booking{},
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func cloneBooking(b *model.Booking) *model.Booking {
	cp := *b
	cp.Services = slices.Clone(b.Services)
	cp.Notes = slices.Clone(b.Notes)
	if b.Payment != nil {
		payment := *b.Payment
		cp.Payment = &payment
	}
	return &cp
}

func (r *fakeBookingRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Millisecond)
	return r.clock
}

func (r *fakeBookingRepo) Create(ctx context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == "create" {
		return errors.New("mongo unavailable")
	}
	if b.ID == "" {
		b.ID = primitive.NewObjectID().Hex()
	}
	b.CreatedAt = r.tick()
	b.UpdatedAt = b.CreatedAt
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *fakeBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *fakeBookingRepo) matching(filter model.BookingFilter) []*model.Booking {
	var out []*model.Booking
	for _, b := range r.bookings {
		if filter.CustomerID != "" && b.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.DateFrom != "" && b.ScheduledDate < filter.DateFrom {
			continue
		}
		if filter.DateTo != "" && b.ScheduledDate > filter.DateTo {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	slices.SortFunc(out, func(a, b *model.Booking) int {
		return strings.Compare(a.ScheduledDate+a.ScheduledTime, b.ScheduledDate+b.ScheduledTime)
	})
	return out
}

func (r *fakeBookingRepo) FindAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matching(filter), nil
}

func (r *fakeBookingRepo) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(filter))), nil
}

func (r *fakeBookingRepo) FindByDate(ctx context.Context, date string, statuses ...string) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.matching(model.BookingFilter{DateFrom: date, DateTo: date}) {
		if len(statuses) == 0 || slices.Contains(statuses, b.Status) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) FindOpenUntil(ctx context.Context, date string) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Booking
	for _, b := range r.matching(model.BookingFilter{DateTo: date}) {
		if !b.IsTerminal() && !b.Overdue {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) Update(ctx context.Context, b *model.Booking, expectedUpdatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == "update" {
		return errors.New("mongo unavailable")
	}
	stored, ok := r.bookings[b.ID]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return fmt.Errorf("%w: %s", bookingserrors.ErrConcurrentModification, b.ID)
	}
	b.UpdatedAt = r.tick()
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *fakeBookingRepo) AddNote(ctx context.Context, id string, note model.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	stored.Notes = append(stored.Notes, note)
	stored.UpdatedAt = r.tick()
	return nil
}

func (r *fakeBookingRepo) MarkOverdue(ctx context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if b, ok := r.bookings[id]; ok {
			b.Overdue = true
			n++
		}
	}
	return n, nil
}

func (r *fakeBookingRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return bookingserrors.ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *fakeBookingRepo) Stats(ctx context.Context, from, to string) (*model.BookingStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.BookingStats{From: from, To: to, ByStatus: map[string]int64{}}
	for _, b := range r.matching(model.BookingFilter{DateFrom: from, DateTo: to}) {
		stats.Total++
		stats.ByStatus[b.Status]++
		if b.Status == model.BookingStatusCompleted {
			stats.Revenue += b.TotalAmount
		}
	}
	return stats, nil
}

func (r *fakeBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	r.mu.Lock()
	r.transactions++
	r.mu.Unlock()
	return mongotx.NoopTransactionManager{}.ExecuteTransaction(ctx, fn)
}

func (r *fakeBookingRepo) put(b *model.Booking) *model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		b.ID = primitive.NewObjectID().Hex()
	}
	if b.Notes == nil {
		b.Notes = []model.Note{}
	}
	b.UpdatedAt = r.tick()
	r.bookings[b.ID] = cloneBooking(b)
	return b
}

func (r *fakeBookingRepo) get(id string) *model.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		return cloneBooking(b)
	}
	return nil
}

type fakeReservations struct {
	mu     sync.Mutex
	held   map[string]string
	failOn string
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{held: map[string]string{}}
}

func (f *fakeReservations) Reserve(ctx context.Context, bookingID, date string, buckets []string, expiresAt time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "reserve" {
		return nil, errors.New("mongo unavailable")
	}
	var inserted []string
	for _, bucket := range buckets {
		key := model.SlotKey(date, bucket)
		owner, taken := f.held[key]
		if taken && owner == bookingID {
			continue
		}
		if taken {
			for _, k := range inserted {
				delete(f.held, k)
			}
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrSlotTaken, key)
		}
		f.held[key] = bookingID
		inserted = append(inserted, key)
	}
	return inserted, nil
}

func (f *fakeReservations) Release(ctx context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.held, k)
	}
	return nil
}

func (f *fakeReservations) ReleaseForBooking(ctx context.Context, bookingID string, keep []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "release" {
		return errors.New("mongo unavailable")
	}
	for k, owner := range f.held {
		if owner == bookingID && !slices.Contains(keep, k) {
			delete(f.held, k)
		}
	}
	return nil
}

func (f *fakeReservations) keysFor(bookingID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k, owner := range f.held {
		if owner == bookingID {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

func (f *fakeReservations) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.held)
}

type fakeCatalog struct {
	services map[string]*model.Service
}

func (c *fakeCatalog) Resolve(ctx context.Context, req model.ServiceRequest) (*model.Service, error) {
	if svc, ok := c.services[req.ServiceID]; ok && svc.IsActive {
		return svc, nil
	}
	for _, svc := range c.services {
		if svc.IsActive && strings.EqualFold(svc.Name, req.Name) {
			return svc, nil
		}
	}
	return nil, apperrors.NotFound("Service " + req.Name + " not found")
}

type mockPromos struct {
	mock.Mock
}

func (m *mockPromos) Quote(ctx context.Context, code, userID string, orderAmount int64, serviceIDs []string) (int64, error) {
	args := m.Called(ctx, code, userID, orderAmount, serviceIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPromos) Apply(ctx context.Context, code, userID, bookingID string, orderAmount, discountAmount int64, serviceIDs []string) error {
	return m.Called(ctx, code, userID, bookingID, orderAmount, discountAmount, serviceIDs).Error(0)
}

type mockRefunds struct {
	mock.Mock
}

func (m *mockRefunds) Refund(ctx context.Context, req payments.RefundRequest) (*payments.Refund, error) {
	args := m.Called(ctx, req)
	refund, _ := args.Get(0).(*payments.Refund)
	return refund, args.Error(1)
}

type recordedEvent struct {
	Type   string
	ID     string
	Reason string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, eventType string, b *model.Booking, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{Type: eventType, ID: b.ID, Reason: reason})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

var (
	// 2026-03-10 is a Tuesday.
	fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	admin    = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	staff    = model.Actor{ID: "staff-1", Role: model.RoleStaff}
	customer = model.Actor{ID: "cust-1", Role: model.RoleCustomer}
	stranger = model.Actor{ID: "cust-2", Role: model.RoleCustomer}
)

type harness struct {
	svc          *bookingService
	repo         *fakeBookingRepo
	reservations *fakeReservations
	promos       *mockPromos
	refunds      *mockRefunds
	notifier     *recordingNotifier
}

func testConfig() *config.Config {
	return &config.Config{
		Log:                        logger.Discard(),
		BusinessStartHour:          8,
		BusinessEndHour:            18,
		BusinessDays:               []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
		BusinessLocation:           time.UTC,
		CustomerSlotGranularityMin: 30,
		AdminSlotGranularityMin:    60,
		SlotReservationTTL:         48 * time.Hour,
	}
}

func newHarness() *harness {
	h := &harness{
		repo:         newFakeBookingRepo(),
		reservations: newFakeReservations(),
		promos:       new(mockPromos),
		refunds:      new(mockRefunds),
		notifier:     &recordingNotifier{},
	}
	catalog := &fakeCatalog{services: map[string]*model.Service{
		"svc-full": {ID: "svc-full", Name: "Full Detail", Category: model.CategoryFullDetail, BasePrice: 100, Duration: 120, IsActive: true},
		"svc-wax":  {ID: "svc-wax", Name: "Wax", Category: model.CategoryProtection, BasePrice: 4000, VehiclePrices: map[string]int64{"suv": 5000}, Duration: 30, IsActive: true},
		"svc-old":  {ID: "svc-old", Name: "Clay Bar", Category: model.CategoryExterior, BasePrice: 3000, Duration: 30, IsActive: false},
	}}
	cfg := testConfig()
	svc := NewBookingService(h.repo, h.reservations, catalog, h.promos, h.refunds, h.notifier, validator.NewBookingValidator(cfg.Log), cfg).(*bookingService)
	svc.now = func() time.Time { return fixedNow }
	h.svc = svc
	return h
}

func createRequest(services ...model.ServiceRequest) *model.CreateBookingRequest {
	if len(services) == 0 {
		services = []model.ServiceRequest{{Name: "Full Detail", Quantity: 1}}
	}
	return &model.CreateBookingRequest{
		Contact:       model.Contact{Name: "Dana Reyes", Email: "Dana@Example.com"},
		Services:      services,
		ScheduledDate: "2026-03-10",
		ScheduledTime: "10:00",
		Vehicle:       model.Vehicle{Make: "Honda", Model: "Civic", Year: 2020, Color: "Blue", Type: "Sedan"},
		Address:       model.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701"},
	}
}

// seed stores a booking directly, bypassing create.
func (h *harness) seed(status, date, clock string, duration int) *model.Booking {
	b := &model.Booking{
		CustomerID:    customer.ID,
		Contact:       model.Contact{Name: "Dana Reyes", Email: "dana@example.com"},
		Services:      []model.BookedService{{ServiceID: "svc-full", Name: "Full Detail", Quantity: 1, Price: 100, Duration: duration}},
		ScheduledDate: date,
		ScheduledTime: clock,
		Duration:      duration,
		Status:        status,
		Vehicle:       model.Vehicle{Make: "Honda", Model: "Civic", Year: 2020, Color: "Blue", Type: "sedan"},
		Address:       model.Address{Street: "1 Main St", City: "Springfield", State: "IL", Zip: "62701", Country: "US"},
		Frequency:     model.FrequencyOneTime,
	}
	b.RecomputeTotal()
	return h.repo.put(b)
}
