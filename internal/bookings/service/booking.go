package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cardetail/internal/availability"
	bookingserrors "cardetail/internal/bookings/errors"
	"cardetail/internal/bookings/repository"
	"cardetail/internal/bookings/validator"
	"cardetail/internal/payments"
	"cardetail/pkg/config"
	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/locale"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"
	"cardetail/pkg/saga"
	"cardetail/pkg/sanitizer"
	"cardetail/pkg/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingService interface {
	Create(ctx context.Context, req *model.CreateBookingRequest, actor model.Actor) (*model.Booking, error)
	GetByID(ctx context.Context, id string, actor model.Actor) (*model.Booking, error)
	GetAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64, actor model.Actor) ([]*model.Booking, int64, error)
	Update(ctx context.Context, id string, updates *model.BookingUpdate, actor model.Actor) (*model.Booking, error)

	Accept(ctx context.Context, id string, req *model.AcceptBookingRequest, actor model.Actor) (*model.Booking, error)
	Reject(ctx context.Context, id string, reason string, actor model.Actor) (*model.Booking, error)
	Cancel(ctx context.Context, id string, reason string, actor model.Actor) (*model.Booking, error)
	OfferReschedule(ctx context.Context, id string, actor model.Actor) (*model.Booking, error)
	Reschedule(ctx context.Context, id string, req *model.RescheduleRequest, actor model.Actor) (*model.Booking, error)
	Start(ctx context.Context, id string, actor model.Actor) (*model.Booking, error)
	Complete(ctx context.Context, id string, req *model.CompleteBookingRequest, actor model.Actor) (*model.Booking, error)
	MarkNoShow(ctx context.Context, id string, actor model.Actor) (*model.Booking, error)
	AddReview(ctx context.Context, id string, req *model.ReviewRequest, actor model.Actor) (*model.Booking, error)
	AddNote(ctx context.Context, id string, req *model.NoteRequest, actor model.Actor) (*model.Booking, error)
	RecordPayment(ctx context.Context, id string, req *model.PaymentRequest, actor model.Actor) (*model.Booking, error)

	AvailableSlots(ctx context.Context, date string, duration int) ([]string, error)
	SlotGrid(ctx context.Context, date string, duration int, excludeID string, actor model.Actor) ([]availability.Slot, error)
	Stats(ctx context.Context, from, to string, actor model.Actor) (*model.BookingStats, error)
}

// ServiceResolver looks up the catalog entry a booking line refers to.
type ServiceResolver interface {
	Resolve(ctx context.Context, req model.ServiceRequest) (*model.Service, error)
}

// PromoApplier quotes a discount before the booking exists and records the
// usage once it does.
type PromoApplier interface {
	Quote(ctx context.Context, code, userID string, orderAmount int64, serviceIDs []string) (int64, error)
	Apply(ctx context.Context, code, userID, bookingID string, orderAmount, discountAmount int64, serviceIDs []string) error
}

// Notifier sends lifecycle events without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, eventType string, b *model.Booking, reason string)
}

type bookingService struct {
	repo           repository.BookingRepository
	reservations   repository.SlotReservationRepository
	catalog        ServiceResolver
	promos         PromoApplier
	refunds        payments.RefundProvider
	notifier       Notifier
	validator      *validator.BookingValidator
	customerSlots  *availability.Calculator
	adminSlots     *availability.Calculator
	loc            *time.Location
	reservationTTL time.Duration
	phoneRegion    string
	log            *logger.Logger
	now            func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	reservations repository.SlotReservationRepository,
	catalog ServiceResolver,
	promos PromoApplier,
	refunds payments.RefundProvider,
	notifier Notifier,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	hours := availability.BusinessHours{
		StartHour: cfg.BusinessStartHour,
		EndHour:   cfg.BusinessEndHour,
		Days:      cfg.BusinessDays,
	}
	loc := cfg.BusinessLocation
	if loc == nil {
		loc = time.UTC
	}
	return &bookingService{
		repo:           repo,
		reservations:   reservations,
		catalog:        catalog,
		promos:         promos,
		refunds:        refunds,
		notifier:       notifier,
		validator:      validator,
		customerSlots:  availability.NewCalculator(hours, cfg.CustomerSlotGranularityMin),
		adminSlots:     availability.NewCalculator(hours, cfg.AdminSlotGranularityMin),
		loc:            loc,
		reservationTTL: cfg.SlotReservationTTL,
		phoneRegion:    locale.DetectRegion(loc.String()),
		log:            cfg.Log,
		now:            time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, req *model.CreateBookingRequest, actor model.Actor) (*model.Booking, error) {
	if !actor.IsOperator() {
		if req.CustomerID != "" && req.CustomerID != actor.ID {
			return nil, apperrors.Forbidden("Customers can only book for themselves")
		}
		req.CustomerID = actor.ID
	}

	s.sanitizeRequest(req)
	if err := s.validator.ValidateCreate(req); err != nil {
		s.log.Warn("Booking request validation failed", "customer_id", req.CustomerID, "error", err)
		return nil, validation.AsAppError(err)
	}

	booking := &model.Booking{
		ID:                  primitive.NewObjectID().Hex(),
		CustomerID:          req.CustomerID,
		Contact:             req.Contact,
		ScheduledDate:       req.ScheduledDate,
		ScheduledTime:       req.ScheduledTime,
		Status:              model.BookingStatusPending,
		Vehicle:             req.Vehicle,
		Address:             req.Address,
		Frequency:           req.Frequency,
		SpecialInstructions: req.SpecialInstructions,
		PromoCode:           req.PromoCode,
		Notes:               []model.Note{},
	}
	applyDefaults(booking)

	day, err := model.ParseDate(booking.ScheduledDate, s.loc)
	if err != nil {
		return nil, validation.Field("ScheduledDate", err.Error()).AppError()
	}

	services, err := s.priceServices(ctx, req.Services, booking.Vehicle.Type, day)
	if err != nil {
		return nil, err
	}
	booking.Services = services
	booking.Duration = booking.TotalDuration()
	if booking.Duration <= 0 {
		return nil, validation.Field("Services", "Selected services have no duration").AppError()
	}

	if err := s.ensureFuture(booking); err != nil {
		return nil, err
	}
	if err := s.ensureSlotFree(ctx, booking, booking.ScheduledDate, booking.ScheduledTime, booking.Duration); err != nil {
		return nil, err
	}

	if booking.PromoCode != "" {
		discount, err := s.promos.Quote(ctx, booking.PromoCode, booking.CustomerID, booking.Subtotal(), booking.ServiceIDs())
		if err != nil {
			return nil, err
		}
		booking.DiscountAmount = discount
	}
	booking.RecomputeTotal()

	if err := s.validate(booking); err != nil {
		return nil, err
	}

	var reserved []string
	flow := saga.New("create-booking", s.log).
		Then("reserve-slot",
			func(ctx context.Context) error {
				keys, err := s.reserve(ctx, booking, booking.ScheduledDate, booking.ScheduledTime, booking.Duration)
				reserved = keys
				return err
			},
			func(ctx context.Context) error {
				return s.reservations.Release(ctx, reserved)
			}).
		Then("insert-booking",
			func(ctx context.Context) error {
				return s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
					return s.insertWithPromo(ctx, booking)
				})
			}, nil)

	if err := flow.Run(ctx); err != nil {
		return nil, s.sagaError(err, "Failed to create booking", booking.ID)
	}

	s.log.Info("Booking created",
		"id", booking.ID,
		"customer_id", booking.CustomerID,
		"scheduled_date", booking.ScheduledDate,
		"scheduled_time", booking.ScheduledTime,
		"duration", booking.Duration,
		"total_amount", booking.TotalAmount,
	)
	s.notifier.Notify(ctx, model.EventBookingCreated, booking, "")
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string, actor model.Actor) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwnerOrOperator(booking, actor); err != nil {
		return nil, err
	}
	s.decorate(booking)
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, filter model.BookingFilter, limit int, offset int64, actor model.Actor) ([]*model.Booking, int64, error) {
	if !actor.IsOperator() {
		if filter.CustomerID != "" && filter.CustomerID != actor.ID {
			return nil, 0, apperrors.Forbidden("Customers can only list their own bookings")
		}
		filter.CustomerID = actor.ID
	}
	if err := s.validateFilter(filter); err != nil {
		return nil, 0, err
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	for _, b := range bookings {
		s.decorate(b)
	}
	return bookings, count, nil
}

func (s *bookingService) Stats(ctx context.Context, from, to string, actor model.Actor) (*model.BookingStats, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can view booking statistics")
	}
	if err := s.validateFilter(model.BookingFilter{DateFrom: from, DateTo: to}); err != nil {
		return nil, err
	}

	stats, err := s.repo.Stats(ctx, from, to)
	if err != nil {
		s.log.Error("Failed to aggregate booking stats", "from", from, "to", to, "error", err)
		return nil, apperrors.Internal("Failed to compute booking statistics", err)
	}
	return stats, nil
}

// --- Helpers ---

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *bookingService) translate(err error, id, message string) error {
	switch {
	case apperrors.IsAppError(err):
		return apperrors.AsAppError(err)
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrConcurrentModification):
		return apperrors.Conflict("Booking was modified by another request, please retry")
	case errors.Is(err, bookingserrors.ErrSlotTaken):
		return apperrors.Conflict("The requested time slot is no longer available")
	default:
		s.log.Error(message, "id", id, "error", err)
		return apperrors.Internal(message, err)
	}
}

// insertWithPromo stores the booking and records the promo usage. Inside a
// Mongo transaction both commit together; without one the insert is undone
// by hand when the promo is refused.
func (s *bookingService) insertWithPromo(ctx context.Context, booking *model.Booking) error {
	if err := s.repo.Create(ctx, booking); err != nil {
		return err
	}
	if booking.PromoCode == "" || booking.DiscountAmount == 0 {
		return nil
	}

	err := s.promos.Apply(ctx, booking.PromoCode, booking.CustomerID, booking.ID,
		booking.Subtotal(), booking.DiscountAmount, booking.ServiceIDs())
	if err == nil {
		return nil
	}
	if delErr := s.repo.Delete(ctx, booking.ID); delErr != nil && !errors.Is(delErr, bookingserrors.ErrNotFound) {
		s.log.Error("Failed to remove booking after promo rejection", "id", booking.ID, "error", delErr)
	}
	return err
}

// sagaError unwraps the failing step so taxonomy errors reach the caller unchanged.
func (s *bookingService) sagaError(err error, message, id string) error {
	var stepErr *saga.StepError
	if errors.As(err, &stepErr) && len(stepErr.CompensationErrors) > 0 {
		s.log.Error("Booking flow left partial state", "id", id, "error", err)
	}
	return s.translate(err, id, message)
}

func (s *bookingService) validate(b *model.Booking) error {
	if err := s.validator.Validate(b); err != nil {
		s.log.Warn("Booking validation failed", "id", b.ID, "error", err)
		return validation.AsAppError(err)
	}
	return nil
}

func (s *bookingService) validateFilter(f model.BookingFilter) error {
	for field, date := range map[string]string{"from": f.DateFrom, "to": f.DateTo} {
		if date == "" {
			continue
		}
		if _, err := model.ParseDate(date, s.loc); err != nil {
			return validation.Field(field, err.Error()).AppError()
		}
	}
	if f.Status != "" {
		switch f.Status {
		case model.BookingStatusPending, model.BookingStatusConfirmed, model.BookingStatusInProgress,
			model.BookingStatusCompleted, model.BookingStatusCancelled, model.BookingStatusNoShow:
		default:
			return apperrors.InvalidInput(fmt.Sprintf("unknown booking status: %s", f.Status))
		}
	}
	return nil
}

// priceServices resolves each requested line against the catalog and prices
// it for the vehicle type on the booking day.
func (s *bookingService) priceServices(ctx context.Context, reqs []model.ServiceRequest, vehicleType string, day time.Time) ([]model.BookedService, error) {
	services := make([]model.BookedService, 0, len(reqs))
	for _, r := range reqs {
		svc, err := s.catalog.Resolve(ctx, r)
		if err != nil {
			return nil, err
		}
		quantity := r.Quantity
		if quantity < 1 {
			quantity = 1
		}
		services = append(services, model.BookedService{
			ServiceID: svc.ID,
			Name:      svc.Name,
			Quantity:  quantity,
			Price:     svc.Price(vehicleType, day),
			Duration:  svc.Duration,
		})
	}
	return services, nil
}

// decorate derives read-time fields.
func (s *bookingService) decorate(b *model.Booking) {
	if !b.Overdue && b.IsOverdue(s.now(), s.loc) {
		b.Overdue = true
	}
}

func applyDefaults(b *model.Booking) {
	if b.Frequency == "" {
		b.Frequency = model.FrequencyOneTime
	}
	if b.Address.Country == "" {
		b.Address.Country = model.DefaultCountry
	}
}

func (s *bookingService) sanitizeRequest(req *model.CreateBookingRequest) {
	req.CustomerID = sanitizer.TrimAndNormalize(req.CustomerID)
	s.sanitizeContact(&req.Contact)
	sanitizeVehicle(&req.Vehicle)
	sanitizeAddress(&req.Address)
	req.SpecialInstructions = sanitizer.NormalizeFreeText(req.SpecialInstructions)
	req.PromoCode = sanitizer.NormalizePromoCode(req.PromoCode)
	for i := range req.Services {
		req.Services[i].ServiceID = sanitizer.TrimAndNormalize(req.Services[i].ServiceID)
		req.Services[i].Name = sanitizer.NormalizeName(req.Services[i].Name)
		if req.Services[i].Quantity == 0 {
			req.Services[i].Quantity = 1
		}
	}
}

// sanitizeContact reads national phone numbers in the business's own region.
func (s *bookingService) sanitizeContact(c *model.Contact) {
	c.Name = sanitizer.NormalizeName(c.Name)
	c.Email = sanitizer.NormalizeEmail(c.Email)
	if c.Phone != "" {
		c.Phone = sanitizer.NormalizePhoneInRegion(c.Phone, s.phoneRegion)
	}
}

func sanitizeVehicle(v *model.Vehicle) {
	v.Make = sanitizer.NormalizeName(v.Make)
	v.Model = sanitizer.NormalizeName(v.Model)
	v.Color = sanitizer.NormalizeName(v.Color)
	v.Type = sanitizer.NormalizeVehicleType(v.Type)
	v.LicensePlate = sanitizer.NormalizePlate(v.LicensePlate)
	v.VIN = sanitizer.NormalizeVIN(v.VIN)
}

func sanitizeAddress(a *model.Address) {
	a.Street = sanitizer.NormalizeName(a.Street)
	a.City = sanitizer.NormalizeName(a.City)
	a.State = sanitizer.NormalizeName(a.State)
	a.Zip = sanitizer.TrimAndNormalize(a.Zip)
	a.Country = sanitizer.NormalizeName(a.Country)
	a.Instructions = sanitizer.NormalizeFreeText(a.Instructions)
}

func authorizeOwnerOrOperator(b *model.Booking, actor model.Actor) error {
	if actor.IsOperator() || b.IsOwnedBy(actor) {
		return nil
	}
	return apperrors.Forbidden("You do not have access to this booking")
}

func requireOperator(actor model.Actor, action string) error {
	if actor.IsOperator() {
		return nil
	}
	return apperrors.Forbidden("Only staff can " + action + " bookings")
}

func requireAdmin(actor model.Actor, action string) error {
	if actor.IsAdmin() {
		return nil
	}
	return apperrors.Forbidden("Only administrators can " + action)
}
