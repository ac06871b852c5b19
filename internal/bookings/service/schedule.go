package service

import (
	"context"
	"fmt"
	"time"

	"cardetail/internal/availability"
	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/model"
	"cardetail/pkg/saga"
	"cardetail/pkg/sanitizer"
	"cardetail/pkg/validation"
)

func (s *bookingService) AvailableSlots(ctx context.Context, date string, duration int) ([]string, error) {
	day, windows, err := s.dayWindows(ctx, date, duration, "")
	if err != nil {
		return nil, err
	}
	return s.customerSlots.AvailableSlots(day, duration, windows), nil
}

func (s *bookingService) SlotGrid(ctx context.Context, date string, duration int, excludeID string, actor model.Actor) ([]availability.Slot, error) {
	if err := requireOperator(actor, "inspect the schedule of"); err != nil {
		return nil, err
	}
	day, windows, err := s.dayWindows(ctx, date, duration, excludeID)
	if err != nil {
		return nil, err
	}
	return s.adminSlots.SlotGrid(day, duration, windows), nil
}

// dayWindows loads the occupied windows for date, skipping excludeID.
func (s *bookingService) dayWindows(ctx context.Context, date string, duration int, excludeID string) (time.Time, []availability.Window, error) {
	day, err := model.ParseDate(date, s.loc)
	if err != nil {
		return time.Time{}, nil, validation.Field("date", err.Error()).AppError()
	}
	if duration <= 0 || duration > model.MinutesPerDay {
		return time.Time{}, nil, validation.Field("duration", "duration must be between 1 and 1440 minutes").AppError()
	}

	bookings, err := s.repo.FindByDate(ctx, date)
	if err != nil {
		s.log.Error("Failed to load bookings for day", "date", date, "error", err)
		return time.Time{}, nil, apperrors.Internal("Failed to load bookings", err)
	}
	return day, availability.BookingWindows(bookings, date, excludeID), nil
}

// ensureSlotFree is the query-time overlap check. The reservation insert
// that follows is what arbitrates concurrent requests, so starts must sit on
// the reservation bucket grid or adjacent bookings would share a bucket.
func (s *bookingService) ensureSlotFree(ctx context.Context, b *model.Booking, date, clock string, duration int) error {
	start, err := model.ParseClock(clock)
	if err != nil {
		return validation.Field("ScheduledTime", err.Error()).AppError()
	}
	if g := s.customerSlots.Granularity(); start%g != 0 {
		return validation.Field("ScheduledTime", fmt.Sprintf("Start time must fall on a %d-minute boundary", g)).AppError()
	}
	day, windows, err := s.dayWindows(ctx, date, duration, b.ID)
	if err != nil {
		return err
	}

	free, reason := s.adminSlots.IsFree(day, start, duration, windows)
	if free {
		return nil
	}
	if reason == availability.ReasonOutsideHours {
		return apperrors.Validation(fmt.Sprintf("%s %s is outside business hours", date, clock), map[string]any{
			"scheduled_date": date,
			"scheduled_time": clock,
		})
	}
	return apperrors.Conflict(fmt.Sprintf("The slot %s %s overlaps an existing booking", date, clock))
}

func (s *bookingService) ensureFuture(b *model.Booking) error {
	start, err := b.StartsAt(s.loc)
	if err != nil {
		return validation.Field("ScheduledDate", err.Error()).AppError()
	}
	if !start.After(s.now()) {
		return validation.Field("ScheduledTime", "Bookings must be scheduled in the future").AppError()
	}
	return nil
}

// reserve claims the customer-granularity buckets covering the window and
// returns the keys this call inserted.
func (s *bookingService) reserve(ctx context.Context, b *model.Booking, date, clock string, duration int) ([]string, error) {
	start, err := model.ParseClock(clock)
	if err != nil {
		return nil, validation.Field("ScheduledTime", err.Error()).AppError()
	}
	day, err := model.ParseDate(date, s.loc)
	if err != nil {
		return nil, validation.Field("ScheduledDate", err.Error()).AppError()
	}

	buckets := availability.Buckets(start, duration, s.customerSlots.Granularity())
	end := day.Add(time.Duration(start+duration) * time.Minute)
	return s.reservations.Reserve(ctx, b.ID, date, buckets, end.Add(s.reservationTTL))
}

func (s *bookingService) bucketKeys(date, clock string, duration int) []string {
	start, err := model.ParseClock(clock)
	if err != nil {
		return nil
	}
	buckets := availability.Buckets(start, duration, s.customerSlots.Granularity())
	keys := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		keys = append(keys, model.SlotKey(date, bucket))
	}
	return keys
}

// move checks and reserves a new window for an existing booking, persists
// the booking via save, then drops reservations the new window no longer covers.
func (s *bookingService) move(ctx context.Context, b *model.Booking, date, clock string, duration int, save func(ctx context.Context) error) error {
	if err := s.ensureSlotFree(ctx, b, date, clock, duration); err != nil {
		return err
	}

	var inserted []string
	flow := saga.New("move-booking", s.log).
		Then("reserve-slot",
			func(ctx context.Context) error {
				keys, err := s.reserve(ctx, b, date, clock, duration)
				inserted = keys
				return err
			},
			func(ctx context.Context) error {
				return s.reservations.Release(ctx, inserted)
			}).
		Then("persist-booking", save, nil)

	if err := flow.Run(ctx); err != nil {
		return s.sagaError(err, "Failed to move booking", b.ID)
	}

	keep := s.bucketKeys(date, clock, duration)
	if err := s.reservations.ReleaseForBooking(ctx, b.ID, keep); err != nil {
		s.log.Warn("Failed to release previous reservations", "id", b.ID, "error", err)
	}
	return nil
}

func (s *bookingService) Reschedule(ctx context.Context, id string, req *model.RescheduleRequest, actor model.Actor) (*model.Booking, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("New schedule is required")
	}
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, validation.AsAppError(err)
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwnerOrOperator(booking, actor); err != nil {
		return nil, err
	}
	if !booking.RescheduleOffered && booking.Status != model.BookingStatusCancelled {
		return nil, apperrors.InvalidState("Booking cannot be rescheduled", booking.Status)
	}
	switch booking.Status {
	case model.BookingStatusPending, model.BookingStatusConfirmed, model.BookingStatusCancelled:
	default:
		return nil, apperrors.InvalidState("Booking cannot be rescheduled", booking.Status)
	}

	candidate := *booking
	candidate.ScheduledDate = req.ScheduledDate
	candidate.ScheduledTime = req.ScheduledTime
	if err := s.ensureFuture(&candidate); err != nil {
		return nil, err
	}

	expected := booking.UpdatedAt
	now := s.now().UTC()
	save := func(ctx context.Context) error {
		if booking.OriginalScheduledDate == "" && booking.OriginalScheduledTime == "" {
			booking.OriginalScheduledDate = booking.ScheduledDate
			booking.OriginalScheduledTime = booking.ScheduledTime
		}
		booking.ScheduledDate = req.ScheduledDate
		booking.ScheduledTime = req.ScheduledTime
		booking.Status = model.BookingStatusPending
		booking.RescheduleAccepted = true
		booking.RescheduleAcceptedAt = &now
		booking.RescheduleOffered = false
		booking.Overdue = false
		return s.persist(ctx, booking, expected)
	}

	if err := s.move(ctx, booking, req.ScheduledDate, req.ScheduledTime, booking.Duration, save); err != nil {
		return nil, err
	}

	s.log.Info("Booking rescheduled",
		"id", booking.ID,
		"scheduled_date", booking.ScheduledDate,
		"scheduled_time", booking.ScheduledTime,
		"original_date", booking.OriginalScheduledDate,
		"original_time", booking.OriginalScheduledTime,
	)
	s.notifier.Notify(ctx, model.EventBookingRescheduled, booking, "")
	return booking, nil
}

func (s *bookingService) Update(ctx context.Context, id string, updates *model.BookingUpdate, actor model.Actor) (*model.Booking, error) {
	if updates == nil {
		return nil, apperrors.InvalidInput("Update body is required")
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, validation.AsAppError(err)
	}
	if updates.AssignedStaff != nil && !actor.IsOperator() {
		return nil, apperrors.Forbidden("Only staff can assign bookings")
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwnerOrOperator(booking, actor); err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusPending && booking.Status != model.BookingStatusConfirmed {
		return nil, apperrors.InvalidState("Only pending or confirmed bookings can be updated", booking.Status)
	}

	expected := booking.UpdatedAt
	previousDuration := booking.Duration
	if err := s.mergeBookingUpdates(ctx, booking, updates); err != nil {
		return nil, err
	}

	save := func(ctx context.Context) error { return s.persist(ctx, booking, expected) }
	if booking.Duration != previousDuration {
		err = s.move(ctx, booking, booking.ScheduledDate, booking.ScheduledTime, booking.Duration, save)
	} else {
		err = save(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking updated", "id", booking.ID, "total_amount", booking.TotalAmount, "duration", booking.Duration)
	return booking, nil
}

func (s *bookingService) mergeBookingUpdates(ctx context.Context, b *model.Booking, u *model.BookingUpdate) error {
	if u.Contact != nil {
		contact := *u.Contact
		s.sanitizeContact(&contact)
		b.Contact = contact
	}
	if u.Vehicle != nil {
		vehicle := *u.Vehicle
		sanitizeVehicle(&vehicle)
		b.Vehicle = vehicle
	}
	if u.Address != nil {
		address := *u.Address
		sanitizeAddress(&address)
		b.Address = address
		applyDefaults(b)
	}
	if u.Frequency != "" {
		b.Frequency = u.Frequency
	}
	if u.SpecialInstructions != nil {
		b.SpecialInstructions = sanitizer.NormalizeFreeText(*u.SpecialInstructions)
	}
	if u.AssignedStaff != nil {
		b.AssignedStaff = sanitizer.TrimAndNormalize(*u.AssignedStaff)
	}

	if u.Services != nil || u.Vehicle != nil {
		requests := u.Services
		if requests == nil {
			requests = make([]model.ServiceRequest, 0, len(b.Services))
			for _, svc := range b.Services {
				requests = append(requests, model.ServiceRequest{ServiceID: svc.ServiceID, Name: svc.Name, Quantity: svc.Quantity})
			}
		}
		day, err := model.ParseDate(b.ScheduledDate, s.loc)
		if err != nil {
			return validation.Field("ScheduledDate", err.Error()).AppError()
		}
		services, err := s.priceServices(ctx, requests, b.Vehicle.Type, day)
		if err != nil {
			return err
		}
		b.Services = services
		b.Duration = b.TotalDuration()
		if b.Duration <= 0 {
			return validation.Field("Services", "Selected services have no duration").AppError()
		}
	}

	b.RecomputeTotal()
	return nil
}
