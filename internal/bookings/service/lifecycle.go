package service

import (
	"context"
	"strings"
	"time"

	"cardetail/internal/payments"
	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/model"
	"cardetail/pkg/sanitizer"
	"cardetail/pkg/validation"
)

// mutation changes a loaded booking in place or rejects the transition.
type mutation func(b *model.Booking, now time.Time) error

// transition loads the booking, applies mutate and saves it conditionally on
// the version that was read.
func (s *bookingService) transition(ctx context.Context, id string, authorize func(*model.Booking) error, mutate mutation) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if authorize != nil {
		if err := authorize(booking); err != nil {
			return nil, err
		}
	}

	expected := booking.UpdatedAt
	if err := mutate(booking, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, booking, expected); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) persist(ctx context.Context, booking *model.Booking, expected time.Time) error {
	booking.RecomputeTotal()
	if booking.IsTerminal() {
		booking.Overdue = false
	}
	if err := s.validate(booking); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, booking, expected); err != nil {
		return s.translate(err, booking.ID, "Failed to update booking")
	}
	return nil
}

func (s *bookingService) Accept(ctx context.Context, id string, req *model.AcceptBookingRequest, actor model.Actor) (*model.Booking, error) {
	if err := requireOperator(actor, "accept"); err != nil {
		return nil, err
	}
	if req == nil {
		req = &model.AcceptBookingRequest{}
	}
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, validation.AsAppError(err)
	}

	booking, err := s.transition(ctx, id, nil, func(b *model.Booking, now time.Time) error {
		if b.Status != model.BookingStatusPending {
			return apperrors.InvalidState("Only pending bookings can be accepted", b.Status)
		}
		b.Status = model.BookingStatusConfirmed
		if staff := sanitizer.TrimAndNormalize(req.AssignedStaff); staff != "" {
			b.AssignedStaff = staff
		}
		if notes := sanitizer.NormalizeFreeText(req.Notes); notes != "" {
			b.Notes = append(b.Notes, model.Note{Author: actor.ID, Content: notes, CreatedAt: now})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking accepted", "id", booking.ID, "assigned_staff", booking.AssignedStaff, "actor", actor.ID)
	s.notifier.Notify(ctx, model.EventBookingAccepted, booking, "")
	return booking, nil
}

func (s *bookingService) Reject(ctx context.Context, id string, reason string, actor model.Actor) (*model.Booking, error) {
	if err := requireOperator(actor, "reject"); err != nil {
		return nil, err
	}
	return s.cancel(ctx, id, reason, actor, nil, model.EventBookingRejected)
}

func (s *bookingService) Cancel(ctx context.Context, id string, reason string, actor model.Actor) (*model.Booking, error) {
	authorize := func(b *model.Booking) error { return authorizeOwnerOrOperator(b, actor) }
	return s.cancel(ctx, id, reason, actor, authorize, model.EventBookingCancelled)
}

// cancel persists the cancellation, then frees the slot. Releasing and
// refunding run afterwards and never undo the cancellation; reservations
// left behind expire on their TTL.
func (s *bookingService) cancel(ctx context.Context, id, reason string, actor model.Actor, authorize func(*model.Booking) error, eventType string) (*model.Booking, error) {
	reason = sanitizer.NormalizeFreeText(reason)
	if err := s.validator.ValidateRequest(&model.CancelBookingRequest{Reason: reason}); err != nil {
		return nil, validation.AsAppError(err)
	}

	booking, err := s.transition(ctx, id, authorize, func(b *model.Booking, now time.Time) error {
		if b.IsTerminal() {
			return apperrors.InvalidState("Booking can no longer be cancelled", b.Status)
		}
		b.Status = model.BookingStatusCancelled
		b.CancelledBy = actor.ID
		b.CancelledAt = &now
		b.CancellationReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.reservations.ReleaseForBooking(ctx, booking.ID, nil); err != nil {
		s.log.Warn("Failed to release reservations after cancellation", "id", booking.ID, "error", err)
	}

	s.log.Info("Booking cancelled",
		"id", booking.ID,
		"event", eventType,
		"cancelled_by", actor.ID,
		"reason", reason,
	)
	s.notifier.Notify(ctx, eventType, booking, reason)

	if booking.HasCapturedPayment() {
		s.refund(ctx, booking, reason)
	}
	return booking, nil
}

// refund is best-effort: a failure is logged and announced, the booking stays cancelled.
func (s *bookingService) refund(ctx context.Context, booking *model.Booking, reason string) {
	if booking.TotalAmount <= 0 {
		return
	}
	refund, err := s.refunds.Refund(ctx, payments.RefundRequest{
		PaymentID: booking.Payment.PaymentIntentID,
		BookingID: booking.ID,
		Amount:    booking.TotalAmount,
		Reason:    reason,
	})
	if err != nil {
		s.log.Warn("Refund failed, booking stays cancelled", "id", booking.ID, "payment_intent_id", booking.Payment.PaymentIntentID, "error", err)
		s.notifier.Notify(ctx, model.EventBookingRefundFailed, booking, err.Error())
		return
	}

	expected := booking.UpdatedAt
	previous := *booking.Payment
	refundedAt := s.now().UTC()
	booking.Payment.Status = model.PaymentStatusRefunded
	booking.Payment.RefundID = refund.ID
	booking.Payment.RefundedAt = &refundedAt
	if err := s.persist(context.WithoutCancel(ctx), booking, expected); err != nil {
		*booking.Payment = previous
		s.log.Error("Refund issued but not recorded", "id", booking.ID, "refund_id", refund.ID, "error", err)
		return
	}
	s.log.Info("Booking refunded", "id", booking.ID, "refund_id", refund.ID, "amount", refund.Amount)
}

func (s *bookingService) OfferReschedule(ctx context.Context, id string, actor model.Actor) (*model.Booking, error) {
	if err := requireAdmin(actor, "offer a reschedule"); err != nil {
		return nil, err
	}

	booking, err := s.transition(ctx, id, nil, func(b *model.Booking, now time.Time) error {
		switch b.Status {
		case model.BookingStatusPending, model.BookingStatusConfirmed, model.BookingStatusCancelled:
		default:
			return apperrors.InvalidState("Reschedule cannot be offered for this booking", b.Status)
		}
		b.RescheduleOffered = true
		b.RescheduleOfferedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Reschedule offered", "id", booking.ID, "actor", actor.ID)
	s.notifier.Notify(ctx, model.EventBookingRescheduleOffered, booking, booking.CancellationReason)
	return booking, nil
}

func (s *bookingService) Start(ctx context.Context, id string, actor model.Actor) (*model.Booking, error) {
	if err := requireOperator(actor, "start"); err != nil {
		return nil, err
	}

	booking, err := s.transition(ctx, id, nil, func(b *model.Booking, now time.Time) error {
		if b.Status != model.BookingStatusConfirmed {
			return apperrors.InvalidState("Only confirmed bookings can be started", b.Status)
		}
		b.Status = model.BookingStatusInProgress
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking started", "id", booking.ID, "actor", actor.ID)
	s.notifier.Notify(ctx, model.EventBookingStarted, booking, "")
	return booking, nil
}

func (s *bookingService) Complete(ctx context.Context, id string, req *model.CompleteBookingRequest, actor model.Actor) (*model.Booking, error) {
	if err := requireOperator(actor, "complete"); err != nil {
		return nil, err
	}
	if req == nil {
		req = &model.CompleteBookingRequest{}
	}
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, validation.AsAppError(err)
	}

	booking, err := s.transition(ctx, id, nil, func(b *model.Booking, now time.Time) error {
		if b.Status != model.BookingStatusConfirmed && b.Status != model.BookingStatusInProgress {
			return apperrors.InvalidState("Only confirmed or in-progress bookings can be completed", b.Status)
		}
		b.Status = model.BookingStatusCompleted
		b.CompletedAt = &now
		b.CompletionNotes = sanitizer.NormalizeFreeText(req.CompletionNotes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking completed", "id", booking.ID, "actor", actor.ID)
	s.notifier.Notify(ctx, model.EventBookingCompleted, booking, "")
	return booking, nil
}

func (s *bookingService) MarkNoShow(ctx context.Context, id string, actor model.Actor) (*model.Booking, error) {
	if err := requireOperator(actor, "mark no-show on"); err != nil {
		return nil, err
	}

	booking, err := s.transition(ctx, id, nil, func(b *model.Booking, now time.Time) error {
		if b.Status != model.BookingStatusConfirmed {
			return apperrors.InvalidState("Only confirmed bookings can be marked as no-show", b.Status)
		}
		b.Status = model.BookingStatusNoShow
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.reservations.ReleaseForBooking(ctx, booking.ID, nil); err != nil {
		s.log.Warn("Failed to release reservations after no-show", "id", booking.ID, "error", err)
	}
	s.log.Info("Booking marked as no-show", "id", booking.ID, "actor", actor.ID)
	s.notifier.Notify(ctx, model.EventBookingNoShow, booking, "")
	return booking, nil
}

func (s *bookingService) AddReview(ctx context.Context, id string, req *model.ReviewRequest, actor model.Actor) (*model.Booking, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Review is required")
	}
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, validation.AsAppError(err)
	}

	authorize := func(b *model.Booking) error {
		if b.IsOwnedBy(actor) || actor.IsAdmin() {
			return nil
		}
		return apperrors.Forbidden("Only the customer can review this booking")
	}
	booking, err := s.transition(ctx, id, authorize, func(b *model.Booking, now time.Time) error {
		if b.Status != model.BookingStatusCompleted {
			return apperrors.InvalidState("Booking must be completed before it can be reviewed", b.Status)
		}
		if b.Rating != 0 {
			return apperrors.InvalidState("Booking already reviewed", b.Status)
		}
		b.Rating = req.Rating
		b.Review = sanitizer.NormalizeFreeText(req.Review)
		b.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking reviewed", "id", booking.ID, "rating", booking.Rating)
	return booking, nil
}

func (s *bookingService) AddNote(ctx context.Context, id string, req *model.NoteRequest, actor model.Actor) (*model.Booking, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Note is required")
	}
	req.Content = sanitizer.NormalizeFreeText(req.Content)
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

	note := model.Note{Author: actor.ID, Content: req.Content, CreatedAt: s.now().UTC().Truncate(time.Millisecond)}
	if err := s.repo.AddNote(ctx, booking.ID, note); err != nil {
		return nil, s.translate(err, id, "Failed to add note")
	}
	booking.Notes = append(booking.Notes, note)

	s.log.Info("Booking note added", "id", booking.ID, "author", actor.ID)
	return booking, nil
}

func (s *bookingService) RecordPayment(ctx context.Context, id string, req *model.PaymentRequest, actor model.Actor) (*model.Booking, error) {
	if err := requireAdmin(actor, "record payments"); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.InvalidInput("Payment is required")
	}
	req.PaymentIntentID = strings.TrimSpace(req.PaymentIntentID)
	req.Status = sanitizer.NormalizeKeyword(req.Status)
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, validation.AsAppError(err)
	}

	booking, err := s.transition(ctx, id, nil, func(b *model.Booking, now time.Time) error {
		payment := b.Payment
		if payment == nil || payment.PaymentIntentID != req.PaymentIntentID {
			payment = &model.Payment{PaymentIntentID: req.PaymentIntentID}
		}
		if req.CustomerID != "" {
			payment.CustomerID = req.CustomerID
		}
		payment.Status = req.Status
		switch req.Status {
		case model.PaymentStatusPaid:
			payment.PaidAt = &now
		case model.PaymentStatusFailed:
			payment.FailedAt = &now
		case model.PaymentStatusRefunded:
			payment.RefundedAt = &now
		}
		b.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking payment recorded", "id", booking.ID, "payment_intent_id", req.PaymentIntentID, "status", req.Status)
	return booking, nil
}
