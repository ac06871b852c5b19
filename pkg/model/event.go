package model

import "time"

const (
	EventBookingCreated           = "booking.created"
	EventBookingAccepted          = "booking.accepted"
	EventBookingRejected          = "booking.rejected"
	EventBookingCancelled         = "booking.cancelled"
	EventBookingRescheduleOffered = "booking.reschedule_offered"
	EventBookingRescheduled       = "booking.rescheduled"
	EventBookingStarted           = "booking.started"
	EventBookingCompleted         = "booking.completed"
	EventBookingNoShow            = "booking.no_show"
	EventBookingReminder          = "booking.reminder"
	EventBookingRefundFailed      = "booking.refund_failed"
)

// BookingEvent is the payload published on the booking events topic.
type BookingEvent struct {
	Type          string    `json:"type"`
	BookingID     string    `json:"booking_id"`
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Status        string    `json:"status"`
	ScheduledDate string    `json:"scheduled_date"`
	ScheduledTime string    `json:"scheduled_time"`
	Services      []string  `json:"services,omitempty"`
	TotalAmount   int64     `json:"total_amount"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *Booking, reason string) BookingEvent {
	names := make([]string, 0, len(b.Services))
	for _, s := range b.Services {
		names = append(names, s.Name)
	}
	return BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		CustomerID:    b.CustomerID,
		CustomerName:  b.Contact.Name,
		CustomerEmail: b.Contact.Email,
		Status:        b.Status,
		ScheduledDate: b.ScheduledDate,
		ScheduledTime: b.ScheduledTime,
		Services:      names,
		TotalAmount:   b.TotalAmount,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
}
