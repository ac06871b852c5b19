package model

type AcceptBookingRequest struct {
	AssignedStaff string `json:"assigned_staff,omitempty" validate:"omitempty,max=64"`
	Notes         string `json:"notes,omitempty" validate:"max=2000"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RescheduleRequest struct {
	ScheduledDate string `json:"scheduled_date" validate:"required,date_ymd"`
	ScheduledTime string `json:"scheduled_time" validate:"required,hhmm"`
}

type CompleteBookingRequest struct {
	CompletionNotes string `json:"completion_notes,omitempty" validate:"max=2000"`
}

type ReviewRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review,omitempty" validate:"max=2000"`
}

type NoteRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type PaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required,max=128"`
	CustomerID      string `json:"customer_id,omitempty" validate:"max=128"`
	Status          string `json:"status" validate:"required,oneof=pending paid failed refunded"`
}
