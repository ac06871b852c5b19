package model

import (
	"time"
)

const (
	BookingStatusPending    = "pending"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusInProgress = "in-progress"
	BookingStatusCompleted  = "completed"
	BookingStatusCancelled  = "cancelled"
	BookingStatusNoShow     = "no-show"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	FrequencyOneTime  = "one-time"
	FrequencyWeekly   = "weekly"
	FrequencyBiWeekly = "bi-weekly"
	FrequencyMonthly  = "monthly"
)

const DefaultCountry = "US"

type Booking struct {
	ID                    string          `json:"id" bson:"_id" validate:"omitempty,mongodb"`
	CustomerID            string          `json:"customer_id" bson:"customer_id" validate:"required,max=64"`
	Contact               Contact         `json:"contact" bson:"contact" validate:"required"`
	Services              []BookedService `json:"services" bson:"services" validate:"required,min=1,max=20,dive"`
	TotalAmount           int64           `json:"total_amount" bson:"total_amount" validate:"min=0"`
	DiscountAmount        int64           `json:"discount_amount" bson:"discount_amount" validate:"min=0"`
	PromoCode             string          `json:"promo_code,omitempty" bson:"promo_code,omitempty" validate:"omitempty,promo_code"`
	ScheduledDate         string          `json:"scheduled_date" bson:"scheduled_date" validate:"required,date_ymd"`
	ScheduledTime         string          `json:"scheduled_time" bson:"scheduled_time" validate:"required,hhmm"`
	Duration              int             `json:"duration" bson:"duration" validate:"required,min=1,max=1440"`
	Status                string          `json:"status" bson:"status" validate:"required,oneof=pending confirmed in-progress completed cancelled no-show"`
	Vehicle               Vehicle         `json:"vehicle" bson:"vehicle" validate:"required"`
	Address               Address         `json:"address" bson:"address" validate:"required"`
	Frequency             string          `json:"frequency" bson:"frequency" validate:"required,oneof=one-time weekly bi-weekly monthly"`
	SpecialInstructions   string          `json:"special_instructions,omitempty" bson:"special_instructions,omitempty" validate:"max=1000"`
	Payment               *Payment        `json:"payment,omitempty" bson:"payment,omitempty"`
	AssignedStaff         string          `json:"assigned_staff,omitempty" bson:"assigned_staff,omitempty"`
	Notes                 []Note          `json:"notes" bson:"notes"`
	CancelledBy           string          `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CancelledAt           *time.Time      `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CancellationReason    string          `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	RescheduleOffered     bool            `json:"reschedule_offered" bson:"reschedule_offered"`
	RescheduleOfferedAt   *time.Time      `json:"reschedule_offered_at,omitempty" bson:"reschedule_offered_at,omitempty"`
	RescheduleAccepted    bool            `json:"reschedule_accepted" bson:"reschedule_accepted"`
	RescheduleAcceptedAt  *time.Time      `json:"reschedule_accepted_at,omitempty" bson:"reschedule_accepted_at,omitempty"`
	OriginalScheduledDate string          `json:"original_scheduled_date,omitempty" bson:"original_scheduled_date,omitempty"`
	OriginalScheduledTime string          `json:"original_scheduled_time,omitempty" bson:"original_scheduled_time,omitempty"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CompletionNotes       string          `json:"completion_notes,omitempty" bson:"completion_notes,omitempty"`
	Rating                int             `json:"rating,omitempty" bson:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Review                string          `json:"review,omitempty" bson:"review,omitempty"`
	ReviewedAt            *time.Time      `json:"reviewed_at,omitempty" bson:"reviewed_at,omitempty"`
	Overdue               bool            `json:"overdue" bson:"overdue"`
	CreatedAt             time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" bson:"updated_at"`
}

type Contact struct {
	Name  string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" bson:"email" validate:"required,email"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,e164"`
}

type BookedService struct {
	ServiceID string `json:"service_id" bson:"service_id" validate:"required"`
	Name      string `json:"name" bson:"name" validate:"required"`
	Quantity  int    `json:"quantity" bson:"quantity" validate:"min=1,max=20"`
	Price     int64  `json:"price" bson:"price" validate:"min=0"`
	Duration  int    `json:"duration" bson:"duration" validate:"min=0"`
}

type Vehicle struct {
	Make         string `json:"make" bson:"make" validate:"required,max=50"`
	Model        string `json:"model" bson:"model" validate:"required,max=50"`
	Year         int    `json:"year" bson:"year" validate:"required,vehicle_year"`
	Color        string `json:"color" bson:"color" validate:"required,max=30"`
	Type         string `json:"type" bson:"type" validate:"required,oneof=sedan suv truck luxury other"`
	LicensePlate string `json:"license_plate,omitempty" bson:"license_plate,omitempty" validate:"omitempty,max=15"`
	VIN          string `json:"vin,omitempty" bson:"vin,omitempty" validate:"omitempty,len=17,alphanum"`
}

type Address struct {
	Street       string `json:"street" bson:"street" validate:"required,max=200"`
	City         string `json:"city" bson:"city" validate:"required,max=100"`
	State        string `json:"state" bson:"state" validate:"required,max=50"`
	Zip          string `json:"zip" bson:"zip" validate:"required,max=20"`
	Country      string `json:"country" bson:"country" validate:"omitempty,max=56"`
	Instructions string `json:"instructions,omitempty" bson:"instructions,omitempty" validate:"max=500"`
}

type Payment struct {
	PaymentIntentID string     `json:"payment_intent_id" bson:"payment_intent_id" validate:"required"`
	CustomerID      string     `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	Status          string     `json:"status" bson:"status" validate:"required,oneof=pending paid failed refunded"`
	RefundID        string     `json:"refund_id,omitempty" bson:"refund_id,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	FailedAt        *time.Time `json:"failed_at,omitempty" bson:"failed_at,omitempty"`
	RefundedAt      *time.Time `json:"refunded_at,omitempty" bson:"refunded_at,omitempty"`
}

type Note struct {
	Author    string    `json:"author" bson:"author"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Subtotal is sum(price × quantity) over the booked services.
func (b *Booking) Subtotal() int64 {
	var sum int64
	for _, s := range b.Services {
		sum += s.Price * int64(s.Quantity)
	}
	return sum
}

// RecomputeTotal clamps the discount to the subtotal and derives TotalAmount.
// Every services mutation must be followed by a call to it.
func (b *Booking) RecomputeTotal() {
	subtotal := b.Subtotal()
	if b.DiscountAmount < 0 {
		b.DiscountAmount = 0
	}
	if b.DiscountAmount > subtotal {
		b.DiscountAmount = subtotal
	}
	b.TotalAmount = subtotal - b.DiscountAmount
}

// TotalDuration sums the per-unit service durations in minutes.
func (b *Booking) TotalDuration() int {
	total := 0
	for _, s := range b.Services {
		total += s.Duration * s.Quantity
	}
	return total
}

func (b *Booking) ServiceIDs() []string {
	ids := make([]string, 0, len(b.Services))
	for _, s := range b.Services {
		ids = append(ids, s.ServiceID)
	}
	return ids
}

// IsFinalized reports completed or cancelled, the states closed to update/cancel/complete.
func (b *Booking) IsFinalized() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}

func (b *Booking) IsTerminal() bool {
	return b.IsFinalized() || b.Status == BookingStatusNoShow
}

// OccupiesSlot reports whether the booking blocks its window for other bookings.
func (b *Booking) OccupiesSlot() bool {
	return b.Status != BookingStatusCancelled && b.Status != BookingStatusNoShow
}

func (b *Booking) HasCapturedPayment() bool {
	return b.Payment != nil && b.Payment.Status == PaymentStatusPaid
}

// Window returns [start, end) in minutes since midnight.
func (b *Booking) Window() (int, int, error) {
	start, err := ParseClock(b.ScheduledTime)
	if err != nil {
		return 0, 0, err
	}
	return start, start + b.Duration, nil
}

// EndTime is the HH:MM label of scheduledTime + duration.
func (b *Booking) EndTime() string {
	_, end, err := b.Window()
	if err != nil {
		return ""
	}
	return FormatClock(end)
}

func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	day, err := ParseDate(b.ScheduledDate, loc)
	if err != nil {
		return time.Time{}, err
	}
	start, err := ParseClock(b.ScheduledTime)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(start) * time.Minute), nil
}

// IsOverdue reports a booking that is still open after its scheduled end.
func (b *Booking) IsOverdue(now time.Time, loc *time.Location) bool {
	if b.IsTerminal() {
		return false
	}
	start, err := b.StartsAt(loc)
	if err != nil {
		return false
	}
	return now.After(start.Add(time.Duration(b.Duration) * time.Minute))
}

func (b *Booking) IsOwnedBy(actor Actor) bool {
	return actor.ID != "" && actor.ID == b.CustomerID
}

// ServiceRequest identifies a catalog service by id or, failing that, by name.
type ServiceRequest struct {
	ServiceID string `json:"service_id,omitempty" validate:"omitempty,max=64"`
	Name      string `json:"name,omitempty" validate:"required_without=ServiceID,max=100"`
	Quantity  int    `json:"quantity" validate:"min=1,max=20"`
}

type CreateBookingRequest struct {
	CustomerID          string           `json:"customer_id" validate:"required,max=64"`
	Contact             Contact          `json:"contact" validate:"required"`
	Services            []ServiceRequest `json:"services" validate:"required,min=1,max=20,dive"`
	ScheduledDate       string           `json:"scheduled_date" validate:"required,date_ymd"`
	ScheduledTime       string           `json:"scheduled_time" validate:"required,hhmm"`
	Vehicle             Vehicle          `json:"vehicle" validate:"required"`
	Address             Address          `json:"address" validate:"required"`
	Frequency           string           `json:"frequency" validate:"omitempty,oneof=one-time weekly bi-weekly monthly"`
	SpecialInstructions string           `json:"special_instructions,omitempty" validate:"max=1000"`
	PromoCode           string           `json:"promo_code,omitempty" validate:"omitempty,promo_code"`
}

type BookingUpdate struct {
	Contact             *Contact         `json:"contact,omitempty" validate:"omitempty"`
	Services            []ServiceRequest `json:"services,omitempty" validate:"omitempty,min=1,max=20,dive"`
	Vehicle             *Vehicle         `json:"vehicle,omitempty" validate:"omitempty"`
	Address             *Address         `json:"address,omitempty" validate:"omitempty"`
	Frequency           string           `json:"frequency,omitempty" validate:"omitempty,oneof=one-time weekly bi-weekly monthly"`
	SpecialInstructions *string          `json:"special_instructions,omitempty" validate:"omitempty,max=1000"`
	AssignedStaff       *string          `json:"assigned_staff,omitempty" validate:"omitempty,max=64"`
}

// BookingFilter narrows list queries. Empty fields are ignored.
type BookingFilter struct {
	CustomerID string
	Status     string
	DateFrom   string
	DateTo     string
}

type BookingStats struct {
	From     string           `json:"from,omitempty"`
	To       string           `json:"to,omitempty"`
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	Revenue  int64            `json:"revenue"`
}
