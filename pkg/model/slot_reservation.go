package model

import (
	"fmt"
	"time"
)

// SlotReservation claims one (date, time-bucket) for a booking.
// The _id is the bucket key, so a second claim fails with a duplicate key error.
type SlotReservation struct {
	ID        string    `bson:"_id" json:"id"`
	BookingID string    `bson:"booking_id" json:"booking_id"`
	Date      string    `bson:"date" json:"date"`
	Time      string    `bson:"time" json:"time"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func SlotKey(date, clock string) string {
	return fmt.Sprintf("%s|%s", date, clock)
}
