// Package availability computes free appointment start times for a day.
// All arithmetic is done in minutes since midnight.
package availability

import (
	"slices"
	"time"

	"cardetail/pkg/model"
)

const (
	ReasonBooked           = "Booked"
	ReasonOutsideHours     = "Outside business hours"
	DefaultStartHour       = 8
	DefaultEndHour         = 18
	CustomerGranularityMin = 30
	AdminGranularityMin    = 60
)

type BusinessHours struct {
	StartHour int
	EndHour   int
	Days      []time.Weekday
}

func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		StartHour: DefaultStartHour,
		EndHour:   DefaultEndHour,
		Days: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday,
		},
	}
}

func (h BusinessHours) IsOpen(day time.Weekday) bool {
	return slices.Contains(h.Days, day)
}

func (h BusinessHours) Open() int  { return h.StartHour * 60 }
func (h BusinessHours) Close() int { return h.EndHour * 60 }

// Fits reports whether [start, start+duration) lies within opening hours.
func (h BusinessHours) Fits(start, duration int) bool {
	return start >= h.Open() && start+duration <= h.Close()
}

// Window is a half-open interval [Start, End) in minutes since midnight.
type Window struct {
	Start int
	End   int
}

func (w Window) Overlaps(start, end int) bool {
	return start < w.End && end > w.Start
}

type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Calculator is one instantiation of the slot algorithm at a fixed step.
type Calculator struct {
	hours       BusinessHours
	granularity int
}

func NewCalculator(hours BusinessHours, granularityMin int) *Calculator {
	if granularityMin <= 0 {
		granularityMin = CustomerGranularityMin
	}
	return &Calculator{hours: hours, granularity: granularityMin}
}

func (c *Calculator) Hours() BusinessHours { return c.hours }
func (c *Calculator) Granularity() int     { return c.granularity }

// AvailableSlots returns the HH:MM start times, earliest first, at which a
// booking of the given duration overlaps none of the existing windows and
// ends by closing time. Closed days yield an empty result.
func (c *Calculator) AvailableSlots(date time.Time, duration int, existing []Window) []string {
	slots := []string{}
	for _, slot := range c.SlotGrid(date, duration, existing) {
		if slot.Available {
			slots = append(slots, slot.Time)
		}
	}
	return slots
}

// SlotGrid returns every candidate start time with availability and the
// reason it is unavailable.
func (c *Calculator) SlotGrid(date time.Time, duration int, existing []Window) []Slot {
	grid := []Slot{}
	if !c.hours.IsOpen(date.Weekday()) || duration <= 0 {
		return grid
	}

	for s := c.hours.Open(); s < c.hours.Close(); s += c.granularity {
		e := s + duration
		slot := Slot{Time: model.FormatClock(s), Available: true}
		switch {
		case overlapsAny(existing, s, e):
			slot.Available = false
			slot.Reason = ReasonBooked
		case e > c.hours.Close():
			slot.Available = false
			slot.Reason = ReasonOutsideHours
		}
		grid = append(grid, slot)
	}
	return grid
}

// IsFree checks a single start time against the same rules as the grid,
// independent of granularity.
func (c *Calculator) IsFree(date time.Time, start, duration int, existing []Window) (bool, string) {
	if !c.hours.IsOpen(date.Weekday()) || !c.hours.Fits(start, duration) {
		return false, ReasonOutsideHours
	}
	if overlapsAny(existing, start, start+duration) {
		return false, ReasonBooked
	}
	return true, ""
}

func overlapsAny(windows []Window, start, end int) bool {
	for _, w := range windows {
		if w.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// BookingWindows extracts the occupied windows on date from bookings that
// still hold their slot, skipping excludeID and rows with malformed times.
func BookingWindows(bookings []*model.Booking, date string, excludeID string) []Window {
	windows := make([]Window, 0, len(bookings))
	for _, b := range bookings {
		if b == nil || b.ScheduledDate != date || !b.OccupiesSlot() {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		start, end, err := b.Window()
		if err != nil {
			continue
		}
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows
}

// Buckets lists the granularity-aligned bucket labels covered by
// [start, start+duration). Used as slot reservation keys.
func Buckets(start, duration, granularity int) []string {
	if granularity <= 0 {
		granularity = CustomerGranularityMin
	}
	first := start - start%granularity
	var labels []string
	for b := first; b < start+duration; b += granularity {
		labels = append(labels, model.FormatClock(b))
	}
	return labels
}
