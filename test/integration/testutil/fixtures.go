//go:build integration

package testutil

import (
	"time"

	"cardetail/pkg/model"
)

var (
	Admin    = model.Actor{ID: "admin-it", Role: model.RoleAdmin}
	Staff    = model.Actor{ID: "staff-it", Role: model.RoleStaff}
	Customer = model.Actor{ID: "customer-it", Role: model.RoleCustomer}
	Stranger = model.Actor{ID: "stranger-it", Role: model.RoleCustomer}
)

type ServiceBuilder struct {
	svc model.Service
}

func NewServiceBuilder() *ServiceBuilder {
	return &ServiceBuilder{
		svc: model.Service{
			Name:      "Exterior Wash",
			Category:  model.CategoryExterior,
			BasePrice: 5000,
			Duration:  60,
			IsActive:  true,
		},
	}
}

func (b *ServiceBuilder) WithName(name string) *ServiceBuilder {
	b.svc.Name = name
	return b
}

func (b *ServiceBuilder) WithPrice(price int64) *ServiceBuilder {
	b.svc.BasePrice = price
	return b
}

func (b *ServiceBuilder) WithDuration(minutes int) *ServiceBuilder {
	b.svc.Duration = minutes
	return b
}

func (b *ServiceBuilder) Build() model.Service {
	return b.svc
}

type BookingRequestBuilder struct {
	req model.CreateBookingRequest
}

func NewBookingRequestBuilder(customerID, date, slot string) *BookingRequestBuilder {
	return &BookingRequestBuilder{
		req: model.CreateBookingRequest{
			CustomerID: customerID,
			Contact: model.Contact{
				Name:  "Jordan Reyes",
				Email: "jordan@example.com",
				Phone: "+14155550123",
			},
			ScheduledDate: date,
			ScheduledTime: slot,
			Vehicle: model.Vehicle{
				Make:  "Honda",
				Model: "Civic",
				Year:  2021,
				Color: "Blue",
				Type:  "sedan",
			},
			Address: model.Address{
				Street: "12 Harbor Rd",
				City:   "Springfield",
				State:  "IL",
				Zip:    "62701",
			},
			Frequency: "one-time",
		},
	}
}

func (b *BookingRequestBuilder) WithService(name string, quantity int) *BookingRequestBuilder {
	b.req.Services = append(b.req.Services, model.ServiceRequest{Name: name, Quantity: quantity})
	return b
}

func (b *BookingRequestBuilder) WithPromoCode(code string) *BookingRequestBuilder {
	b.req.PromoCode = code
	return b
}

func (b *BookingRequestBuilder) Build() model.CreateBookingRequest {
	return b.req
}

func NewPercentagePromo(code string, percent int64) model.PromoCode {
	now := time.Now().UTC()
	return model.PromoCode{
		Code:            code,
		Name:            "Integration " + code,
		Type:            model.PromoTypePercentage,
		Value:           percent,
		MaxUsagePerUser: 1,
		IsActive:        true,
		ValidFrom:       now.Add(-time.Hour),
		ValidUntil:      now.AddDate(0, 1, 0),
	}
}

// NextBusinessDate returns the date daysAhead from now in loc, moved past a
// Sunday when it lands on one.
func NextBusinessDate(loc *time.Location, daysAhead int) string {
	d := time.Now().In(loc).AddDate(0, 0, daysAhead)
	if d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(model.DateLayout)
}
