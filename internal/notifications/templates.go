package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"cardetail/pkg/model"
)

type Email struct {
	Subject string
	Body    string
}

const emailTemplates = `
{{define "greeting"}}<p>Hi {{greetName .CustomerName}},</p>{{end}}
{{define "when"}}{{.ScheduledDate}} at {{.ScheduledTime}}{{end}}
{{define "services"}}{{if .Services}}<ul>{{range .Services}}<li>{{.}}</li>{{end}}</ul>{{end}}{{end}}
{{define "reason"}}{{with .Reason}}<p>Reason: {{.}}</p>{{end}}{{end}}

{{define "booking.created"}}{{template "greeting" .}}<p>Your detailing appointment for {{template "when" .}} is pending confirmation.</p>{{template "services" .}}<p>Total: {{amount .TotalAmount}}</p>{{end}}
{{define "booking.accepted"}}{{template "greeting" .}}<p>Your appointment on {{template "when" .}} is confirmed. See you then!</p>{{end}}
{{define "booking.rejected"}}{{template "greeting" .}}<p>Unfortunately we cannot take the appointment on {{template "when" .}}.</p>{{template "reason" .}}{{end}}
{{define "booking.cancelled"}}{{template "greeting" .}}<p>Your appointment on {{template "when" .}} has been cancelled.</p>{{template "reason" .}}{{end}}
{{define "booking.reschedule_offered"}}{{template "greeting" .}}<p>We need to move your appointment on {{template "when" .}}. Please choose another slot from your booking page.</p>{{template "reason" .}}{{end}}
{{define "booking.rescheduled"}}{{template "greeting" .}}<p>Your appointment is now on {{template "when" .}}.</p>{{end}}
{{define "booking.completed"}}{{template "greeting" .}}<p>Your detailing is complete. We would love to hear how we did.</p>{{end}}
{{define "booking.reminder"}}{{template "greeting" .}}<p>This is a reminder of your appointment on {{template "when" .}}.</p>{{template "services" .}}{{end}}

{{define "booking.refund_failed"}}<p>The refund of {{amount .TotalAmount}} for booking {{.BookingID}} (customer {{.CustomerID}}) failed and needs manual handling.</p>{{template "reason" .}}{{end}}
`

var templates = template.Must(template.New("emails").Funcs(template.FuncMap{
	"amount":    formatAmount,
	"greetName": greetName,
}).Parse(emailTemplates))

var customerSubjects = map[string]string{
	model.EventBookingCreated:           "We received your booking request",
	model.EventBookingAccepted:          "Your booking is confirmed",
	model.EventBookingRejected:          "We could not accept your booking",
	model.EventBookingCancelled:         "Your booking was cancelled",
	model.EventBookingRescheduleOffered: "Please pick a new time for your booking",
	model.EventBookingRescheduled:       "Your booking was rescheduled",
	model.EventBookingCompleted:         "Thanks for choosing us",
	model.EventBookingReminder:          "Reminder: your detailing appointment is tomorrow",
}

func formatAmount(minor int64) string {
	return fmt.Sprintf("$%d.%02d", minor/100, minor%100)
}

func greetName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "there"
	}
	return name
}

func render(name string, ev model.BookingEvent) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, ev); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}

// RenderCustomerEmail returns the customer-facing email for an event.
// Events with no customer email template return false.
func RenderCustomerEmail(ev model.BookingEvent) (Email, bool, error) {
	subject, ok := customerSubjects[ev.Type]
	if !ok {
		return Email{}, false, nil
	}
	body, err := render(ev.Type, ev)
	if err != nil {
		return Email{}, true, err
	}
	return Email{Subject: subject, Body: body}, true, nil
}

// RenderOperatorEmail covers events that need staff attention.
func RenderOperatorEmail(ev model.BookingEvent) (Email, bool, error) {
	if ev.Type != model.EventBookingRefundFailed {
		return Email{}, false, nil
	}
	body, err := render(ev.Type, ev)
	if err != nil {
		return Email{}, true, err
	}
	return Email{Subject: "Refund failed for booking " + ev.BookingID, Body: body}, true, nil
}
