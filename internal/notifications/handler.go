package notifications

import (
	"context"
	"fmt"

	"cardetail/pkg/kafka"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"
)

// EmailHandler turns booking events into emails. Undecodable payloads are
// permanent failures; mail delivery failures are retried.
type EmailHandler struct {
	mailer        Mailer
	operatorEmail string
	log           *logger.Logger
}

func NewEmailHandler(mailer Mailer, operatorEmail string, log *logger.Logger) *EmailHandler {
	return &EmailHandler{mailer: mailer, operatorEmail: operatorEmail, log: log}
}

func (h *EmailHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var ev model.BookingEvent
	if err := msg.DecodeValue(&ev); err != nil {
		return err
	}
	if ev.Type == "" {
		ev.Type = msg.EventType()
	}
	if ev.BookingID == "" {
		return kafka.NewPermanentError("booking event without booking id", fmt.Errorf("event %s", msg.EventID()))
	}

	email, ok, err := RenderOperatorEmail(ev)
	if err != nil {
		return kafka.NewPermanentError("render operator email", err)
	}
	if ok {
		return h.send(ctx, ev, h.operatorEmail, email)
	}

	email, ok, err = RenderCustomerEmail(ev)
	if err != nil {
		return kafka.NewPermanentError("render customer email", err)
	}
	if !ok {
		h.log.Debug("No email for event", "event_type", ev.Type, "booking_id", ev.BookingID)
		return nil
	}
	return h.send(ctx, ev, ev.CustomerEmail, email)
}

func (h *EmailHandler) send(ctx context.Context, ev model.BookingEvent, to string, email Email) error {
	if to == "" {
		h.log.Warn("Skipping email without recipient", "event_type", ev.Type, "booking_id", ev.BookingID)
		return nil
	}
	if err := h.mailer.Send(ctx, to, email.Subject, email.Body); err != nil {
		return kafka.NewTransientError("send booking email", err)
	}
	h.log.Info("Booking email sent", "event_type", ev.Type, "booking_id", ev.BookingID)
	return nil
}
