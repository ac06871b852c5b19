package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cardetail/pkg/config"
	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/kafka"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Publish(ctx context.Context, msg kafka.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event model.BookingEvent) error {
	return m.Called(ctx, event).Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(msgs ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msgs...)
	return nil
}

func sampleBooking() *model.Booking {
	return &model.Booking{
		ID:            "652f1c2a9b1e8a0012345678",
		CustomerID:    "cust-1",
		Contact:       model.Contact{Name: "Dana <script>", Email: "dana@example.com"},
		Services:      []model.BookedService{{Name: "Full Detail", Price: 15000, Quantity: 1}},
		Status:        model.BookingStatusConfirmed,
		ScheduledDate: "2026-03-10",
		ScheduledTime: "09:00",
		TotalAmount:   15000,
	}
}

func TestKafkaPublisher_BuildsKeyedMessage(t *testing.T) {
	producer := new(mockProducer)
	producer.On("Publish", mock.Anything, mock.MatchedBy(func(msg kafka.Message) bool {
		var ev model.BookingEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return false
		}
		return msg.Key == "652f1c2a9b1e8a0012345678" &&
			msg.EventType() == model.EventBookingAccepted &&
			msg.Headers[kafka.HeaderSource] == EventSource &&
			msg.EventID() != "" &&
			ev.CustomerEmail == "dana@example.com"
	})).Return(nil)

	pub := NewKafkaPublisher(producer, logger.Discard())
	err := pub.Publish(context.Background(), model.NewBookingEvent(model.EventBookingAccepted, sampleBooking(), ""))

	require.NoError(t, err)
	producer.AssertExpectations(t)
}

func TestKafkaPublisher_WrapsProducerError(t *testing.T) {
	producer := new(mockProducer)
	producer.On("Publish", mock.Anything, mock.Anything).Return(kafka.ErrProducerClosed)

	pub := NewKafkaPublisher(producer, logger.Discard())
	err := pub.Publish(context.Background(), model.NewBookingEvent(model.EventBookingCreated, sampleBooking(), ""))

	assert.ErrorIs(t, err, kafka.ErrProducerClosed)
}

func TestDispatcher_SwallowsFailures(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(ev model.BookingEvent) bool {
		return ev.Type == model.EventBookingCancelled && ev.Reason == "weather"
	})).Return(errors.New("broker down")).Once()

	d := NewDispatcher(pub, 0, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, model.EventBookingCancelled, sampleBooking(), "weather")
	cancel()
	d.Wait()

	pub.AssertExpectations(t)
}

func TestSMTPMailer(t *testing.T) {
	d := &fakeDialer{}
	m := &SMTPMailer{dialer: d, from: "bookings@example.com", log: logger.Discard()}

	require.NoError(t, m.Send(context.Background(), "dana@example.com", "Hello", "<p>hi</p>"))
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"dana@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"bookings@example.com"}, d.sent[0].GetHeader("From"))

	d.err = errors.New("535 auth failed")
	err := m.Send(context.Background(), "dana@example.com", "Hello", "<p>hi</p>")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstreamFailure))
}

func TestRenderCustomerEmail(t *testing.T) {
	ev := model.NewBookingEvent(model.EventBookingCreated, sampleBooking(), "")

	email, ok, err := RenderCustomerEmail(ev)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "We received your booking request", email.Subject)
	assert.Contains(t, email.Body, "2026-03-10 at 09:00")
	assert.Contains(t, email.Body, "$150.00")
	assert.Contains(t, email.Body, "<li>Full Detail</li>")
	assert.Contains(t, email.Body, "Dana &lt;script&gt;")
	assert.NotContains(t, email.Body, "<script>")

	_, ok, err = RenderCustomerEmail(model.NewBookingEvent(model.EventBookingRefundFailed, sampleBooking(), ""))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenderCustomerEmail_EveryEventEscapesInput(t *testing.T) {
	events := []string{
		model.EventBookingCreated,
		model.EventBookingAccepted,
		model.EventBookingRejected,
		model.EventBookingCancelled,
		model.EventBookingRescheduleOffered,
		model.EventBookingRescheduled,
		model.EventBookingCompleted,
		model.EventBookingReminder,
	}

	for _, eventType := range events {
		t.Run(eventType, func(t *testing.T) {
			b := sampleBooking()
			b.Services[0].Name = "Wax <b>"
			ev := model.NewBookingEvent(eventType, b, "<img src=x>")

			email, ok, err := RenderCustomerEmail(ev)

			require.NoError(t, err)
			require.True(t, ok)
			assert.NotEmpty(t, email.Subject)
			assert.Contains(t, email.Body, "Hi Dana &lt;script&gt;,")
			assert.NotContains(t, email.Body, "<script>")
			assert.NotContains(t, email.Body, "<img")
			assert.NotContains(t, email.Body, "<b>")
		})
	}
}

func TestRenderCustomerEmail_GreetsAnonymousCustomer(t *testing.T) {
	b := sampleBooking()
	b.Contact.Name = "  "

	email, _, err := RenderCustomerEmail(model.NewBookingEvent(model.EventBookingAccepted, b, ""))

	require.NoError(t, err)
	assert.Contains(t, email.Body, "<p>Hi there,</p>")
}

func TestRenderOperatorEmail(t *testing.T) {
	ev := model.NewBookingEvent(model.EventBookingRefundFailed, sampleBooking(), "card <expired>")

	email, ok, err := RenderOperatorEmail(ev)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Refund failed for booking 652f1c2a9b1e8a0012345678", email.Subject)
	assert.Contains(t, email.Body, "$150.00")
	assert.Contains(t, email.Body, "customer cust-1")
	assert.Contains(t, email.Body, "Reason: card &lt;expired&gt;")

	_, ok, err = RenderOperatorEmail(model.NewBookingEvent(model.EventBookingCreated, sampleBooking(), ""))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$0.05", formatAmount(5))
	assert.Equal(t, "$1234.50", formatAmount(123450))
}

func eventMessage(t *testing.T, ev model.BookingEvent) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().WithKey(ev.BookingID).WithValue(ev).WithEventType(ev.Type).Build()
	require.NoError(t, err)
	return msg
}

func TestEmailHandler(t *testing.T) {
	t.Run("customer email", func(t *testing.T) {
		mailer := new(mockMailer)
		mailer.On("Send", mock.Anything, "dana@example.com", "Your booking is confirmed", mock.Anything).Return(nil)

		h := NewEmailHandler(mailer, "ops@example.com", logger.Discard())
		err := h.Handle(context.Background(), eventMessage(t, model.NewBookingEvent(model.EventBookingAccepted, sampleBooking(), "")))

		require.NoError(t, err)
		mailer.AssertExpectations(t)
	})

	t.Run("refund failure goes to operators", func(t *testing.T) {
		mailer := new(mockMailer)
		mailer.On("Send", mock.Anything, "ops@example.com", mock.MatchedBy(func(subject string) bool {
			return strings.HasPrefix(subject, "Refund failed")
		}), mock.Anything).Return(nil)

		h := NewEmailHandler(mailer, "ops@example.com", logger.Discard())
		err := h.Handle(context.Background(), eventMessage(t, model.NewBookingEvent(model.EventBookingRefundFailed, sampleBooking(), "card expired")))

		require.NoError(t, err)
		mailer.AssertExpectations(t)
	})

	t.Run("events without template are acknowledged", func(t *testing.T) {
		mailer := new(mockMailer)
		h := NewEmailHandler(mailer, "ops@example.com", logger.Discard())

		err := h.Handle(context.Background(), eventMessage(t, model.NewBookingEvent(model.EventBookingStarted, sampleBooking(), "")))

		require.NoError(t, err)
		mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("smtp failure is transient", func(t *testing.T) {
		mailer := new(mockMailer)
		mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

		h := NewEmailHandler(mailer, "ops@example.com", logger.Discard())
		err := h.Handle(context.Background(), eventMessage(t, model.NewBookingEvent(model.EventBookingAccepted, sampleBooking(), "")))

		assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))
	})

	t.Run("garbage payload is permanent", func(t *testing.T) {
		h := NewEmailHandler(new(mockMailer), "ops@example.com", logger.Discard())

		err := h.Handle(context.Background(), kafka.Message{Key: "x", Value: []byte("{not json")})

		assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
	})
}

func TestNewPublisherFromConfig_Disabled(t *testing.T) {
	publisher, closeFn, err := NewPublisherFromConfig(&config.Config{Log: logger.Discard()})

	require.NoError(t, err)
	assert.IsType(t, &LogPublisher{}, publisher)
	assert.NoError(t, closeFn())
	assert.NoError(t, publisher.Publish(context.Background(), model.BookingEvent{Type: model.EventBookingCreated, BookingID: "b1"}))
}
