package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "cardetail/pkg/errors"
	"cardetail/pkg/logger"

	"github.com/google/uuid"
	"github.com/razorpay/razorpay-go"
)

const ProviderName = "razorpay"

var ErrNotConfigured = errors.New("refund provider not configured")

type RefundRequest struct {
	PaymentID string
	BookingID string
	Amount    int64
	Reason    string
}

type Refund struct {
	ID      string
	Amount  int64
	Status  string
	Receipt string
}

// RefundProvider returns captured payments to the customer.
type RefundProvider interface {
	Refund(ctx context.Context, req RefundRequest) (*Refund, error)
}

// paymentAPI is the subset of the razorpay payment resource used here.
type paymentAPI interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayRefunder struct {
	payments paymentAPI
	log      *logger.Logger
}

func NewRazorpayRefunder(key, secret string, log *logger.Logger) *RazorpayRefunder {
	client := razorpay.NewClient(key, secret)
	return &RazorpayRefunder{payments: client.Payment, log: log}
}

func (r *RazorpayRefunder) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	if strings.TrimSpace(req.PaymentID) == "" {
		return nil, apperrors.InvalidInput("payment id is required for a refund")
	}
	if req.Amount <= 0 {
		return nil, apperrors.InvalidInput("refund amount must be positive")
	}

	receipt := "rfnd_" + uuid.NewString()
	data := map[string]interface{}{
		"receipt": receipt,
		"notes": map[string]interface{}{
			"booking_id": req.BookingID,
			"reason":     req.Reason,
		},
	}

	type outcome struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		body, err := r.payments.Refund(req.PaymentID, int(req.Amount), data, nil)
		done <- outcome{body: body, err: err}
	}()

	var res outcome
	select {
	case <-ctx.Done():
		r.log.Warn("Refund call abandoned", "booking_id", req.BookingID, "payment_id", req.PaymentID, "error", ctx.Err())
		return nil, apperrors.Timeout("refund request timed out")
	case res = <-done:
	}

	if res.err != nil {
		r.log.Error("Refund failed", "booking_id", req.BookingID, "payment_id", req.PaymentID, "error", res.err)
		return nil, apperrors.UpstreamFailure(ProviderName, res.err)
	}

	refund := &Refund{
		ID:      stringField(res.body, "id"),
		Status:  stringField(res.body, "status"),
		Amount:  req.Amount,
		Receipt: receipt,
	}
	if amount, ok := res.body["amount"].(float64); ok {
		refund.Amount = int64(amount)
	}
	if refund.ID == "" {
		return nil, apperrors.UpstreamFailure(ProviderName, fmt.Errorf("refund response without id for payment %s", req.PaymentID))
	}

	r.log.Info("Refund issued", "booking_id", req.BookingID, "payment_id", req.PaymentID, "refund_id", refund.ID, "amount", refund.Amount)
	return refund, nil
}

func stringField(body map[string]interface{}, key string) string {
	v, _ := body[key].(string)
	return v
}

// DisabledRefunder is used when no provider credentials are configured.
type DisabledRefunder struct {
	log *logger.Logger
}

func NewDisabledRefunder(log *logger.Logger) *DisabledRefunder {
	return &DisabledRefunder{log: log}
}

func (d *DisabledRefunder) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	d.log.Warn("Refund skipped, provider not configured", "booking_id", req.BookingID, "payment_id", req.PaymentID)
	return nil, apperrors.UpstreamFailure(ProviderName, ErrNotConfigured)
}

// NewRefundProvider picks razorpay when both credentials are present.
func NewRefundProvider(key, secret string, log *logger.Logger) RefundProvider {
	if key == "" || secret == "" {
		return NewDisabledRefunder(log)
	}
	return NewRazorpayRefunder(key, secret, log)
}
