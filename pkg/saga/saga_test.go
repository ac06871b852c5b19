package saga

import (
	"context"
	"errors"
	"testing"

	apperrors "cardetail/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(trace *[]string, label string, err error) func(context.Context) error {
	return func(ctx context.Context) error {
		*trace = append(*trace, label)
		return err
	}
}

func TestRun_AllStepsSucceed(t *testing.T) {
	var trace []string
	s := New("create_booking", nil).
		Then("reserve", recorder(&trace, "reserve", nil), recorder(&trace, "undo-reserve", nil)).
		Then("insert", recorder(&trace, "insert", nil), recorder(&trace, "undo-insert", nil)).
		Then("publish", recorder(&trace, "publish", nil), nil)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"reserve", "insert", "publish"}, trace)
}

func TestRun_CompensatesInReverse(t *testing.T) {
	var trace []string
	boom := errors.New("promo usage rejected")

	s := New("create_booking", nil).
		Then("reserve", recorder(&trace, "reserve", nil), recorder(&trace, "undo-reserve", nil)).
		Then("insert", recorder(&trace, "insert", nil), recorder(&trace, "undo-insert", nil)).
		Then("apply-promo", recorder(&trace, "apply-promo", boom), recorder(&trace, "undo-apply-promo", nil))

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "apply-promo", stepErr.Step)
	assert.Empty(t, stepErr.CompensationErrors)

	assert.Equal(t, []string{"reserve", "insert", "apply-promo", "undo-insert", "undo-reserve"}, trace)
}

func TestRun_CompensationErrorsAreCollected(t *testing.T) {
	var trace []string
	undoErr := errors.New("mongo down")

	s := New("reschedule", nil).
		Then("reserve", recorder(&trace, "reserve", nil), recorder(&trace, "undo-reserve", undoErr)).
		Then("update", recorder(&trace, "update", errors.New("write conflict")), nil)

	err := s.Run(context.Background())
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Len(t, stepErr.CompensationErrors, 1)
	assert.ErrorIs(t, stepErr.CompensationErrors[0], undoErr)
	assert.Contains(t, err.Error(), "compensation errors")
}

func TestRun_PreservesAppError(t *testing.T) {
	conflict := apperrors.Conflict("Requested slot is no longer available")
	s := New("create_booking", nil).
		Then("reserve", func(ctx context.Context) error { return conflict }, nil)

	err := s.Run(context.Background())

	assert.True(t, apperrors.IsAppError(err))
	assert.Same(t, conflict, apperrors.AsAppError(err))
}

func TestRun_CompensationIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var undoCtxErr error = errors.New("not called")

	s := New("create_booking", nil).
		Then("reserve", func(ctx context.Context) error { return nil }, func(ctx context.Context) error {
			undoCtxErr = ctx.Err()
			return nil
		}).
		Then("insert", func(ctx context.Context) error {
			cancel()
			return ctx.Err()
		}, nil)

	err := s.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, undoCtxErr)
}
