package rosca_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/rosca"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		err          error
		notFound     bool
		precondition bool
		retryable    bool
	}{
		{rosca.ErrPoolNotFound, true, false, false},
		{fmt.Errorf("get: %w", rosca.ErrNotFound), true, false, false},
		{rosca.ErrNotPaymentPhase, false, true, false},
		{fmt.Errorf("%w from bob", rosca.ErrNoPendingRequest), false, true, false},
		{rosca.ErrNotOperator, false, false, false},
		{fmt.Errorf("%w: recipient closed", rosca.ErrTransferFailure), false, false, true},
		{rosca.ErrLockFailed, false, false, true},
		{rosca.ErrStoreNotReady, false, false, true},
		{rosca.ValidationError{Field: "amount", Message: "required"}, false, false, false},
		{errors.New("other"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.notFound, rosca.IsNotFound(tt.err))
			assert.Equal(t, tt.precondition, rosca.IsPrecondition(tt.err))
			assert.Equal(t, tt.retryable, rosca.IsRetryable(tt.err))
		})
	}
}

func TestMultiError(t *testing.T) {
	var errs rosca.MultiError
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "rosca: no errors", errs.Error())

	errs.Add(nil)
	errs.Add(rosca.ErrNotOperator)
	assert.True(t, errs.HasErrors())
	assert.Equal(t, rosca.ErrNotOperator.Error(), errs.Error())

	errs.Add(rosca.ValidationError{Field: "quota", Message: "too large"})
	assert.Equal(t, "rosca: 2 errors occurred", errs.Error())
	assert.ErrorIs(t, errs, rosca.ErrNotOperator)
	assert.ErrorIs(t, errs, rosca.ErrInvalidInput)
}
