package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusNew, StatusPaymentReceived},
		{StatusPaymentReceived, StatusPaymentSucceeded},
		{StatusPaymentReceived, StatusPaymentRejected},
		{StatusPaymentSucceeded, StatusInProgress},
		{StatusInProgress, StatusSent},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}
}

func TestCanTransition_RejectsBackwardAndSkips(t *testing.T) {
	denied := []struct{ from, to Status }{
		{StatusPaymentReceived, StatusNew},
		{StatusSent, StatusInProgress},
		{StatusNew, StatusPaymentSucceeded},
		{StatusNew, StatusSent},
		{StatusPaymentRejected, StatusInProgress},
		{StatusSent, StatusSent},
		{StatusNew, StatusNew},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestCanTransition_CartNeverReachableManually(t *testing.T) {
	all := []Status{
		StatusCart, StatusNew, StatusPaymentReceived, StatusPaymentSucceeded,
		StatusPaymentRejected, StatusInProgress, StatusSent,
	}
	for _, from := range all {
		assert.False(t, CanTransition(from, StatusCart), "%s -> cart should be denied", from)
		assert.False(t, CanTransition(StatusCart, from), "cart -> %s should be denied", from)
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusNew.Valid())
	assert.True(t, StatusCart.Valid())
	assert.False(t, Status("shipped").Valid())
	assert.False(t, Status("").Valid())
}
