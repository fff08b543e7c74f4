package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderLifecycleHappyPath(t *testing.T) {
	order := &Order{Status: OrderStatusPending}

	for _, next := range []OrderStatus{OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered} {
		require.NoError(t, order.TransitionTo(next))
		assert.Equal(t, next, order.Status)
	}
}

func TestOrderBackwardTransitionRejected(t *testing.T) {
	order := &Order{Status: OrderStatusDelivered}

	err := order.TransitionTo(OrderStatusConfirmed)
	require.Error(t, err)

	var tErr *InvalidTransitionError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, OrderStatusDelivered, tErr.From)
	assert.Equal(t, OrderStatusConfirmed, tErr.To)
	// Order untouched on rejection
	assert.Equal(t, OrderStatusDelivered, order.Status)
}

func TestCancellation(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		allowed bool
	}{
		{OrderStatusPending, true},
		{OrderStatusConfirmed, true},
		{OrderStatusShipped, false},
		{OrderStatusDelivered, false},
		{OrderStatusCancelled, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from), func(t *testing.T) {
			order := &Order{Status: tc.from}
			err := order.TransitionTo(OrderStatusCancelled)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []OrderStatus{OrderStatusDelivered, OrderStatusCancelled} {
		assert.True(t, terminal.Terminal())
		for _, next := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled} {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s should be rejected", terminal, next)
		}
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, OrderStatusPending.Valid())
	assert.False(t, OrderStatus("completed").Valid())
	assert.False(t, OrderStatus("").Valid())
}
