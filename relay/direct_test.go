package relay

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDirectSubmitter(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	t.Run("submit and confirm", func(t *testing.T) {
		var statusCalls atomic.Int32
		backend := &fakeBackend{
			send: func(string, int) (string, error) { return "sig-1", nil },
			status: func(string) (ConfirmationStatus, error) {
				if statusCalls.Add(1) < 3 {
					return ConfirmationProcessed, nil
				}
				return ConfirmationConfirmed, nil
			},
		}
		d := NewDirectSubmitter(log, backend)
		d.ConfirmInterval = 10 * time.Millisecond

		sig, err := d.SubmitAndConfirm(ctx, []byte("tx"))
		require.NoError(t, err)
		require.Equal(t, "sig-1", sig)
		require.GreaterOrEqual(t, statusCalls.Load(), int32(3))
	})

	t.Run("transport errors during confirm are retried", func(t *testing.T) {
		var statusCalls atomic.Int32
		backend := &fakeBackend{
			send: func(string, int) (string, error) { return "sig-1", nil },
			status: func(string) (ConfirmationStatus, error) {
				if statusCalls.Add(1) == 1 {
					return ConfirmationUnknown, errors.New("connection reset")
				}
				return ConfirmationFinalized, nil
			},
		}
		d := NewDirectSubmitter(log, backend)
		d.ConfirmInterval = 10 * time.Millisecond

		require.NoError(t, d.Confirm(ctx, "sig-1"))
	})

	t.Run("failed transaction aborts confirmation", func(t *testing.T) {
		backend := &fakeBackend{
			send: func(string, int) (string, error) { return "sig-1", nil },
			status: func(string) (ConfirmationStatus, error) {
				return ConfirmationUnknown, &SemanticError{Message: "transaction failed"}
			},
		}
		d := NewDirectSubmitter(log, backend)
		d.ConfirmInterval = 10 * time.Millisecond

		err := d.Confirm(ctx, "sig-1")
		var semErr *SemanticError
		require.ErrorAs(t, err, &semErr)
	})

	t.Run("confirmation deadline", func(t *testing.T) {
		backend := &fakeBackend{
			send:   func(string, int) (string, error) { return "sig-1", nil },
			status: func(string) (ConfirmationStatus, error) { return ConfirmationProcessed, nil },
		}
		d := NewDirectSubmitter(log, backend)
		d.ConfirmInterval = 10 * time.Millisecond
		d.ConfirmTimeout = 50 * time.Millisecond

		err := d.Confirm(ctx, "sig-1")
		require.ErrorIs(t, err, ErrTimedOut)
	})
}
