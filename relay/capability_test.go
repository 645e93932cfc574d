package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticBuilder struct{}

func (staticBuilder) BuildTransaction(context.Context) ([]byte, error) {
	return []byte("tx"), nil
}

func TestBuilderRegistry(t *testing.T) {
	t.Run("registered provider loads", func(t *testing.T) {
		r := NewBuilderRegistry()
		r.Register("bonding-curve", func() (TxBuilder, error) {
			return staticBuilder{}, nil
		})

		builder, err := r.Load("bonding-curve")
		require.NoError(t, err)
		require.NotNil(t, builder)
	})

	t.Run("unknown name is a typed error", func(t *testing.T) {
		r := NewBuilderRegistry()
		_, err := r.Load("amm")
		require.ErrorIs(t, err, ErrBuilderNotAvailable)
	})

	t.Run("failing provider is a typed error", func(t *testing.T) {
		loadErr := errors.New("sdk not installed")
		r := NewBuilderRegistry()
		r.Register("launch-pad", func() (TxBuilder, error) {
			return nil, loadErr
		})

		_, err := r.Load("launch-pad")
		require.ErrorIs(t, err, ErrBuilderNotAvailable)
		require.ErrorIs(t, err, loadErr)
	})
}
