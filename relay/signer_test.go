package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type serialSigner struct {
	calls [][]byte
	fail  map[int]error
}

func (s *serialSigner) SignTransaction(_ context.Context, tx []byte) ([]byte, error) {
	idx := len(s.calls)
	s.calls = append(s.calls, tx)
	if err, ok := s.fail[idx]; ok {
		return nil, err
	}
	return append([]byte("signed:"), tx...), nil
}

type bulkSigner struct {
	serialSigner
	bulkCalls int
	bulkErr   error
}

func (s *bulkSigner) SignAllTransactions(_ context.Context, txs [][]byte) ([][]byte, error) {
	s.bulkCalls++
	if s.bulkErr != nil {
		return nil, s.bulkErr
	}
	signed := make([][]byte, len(txs))
	for i, tx := range txs {
		signed[i] = append([]byte("signed:"), tx...)
	}
	return signed, nil
}

func TestSignAll(t *testing.T) {
	ctx := context.Background()
	txs := [][]byte{[]byte("tx-1"), []byte("tx-2"), []byte("tx-3")}

	t.Run("bulk capability is preferred", func(t *testing.T) {
		signer := &bulkSigner{}
		res, err := SignAll(ctx, signer, txs)
		require.NoError(t, err)
		require.True(t, res.UsedBulkPath)
		require.Equal(t, 1, signer.bulkCalls)
		require.Empty(t, signer.calls)
		require.Len(t, res.Signed, 3)
		require.Equal(t, []string{"", "", ""}, res.PerTransactionError)
	})

	t.Run("bulk failure is surfaced without serial fallback", func(t *testing.T) {
		bulkErr := errors.New("user rejected")
		signer := &bulkSigner{bulkErr: bulkErr}
		res, err := SignAll(ctx, signer, txs)
		require.ErrorIs(t, err, bulkErr)
		require.True(t, res.UsedBulkPath)
		require.Empty(t, signer.calls)
	})

	t.Run("serial path signs one at a time in order", func(t *testing.T) {
		signer := &serialSigner{}
		res, err := SignAll(ctx, signer, txs)
		require.NoError(t, err)
		require.False(t, res.UsedBulkPath)
		require.Equal(t, txs, signer.calls)
		require.Equal(t, []string{"", "", ""}, res.PerTransactionError)
	})

	t.Run("serial failure is isolated per index", func(t *testing.T) {
		signer := &serialSigner{fail: map[int]error{1: errors.New("locked")}}
		res, err := SignAll(ctx, signer, txs)
		require.NoError(t, err)
		require.False(t, res.UsedBulkPath)
		require.Len(t, signer.calls, 3)
		require.Equal(t, []string{"", "locked", ""}, res.PerTransactionError)
		require.NotNil(t, res.Signed[0])
		require.Nil(t, res.Signed[1])
		require.NotNil(t, res.Signed[2])
	})

	t.Run("nil signer", func(t *testing.T) {
		_, err := SignAll(ctx, nil, txs)
		require.ErrorIs(t, err, ErrNoSigner)
	})
}
