package relay

import "context"

// TransactionSigner signs a single serialized transaction.
type TransactionSigner interface {
	SignTransaction(ctx context.Context, tx []byte) ([]byte, error)
}

// BulkTransactionSigner is an optional capability: signing a whole list in one
// round trip. Detected by type assertion on the TransactionSigner.
type BulkTransactionSigner interface {
	SignAllTransactions(ctx context.Context, txs [][]byte) ([][]byte, error)
}

// SignResult reports per-transaction signing outcomes. PerTransactionError has
// one slot per input transaction in input order; "" means the slot succeeded.
type SignResult struct {
	UsedBulkPath        bool
	Signed              [][]byte
	PerTransactionError []string
}

// SignAll signs txs with whatever capability the signer exposes. With a bulk
// signer the whole list goes out in one call; a bulk failure is surfaced as is,
// without an implicit serial fallback for the same list, because a thrown bulk
// call leaves ambiguous partial state. Without bulk capability transactions are
// signed one at a time and failures are isolated per index.
//
// The only error returned across this boundary is ErrNoSigner; everything else
// is reported inside the SignResult or, for the bulk path, as the bulk error.
func SignAll(ctx context.Context, signer TransactionSigner, txs [][]byte) (SignResult, error) {
	if signer == nil {
		return SignResult{}, ErrNoSigner
	}

	res := SignResult{
		Signed:              make([][]byte, len(txs)),
		PerTransactionError: make([]string, len(txs)),
	}

	if bulk, ok := signer.(BulkTransactionSigner); ok {
		res.UsedBulkPath = true
		signed, err := bulk.SignAllTransactions(ctx, txs)
		if err != nil {
			return res, err
		}
		res.Signed = signed
		return res, nil
	}

	for i, tx := range txs {
		signed, err := signer.SignTransaction(ctx, tx)
		if err != nil {
			res.PerTransactionError[i] = err.Error()
			continue
		}
		res.Signed[i] = signed
	}
	return res, nil
}
