// Package relay implements the transaction relay pipeline: batched submission
// of signed, opaque transaction payloads to a remote execution endpoint, outcome
// polling, adaptive signing and the bounded-retry exit executor.
package relay

import "errors"

var (
	ErrMissingKey     = errors.New("missing submission key")
	ErrMissingPayload = errors.New("missing transaction payload")
	ErrInvalidPayload = errors.New("transaction payload is not valid base64")
	ErrNoEndpoint     = errors.New("remote endpoint is not configured")
	ErrNoSigner       = errors.New("no signer available")
	ErrExhausted      = errors.New("retries exhausted")
	ErrTimedOut       = errors.New("timed out waiting for outcome")
)

const (
	StatusQueued  = "queued"
	StatusPending = "pending"
)

// Outcome is the terminal result of one submission. Exactly one of Signature
// and Err is set once the outcome is recorded; it never changes afterwards.
type Outcome struct {
	Key       string `json:"key"`
	Signature string `json:"signature,omitempty"`
	Err       string `json:"error,omitempty"`
}

func (o Outcome) Terminal() bool {
	return o.Signature != "" || o.Err != ""
}
