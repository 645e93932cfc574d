package relay

import (
	"context"
	"fmt"

	"github.com/ybbus/jsonrpc/v3"
)

type ConfirmationStatus string

const (
	ConfirmationUnknown   ConfirmationStatus = ""
	ConfirmationProcessed ConfirmationStatus = "processed"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationFinalized ConfirmationStatus = "finalized"
)

type SendOpts struct {
	SkipPreflight bool
	// MaxRetries is the remote-side resubmission budget, not ours.
	MaxRetries uint
}

// SendBackend submits raw transactions to the remote execution endpoint and
// reads back signature confirmation status.
type SendBackend interface {
	SendTransaction(ctx context.Context, txBase64 string, opts SendOpts) (string, error)
	SignatureStatus(ctx context.Context, signature string) (ConfirmationStatus, error)
}

// SemanticError is a rejection by the remote endpoint itself, as opposed to a
// transport failure. Retrying the same payload will not change the answer.
type SemanticError struct {
	Code    int
	Message string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("remote endpoint rejected transaction (%d): %s", e.Code, e.Message)
}

// NewSendBackend returns a backend for the configured endpoint URL. An empty
// URL yields a backend whose every call fails with ErrNoEndpoint so that a
// missing configuration is surfaced instead of silently skipping sends.
func NewSendBackend(url string) SendBackend {
	if url == "" {
		return unconfiguredBackend{}
	}
	return NewJSONRPCSendBackend(url)
}

type JSONRPCSendBackend struct {
	client jsonrpc.RPCClient
}

func NewJSONRPCSendBackend(url string) *JSONRPCSendBackend {
	return &JSONRPCSendBackend{
		client: jsonrpc.NewClient(url),
	}
}

type sendTransactionOpts struct {
	Encoding      string `json:"encoding"`
	SkipPreflight bool   `json:"skipPreflight"`
	MaxRetries    uint   `json:"maxRetries"`
}

func (b *JSONRPCSendBackend) SendTransaction(ctx context.Context, txBase64 string, opts SendOpts) (string, error) {
	res, err := b.client.Call(ctx, "sendTransaction", txBase64, sendTransactionOpts{
		Encoding:      "base64",
		SkipPreflight: opts.SkipPreflight,
		MaxRetries:    opts.MaxRetries,
	})
	if err != nil {
		return "", err
	}
	if res.Error != nil {
		return "", &SemanticError{Code: res.Error.Code, Message: res.Error.Message}
	}
	return res.GetString()
}

type signatureStatusValue struct {
	ConfirmationStatus ConfirmationStatus `json:"confirmationStatus"`
	Err                any                `json:"err"`
}

type signatureStatusResult struct {
	Value []*signatureStatusValue `json:"value"`
}

func (b *JSONRPCSendBackend) SignatureStatus(ctx context.Context, signature string) (ConfirmationStatus, error) {
	res, err := b.client.Call(ctx, "getSignatureStatuses", []string{signature})
	if err != nil {
		return ConfirmationUnknown, err
	}
	if res.Error != nil {
		return ConfirmationUnknown, &SemanticError{Code: res.Error.Code, Message: res.Error.Message}
	}
	var result signatureStatusResult
	if err := res.GetObject(&result); err != nil {
		return ConfirmationUnknown, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return ConfirmationUnknown, nil
	}
	status := result.Value[0]
	if status.Err != nil {
		return ConfirmationUnknown, &SemanticError{Message: fmt.Sprintf("transaction failed: %v", status.Err)}
	}
	return status.ConfirmationStatus, nil
}

type unconfiguredBackend struct{}

func (unconfiguredBackend) SendTransaction(context.Context, string, SendOpts) (string, error) {
	return "", ErrNoEndpoint
}

func (unconfiguredBackend) SignatureStatus(context.Context, string) (ConfirmationStatus, error) {
	return ConfirmationUnknown, ErrNoEndpoint
}
