package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	defaultConfirmInterval = 500 * time.Millisecond
	defaultConfirmTimeout  = 15 * time.Second
)

// ConfirmedSender lands one definitive transaction with strong confirmation.
// It is the non-batched submission channel used by the exit flows and by
// callers that bypass the batching pipeline.
type ConfirmedSender interface {
	Submit(ctx context.Context, signed []byte) (string, error)
	Confirm(ctx context.Context, signature string) error
}

type DirectSubmitter struct {
	log     *zap.Logger
	backend SendBackend

	ConfirmInterval time.Duration
	ConfirmTimeout  time.Duration
}

func NewDirectSubmitter(log *zap.Logger, backend SendBackend) *DirectSubmitter {
	return &DirectSubmitter{
		log:             log.Named("direct"),
		backend:         backend,
		ConfirmInterval: defaultConfirmInterval,
		ConfirmTimeout:  defaultConfirmTimeout,
	}
}

func (d *DirectSubmitter) Submit(ctx context.Context, signed []byte) (string, error) {
	// a single definitive transaction keeps preflight on
	return d.backend.SendTransaction(ctx, base64.StdEncoding.EncodeToString(signed), SendOpts{SkipPreflight: false})
}

// Confirm polls the signature status until the transaction is confirmed or the
// deadline passes. Transport errors during polling are not terminal, the next
// tick retries.
func (d *DirectSubmitter) Confirm(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, d.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(d.ConfirmInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return errors.Join(ErrTimedOut, ctx.Err())
		case <-ticker.C:
			status, err := d.backend.SignatureStatus(ctx, signature)
			if err != nil {
				var semErr *SemanticError
				if errors.As(err, &semErr) {
					return err
				}
				d.log.Debug("Failed to fetch signature status", zap.Error(err), zap.String("signature", signature))
				continue
			}
			if status == ConfirmationConfirmed || status == ConfirmationFinalized {
				return nil
			}
		}
	}
}

func (d *DirectSubmitter) SubmitAndConfirm(ctx context.Context, signed []byte) (string, error) {
	signature, err := d.Submit(ctx, signed)
	if err != nil {
		return "", err
	}
	if err := d.Confirm(ctx, signature); err != nil {
		return signature, err
	}
	return signature, nil
}
