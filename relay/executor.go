package relay

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds one exit/claim invocation.
const DefaultMaxAttempts = 10

type ExecState string

const (
	StateIdle       ExecState = "idle"
	StateBuilding   ExecState = "building"
	StateSigning    ExecState = "signing"
	StateSubmitting ExecState = "submitting"
	StateConfirming ExecState = "confirming"
	StateSucceeded  ExecState = "succeeded"
	StateExhausted  ExecState = "exhausted"
)

// Attempt records one pass of the build-sign-submit-confirm loop. The list is
// scoped to a single Run invocation.
type Attempt struct {
	Number    int
	Err       string
	Succeeded bool
}

type ExecResult struct {
	State     ExecState
	Signature string
	Attempts  []Attempt
	// LastErr wraps ErrExhausted together with the last underlying error when
	// the attempt budget runs out.
	LastErr error
}

// BuildFunc builds a fresh unsigned transaction. It is called once per attempt
// because a failed submit may need a new blockhash.
type BuildFunc func(ctx context.Context) ([]byte, error)

// Executor drives a single logical exit/claim operation to completion with
// transient-failure tolerance. Callers must not run two invocations for the
// same logical exit concurrently.
type Executor struct {
	log    *zap.Logger
	signer TransactionSigner
	sender ConfirmedSender

	MaxAttempts int
	// NewRetryWait builds the wait schedule between attempts for one run.
	NewRetryWait func() backoff.BackOff
}

func NewExecutor(log *zap.Logger, signer TransactionSigner, sender ConfirmedSender) *Executor {
	return &Executor{
		log:          log.Named("executor"),
		signer:       signer,
		sender:       sender,
		MaxAttempts:  DefaultMaxAttempts,
		NewRetryWait: defaultRetryWait,
	}
}

func defaultRetryWait() backoff.BackOff {
	wait := backoff.NewExponentialBackOff()
	wait.InitialInterval = 200 * time.Millisecond
	wait.MaxInterval = 2 * time.Second
	return wait
}

// Run executes build-sign-submit-confirm until success or MaxAttempts. It
// always returns a structured result; errors are carried inside it.
func (e *Executor) Run(ctx context.Context, build BuildFunc) ExecResult {
	res := ExecResult{State: StateIdle}
	wait := e.NewRetryWait()

	for attempt := 1; attempt <= e.MaxAttempts; attempt++ {
		signature, err := e.attempt(ctx, build, &res.State)
		if err == nil {
			res.State = StateSucceeded
			res.Signature = signature
			res.Attempts = append(res.Attempts, Attempt{Number: attempt, Succeeded: true})
			e.log.Info("Transaction confirmed",
				zap.String("signature", signature), zap.Int("attempts", attempt))
			return res
		}

		res.LastErr = err
		res.Attempts = append(res.Attempts, Attempt{Number: attempt, Err: err.Error()})
		e.log.Warn("Attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		if ctx.Err() != nil || attempt == e.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(wait.NextBackOff()):
		}
	}

	res.State = StateExhausted
	if res.LastErr != nil {
		res.LastErr = errors.Join(ErrExhausted, res.LastErr)
	} else {
		res.LastErr = ErrExhausted
	}
	return res
}

func (e *Executor) attempt(ctx context.Context, build BuildFunc, state *ExecState) (string, error) {
	*state = StateBuilding
	tx, err := build(ctx)
	if err != nil {
		return "", err
	}

	*state = StateSigning
	signed, err := SignAll(ctx, e.signer, [][]byte{tx})
	if err != nil {
		return "", err
	}
	if msg := signed.PerTransactionError[0]; msg != "" {
		return "", errors.New(msg)
	}

	*state = StateSubmitting
	signature, err := e.sender.Submit(ctx, signed.Signed[0])
	if err != nil {
		return "", err
	}

	*state = StateConfirming
	if err := e.sender.Confirm(ctx, signature); err != nil {
		return "", err
	}
	return signature, nil
}
