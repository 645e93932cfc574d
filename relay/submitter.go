package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lanternfi/relay-node/batchq"
	"github.com/lanternfi/relay-node/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTransportRetries = uint64(2)
	transportRetryDelay     = 50 * time.Millisecond
)

// Submitter sends one cut batch to the remote execution endpoint. Entries are
// sent sequentially in a uniformly random order so that the whole batch goes
// out within one short wall-clock window without enqueue-order bias.
type Submitter struct {
	log      *zap.Logger
	backend  SendBackend
	mirrors  *MirrorsBackend
	outcomes OutcomeStore
	limiter  *rate.Limiter

	// TransportRetries is the number of extra immediate attempts after a
	// transport-level failure. Semantic rejections are never retried.
	TransportRetries uint64
}

func NewSubmitter(log *zap.Logger, backend SendBackend, mirrors *MirrorsBackend, outcomes OutcomeStore, limiter *rate.Limiter) *Submitter {
	if mirrors == nil {
		mirrors = &MirrorsBackend{}
	}
	return &Submitter{
		log:              log.Named("submitter"),
		backend:          backend,
		mirrors:          mirrors,
		outcomes:         outcomes,
		limiter:          limiter,
		TransportRetries: defaultTransportRetries,
	}
}

// SubmitBatch processes one batch to completion. Every entry ends up with a
// recorded terminal outcome; one entry's failure never aborts the rest.
func (s *Submitter) SubmitBatch(ctx context.Context, batch []batchq.Entry) {
	if len(batch) == 0 {
		return
	}
	startAt := time.Now()
	defer func() {
		metrics.RecordBatchSubmitDuration(time.Since(startAt).Milliseconds())
	}()
	metrics.IncBatchesSubmitted()
	metrics.RecordBatchSize(len(batch))

	// order within a batch carries no priority semantics
	rand.Shuffle(len(batch), func(i, j int) { //nolint:gosec
		batch[i], batch[j] = batch[j], batch[i]
	})

	s.log.Info("Submitting batch", zap.Int("entries", len(batch)))
	for _, entry := range batch {
		outcome := s.submitEntry(ctx, entry)
		if err := s.outcomes.Record(ctx, outcome); err != nil {
			s.log.Error("Failed to record outcome", zap.Error(err), zap.String("key", entry.Key))
		}
	}
}

func (s *Submitter) submitEntry(ctx context.Context, entry batchq.Entry) Outcome {
	logger := s.log.With(zap.String("key", entry.Key))

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			metrics.IncSendFailures()
			return Outcome{Key: entry.Key, Err: err.Error()}
		}
	}

	txBase64 := base64.StdEncoding.EncodeToString(entry.Payload)
	// preflight is skipped so all entries of a batch hit the same slot
	opts := SendOpts{SkipPreflight: true}

	var signature string
	err := backoff.Retry(func() error {
		var err error
		signature, err = s.backend.SendTransaction(ctx, txBase64, opts)
		var semErr *SemanticError
		if errors.As(err, &semErr) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(transportRetryDelay), s.TransportRetries), ctx))
	if err != nil {
		metrics.IncSendFailures()
		logger.Warn("Failed to send transaction", zap.Error(err), zap.Duration("queued_for", time.Since(entry.EnqueuedAt)))
		return Outcome{Key: entry.Key, Err: err.Error()}
	}

	s.mirrors.SendTransaction(ctx, logger, txBase64, opts)

	metrics.IncEntriesSent()
	logger.Debug("Sent transaction", zap.String("signature", signature), zap.Duration("queued_for", time.Since(entry.EnqueuedAt)))
	return Outcome{Key: entry.Key, Signature: signature}
}
