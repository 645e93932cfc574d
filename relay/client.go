package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lanternfi/relay-node/coalesce"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultPollTimeout  = 7 * time.Second

	statusCacheTime = 200 * time.Millisecond
)

// ClientConfig configures a relay Client.
type ClientConfig struct {
	// BaseURL of the relay HTTP API.
	BaseURL string
	// PollInterval between outcome polls, default 500ms.
	PollInterval time.Duration
	// PollTimeout is the caller-side deadline for WaitForOutcome, default 7s.
	// The server never times out a poll, it answers with current state.
	PollTimeout time.Duration
	// Batching disables the pipeline when false: Submit refuses to enqueue and
	// callers are expected to use SubmitDirect instead.
	Batching bool
	// DirectEndpoint is the execution endpoint used by SubmitDirect.
	DirectEndpoint string
}

// Client is the caller-side view of the relay: enqueue into the batching
// pipeline, poll for outcomes with a deadline, or bypass batching entirely.
type Client struct {
	log      *zap.Logger
	http     *resty.Client
	direct   SendBackend
	batching bool

	pollInterval time.Duration
	pollTimeout  time.Duration
	statuses     *coalesce.Manager[Outcome]
}

func NewClient(log *zap.Logger, cfg ClientConfig) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second)

	c := &Client{
		log:          log.Named("relay-client"),
		http:         httpClient,
		direct:       NewSendBackend(cfg.DirectEndpoint),
		batching:     cfg.Batching,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}
	// concurrent waiters for the same key share one status fetch
	c.statuses = coalesce.NewManager(c.fetchStatus, statusCacheTime)
	return c
}

// Submit enqueues one signed transaction into the batching pipeline under the
// given idempotency key.
func (c *Client) Submit(ctx context.Context, key string, payload []byte) error {
	if !c.batching {
		return errors.New("batching pipeline is disabled, use SubmitDirect")
	}

	var res submitResponse
	var fail struct {
		Error string `json:"error"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(submitRequest{TxBase64: base64.StdEncoding.EncodeToString(payload), Key: key}).
		SetResult(&res).
		SetError(&fail).
		Post("/submit")
	if err != nil {
		return err
	}
	if resp.IsError() {
		if fail.Error != "" {
			return errors.New(fail.Error)
		}
		return fmt.Errorf("submit failed with status %s", resp.Status())
	}
	if res.Status != StatusQueued {
		return fmt.Errorf("unexpected submit status %q", res.Status)
	}
	return nil
}

// SubmitDirect sends one signed transaction through the non-batched channel.
// It is the path callers take when the batching pipeline is disabled.
func (c *Client) SubmitDirect(ctx context.Context, payload []byte) (string, error) {
	return c.direct.SendTransaction(ctx, base64.StdEncoding.EncodeToString(payload), SendOpts{SkipPreflight: true})
}

// WaitForOutcome polls until the key has a terminal outcome or the poll
// deadline passes. A deadline is reported as ErrTimedOut; it is a client-side
// terminal state, not a server error.
func (c *Client) WaitForOutcome(ctx context.Context, key string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		outcome, err := c.statuses.Get(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, errors.Join(ErrTimedOut, ctx.Err())
			}
			c.log.Debug("Failed to fetch outcome", zap.Error(err), zap.String("key", key))
		} else if outcome.Terminal() {
			return outcome, nil
		}

		select {
		case <-ctx.Done():
			return Outcome{}, errors.Join(ErrTimedOut, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchStatus(ctx context.Context, key string) (Outcome, error) {
	var res statusResponse
	var fail statusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", key).
		SetResult(&res).
		SetError(&fail).
		Get("/submit")
	if err != nil {
		return Outcome{}, err
	}
	if resp.IsError() {
		// a failed outcome comes back as a 500 with the error in the body
		if fail.Err != "" {
			return Outcome{Key: key, Err: fail.Err}, nil
		}
		return Outcome{}, fmt.Errorf("status poll failed with status %s", resp.Status())
	}
	if res.Signature != "" {
		return Outcome{Key: key, Signature: res.Signature}, nil
	}
	return Outcome{Key: key}, nil
}
