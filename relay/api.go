package relay

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/lanternfi/relay-node/batchq"
	"github.com/lanternfi/relay-node/httpserver"
	"github.com/lanternfi/relay-node/metrics"
	"go.uber.org/zap"
)

// SubmissionQueue is the write side of the pipeline as seen by the API.
type SubmissionQueue interface {
	Enqueue(key string, payload []byte) error
}

// API serves the relay HTTP surface: POST /submit enqueues a submission,
// GET /submit?id=<key> polls its outcome.
type API struct {
	log      *zap.Logger
	queue    SubmissionQueue
	outcomes OutcomeStore
}

func NewAPI(log *zap.Logger, queue SubmissionQueue, outcomes OutcomeStore) *API {
	return &API{
		log:      log.Named("api"),
		queue:    queue,
		outcomes: outcomes,
	}
}

type submitRequest struct {
	TxBase64 string `json:"txBase64"`
	Key      string `json:"key"`
}

type submitResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
}

type statusResponse struct {
	Status    string `json:"status,omitempty"`
	Signature string `json:"signature,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Handler routes both methods of the /submit endpoint.
func (a *API) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			a.handleEnqueue(w, r)
		case http.MethodGet:
			a.handleStatus(w, r)
		default:
			httpserver.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}

func (a *API) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	startAt := time.Now()
	defer func() {
		metrics.RecordHTTPCallDuration("submit", time.Since(startAt).Milliseconds())
	}()
	metrics.IncSubmissionsReceived()

	var req submitRequest
	if err := httpserver.DecodeJSON(r.Body, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Key == "" {
		httpserver.WriteError(w, http.StatusBadRequest, ErrMissingKey.Error())
		return
	}
	if req.TxBase64 == "" {
		httpserver.WriteError(w, http.StatusBadRequest, ErrMissingPayload.Error())
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.TxBase64)
	if err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, ErrInvalidPayload.Error())
		return
	}

	// a key with a terminal outcome was already used
	if _, ok, err := a.outcomes.Get(r.Context(), req.Key); err != nil {
		a.log.Error("Failed to read outcome store", zap.Error(err), zap.String("key", req.Key))
		httpserver.WriteError(w, http.StatusInternalServerError, "outcome store unavailable")
		return
	} else if ok {
		metrics.IncSubmissionsDuplicate()
		httpserver.WriteError(w, http.StatusBadRequest, batchq.ErrDuplicateKey.Error())
		return
	}

	if err := a.queue.Enqueue(req.Key, payload); err != nil {
		switch {
		case errors.Is(err, batchq.ErrDuplicateKey):
			metrics.IncSubmissionsDuplicate()
			httpserver.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, batchq.ErrQueueFull):
			metrics.IncSubmissionsQueueFull()
			httpserver.WriteError(w, http.StatusServiceUnavailable, err.Error())
		default:
			a.log.Error("Failed to enqueue submission", zap.Error(err), zap.String("key", req.Key))
			httpserver.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	metrics.IncSubmissionsQueued()
	a.log.Debug("Queued submission",
		zap.String("key", req.Key),
		zap.Int("payload_bytes", len(payload)),
		zap.String("origin", httpserver.GetOrigin(r.Context())),
	)
	httpserver.WriteJSON(w, http.StatusOK, submitResponse{Status: StatusQueued, Key: req.Key})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	startAt := time.Now()
	defer func() {
		metrics.RecordHTTPCallDuration("status", time.Since(startAt).Milliseconds())
	}()
	metrics.IncOutcomePolls()

	key := r.URL.Query().Get("id")
	if key == "" {
		httpserver.WriteError(w, http.StatusBadRequest, "missing id parameter")
		return
	}

	outcome, ok, err := a.outcomes.Get(r.Context(), key)
	if err != nil {
		a.log.Error("Failed to read outcome store", zap.Error(err), zap.String("key", key))
		httpserver.WriteError(w, http.StatusInternalServerError, "outcome store unavailable")
		return
	}
	// an unknown key is indistinguishable from a queued one, both are pending
	if !ok || !outcome.Terminal() {
		httpserver.WriteJSON(w, http.StatusOK, statusResponse{Status: StatusPending})
		return
	}
	if outcome.Err != "" {
		httpserver.WriteJSON(w, http.StatusInternalServerError, statusResponse{Err: outcome.Err})
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, statusResponse{Signature: outcome.Signature})
}
