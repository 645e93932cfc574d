// Package metrics contains all application-logic metrics
package metrics

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

var (
	submissionsReceived  = metrics.NewCounter("relay_submissions_received_total")
	submissionsQueued    = metrics.NewCounter("relay_submissions_queued_total")
	submissionsDuplicate = metrics.NewCounter("relay_submissions_duplicate_total")
	submissionsQueueFull = metrics.NewCounter("relay_submissions_queue_full_total")
	batchesSubmitted     = metrics.NewCounter("relay_batches_submitted_total")
	entriesSent          = metrics.NewCounter("relay_batch_entries_sent_total")
	sendFailures         = metrics.NewCounter("relay_batch_send_failures_total")
	outcomePolls         = metrics.NewCounter("relay_outcome_polls_total")
)

func IncSubmissionsReceived() {
	submissionsReceived.Inc()
}

func IncSubmissionsQueued() {
	submissionsQueued.Inc()
}

func IncSubmissionsDuplicate() {
	submissionsDuplicate.Inc()
}

func IncSubmissionsQueueFull() {
	submissionsQueueFull.Inc()
}

func IncBatchesSubmitted() {
	batchesSubmitted.Inc()
}

func IncEntriesSent() {
	entriesSent.Inc()
}

func IncSendFailures() {
	sendFailures.Inc()
}

func IncOutcomePolls() {
	outcomePolls.Inc()
}

func RecordBatchSize(size int) {
	metrics.GetOrCreateHistogram("relay_batch_size").Update(float64(size))
}

func RecordBatchSubmitDuration(duration int64) {
	metrics.GetOrCreateSummary("relay_batch_submit_duration_milliseconds").Update(float64(duration))
}

func RecordHTTPCallDuration(method string, duration int64) {
	metrics.GetOrCreateSummary(fmt.Sprintf(`relay_http_call_duration_milliseconds{method="%s"}`, method)).Update(float64(duration))
}
