package domain

import "time"

type DeliveryStatus string

const (
	DeliveryStatusSuccess          DeliveryStatus = "SUCCESS"
	DeliveryStatusFailed           DeliveryStatus = "FAILED"
	DeliveryStatusDuplicate        DeliveryStatus = "DUPLICATE"
	DeliveryStatusValidationFailed DeliveryStatus = "VALIDATION_FAILED"
	DeliveryStatusCircuitRejected  DeliveryStatus = "CIRCUIT_REJECTED"
	DeliveryStatusCancelled        DeliveryStatus = "CANCELLED"
	// DeliveryStatusNonRecoverable marks a failure retrying cannot fix
	// (authentication, malformed request). Unlike FAILED it is terminal:
	// later delivery cycles skip straight to the dead letter queue.
	DeliveryStatusNonRecoverable DeliveryStatus = "NON_RECOVERABLE"
)

// DownstreamResult is the outcome of delivering one event to one downstream.
type DownstreamResult struct {
	Downstream string         `json:"downstream"`
	Status     DeliveryStatus `json:"status"`
	Attempts   int            `json:"attempts"`
	Strategy   string         `json:"strategy,omitempty"`
	Error      string         `json:"error,omitempty"`
	Latency    time.Duration  `json:"latency_ns"`
}

func (r *DownstreamResult) Succeeded() bool {
	return r.Status == DeliveryStatusSuccess || r.Status == DeliveryStatusDuplicate
}

// Retryable reports whether a later delivery cycle could still succeed for
// this downstream. Validation failures and non-recoverable aborts are
// terminal; circuit rejections, cancellations, and exhausted transient
// retries are not.
func (r *DownstreamResult) Retryable() bool {
	return r.Status == DeliveryStatusFailed || r.Status == DeliveryStatusCircuitRejected ||
		r.Status == DeliveryStatusCancelled
}

// DeliveryOutcome aggregates per-downstream results for one inbound event.
// The orchestrator always returns a complete outcome, never an error.
type DeliveryOutcome struct {
	EventID     string                       `json:"event_id"`
	Fingerprint string                       `json:"fingerprint"`
	Duplicate   bool                         `json:"duplicate"`
	Downstreams map[string]*DownstreamResult `json:"downstreams"`
	Duration    time.Duration                `json:"duration_ns"`
}

func (o *DeliveryOutcome) AllSucceeded() bool {
	for _, r := range o.Downstreams {
		if !r.Succeeded() {
			return false
		}
	}
	return true
}

// StatsSnapshot is the advisory statistics surface. Counters are
// process-lifetime and reset on restart; they never gate delivery.
type StatsSnapshot struct {
	TotalProcessed          uint64  `json:"total_processed"`
	Succeeded               uint64  `json:"succeeded"`
	Failed                  uint64  `json:"failed"`
	DuplicatesPrevented     uint64  `json:"duplicates_prevented"`
	AverageProcessingTimeMs float64 `json:"average_processing_time_ms"`
}
