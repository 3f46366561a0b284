package events

import "time"

type ActivityStatus string

const (
	ActivityAccepted  ActivityStatus = "ACCEPTED"
	ActivityDuplicate ActivityStatus = "DUPLICATE"
	ActivityDelivered ActivityStatus = "DELIVERED"
	ActivityFailed    ActivityStatus = "FAILED"
	ActivityRejected  ActivityStatus = "REJECTED" // circuit open
	ActivityInvalid   ActivityStatus = "INVALID"  // enrichment validation
)

// DeliveryActivity is one observable step in an event's delivery lifecycle,
// published to the hub for operator visibility (CLI watch, SSE stream).
type DeliveryActivity struct {
	EventID     string         `json:"event_id"`
	Fingerprint string         `json:"fingerprint"`
	Kind        string         `json:"kind"`
	Downstream  string         `json:"downstream,omitempty"`
	Status      ActivityStatus `json:"status"`
	Attempts    int            `json:"attempts"`
	Message     string         `json:"message,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
