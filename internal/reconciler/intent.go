// Package reconciler retries escrow operations that failed during a
// job transition. The API service publishes an intent per failed
// release/void; this worker consumes the queue and replays the calls
// against the ledger until they land.
package reconciler

import (
	"encoding/json"
	"fmt"
)

// Escrow operations an intent can carry.
const (
	OpRelease = "release"
	OpVoid    = "void"
)

// Intent is one queued escrow operation.
type Intent struct {
	Op            string `json:"op"`
	JobID         string `json:"job_id"`
	HoldID        string `json:"hold_id"`
	RefundPercent int    `json:"refund_percent,omitempty"`
}

// Valid reports whether the intent names a known operation and
// carries the fields it needs.
func (i *Intent) Valid() bool {
	if i.JobID == "" || i.HoldID == "" {
		return false
	}
	switch i.Op {
	case OpRelease:
		return true
	case OpVoid:
		return i.RefundPercent >= 0 && i.RefundPercent <= 100
	default:
		return false
	}
}

// parseIntent decodes and validates a queued intent body.
func parseIntent(body []byte) (*Intent, error) {
	var intent Intent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("failed to parse intent JSON: %w", err)
	}
	if !intent.Valid() {
		return nil, fmt.Errorf("intent is missing required fields or names an unknown op")
	}
	return &intent, nil
}
