package idempotency

import "time"

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Record is the replay guard for one idempotency key. A key maps to exactly
// one fingerprint; reuse with a different fingerprint is a conflict, never a
// silent replay.
type Record struct {
	Key            string
	Fingerprint    string
	Status         Status
	StoredResponse []byte
	StoredStatus   int
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

type Outcome int

const (
	// OutcomeProceed: the key is reserved for this caller; execute and Commit.
	OutcomeProceed Outcome = iota
	// OutcomeReplay: an identical request already completed; serve the
	// stored response without re-running side effects.
	OutcomeReplay
	// OutcomeConflict: the key was reused for semantically different input.
	OutcomeConflict
	// OutcomeInFlight: an identical request is still executing elsewhere.
	OutcomeInFlight
)
