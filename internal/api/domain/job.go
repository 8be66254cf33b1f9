package domain

// JobStatus is the persisted lifecycle state of a job.
type JobStatus string

const (
	JobStatusAvailable  JobStatus = "available"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Valid reports whether s is one of the persisted status values.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusAvailable, JobStatusAssigned, JobStatusInProgress,
		JobStatusSubmitted, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// TrustLevel is a worker's verification tier. Tiers are ordered:
// basic < verified < kyc_gold.
type TrustLevel string

const (
	TrustBasic    TrustLevel = "basic"
	TrustVerified TrustLevel = "verified"
	TrustKYCGold  TrustLevel = "kyc_gold"
)

// Valid reports whether t is a known tier.
func (t TrustLevel) Valid() bool {
	switch t {
	case TrustBasic, TrustVerified, TrustKYCGold:
		return true
	}
	return false
}

// Rank returns the position of t in the tier ordering. Unknown tiers
// rank below basic so they never satisfy a requirement.
func (t TrustLevel) Rank() int {
	switch t {
	case TrustBasic:
		return 1
	case TrustVerified:
		return 2
	case TrustKYCGold:
		return 3
	}
	return 0
}

// Satisfies reports whether a worker at tier t may accept a job
// requiring tier required.
func (t TrustLevel) Satisfies(required TrustLevel) bool {
	return t.Rank() >= required.Rank()
}

// TiersAtOrBelow returns every tier whose rank is ≤ t's rank. Used by
// the available-jobs query: a worker at tier t is eligible for jobs
// requiring any of these.
func (t TrustLevel) TiersAtOrBelow() []TrustLevel {
	out := make([]TrustLevel, 0, 3)
	for _, tier := range []TrustLevel{TrustBasic, TrustVerified, TrustKYCGold} {
		if tier.Rank() <= t.Rank() {
			out = append(out, tier)
		}
	}
	return out
}

// TransactionType classifies a ledger entry on a worker's balance.
type TransactionType string

const (
	TransactionJobPayment TransactionType = "job_payment"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionBonus      TransactionType = "bonus"
	TransactionRefund     TransactionType = "refund"
)

// SenderRole identifies which party of a job conversation sent a message.
type SenderRole string

const (
	RoleAgent  SenderRole = "agent"
	RoleWorker SenderRole = "worker"
)

// MessageKind distinguishes user-authored messages from system notices.
type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageSystem MessageKind = "system"
)
