package domain

import "time"

// ContractStatus is a contract's lifecycle stage. Only Cancelled is trusted
// from storage; every other value is derived from the dates on read.
type ContractStatus string

const (
	ContractActive    ContractStatus = "active"
	ContractScheduled ContractStatus = "scheduled"
	ContractExpiring  ContractStatus = "expiring"
	ContractExpired   ContractStatus = "expired"
	ContractCancelled ContractStatus = "cancelled"
)

// ExpiringWindowDays is how close to the end date a contract is flagged as
// expiring.
const ExpiringWindowDays = 60

// Contract is the per-student agreement. StoredStatus is a stale cache
// except for the sticky Cancelled flag; Status carries the derived value
// and is populated on every read.
type Contract struct {
	ID           string         `json:"id"`
	StudentID    string         `json:"student_id"`
	PlanID       string         `json:"plan_id"`
	StartDate    time.Time      `json:"start_date"`
	EndDate      time.Time      `json:"end_date"`
	StoredStatus ContractStatus `json:"-"`
	Status       ContractStatus `json:"status"`
	SignedAt     *time.Time     `json:"signed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// DeriveContractStatus computes the effective lifecycle stage.
// Cancelled wins over everything; then Scheduled (not yet started),
// Expired, Expiring (within the 60-day window) and Active, in that order.
func DeriveContractStatus(startDate, endDate time.Time, stored ContractStatus, today time.Time) ContractStatus {
	if stored == ContractCancelled {
		return ContractCancelled
	}

	start := truncateToDay(startDate)
	end := truncateToDay(endDate)
	now := truncateToDay(today)

	switch {
	case start.After(now):
		return ContractScheduled
	case end.Before(now):
		return ContractExpired
	case daysBetween(now, end) <= ExpiringWindowDays:
		return ContractExpiring
	default:
		return ContractActive
	}
}

// Derive fills in the contract's effective status as of today.
func (c *Contract) Derive(today time.Time) {
	c.Status = DeriveContractStatus(c.StartDate, c.EndDate, c.StoredStatus, today)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
