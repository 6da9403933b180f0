package domain

import "time"

// ObligationKind tags the two representations of "what is owed".
type ObligationKind string

const (
	// ObligationDiscrete is backed by a stored installment row.
	ObligationDiscrete ObligationKind = "discrete"
	// ObligationSynthetic is computed from a financial record's aggregates.
	ObligationSynthetic ObligationKind = "synthetic"
)

// Obligation is the common projection of a discrete installment and a
// synthesized virtual one. Status derivation always goes through this
// projection so both paths share one definition.
type Obligation struct {
	Kind              ObligationKind
	InstallmentID     string // discrete only
	FinancialRecordID string
	ItemType          ItemType
	Ordinal           int // synthetic only, 0-based
	DueDate           time.Time
	StoredStatus      InstallmentStatus
}

// DerivePresentationStatus is the single definitional status derivation.
// Paid and Cancelled are terminal and returned unchanged; anything else is
// Overdue once the due date has passed, Pending otherwise. Comparison is by
// calendar date, not instant.
func DerivePresentationStatus(stored InstallmentStatus, dueDate, today time.Time) InstallmentStatus {
	if stored == InstallmentPaid || stored == InstallmentCancelled {
		return stored
	}
	if truncateToDay(dueDate).Before(truncateToDay(today)) {
		return InstallmentOverdue
	}
	return InstallmentPending
}

// PresentationStatus derives the obligation's status as of today.
func (o Obligation) PresentationStatus(today time.Time) InstallmentStatus {
	return DerivePresentationStatus(o.StoredStatus, o.DueDate, today)
}

// AsObligation projects a stored installment.
func (i *Installment) AsObligation() Obligation {
	return Obligation{
		Kind:              ObligationDiscrete,
		InstallmentID:     i.ID,
		FinancialRecordID: i.FinancialRecordID,
		ItemType:          i.ItemType,
		Ordinal:           i.SequenceNumber - 1,
		DueDate:           i.DueDate,
		StoredStatus:      i.Status,
	}
}

// AsObligation projects a virtual installment.
func (v *VirtualInstallment) AsObligation() Obligation {
	return Obligation{
		Kind:              ObligationSynthetic,
		FinancialRecordID: v.FinancialRecordID,
		ItemType:          v.ItemType,
		Ordinal:           v.Number - 1,
		DueDate:           v.DueDate,
		StoredStatus:      v.Status,
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
