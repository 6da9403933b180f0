// Package domain holds the billing core's entities, pure derivation
// functions and error types. Nothing here touches the network.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType categorizes a charge on a financial record.
type ItemType string

const (
	ItemTypeEnrollmentFee   ItemType = "enrollment_fee"
	ItemTypeMaterial        ItemType = "material"
	ItemTypeTuition         ItemType = "tuition"
	ItemTypeCancellationFee ItemType = "cancellation_fee"
	ItemTypeOther           ItemType = "other"
)

// MaterializationOrder is the fixed order in which item types are expanded
// into installments, so numbering is deterministic within a batch.
var MaterializationOrder = []ItemType{
	ItemTypeEnrollmentFee,
	ItemTypeMaterial,
	ItemTypeTuition,
}

// IsAdHoc reports whether the item type is outside the regular billing cycle
// (one-off charges that never carry a cycle window).
func (t ItemType) IsAdHoc() bool {
	return t == ItemTypeCancellationFee || t == ItemTypeOther
}

// InstallmentStatus is the stored status of an installment.
// Overdue also exists as a derived presentation status (see obligation.go).
type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentPaid      InstallmentStatus = "paid"
	InstallmentOverdue   InstallmentStatus = "overdue"
	InstallmentCancelled InstallmentStatus = "cancelled"
)

// RecordStatus is the overall status of a financial record.
type RecordStatus string

const (
	RecordPending       RecordStatus = "pending"
	RecordPaid          RecordStatus = "paid"
	RecordPartiallyPaid RecordStatus = "partially_paid"
	RecordArchived      RecordStatus = "archived"
)

// PaymentMethod is how a charge is settled.
type PaymentMethod string

const (
	MethodBoleto PaymentMethod = "boleto"
	MethodPix    PaymentMethod = "pix"
	MethodCard   PaymentMethod = "card"
	MethodCash   PaymentMethod = "cash"
)

// ChargeTerms is one item type's aggregate on a financial record:
// total value, how many installments it splits into, when the first one is
// due and how it is paid.
type ChargeTerms struct {
	TotalValue    decimal.Decimal `json:"total_value"`
	Count         int             `json:"count"`
	FirstDueDate  time.Time       `json:"first_due_date"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Description   string          `json:"description,omitempty"`
}

// Charge pairs an item type with its terms, as consumed by the Materializer.
type Charge struct {
	ItemType ItemType
	Terms    ChargeTerms
}

// FinancialRecord is the per-student aggregate of the current billing
// cycle. One active record per student; renewal archives installments and
// overwrites the aggregates in place, the record row is never deleted.
type FinancialRecord struct {
	ID        string       `json:"id"`
	StudentID string       `json:"student_id"`
	PlanID    string       `json:"plan_id"`
	Status    RecordStatus `json:"status"`

	Tuition       ChargeTerms `json:"tuition"`
	Material      ChargeTerms `json:"material"`
	EnrollmentFee ChargeTerms `json:"enrollment_fee"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Charges returns the record's non-zero aggregates in materialization order.
func (r *FinancialRecord) Charges() []Charge {
	out := make([]Charge, 0, len(MaterializationOrder))
	for _, t := range MaterializationOrder {
		terms := r.TermsFor(t)
		if terms.TotalValue.IsPositive() && terms.Count > 0 {
			out = append(out, Charge{ItemType: t, Terms: terms})
		}
	}
	return out
}

// TermsFor returns the aggregate terms for one item type.
// Ad-hoc types have no aggregate on the record.
func (r *FinancialRecord) TermsFor(t ItemType) ChargeTerms {
	switch t {
	case ItemTypeTuition:
		return r.Tuition
	case ItemTypeMaterial:
		return r.Material
	case ItemTypeEnrollmentFee:
		return r.EnrollmentFee
	}
	return ChargeTerms{}
}

// Installment is one scheduled payment obligation. Sequence numbers are
// unique within (financial_record_id, item_type), starting at 1.
type Installment struct {
	ID                string            `json:"id"`
	FinancialRecordID string            `json:"financial_record_id"`
	StudentID         string            `json:"student_id"`
	ItemType          ItemType          `json:"item_type"`
	SequenceNumber    int               `json:"sequence_number"`
	Value             decimal.Decimal   `json:"value"`
	DueDate           time.Time         `json:"due_date"`
	Status            InstallmentStatus `json:"status"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	Description       string            `json:"description,omitempty"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	CycleStart        *time.Time        `json:"cycle_start,omitempty"`
	CycleEnd          *time.Time        `json:"cycle_end,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// HistoricalInstallment is an immutable copy of an installment taken at
// archival time. Never mutated or deleted.
type HistoricalInstallment struct {
	ID                string            `json:"id"`
	OriginalID        string            `json:"original_id"`
	FinancialRecordID string            `json:"financial_record_id"`
	StudentID         string            `json:"student_id"`
	ItemType          ItemType          `json:"item_type"`
	SequenceNumber    int               `json:"sequence_number"`
	Value             decimal.Decimal   `json:"value"`
	DueDate           time.Time         `json:"due_date"`
	Status            InstallmentStatus `json:"status"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	ArchiveReason     string            `json:"archive_reason"`
	ArchivedAt        time.Time         `json:"archived_at"`
}

// ArchiveReasonRenewal tags history rows produced by a cycle renewal.
const ArchiveReasonRenewal = "renewal"

// ToHistorical copies the installment into its archival form.
func (i *Installment) ToHistorical(reason string, archivedAt time.Time) HistoricalInstallment {
	return HistoricalInstallment{
		OriginalID:        i.ID,
		FinancialRecordID: i.FinancialRecordID,
		StudentID:         i.StudentID,
		ItemType:          i.ItemType,
		SequenceNumber:    i.SequenceNumber,
		Value:             i.Value,
		DueDate:           i.DueDate,
		Status:            i.Status,
		PaymentMethod:     i.PaymentMethod,
		ArchiveReason:     reason,
		ArchivedAt:        archivedAt,
	}
}

// VirtualInstallment is a read-model row computed on demand from a financial
// record's aggregates. Never persisted; its ID is deterministic so consumers
// can address it without storage.
type VirtualInstallment struct {
	ID                string            `json:"id"`
	FinancialRecordID string            `json:"financial_record_id"`
	ItemType          ItemType          `json:"item_type"`
	Number            int               `json:"number"`
	Value             decimal.Decimal   `json:"value"`
	DueDate           time.Time         `json:"due_date"`
	Status            InstallmentStatus `json:"status"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
}

// RenewalRequest carries the new cycle's plan and aggregates.
type RenewalRequest struct {
	PlanID     string        `json:"plan_id"`
	Charges    []ChargeSpec  `json:"charges"`
	CycleStart time.Time     `json:"cycle_start"`
	CycleEnd   time.Time     `json:"cycle_end"`
}

// ChargeSpec is one item type's new terms in a renewal or materialization
// request.
type ChargeSpec struct {
	ItemType      ItemType        `json:"item_type"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Count         int             `json:"count"`
	FirstDueDate  time.Time       `json:"first_due_date"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Description   string          `json:"description,omitempty"`
}

// Student is an external entity referenced by id; owned by the enrollment
// subsystem.
type Student struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}
