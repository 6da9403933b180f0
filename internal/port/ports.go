// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/reforco-edu/billing-core-go/internal/domain"
)

// ListOrder selects the ordering of installment reads.
type ListOrder string

const (
	// OrderByDueDate sorts by due date ascending.
	OrderByDueDate ListOrder = "due_date"
	// OrderBySequence sorts by item type (materialization order) then
	// sequence number.
	OrderBySequence ListOrder = "sequence"
)

// InstallmentPatch is a partial update applied to one installment row.
type InstallmentPatch struct {
	Status        *domain.InstallmentStatus
	PaymentMethod *domain.PaymentMethod
	PaidAt        *string // RFC 3339; nil leaves the column untouched
}

// RecordUpdate overwrites a financial record's plan reference and per-type
// aggregates during renewal.
type RecordUpdate struct {
	PlanID        string
	Status        domain.RecordStatus
	Tuition       domain.ChargeTerms
	Material      domain.ChargeTerms
	EnrollmentFee domain.ChargeTerms
}

// FinanceStore defines all remote-store operations for financial records,
// installments and history. Implemented by the Supabase adapter. Every call
// is an independent remote request; no cross-call transaction is assumed.
type FinanceStore interface {
	// Financial records
	GetFinancialRecord(ctx context.Context, studentID string) (*domain.FinancialRecord, error)
	UpdateFinancialRecord(ctx context.Context, recordID string, update RecordUpdate) error
	SetRecordStatus(ctx context.Context, recordID string, status domain.RecordStatus, method domain.PaymentMethod) error

	// Installments
	MaxSequenceNumber(ctx context.Context, recordID string, itemType domain.ItemType) (int, error)
	InsertInstallments(ctx context.Context, rows []domain.Installment) ([]domain.Installment, error)
	ListInstallments(ctx context.Context, recordID string, order ListOrder) ([]domain.Installment, error)
	ListStudentInstallments(ctx context.Context, studentID string, order ListOrder) ([]domain.Installment, error)
	GetInstallment(ctx context.Context, installmentID string) (*domain.Installment, error)
	UpdateInstallment(ctx context.Context, installmentID string, patch InstallmentPatch) error
	DeleteInstallments(ctx context.Context, recordID string) error

	// History
	InsertHistoricalInstallments(ctx context.Context, rows []domain.HistoricalInstallment) (int, error)
	ListHistoricalInstallments(ctx context.Context, studentID string) ([]domain.HistoricalInstallment, error)
}

// ContractStore reads per-student agreements.
type ContractStore interface {
	GetContractByStudent(ctx context.Context, studentID string) (*domain.Contract, error)
	ListContracts(ctx context.Context) ([]domain.Contract, error)
}

// StudentStore lists the active roster consumed by the cycle detector.
type StudentStore interface {
	ListActiveStudents(ctx context.Context) ([]domain.Student, error)
}

// AttendanceStore performs the idempotent presence upsert for graded lessons.
type AttendanceStore interface {
	// HasPresence reports whether a record with status Present already
	// exists for the pair. A record with any other status does not count.
	HasPresence(ctx context.Context, lessonID, studentID string) (bool, error)
	// UpsertPresence writes a Present record for the pair, overwriting the
	// status of an existing record (e.g. Absent) rather than failing on it.
	UpsertPresence(ctx context.Context, lessonID, studentID string) (*domain.AttendanceRecord, error)
}

// AuthStore looks up staff operators for login.
type AuthStore interface {
	GetStaffByEmail(ctx context.Context, email string) (*domain.StaffUser, error)
}

// Cache provides generic caching with TTL. Only the active-student roster
// is cached; billing reads always hit the store for a fresh snapshot.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
