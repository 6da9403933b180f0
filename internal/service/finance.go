// Package service implements the billing core's use cases on top of the
// store ports: installment numbering and materialization, the boleto view,
// renewal orchestration, cycle detection and contract reads.
package service

import (
	"context"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/infra/observability"
	"github.com/reforco-edu/billing-core-go/internal/infra/resilience"
	"github.com/reforco-edu/billing-core-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var financeTracer = otel.Tracer("finance")

// sequenceRetries bounds how often a materialization batch is re-attempted
// after a sequence-number collision (unique index violation in the store).
const sequenceRetries = 3

// FinanceService owns installments, financial records and their history.
type FinanceService struct {
	store   port.FinanceStore
	locks   *resilience.KeyedMutex
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewFinanceService creates the finance service.
func NewFinanceService(store port.FinanceStore, metrics *observability.Metrics, logger *zap.Logger) *FinanceService {
	return &FinanceService{
		store:   store,
		locks:   resilience.NewKeyedMutex(),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// NextSequenceNumber allocates the next ordinal for (record, item type):
// max over live installments + 1, or 1 when none exist. Only live rows
// count, so numbering restarts at 1 after archival.
//
// This read-then-use is racy on its own; the store's unique index on
// (financial_record_id, item_type, sequence_number) makes the losing writer
// fail with ErrConflict, and Materialize retries with a fresh number.
func (s *FinanceService) NextSequenceNumber(ctx context.Context, recordID string, itemType domain.ItemType) (int, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.NextSequenceNumber")
	defer span.End()
	span.SetAttributes(
		attribute.String("financial_record.id", recordID),
		attribute.String("item_type", string(itemType)),
	)

	max, err := s.store.MaxSequenceNumber(ctx, recordID, itemType)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// GetFinancialRecord returns the student's active record.
func (s *FinanceService) GetFinancialRecord(ctx context.Context, studentID string) (*domain.FinancialRecord, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.GetFinancialRecord")
	defer span.End()

	if studentID == "" {
		return nil, &domain.ErrValidation{Field: "student_id", Message: "required"}
	}
	return s.store.GetFinancialRecord(ctx, studentID)
}

// ListStudentInstallments returns the student's live installments in the
// requested order, always a fresh snapshot from the store.
func (s *FinanceService) ListStudentInstallments(ctx context.Context, studentID string, order port.ListOrder) ([]domain.Installment, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListStudentInstallments")
	defer span.End()
	span.SetAttributes(attribute.String("student.id", studentID))

	if studentID == "" {
		return nil, &domain.ErrValidation{Field: "student_id", Message: "required"}
	}
	if order == "" {
		order = port.OrderByDueDate
	}
	return s.store.ListStudentInstallments(ctx, studentID, order)
}

// ListHistory returns the student's archived installments.
func (s *FinanceService) ListHistory(ctx context.Context, studentID string) ([]domain.HistoricalInstallment, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListHistory")
	defer span.End()

	if studentID == "" {
		return nil, &domain.ErrValidation{Field: "student_id", Message: "required"}
	}
	return s.store.ListHistoricalInstallments(ctx, studentID)
}

// DeriveStatus exposes the shared presentation-status derivation for one
// installment as of now.
func (s *FinanceService) DeriveStatus(inst *domain.Installment) domain.InstallmentStatus {
	return inst.AsObligation().PresentationStatus(s.now())
}

// MarkInstallmentPaid flips a single discrete installment to Paid.
// Marking an already-paid row again is a no-op; a cancelled row cannot be
// paid.
func (s *FinanceService) MarkInstallmentPaid(ctx context.Context, installmentID string, method domain.PaymentMethod) (*domain.Installment, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.MarkInstallmentPaid")
	defer span.End()
	span.SetAttributes(attribute.String("installment.id", installmentID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("mark_installment_paid", time.Since(start)) }()

	if installmentID == "" {
		return nil, &domain.ErrValidation{Field: "installment_id", Message: "required"}
	}

	inst, err := s.store.GetInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if inst.Status == domain.InstallmentPaid {
		return inst, nil
	}
	if inst.Status == domain.InstallmentCancelled {
		return nil, &domain.ErrValidation{Field: "status", Message: "cancelled installment cannot be paid"}
	}

	paid := domain.InstallmentPaid
	paidAt := s.now().Format(time.RFC3339)
	patch := port.InstallmentPatch{Status: &paid, PaidAt: &paidAt}
	if method != "" {
		patch.PaymentMethod = &method
	}
	if err := s.store.UpdateInstallment(ctx, installmentID, patch); err != nil {
		s.logger.Error("failed to mark installment paid",
			zap.String("installment_id", installmentID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("installment paid",
		zap.String("installment_id", installmentID),
		zap.String("student_id", inst.StudentID),
		zap.String("item_type", string(inst.ItemType)),
		zap.Int("sequence_number", inst.SequenceNumber),
	)

	return s.store.GetInstallment(ctx, installmentID)
}
