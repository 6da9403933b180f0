package service

import (
	"context"
	"errors"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MaterializeInput carries the aggregates to expand plus the optional cycle
// window stamped onto every created cycle-bearing row.
type MaterializeInput struct {
	Charges    []domain.ChargeSpec
	CycleStart *time.Time
	CycleEnd   *time.Time
}

// Materialize expands aggregate charges into concrete dated installments.
//
// Item types are processed in the fixed order enrollment fee → material →
// tuition so numbering is deterministic when several types are created in
// one batch. Each type reserves one contiguous sequence block up front; the
// per-row value is the equal split of the total and due dates advance one
// clamped calendar month per ordinal.
//
// A sequence collision with a concurrent writer surfaces as ErrConflict from
// the store's unique index; the batch for that type is retried with a
// freshly computed block, bounded by sequenceRetries.
func (s *FinanceService) Materialize(ctx context.Context, recordID, studentID string, input MaterializeInput) ([]domain.Installment, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.Materialize")
	defer span.End()
	span.SetAttributes(attribute.String("financial_record.id", recordID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("materialize", time.Since(start)) }()

	if recordID == "" {
		return nil, &domain.ErrValidation{Field: "financial_record_id", Message: "required"}
	}
	if studentID == "" {
		return nil, &domain.ErrValidation{Field: "student_id", Message: "required"}
	}

	specs := make(map[domain.ItemType]domain.ChargeSpec, len(input.Charges))
	for _, spec := range input.Charges {
		if !spec.TotalValue.IsPositive() {
			continue
		}
		if spec.Count <= 0 {
			return nil, &domain.ErrValidation{Field: "count", Message: "must be positive for " + string(spec.ItemType)}
		}
		if spec.FirstDueDate.IsZero() {
			return nil, &domain.ErrValidation{Field: "first_due_date", Message: "required for " + string(spec.ItemType)}
		}
		specs[spec.ItemType] = spec
	}

	var created []domain.Installment
	for _, itemType := range domain.MaterializationOrder {
		spec, ok := specs[itemType]
		if !ok {
			continue
		}

		rows, err := s.materializeType(ctx, recordID, studentID, spec, input)
		if err != nil {
			return nil, err
		}
		created = append(created, rows...)
	}

	s.logger.Info("installments materialized",
		zap.String("financial_record_id", recordID),
		zap.String("student_id", studentID),
		zap.Int("count", len(created)),
	)

	return created, nil
}

// materializeType inserts one item type's batch, retrying on sequence
// collisions with a recomputed block.
func (s *FinanceService) materializeType(ctx context.Context, recordID, studentID string, spec domain.ChargeSpec, input MaterializeInput) ([]domain.Installment, error) {
	var lastErr error
	for attempt := 0; attempt < sequenceRetries; attempt++ {
		first, err := s.NextSequenceNumber(ctx, recordID, spec.ItemType)
		if err != nil {
			return nil, err
		}

		rows := buildBatch(recordID, studentID, spec, input, first, s.now())
		inserted, err := s.store.InsertInstallments(ctx, rows)
		if err == nil {
			return inserted, nil
		}

		var conflict *domain.ErrConflict
		if !errors.As(err, &conflict) {
			return nil, err
		}

		lastErr = err
		s.metrics.IncrSequenceConflict(string(spec.ItemType))
		s.logger.Warn("sequence collision, recomputing block",
			zap.String("financial_record_id", recordID),
			zap.String("item_type", string(spec.ItemType)),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, lastErr
}

// buildBatch lays out one type's installments over a contiguous sequence
// block starting at first.
func buildBatch(recordID, studentID string, spec domain.ChargeSpec, input MaterializeInput, first int, now time.Time) []domain.Installment {
	value := domain.SplitEqual(spec.TotalValue, spec.Count)

	rows := make([]domain.Installment, 0, spec.Count)
	for i := 0; i < spec.Count; i++ {
		inst := domain.Installment{
			ID:                uuid.New().String(),
			FinancialRecordID: recordID,
			StudentID:         studentID,
			ItemType:          spec.ItemType,
			SequenceNumber:    first + i,
			Value:             value,
			DueDate:           domain.AddMonthsClamped(spec.FirstDueDate, i),
			Status:            domain.InstallmentPending,
			PaymentMethod:     spec.PaymentMethod,
			Description:       spec.Description,
			CreatedAt:         now,
		}
		if !spec.ItemType.IsAdHoc() {
			inst.CycleStart = input.CycleStart
			inst.CycleEnd = input.CycleEnd
		}
		rows = append(rows, inst)
	}
	return rows
}
