package service

import (
	"context"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Boleto view — synthesized from record aggregates
// ============================================================

// SynthesizeBoletos computes the virtual installment view for a student
// straight from the financial record's aggregates. Discrete installment
// rows are ignored entirely on this path.
func (s *FinanceService) SynthesizeBoletos(ctx context.Context, studentID string) ([]domain.VirtualInstallment, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.SynthesizeBoletos")
	defer span.End()
	span.SetAttributes(attribute.String("student.id", studentID))

	if studentID == "" {
		return nil, &domain.ErrValidation{Field: "student_id", Message: "required"}
	}

	record, err := s.store.GetFinancialRecord(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return domain.SynthesizeVirtual(record, s.now()), nil
}

// MarkVirtualPaid settles a boleto on the synthetic path. The synthetic view
// has no rows of its own, so paying "one installment" here coarsens to the
// whole financial record: overall status flips to Paid. Per-installment
// partial payment is deliberately not supported on this path.
func (s *FinanceService) MarkVirtualPaid(ctx context.Context, studentID string, itemType domain.ItemType, method domain.PaymentMethod) (*domain.FinancialRecord, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.MarkVirtualPaid")
	defer span.End()
	span.SetAttributes(
		attribute.String("student.id", studentID),
		attribute.String("item_type", string(itemType)),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("mark_virtual_paid", time.Since(start)) }()

	if studentID == "" {
		return nil, &domain.ErrValidation{Field: "student_id", Message: "required"}
	}

	record, err := s.store.GetFinancialRecord(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if record.Status == domain.RecordPaid {
		return record, nil
	}

	if itemType != "" && record.TermsFor(itemType).TotalValue.IsZero() {
		return nil, &domain.ErrValidation{Field: "item_type", Message: "record has no charge of type " + string(itemType)}
	}

	if err := s.store.SetRecordStatus(ctx, record.ID, domain.RecordPaid, method); err != nil {
		s.logger.Error("failed to mark record paid",
			zap.String("financial_record_id", record.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("financial record marked paid via boleto view",
		zap.String("financial_record_id", record.ID),
		zap.String("student_id", studentID),
		zap.String("item_type", string(itemType)),
	)

	return s.store.GetFinancialRecord(ctx, studentID)
}
