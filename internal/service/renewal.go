package service

import (
	"context"
	"fmt"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RenewalResult summarizes a completed renewal.
type RenewalResult struct {
	StudentID         string               `json:"student_id"`
	FinancialRecordID string               `json:"financial_record_id"`
	ArchivedCount     int                  `json:"archived_count"`
	Installments      []domain.Installment `json:"installments"`
}

// Renew closes the student's current billing cycle and opens a new one:
//
//  1. ArchiveCurrent — copy every live installment to history with
//     archive_reason "renewal", then delete the live rows. The delete only
//     runs after the store confirms the full copy.
//  2. UpdateFinancialRecord — overwrite plan reference and per-type
//     aggregates, reset overall status to Pending.
//  3. Materialize — expand the new aggregates; numbering restarts at 1 per
//     type because only live rows feed the sequencer.
//
// The three steps are independent remote calls, so a failure halts the
// sequence and is reported as a RenewalStepError naming the failed step.
// The operation is retryable: an empty live set means step 1 already ran,
// and the archival step is skipped on the next attempt.
//
// Concurrent renewals for one student are rejected with ErrConflict via a
// per-student advisory lock.
func (s *FinanceService) Renew(ctx context.Context, studentID string, req domain.RenewalRequest) (*RenewalResult, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.Renew")
	defer span.End()
	span.SetAttributes(attribute.String("student.id", studentID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("renewal", time.Since(start)) }()

	if studentID == "" {
		return nil, &domain.ErrValidation{Field: "student_id", Message: "required"}
	}
	if req.PlanID == "" {
		return nil, &domain.ErrValidation{Field: "plan_id", Message: "required"}
	}
	if len(req.Charges) == 0 {
		return nil, &domain.ErrValidation{Field: "charges", Message: "at least one charge is required"}
	}
	if req.CycleStart.IsZero() || req.CycleEnd.IsZero() {
		return nil, &domain.ErrValidation{Field: "cycle", Message: "cycle_start and cycle_end are required"}
	}

	if !s.locks.TryLock(studentID) {
		s.metrics.IncrRenewal("rejected_concurrent")
		return nil, &domain.ErrConflict{Resource: "renewal", Message: "renewal already in progress for student " + studentID}
	}
	defer s.locks.Unlock(studentID)

	record, err := s.store.GetFinancialRecord(ctx, studentID)
	if err != nil {
		return nil, err
	}

	// Step 1: archive current installments.
	archived, err := s.archiveCurrent(ctx, record)
	if err != nil {
		s.metrics.IncrRenewal("failed_" + domain.RenewalStepArchive)
		return nil, &domain.RenewalStepError{Step: domain.RenewalStepArchive, StudentID: studentID, Err: err}
	}

	// Step 2: overwrite the record's aggregates for the new cycle.
	if err := s.store.UpdateFinancialRecord(ctx, record.ID, buildRecordUpdate(req)); err != nil {
		s.metrics.IncrRenewal("failed_" + domain.RenewalStepUpdate)
		return nil, &domain.RenewalStepError{Step: domain.RenewalStepUpdate, StudentID: studentID, Err: err}
	}

	// Step 3: materialize the new cycle.
	cycleStart, cycleEnd := req.CycleStart, req.CycleEnd
	created, err := s.Materialize(ctx, record.ID, studentID, MaterializeInput{
		Charges:    req.Charges,
		CycleStart: &cycleStart,
		CycleEnd:   &cycleEnd,
	})
	if err != nil {
		s.metrics.IncrRenewal("failed_" + domain.RenewalStepMaterialize)
		return nil, &domain.RenewalStepError{Step: domain.RenewalStepMaterialize, StudentID: studentID, Err: err}
	}

	s.metrics.IncrRenewal("completed")
	s.logger.Info("renewal completed",
		zap.String("student_id", studentID),
		zap.String("financial_record_id", record.ID),
		zap.String("plan_id", req.PlanID),
		zap.Int("archived", archived),
		zap.Int("created", len(created)),
	)

	return &RenewalResult{
		StudentID:         studentID,
		FinancialRecordID: record.ID,
		ArchivedCount:     archived,
		Installments:      created,
	}, nil
}

// archiveCurrent copies the record's live installments to history and
// deletes them. The delete is only issued once the store confirms it
// persisted as many history rows as were copied. An empty live set is
// treated as "already archived" so a halted renewal can be re-run.
func (s *FinanceService) archiveCurrent(ctx context.Context, record *domain.FinancialRecord) (int, error) {
	live, err := s.store.ListInstallments(ctx, record.ID, port.OrderBySequence)
	if err != nil {
		return 0, err
	}
	if len(live) == 0 {
		s.logger.Info("no live installments to archive, resuming renewal",
			zap.String("financial_record_id", record.ID),
		)
		return 0, nil
	}

	archivedAt := s.now()
	history := make([]domain.HistoricalInstallment, 0, len(live))
	for i := range live {
		history = append(history, live[i].ToHistorical(domain.ArchiveReasonRenewal, archivedAt))
	}

	inserted, err := s.store.InsertHistoricalInstallments(ctx, history)
	if err != nil {
		return 0, err
	}
	if inserted != len(history) {
		return 0, fmt.Errorf("archival copy incomplete: %d of %d rows persisted", inserted, len(history))
	}

	if err := s.store.DeleteInstallments(ctx, record.ID); err != nil {
		return 0, err
	}
	return len(history), nil
}

func buildRecordUpdate(req domain.RenewalRequest) port.RecordUpdate {
	update := port.RecordUpdate{
		PlanID: req.PlanID,
		Status: domain.RecordPending,
	}
	for _, spec := range req.Charges {
		terms := domain.ChargeTerms{
			TotalValue:    spec.TotalValue,
			Count:         spec.Count,
			FirstDueDate:  spec.FirstDueDate,
			PaymentMethod: spec.PaymentMethod,
			Description:   spec.Description,
		}
		switch spec.ItemType {
		case domain.ItemTypeTuition:
			update.Tuition = terms
		case domain.ItemTypeMaterial:
			update.Material = terms
		case domain.ItemTypeEnrollmentFee:
			update.EnrollmentFee = terms
		}
	}
	return update
}
