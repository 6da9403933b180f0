package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"

	"github.com/shopspring/decimal"
)

func boletoRecord() *domain.FinancialRecord {
	return &domain.FinancialRecord{
		ID:        "fr-1",
		StudentID: "stu-1",
		PlanID:    "plan-1",
		Status:    domain.RecordPending,
		Tuition: domain.ChargeTerms{
			TotalValue:    decimal.NewFromInt(1200),
			Count:         12,
			FirstDueDate:  date(2025, time.February, 5),
			PaymentMethod: domain.MethodBoleto,
		},
	}
}

func TestSynthesizeBoletos_IgnoresDiscreteRows(t *testing.T) {
	store := newFakeFinanceStore(boletoRecord())
	// Discrete rows exist but the synthetic view derives from aggregates only.
	store.installments = []domain.Installment{
		{ID: "i-1", FinancialRecordID: "fr-1", StudentID: "stu-1", ItemType: domain.ItemTypeTuition, SequenceNumber: 1, Status: domain.InstallmentPaid},
		{ID: "i-2", FinancialRecordID: "fr-1", StudentID: "stu-1", ItemType: domain.ItemTypeTuition, SequenceNumber: 2, Status: domain.InstallmentPaid},
	}
	svc := newFinanceService(store)

	boletos, err := svc.SynthesizeBoletos(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(boletos) != 12 {
		t.Fatalf("expected 12 virtual installments from the tuition aggregate, got %d", len(boletos))
	}
	if boletos[0].Status == domain.InstallmentPaid {
		t.Error("discrete paid rows must not leak into the synthetic view")
	}
}

func TestSynthesizeBoletos_RecordNotFound(t *testing.T) {
	svc := newFinanceService(newFakeFinanceStore(nil))

	_, err := svc.SynthesizeBoletos(context.Background(), "stu-1")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkVirtualPaid_CoarsensToRecord(t *testing.T) {
	store := newFakeFinanceStore(boletoRecord())
	svc := newFinanceService(store)

	record, err := svc.MarkVirtualPaid(context.Background(), "stu-1", domain.ItemTypeTuition, domain.MethodPix)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if record.Status != domain.RecordPaid {
		t.Errorf("expected record paid, got %s", record.Status)
	}
	if store.setStatusCalls != 1 {
		t.Errorf("expected one status write, got %d", store.setStatusCalls)
	}
}

func TestMarkVirtualPaid_AlreadyPaidIsNoop(t *testing.T) {
	record := boletoRecord()
	record.Status = domain.RecordPaid
	store := newFakeFinanceStore(record)
	svc := newFinanceService(store)

	out, err := svc.MarkVirtualPaid(context.Background(), "stu-1", domain.ItemTypeTuition, domain.MethodPix)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Status != domain.RecordPaid {
		t.Errorf("expected paid, got %s", out.Status)
	}
	if store.setStatusCalls != 0 {
		t.Errorf("expected no status write for already-paid record, got %d", store.setStatusCalls)
	}
}

func TestMarkVirtualPaid_UnknownChargeRejected(t *testing.T) {
	store := newFakeFinanceStore(boletoRecord())
	svc := newFinanceService(store)

	// The record carries no material aggregate.
	_, err := svc.MarkVirtualPaid(context.Background(), "stu-1", domain.ItemTypeMaterial, domain.MethodPix)
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if store.setStatusCalls != 0 {
		t.Error("expected no status write on rejected item type")
	}
}
