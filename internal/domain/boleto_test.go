package domain_test

import (
	"testing"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"

	"github.com/shopspring/decimal"
)

func sampleRecord() *domain.FinancialRecord {
	return &domain.FinancialRecord{
		ID:        "fr-1",
		StudentID: "stu-1",
		Status:    domain.RecordPending,
		Tuition: domain.ChargeTerms{
			TotalValue:    decimal.NewFromInt(1200),
			Count:         12,
			FirstDueDate:  date(2025, time.February, 5),
			PaymentMethod: domain.MethodBoleto,
		},
		Material: domain.ChargeTerms{
			TotalValue:    decimal.NewFromInt(300),
			Count:         3,
			FirstDueDate:  date(2025, time.February, 10),
			PaymentMethod: domain.MethodBoleto,
		},
	}
}

func TestSynthesizeVirtual_FromAggregates(t *testing.T) {
	today := date(2025, time.January, 1)
	out := domain.SynthesizeVirtual(sampleRecord(), today)

	if len(out) != 15 {
		t.Fatalf("expected 15 virtual installments, got %d", len(out))
	}

	// No enrollment fee on this record, so the material block (3 rows)
	// precedes the tuition block (12 rows).
	if out[0].ItemType != domain.ItemTypeMaterial {
		t.Errorf("expected material first, got %s", out[0].ItemType)
	}
	if out[3].ItemType != domain.ItemTypeTuition {
		t.Errorf("expected tuition after material block, got %s", out[3].ItemType)
	}

	first := out[3]
	if !first.Value.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected tuition split of 100, got %s", first.Value)
	}
	if !first.DueDate.Equal(date(2025, time.February, 5)) {
		t.Errorf("expected first due date 2025-02-05, got %v", first.DueDate)
	}
	if first.Number != 1 {
		t.Errorf("expected numbering to start at 1, got %d", first.Number)
	}
	if first.Status != domain.InstallmentPending {
		t.Errorf("expected pending before due date, got %s", first.Status)
	}
}

func TestSynthesizeVirtual_DeterministicIDs(t *testing.T) {
	today := date(2025, time.January, 1)
	a := domain.SynthesizeVirtual(sampleRecord(), today)
	b := domain.SynthesizeVirtual(sampleRecord(), today)

	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("expected deterministic ids, got %s vs %s", a[i].ID, b[i].ID)
		}
	}
	if a[0].ID != domain.VirtualID("fr-1", domain.ItemTypeMaterial, 1) {
		t.Errorf("unexpected id format: %s", a[0].ID)
	}
}

func TestSynthesizeVirtual_PaidRecordPaintsAllPaid(t *testing.T) {
	record := sampleRecord()
	record.Status = domain.RecordPaid

	// Even with due dates long past, paid stays paid.
	out := domain.SynthesizeVirtual(record, date(2030, time.January, 1))
	for _, v := range out {
		if v.Status != domain.InstallmentPaid {
			t.Fatalf("expected all paid, got %s for %s", v.Status, v.ID)
		}
	}
}

func TestSynthesizeVirtual_OverdueDerivation(t *testing.T) {
	out := domain.SynthesizeVirtual(sampleRecord(), date(2025, time.March, 1))

	overdue := 0
	for _, v := range out {
		if v.Status == domain.InstallmentOverdue {
			overdue++
		}
	}
	// Material #1 (Feb 10) and tuition #1 (Feb 5) are past due on Mar 1.
	if overdue != 2 {
		t.Errorf("expected 2 overdue virtual installments, got %d", overdue)
	}
}

func TestCharges_FixedOrderAndZeroSkip(t *testing.T) {
	record := sampleRecord()
	record.EnrollmentFee = domain.ChargeTerms{
		TotalValue:   decimal.NewFromInt(150),
		Count:        1,
		FirstDueDate: date(2025, time.February, 1),
	}

	charges := record.Charges()
	if len(charges) != 3 {
		t.Fatalf("expected 3 charges, got %d", len(charges))
	}
	want := []domain.ItemType{domain.ItemTypeEnrollmentFee, domain.ItemTypeMaterial, domain.ItemTypeTuition}
	for i, w := range want {
		if charges[i].ItemType != w {
			t.Errorf("charge %d: expected %s, got %s", i, w, charges[i].ItemType)
		}
	}

	record.Material.TotalValue = decimal.Zero
	if len(record.Charges()) != 2 {
		t.Error("expected zero-value aggregate to be skipped")
	}
}
