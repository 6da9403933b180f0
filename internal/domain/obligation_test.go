package domain_test

import (
	"testing"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"
)

func TestDerivePresentationStatus(t *testing.T) {
	today := date(2025, time.June, 15)

	cases := []struct {
		name    string
		stored  domain.InstallmentStatus
		dueDate time.Time
		want    domain.InstallmentStatus
	}{
		{"paid stays paid even years past due", domain.InstallmentPaid, date(2020, time.January, 10), domain.InstallmentPaid},
		{"cancelled stays cancelled past due", domain.InstallmentCancelled, date(2024, time.March, 1), domain.InstallmentCancelled},
		{"pending past due becomes overdue", domain.InstallmentPending, date(2025, time.June, 14), domain.InstallmentOverdue},
		{"pending due today stays pending", domain.InstallmentPending, date(2025, time.June, 15), domain.InstallmentPending},
		{"pending due tomorrow stays pending", domain.InstallmentPending, date(2025, time.June, 16), domain.InstallmentPending},
		{"stored overdue but not yet due reads pending", domain.InstallmentOverdue, date(2025, time.July, 1), domain.InstallmentPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.DerivePresentationStatus(tc.stored, tc.dueDate, today)
			if got != tc.want {
				t.Errorf("DerivePresentationStatus(%s, %v) = %s, want %s", tc.stored, tc.dueDate, got, tc.want)
			}
		})
	}
}

func TestDerivePresentationStatus_ComparesByCalendarDay(t *testing.T) {
	// Due at 23:00 today, "now" at 01:00 the same day: not overdue.
	due := time.Date(2025, time.June, 15, 23, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.June, 15, 1, 0, 0, 0, time.UTC)

	got := domain.DerivePresentationStatus(domain.InstallmentPending, due, now)
	if got != domain.InstallmentPending {
		t.Errorf("expected pending for same-day due, got %s", got)
	}
}

func TestAsObligation_SharedDerivation(t *testing.T) {
	today := date(2025, time.June, 15)

	inst := domain.Installment{
		ID:             "inst-1",
		ItemType:       domain.ItemTypeTuition,
		SequenceNumber: 2,
		DueDate:        date(2025, time.May, 1),
		Status:         domain.InstallmentPending,
	}
	virt := domain.VirtualInstallment{
		ItemType: domain.ItemTypeTuition,
		Number:   2,
		DueDate:  date(2025, time.May, 1),
		Status:   domain.InstallmentPending,
	}

	instStatus := inst.AsObligation().PresentationStatus(today)
	virtStatus := virt.AsObligation().PresentationStatus(today)

	if instStatus != domain.InstallmentOverdue || virtStatus != domain.InstallmentOverdue {
		t.Errorf("expected both paths overdue, got discrete=%s synthetic=%s", instStatus, virtStatus)
	}
	if inst.AsObligation().Kind != domain.ObligationDiscrete {
		t.Error("expected discrete kind for stored installment")
	}
	if virt.AsObligation().Kind != domain.ObligationSynthetic {
		t.Error("expected synthetic kind for virtual installment")
	}
}
