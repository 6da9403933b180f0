package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/infra/cache"
	"github.com/reforco-edu/billing-core-go/internal/infra/observability"
	"github.com/reforco-edu/billing-core-go/internal/service"

	"go.uber.org/zap"
)

func newCycleService(finance *fakeFinanceStore, students *fakeStudentStore) *service.CycleService {
	roster := cache.New[[]domain.Student](time.Minute)
	return service.NewCycleService(finance, students, roster, observability.NewMetrics(), zap.NewNop())
}

func TestClassifyStudent_MissingRecordMeansNeeded(t *testing.T) {
	svc := newCycleService(newFakeFinanceStore(nil), &fakeStudentStore{})

	cycle, err := svc.ClassifyStudent(context.Background(), "stu-9")
	if err != nil {
		t.Fatalf("expected missing record to classify, not error, got %v", err)
	}
	if cycle.Classification != domain.CycleNeeded {
		t.Errorf("expected needs_new_cycle, got %s", cycle.Classification)
	}
	if cycle.StudentID != "stu-9" {
		t.Errorf("expected student id echoed, got %s", cycle.StudentID)
	}
}

func TestClassifyStudent_ActiveCycle(t *testing.T) {
	store := newFakeFinanceStore(pendingRecord())
	cycleStart := date(2025, time.February, 1)
	cycleEnd := date(2026, time.January, 31)
	store.installments = []domain.Installment{
		{ID: "i-1", FinancialRecordID: "fr-1", StudentID: "stu-1", ItemType: domain.ItemTypeTuition, SequenceNumber: 1, CycleStart: &cycleStart, CycleEnd: &cycleEnd},
	}
	svc := newCycleService(store, &fakeStudentStore{})

	cycle, err := svc.ClassifyStudent(context.Background(), "stu-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cycle.Classification != domain.CycleActive {
		t.Errorf("expected has_active_cycle, got %s", cycle.Classification)
	}
}

func TestClassifyRoster_SortedWithNames(t *testing.T) {
	students := &fakeStudentStore{students: []domain.Student{
		{ID: "stu-2", Name: "Bruna"},
		{ID: "stu-1", Name: "Ana"},
		{ID: "stu-3", Name: "Caio"},
	}}
	svc := newCycleService(newFakeFinanceStore(pendingRecord()), students)

	out, err := svc.ClassifyRoster(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 classifications, got %d", len(out))
	}
	for i, want := range []string{"stu-1", "stu-2", "stu-3"} {
		if out[i].StudentID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, out[i].StudentID)
		}
	}
	if out[0].StudentName != "Ana" {
		t.Errorf("expected roster name carried over, got %q", out[0].StudentName)
	}
	// stu-1 has a record with no live installments; the others have nothing.
	for _, c := range out {
		if c.Classification != domain.CycleNeeded {
			t.Errorf("%s: expected needs_new_cycle, got %s", c.StudentID, c.Classification)
		}
	}
}

func TestClassifyRoster_CachesRoster(t *testing.T) {
	students := &fakeStudentStore{students: []domain.Student{{ID: "stu-1", Name: "Ana"}}}
	svc := newCycleService(newFakeFinanceStore(nil), students)

	if _, err := svc.ClassifyRoster(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.ClassifyRoster(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if students.listCalls != 1 {
		t.Errorf("expected roster fetched once and cached, got %d calls", students.listCalls)
	}
}
