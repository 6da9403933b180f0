package service_test

import (
	"context"
	"sync"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/port"
)

// fakeFinanceStore is an in-memory FinanceStore that mimics the remote
// store's behavior, including the unique index on
// (financial_record_id, item_type, sequence_number).
type fakeFinanceStore struct {
	mu sync.Mutex

	record       *domain.FinancialRecord
	installments []domain.Installment
	history      []domain.HistoricalInstallment

	// fault injection
	errOn              map[string]error // method name -> error
	conflictsRemaining int              // InsertInstallments fails with ErrConflict while > 0
	shortHistoryInsert bool             // report one row fewer than inserted

	// hooks & counters
	afterListInstallments func()
	insertCalls           int
	deleteCalls           int
	setStatusCalls        int
}

func newFakeFinanceStore(record *domain.FinancialRecord) *fakeFinanceStore {
	return &fakeFinanceStore{record: record, errOn: map[string]error{}}
}

func (f *fakeFinanceStore) GetFinancialRecord(_ context.Context, studentID string) (*domain.FinancialRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["GetFinancialRecord"]; err != nil {
		return nil, err
	}
	if f.record == nil || f.record.StudentID != studentID {
		return nil, &domain.ErrNotFound{Resource: "financial_record", ID: studentID}
	}
	clone := *f.record
	return &clone, nil
}

func (f *fakeFinanceStore) UpdateFinancialRecord(_ context.Context, recordID string, update port.RecordUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["UpdateFinancialRecord"]; err != nil {
		return err
	}
	if f.record != nil && f.record.ID == recordID {
		f.record.PlanID = update.PlanID
		f.record.Status = update.Status
		f.record.Tuition = update.Tuition
		f.record.Material = update.Material
		f.record.EnrollmentFee = update.EnrollmentFee
	}
	return nil
}

func (f *fakeFinanceStore) SetRecordStatus(_ context.Context, recordID string, status domain.RecordStatus, method domain.PaymentMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setStatusCalls++
	if err := f.errOn["SetRecordStatus"]; err != nil {
		return err
	}
	if f.record != nil && f.record.ID == recordID {
		f.record.Status = status
	}
	return nil
}

func (f *fakeFinanceStore) MaxSequenceNumber(_ context.Context, recordID string, itemType domain.ItemType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["MaxSequenceNumber"]; err != nil {
		return 0, err
	}
	max := 0
	for i := range f.installments {
		inst := &f.installments[i]
		if inst.FinancialRecordID == recordID && inst.ItemType == itemType && inst.SequenceNumber > max {
			max = inst.SequenceNumber
		}
	}
	return max, nil
}

func (f *fakeFinanceStore) InsertInstallments(_ context.Context, rows []domain.Installment) ([]domain.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if err := f.errOn["InsertInstallments"]; err != nil {
		return nil, err
	}
	if f.conflictsRemaining > 0 {
		f.conflictsRemaining--
		return nil, &domain.ErrConflict{Resource: "installments", Message: "unique constraint violated"}
	}
	for _, row := range rows {
		for i := range f.installments {
			existing := &f.installments[i]
			if existing.FinancialRecordID == row.FinancialRecordID &&
				existing.ItemType == row.ItemType &&
				existing.SequenceNumber == row.SequenceNumber {
				return nil, &domain.ErrConflict{Resource: "installments", Message: "unique constraint violated"}
			}
		}
	}
	f.installments = append(f.installments, rows...)
	return rows, nil
}

func (f *fakeFinanceStore) ListInstallments(_ context.Context, recordID string, _ port.ListOrder) ([]domain.Installment, error) {
	f.mu.Lock()
	if err := f.errOn["ListInstallments"]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	out := make([]domain.Installment, 0)
	for i := range f.installments {
		if f.installments[i].FinancialRecordID == recordID {
			out = append(out, f.installments[i])
		}
	}
	hook := f.afterListInstallments
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeFinanceStore) ListStudentInstallments(_ context.Context, studentID string, _ port.ListOrder) ([]domain.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Installment, 0)
	for i := range f.installments {
		if f.installments[i].StudentID == studentID {
			out = append(out, f.installments[i])
		}
	}
	return out, nil
}

func (f *fakeFinanceStore) GetInstallment(_ context.Context, installmentID string) (*domain.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.installments {
		if f.installments[i].ID == installmentID {
			clone := f.installments[i]
			return &clone, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "installment", ID: installmentID}
}

func (f *fakeFinanceStore) UpdateInstallment(_ context.Context, installmentID string, patch port.InstallmentPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["UpdateInstallment"]; err != nil {
		return err
	}
	for i := range f.installments {
		if f.installments[i].ID != installmentID {
			continue
		}
		if patch.Status != nil {
			f.installments[i].Status = *patch.Status
		}
		if patch.PaymentMethod != nil {
			f.installments[i].PaymentMethod = *patch.PaymentMethod
		}
		return nil
	}
	return &domain.ErrNotFound{Resource: "installment", ID: installmentID}
}

func (f *fakeFinanceStore) DeleteInstallments(_ context.Context, recordID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if err := f.errOn["DeleteInstallments"]; err != nil {
		return err
	}
	kept := f.installments[:0]
	for i := range f.installments {
		if f.installments[i].FinancialRecordID != recordID {
			kept = append(kept, f.installments[i])
		}
	}
	f.installments = kept
	return nil
}

func (f *fakeFinanceStore) InsertHistoricalInstallments(_ context.Context, rows []domain.HistoricalInstallment) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["InsertHistoricalInstallments"]; err != nil {
		return 0, err
	}
	f.history = append(f.history, rows...)
	if f.shortHistoryInsert {
		return len(rows) - 1, nil
	}
	return len(rows), nil
}

func (f *fakeFinanceStore) ListHistoricalInstallments(_ context.Context, studentID string) ([]domain.HistoricalInstallment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.HistoricalInstallment, 0)
	for i := range f.history {
		if f.history[i].StudentID == studentID {
			out = append(out, f.history[i])
		}
	}
	return out, nil
}

func (f *fakeFinanceStore) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.installments)
}

// fakeStudentStore serves the roster.
type fakeStudentStore struct {
	mu        sync.Mutex
	students  []domain.Student
	listCalls int
}

func (f *fakeStudentStore) ListActiveStudents(_ context.Context) ([]domain.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.students, nil
}
