package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/handler"
	"github.com/reforco-edu/billing-core-go/internal/infra/cache"
	"github.com/reforco-edu/billing-core-go/internal/infra/observability"
	"github.com/reforco-edu/billing-core-go/internal/port"
	"github.com/reforco-edu/billing-core-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// stubFinanceStore serves a single record and installment set.
type stubFinanceStore struct {
	record       *domain.FinancialRecord
	installments []domain.Installment
}

func (s *stubFinanceStore) GetFinancialRecord(_ context.Context, studentID string) (*domain.FinancialRecord, error) {
	if s.record == nil || s.record.StudentID != studentID {
		return nil, &domain.ErrNotFound{Resource: "financial_record", ID: studentID}
	}
	clone := *s.record
	return &clone, nil
}

func (s *stubFinanceStore) UpdateFinancialRecord(context.Context, string, port.RecordUpdate) error {
	return nil
}

func (s *stubFinanceStore) SetRecordStatus(context.Context, string, domain.RecordStatus, domain.PaymentMethod) error {
	return nil
}

func (s *stubFinanceStore) MaxSequenceNumber(context.Context, string, domain.ItemType) (int, error) {
	return 0, nil
}

func (s *stubFinanceStore) InsertInstallments(_ context.Context, rows []domain.Installment) ([]domain.Installment, error) {
	s.installments = append(s.installments, rows...)
	return rows, nil
}

func (s *stubFinanceStore) ListInstallments(context.Context, string, port.ListOrder) ([]domain.Installment, error) {
	return s.installments, nil
}

func (s *stubFinanceStore) ListStudentInstallments(context.Context, string, port.ListOrder) ([]domain.Installment, error) {
	return s.installments, nil
}

func (s *stubFinanceStore) GetInstallment(_ context.Context, installmentID string) (*domain.Installment, error) {
	for i := range s.installments {
		if s.installments[i].ID == installmentID {
			clone := s.installments[i]
			return &clone, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "installment", ID: installmentID}
}

func (s *stubFinanceStore) UpdateInstallment(_ context.Context, installmentID string, patch port.InstallmentPatch) error {
	for i := range s.installments {
		if s.installments[i].ID == installmentID && patch.Status != nil {
			s.installments[i].Status = *patch.Status
		}
	}
	return nil
}

func (s *stubFinanceStore) DeleteInstallments(context.Context, string) error {
	s.installments = nil
	return nil
}

func (s *stubFinanceStore) InsertHistoricalInstallments(_ context.Context, rows []domain.HistoricalInstallment) (int, error) {
	return len(rows), nil
}

func (s *stubFinanceStore) ListHistoricalInstallments(context.Context, string) ([]domain.HistoricalInstallment, error) {
	return nil, nil
}

type stubContractStore struct{}

func (stubContractStore) GetContractByStudent(_ context.Context, studentID string) (*domain.Contract, error) {
	return nil, &domain.ErrNotFound{Resource: "contract", ID: studentID}
}

func (stubContractStore) ListContracts(context.Context) ([]domain.Contract, error) {
	return nil, nil
}

type stubStudentStore struct{}

func (stubStudentStore) ListActiveStudents(context.Context) ([]domain.Student, error) {
	return nil, nil
}

type stubAttendanceStore struct{}

func (stubAttendanceStore) HasPresence(context.Context, string, string) (bool, error) {
	return true, nil
}

func (stubAttendanceStore) UpsertPresence(context.Context, string, string) (*domain.AttendanceRecord, error) {
	return &domain.AttendanceRecord{Status: domain.AttendancePresent}, nil
}

type stubAuthStore struct {
	user *domain.StaffUser
}

func (s *stubAuthStore) GetStaffByEmail(_ context.Context, email string) (*domain.StaffUser, error) {
	if s.user == nil || s.user.Email != email {
		return nil, &domain.ErrNotFound{Resource: "staff_user", ID: email}
	}
	return s.user, nil
}

func newTestRouter(t *testing.T, finance *stubFinanceStore) http.Handler {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("senha123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	auth := &stubAuthStore{user: &domain.StaffUser{
		ID:           "staff-1",
		Email:        "ana@escola.com",
		Role:         "admin",
		PasswordHash: string(hash),
	}}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	svcs := handler.Services{
		Finance:    service.NewFinanceService(finance, metrics, logger),
		Contracts:  service.NewContractService(stubContractStore{}, logger),
		Cycles:     service.NewCycleService(finance, stubStudentStore{}, cache.New[[]domain.Student](time.Minute), metrics, logger),
		Attendance: service.NewAttendanceService(stubAttendanceStore{}, logger),
		Auth:       service.NewAuthService(auth, "test-secret", 15*time.Minute, logger),
	}
	return handler.NewRouter(svcs, metrics, logger)
}

func loginToken(t *testing.T, router http.Handler) string {
	t.Helper()
	body := bytes.NewBufferString(`{"email":"ana@escola.com","password":"senha123"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	router := newTestRouter(t, &stubFinanceStore{})

	for _, path := range []string{"/healthz", "/readyz", "/ping", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestRouter_HealthzNotFoundProbeIsHealthy(t *testing.T) {
	// The probe student does not exist; a clean not-found still proves the
	// store answers.
	router := newTestRouter(t, &stubFinanceStore{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var health domain.HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %s", health.Status)
	}
}

func TestRouter_GetFinancialRecord(t *testing.T) {
	store := &stubFinanceStore{record: &domain.FinancialRecord{
		ID: "fr-1", StudentID: "stu-1", Status: domain.RecordPending,
	}}
	router := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/students/stu-1/financial-record", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/students/stu-9/financial-record", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown student, got %d", rec.Code)
	}
}

func TestRouter_ListInstallmentsRejectsBadOrder(t *testing.T) {
	router := newTestRouter(t, &stubFinanceStore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/students/stu-1/installments?order=alphabetical", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRouter_MutationsRequireToken(t *testing.T) {
	router := newTestRouter(t, &stubFinanceStore{})

	paths := []string{
		"/v1/installments/i-1/pay",
		"/v1/students/stu-1/boletos/pay",
		"/v1/students/stu-1/renewal",
		"/v1/attendance/present",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 without token, got %d", path, rec.Code)
		}
	}
}

func TestRouter_PayInstallmentWithToken(t *testing.T) {
	store := &stubFinanceStore{
		record: &domain.FinancialRecord{ID: "fr-1", StudentID: "stu-1"},
		installments: []domain.Installment{
			{ID: "i-1", FinancialRecordID: "fr-1", StudentID: "stu-1", Status: domain.InstallmentPending},
		},
	}
	router := newTestRouter(t, store)
	token := loginToken(t, router)

	req := httptest.NewRequest(http.MethodPost, "/v1/installments/i-1/pay", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status domain.InstallmentStatus `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode pay response: %v", err)
	}
	if resp.Status != domain.InstallmentPaid {
		t.Errorf("expected paid, got %s", resp.Status)
	}
}

func TestRouter_LoginRejectsUnknownUser(t *testing.T) {
	router := newTestRouter(t, &stubFinanceStore{})

	body := bytes.NewBufferString(`{"email":"nobody@escola.com","password":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown user, got %d", rec.Code)
	}
}
