package handler

import (
	"encoding/json"
	"net/http"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/port"
	"github.com/reforco-edu/billing-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Registro financeiro & parcelas
// ============================================================

// installmentResponse is an installment annotated with its effective status
// as of today. The stored status stays untouched; overdue is a presentation
// concern.
type installmentResponse struct {
	domain.Installment
	DerivedStatus domain.InstallmentStatus `json:"derived_status"`
}

func annotate(svc *service.FinanceService, rows []domain.Installment) []installmentResponse {
	out := make([]installmentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, installmentResponse{
			Installment:   rows[i],
			DerivedStatus: svc.DeriveStatus(&rows[i]),
		})
	}
	return out
}

func getFinancialRecordHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/students/{studentId}/financial-record")
		defer span.End()

		studentID := chi.URLParam(r, "studentId")
		record, err := svc.GetFinancialRecord(ctx, studentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func listInstallmentsHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/students/{studentId}/installments")
		defer span.End()

		studentID := chi.URLParam(r, "studentId")
		span.SetAttributes(attribute.String("student.id", studentID))

		order := port.ListOrder(r.URL.Query().Get("order"))
		if order != "" && order != port.OrderByDueDate && order != port.OrderBySequence {
			writeError(w, http.StatusBadRequest, "order must be 'due_date' or 'sequence'")
			return
		}

		rows, err := svc.ListStudentInstallments(ctx, studentID, order)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"installments": annotate(svc, rows)})
	}
}

func listHistoryHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/students/{studentId}/installments/history")
		defer span.End()

		studentID := chi.URLParam(r, "studentId")
		rows, err := svc.ListHistory(ctx, studentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": rows})
	}
}

func payInstallmentHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/installments/{installmentId}/pay")
		defer span.End()

		installmentID := chi.URLParam(r, "installmentId")
		span.SetAttributes(attribute.String("installment.id", installmentID))

		var req struct {
			PaymentMethod domain.PaymentMethod `json:"payment_method"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		inst, err := svc.MarkInstallmentPaid(ctx, installmentID, req.PaymentMethod)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, installmentResponse{
			Installment:   *inst,
			DerivedStatus: svc.DeriveStatus(inst),
		})
	}
}
