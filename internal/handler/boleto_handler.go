package handler

import (
	"encoding/json"
	"net/http"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Boletos — synthetic installment view
// ============================================================

func listBoletosHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/students/{studentId}/boletos")
		defer span.End()

		studentID := chi.URLParam(r, "studentId")
		span.SetAttributes(attribute.String("student.id", studentID))

		boletos, err := svc.SynthesizeBoletos(ctx, studentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"boletos": boletos})
	}
}

func payBoletoHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/students/{studentId}/boletos/pay")
		defer span.End()

		studentID := chi.URLParam(r, "studentId")
		span.SetAttributes(attribute.String("student.id", studentID))

		var req struct {
			ItemType      domain.ItemType      `json:"item_type,omitempty"`
			PaymentMethod domain.PaymentMethod `json:"payment_method,omitempty"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		record, err := svc.MarkVirtualPaid(ctx, studentID, req.ItemType, req.PaymentMethod)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}
