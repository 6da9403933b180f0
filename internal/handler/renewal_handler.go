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
// Renovação de ciclo
// ============================================================

func renewalHandler(svc *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/students/{studentId}/renewal")
		defer span.End()

		studentID := chi.URLParam(r, "studentId")
		span.SetAttributes(attribute.String("student.id", studentID))

		var req domain.RenewalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.Renew(ctx, studentID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		logger.Info("renewal via API",
			zap.String("student_id", studentID),
			zap.String("staff_id", StaffIDFromContext(ctx)),
			zap.Int("archived", result.ArchivedCount),
			zap.Int("created", len(result.Installments)),
		)

		writeJSON(w, http.StatusOK, result)
	}
}
