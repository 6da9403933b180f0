package handler

import (
	"net/http"

	"github.com/reforco-edu/billing-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Detecção de ciclo
// ============================================================

func listCyclesHandler(svc *service.CycleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cycles")
		defer span.End()

		cycles, err := svc.ClassifyRoster(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
	}
}

func getCycleHandler(svc *service.CycleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/students/{studentId}/cycle")
		defer span.End()

		studentID := chi.URLParam(r, "studentId")
		span.SetAttributes(attribute.String("student.id", studentID))

		cycle, err := svc.ClassifyStudent(ctx, studentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cycle)
	}
}
