package handler

import (
	"encoding/json"
	"net/http"

	"github.com/reforco-edu/billing-core-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Presença
// ============================================================

func attendancePresentHandler(svc *service.AttendanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/attendance/present")
		defer span.End()

		var req struct {
			LessonID  string `json:"lesson_id"`
			StudentID string `json:"student_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		record, created, err := svc.EnsurePresent(ctx, req.LessonID, req.StudentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if !created {
			// Already present; idempotent success.
			writeJSON(w, http.StatusOK, map[string]any{"created": false})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"created": true, "record": record})
	}
}
