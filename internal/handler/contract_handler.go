package handler

import (
	"net/http"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Contratos
// ============================================================

func getContractHandler(svc *service.ContractService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/students/{studentId}/contract")
		defer span.End()

		studentID := chi.URLParam(r, "studentId")
		contract, err := svc.GetByStudent(ctx, studentID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, contract)
	}
}

func listContractsHandler(svc *service.ContractService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/contracts")
		defer span.End()

		contracts, err := svc.List(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Optional filter, e.g. ?status=expiring for the renewal worklist.
		if filter := r.URL.Query().Get("status"); filter != "" {
			filtered := make([]domain.Contract, 0, len(contracts))
			for _, c := range contracts {
				if string(c.Status) == filter {
					filtered = append(filtered, c)
				}
			}
			contracts = filtered
		}

		writeJSON(w, http.StatusOK, map[string]any{"contracts": contracts})
	}
}
