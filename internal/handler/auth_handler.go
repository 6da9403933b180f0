package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Autenticação
// ============================================================

func authLoginHandler(svc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.Login(ctx, &req)
		if err != nil {
			// A missing staff row must read the same as a wrong password.
			var notFound *domain.ErrNotFound
			if errors.As(err, &notFound) {
				writeError(w, http.StatusUnauthorized, "credenciais inválidas")
				return
			}
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
