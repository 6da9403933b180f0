package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/reforco-edu/billing-core-go/internal/domain"
)

// ============================================================
// Staff users — login lookup via PostgREST
// ============================================================

func (c *Client) GetStaffByEmail(ctx context.Context, email string) (*domain.StaffUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetStaffByEmail")
	defer span.End()

	path := fmt.Sprintf("staff_users?email=eq.%s&limit=1", url.QueryEscape(email))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		Name         string `json:"name"`
		Role         string `json:"role"`
		PasswordHash string `json:"password_hash"`
		CreatedAt    string `json:"created_at"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, decodeErr("staff_user", err)
		}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "staff_user", ID: email}
	}
	return &domain.StaffUser{
		ID:           rows[0].ID,
		Email:        rows[0].Email,
		Name:         rows[0].Name,
		Role:         rows[0].Role,
		PasswordHash: rows[0].PasswordHash,
		CreatedAt:    parseDate(rows[0].CreatedAt),
	}, nil
}
