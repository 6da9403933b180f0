package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/reforco-edu/billing-core-go/internal/domain"
)

// ============================================================
// Contracts — read-only via PostgREST
// ============================================================

type contractRow struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	PlanID    string `json:"plan_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
	SignedAt  string `json:"signed_at"`
	CreatedAt string `json:"created_at"`
}

// toDomain maps the row; the stored status lands in StoredStatus and the
// service derives the effective Status on read.
func (r contractRow) toDomain() domain.Contract {
	return domain.Contract{
		ID:           r.ID,
		StudentID:    r.StudentID,
		PlanID:       r.PlanID,
		StartDate:    parseDate(r.StartDate),
		EndDate:      parseDate(r.EndDate),
		StoredStatus: domain.ContractStatus(r.Status),
		SignedAt:     parseDatePtr(r.SignedAt),
		CreatedAt:    parseDate(r.CreatedAt),
	}
}

func (c *Client) GetContractByStudent(ctx context.Context, studentID string) (*domain.Contract, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetContractByStudent")
	defer span.End()

	path := fmt.Sprintf("contracts?student_id=eq.%s&order=created_at.desc&limit=1", studentID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var rows []contractRow
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, decodeErr("contract", err)
		}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "contract", ID: studentID}
	}
	contract := rows[0].toDomain()
	return &contract, nil
}

func (c *Client) ListContracts(ctx context.Context) ([]domain.Contract, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListContracts")
	defer span.End()

	body, err := c.getWithResilience(ctx, "contracts?order=end_date.asc")
	if err != nil {
		return nil, err
	}

	var rows []contractRow
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, decodeErr("contracts", err)
		}
	}
	out := make([]domain.Contract, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
