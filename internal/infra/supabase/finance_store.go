package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/port"

	"github.com/shopspring/decimal"
)

// ============================================================
// Financial records, installments and history — via PostgREST
// ============================================================

// recordRow mirrors the flat column layout of financial_records. The
// per-type aggregates live in prefixed columns, not a nested object.
type recordRow struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	PlanID    string `json:"plan_id"`
	Status    string `json:"status"`

	TuitionValue         decimal.Decimal `json:"tuition_value"`
	TuitionCount         int             `json:"tuition_count"`
	TuitionFirstDueDate  string          `json:"tuition_first_due_date"`
	TuitionPaymentMethod string          `json:"tuition_payment_method"`

	MaterialValue         decimal.Decimal `json:"material_value"`
	MaterialCount         int             `json:"material_count"`
	MaterialFirstDueDate  string          `json:"material_first_due_date"`
	MaterialPaymentMethod string          `json:"material_payment_method"`

	EnrollmentFeeValue         decimal.Decimal `json:"enrollment_fee_value"`
	EnrollmentFeeCount         int             `json:"enrollment_fee_count"`
	EnrollmentFeeFirstDueDate  string          `json:"enrollment_fee_first_due_date"`
	EnrollmentFeePaymentMethod string          `json:"enrollment_fee_payment_method"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (r recordRow) toDomain() *domain.FinancialRecord {
	return &domain.FinancialRecord{
		ID:        r.ID,
		StudentID: r.StudentID,
		PlanID:    r.PlanID,
		Status:    domain.RecordStatus(r.Status),
		Tuition: domain.ChargeTerms{
			TotalValue:    r.TuitionValue,
			Count:         r.TuitionCount,
			FirstDueDate:  parseDate(r.TuitionFirstDueDate),
			PaymentMethod: domain.PaymentMethod(r.TuitionPaymentMethod),
		},
		Material: domain.ChargeTerms{
			TotalValue:    r.MaterialValue,
			Count:         r.MaterialCount,
			FirstDueDate:  parseDate(r.MaterialFirstDueDate),
			PaymentMethod: domain.PaymentMethod(r.MaterialPaymentMethod),
		},
		EnrollmentFee: domain.ChargeTerms{
			TotalValue:    r.EnrollmentFeeValue,
			Count:         r.EnrollmentFeeCount,
			FirstDueDate:  parseDate(r.EnrollmentFeeFirstDueDate),
			PaymentMethod: domain.PaymentMethod(r.EnrollmentFeePaymentMethod),
		},
		CreatedAt: parseDate(r.CreatedAt),
		UpdatedAt: parseDate(r.UpdatedAt),
	}
}

type installmentRow struct {
	ID                string          `json:"id"`
	FinancialRecordID string          `json:"financial_record_id"`
	StudentID         string          `json:"student_id"`
	ItemType          string          `json:"item_type"`
	SequenceNumber    int             `json:"sequence_number"`
	Value             decimal.Decimal `json:"value"`
	DueDate           string          `json:"due_date"`
	Status            string          `json:"status"`
	PaymentMethod     string          `json:"payment_method"`
	Description       string          `json:"description"`
	PaidAt            string          `json:"paid_at"`
	CycleStart        string          `json:"cycle_start"`
	CycleEnd          string          `json:"cycle_end"`
	CreatedAt         string          `json:"created_at"`
}

func (r installmentRow) toDomain() domain.Installment {
	return domain.Installment{
		ID:                r.ID,
		FinancialRecordID: r.FinancialRecordID,
		StudentID:         r.StudentID,
		ItemType:          domain.ItemType(r.ItemType),
		SequenceNumber:    r.SequenceNumber,
		Value:             r.Value,
		DueDate:           parseDate(r.DueDate),
		Status:            domain.InstallmentStatus(r.Status),
		PaymentMethod:     domain.PaymentMethod(r.PaymentMethod),
		Description:       r.Description,
		PaidAt:            parseDatePtr(r.PaidAt),
		CycleStart:        parseDatePtr(r.CycleStart),
		CycleEnd:          parseDatePtr(r.CycleEnd),
		CreatedAt:         parseDate(r.CreatedAt),
	}
}

// --- Financial records ---

func (c *Client) GetFinancialRecord(ctx context.Context, studentID string) (*domain.FinancialRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetFinancialRecord")
	defer span.End()

	path := fmt.Sprintf("financial_records?student_id=eq.%s&limit=1", studentID)
	body, err := c.getWithResilience(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []recordRow
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, decodeErr("financial_record", err)
		}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "financial_record", ID: studentID}
	}
	return rows[0].toDomain(), nil
}

func (c *Client) UpdateFinancialRecord(ctx context.Context, recordID string, update port.RecordUpdate) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateFinancialRecord")
	defer span.End()

	row := map[string]any{
		"plan_id":    update.PlanID,
		"status":     string(update.Status),
		"updated_at": time.Now().Format(time.RFC3339),
	}
	writeTerms(row, "tuition", update.Tuition)
	writeTerms(row, "material", update.Material)
	writeTerms(row, "enrollment_fee", update.EnrollmentFee)

	return c.doPatch(ctx, fmt.Sprintf("financial_records?id=eq.%s", recordID), row)
}

func (c *Client) SetRecordStatus(ctx context.Context, recordID string, status domain.RecordStatus, method domain.PaymentMethod) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetRecordStatus")
	defer span.End()

	row := map[string]any{
		"status":     string(status),
		"updated_at": time.Now().Format(time.RFC3339),
	}
	if method != "" {
		row["tuition_payment_method"] = string(method)
		row["material_payment_method"] = string(method)
		row["enrollment_fee_payment_method"] = string(method)
	}
	return c.doPatch(ctx, fmt.Sprintf("financial_records?id=eq.%s", recordID), row)
}

func writeTerms(row map[string]any, prefix string, terms domain.ChargeTerms) {
	row[prefix+"_value"] = terms.TotalValue
	row[prefix+"_count"] = terms.Count
	if terms.FirstDueDate.IsZero() {
		row[prefix+"_first_due_date"] = nil
	} else {
		row[prefix+"_first_due_date"] = formatDate(terms.FirstDueDate)
	}
	row[prefix+"_payment_method"] = string(terms.PaymentMethod)
}

// --- Installments ---

func (c *Client) MaxSequenceNumber(ctx context.Context, recordID string, itemType domain.ItemType) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.MaxSequenceNumber")
	defer span.End()

	path := fmt.Sprintf("installments?financial_record_id=eq.%s&item_type=eq.%s&select=sequence_number&order=sequence_number.desc&limit=1",
		recordID, itemType)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return 0, err
	}

	var rows []struct {
		SequenceNumber int `json:"sequence_number"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return 0, decodeErr("sequence_number", err)
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].SequenceNumber, nil
}

func (c *Client) InsertInstallments(ctx context.Context, rows []domain.Installment) ([]domain.Installment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertInstallments")
	defer span.End()

	payload := make([]map[string]any, 0, len(rows))
	for _, i := range rows {
		payload = append(payload, map[string]any{
			"id":                  i.ID,
			"financial_record_id": i.FinancialRecordID,
			"student_id":          i.StudentID,
			"item_type":           string(i.ItemType),
			"sequence_number":     i.SequenceNumber,
			"value":               i.Value,
			"due_date":            formatDate(i.DueDate),
			"status":              string(i.Status),
			"payment_method":      string(i.PaymentMethod),
			"description":         i.Description,
			"cycle_start":         formatDatePtr(i.CycleStart),
			"cycle_end":           formatDatePtr(i.CycleEnd),
		})
	}

	body, err := c.doPost(ctx, "installments", payload, "return=representation")
	if err != nil {
		return nil, err
	}

	var inserted []installmentRow
	if err := json.Unmarshal(body, &inserted); err != nil {
		return nil, decodeErr("installments insert", err)
	}
	out := make([]domain.Installment, 0, len(inserted))
	for _, r := range inserted {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) ListInstallments(ctx context.Context, recordID string, order port.ListOrder) ([]domain.Installment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListInstallments")
	defer span.End()

	path := fmt.Sprintf("installments?financial_record_id=eq.%s&%s", recordID, orderParam(order))
	return c.listInstallments(ctx, path, order)
}

func (c *Client) ListStudentInstallments(ctx context.Context, studentID string, order port.ListOrder) ([]domain.Installment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListStudentInstallments")
	defer span.End()

	path := fmt.Sprintf("installments?student_id=eq.%s&%s", studentID, orderParam(order))
	return c.listInstallments(ctx, path, order)
}

func (c *Client) listInstallments(ctx context.Context, path string, order port.ListOrder) ([]domain.Installment, error) {
	body, err := c.getWithResilience(ctx, path)
	if err != nil {
		return nil, err
	}

	var rows []installmentRow
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, decodeErr("installments", err)
		}
	}
	out := make([]domain.Installment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	if order == port.OrderBySequence {
		sortBySequence(out)
	}
	return out, nil
}

// orderParam translates a ListOrder into a PostgREST order clause. Sequence
// order needs a Go-side sort afterwards because the store cannot rank item
// types in materialization order.
func orderParam(order port.ListOrder) string {
	if order == port.OrderBySequence {
		return "order=sequence_number.asc"
	}
	return "order=due_date.asc,item_type.asc,sequence_number.asc"
}

func sortBySequence(rows []domain.Installment) {
	rank := func(t domain.ItemType) int {
		for i, m := range domain.MaterializationOrder {
			if t == m {
				return i
			}
		}
		return len(domain.MaterializationOrder) // ad-hoc types after the regular ones
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := rank(rows[i].ItemType), rank(rows[j].ItemType)
		if ri != rj {
			return ri < rj
		}
		return rows[i].SequenceNumber < rows[j].SequenceNumber
	})
}

func (c *Client) GetInstallment(ctx context.Context, installmentID string) (*domain.Installment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetInstallment")
	defer span.End()

	path := fmt.Sprintf("installments?id=eq.%s&limit=1", installmentID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var rows []installmentRow
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, decodeErr("installment", err)
		}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "installment", ID: installmentID}
	}
	inst := rows[0].toDomain()
	return &inst, nil
}

func (c *Client) UpdateInstallment(ctx context.Context, installmentID string, patch port.InstallmentPatch) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateInstallment")
	defer span.End()

	row := map[string]any{}
	if patch.Status != nil {
		row["status"] = string(*patch.Status)
	}
	if patch.PaymentMethod != nil {
		row["payment_method"] = string(*patch.PaymentMethod)
	}
	if patch.PaidAt != nil {
		row["paid_at"] = *patch.PaidAt
	}
	if len(row) == 0 {
		return nil
	}
	return c.doPatch(ctx, fmt.Sprintf("installments?id=eq.%s", installmentID), row)
}

func (c *Client) DeleteInstallments(ctx context.Context, recordID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteInstallments")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("installments?financial_record_id=eq.%s", recordID))
}

// --- History ---

func (c *Client) InsertHistoricalInstallments(ctx context.Context, rows []domain.HistoricalInstallment) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertHistoricalInstallments")
	defer span.End()

	payload := make([]map[string]any, 0, len(rows))
	for _, h := range rows {
		payload = append(payload, map[string]any{
			"original_id":         h.OriginalID,
			"financial_record_id": h.FinancialRecordID,
			"student_id":          h.StudentID,
			"item_type":           string(h.ItemType),
			"sequence_number":     h.SequenceNumber,
			"value":               h.Value,
			"due_date":            formatDate(h.DueDate),
			"status":              string(h.Status),
			"payment_method":      string(h.PaymentMethod),
			"archive_reason":      h.ArchiveReason,
			"archived_at":         h.ArchivedAt.Format(time.RFC3339),
		})
	}

	body, err := c.doPost(ctx, "historical_installments", payload, "return=representation")
	if err != nil {
		return 0, err
	}

	// return=representation echoes the inserted rows; the count is what the
	// renewal orchestrator verifies before deleting the originals.
	var inserted []json.RawMessage
	if err := json.Unmarshal(body, &inserted); err != nil {
		return 0, decodeErr("historical insert", err)
	}
	return len(inserted), nil
}

func (c *Client) ListHistoricalInstallments(ctx context.Context, studentID string) ([]domain.HistoricalInstallment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListHistoricalInstallments")
	defer span.End()

	path := fmt.Sprintf("historical_installments?student_id=eq.%s&order=archived_at.desc,sequence_number.asc", studentID)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		installmentRow
		OriginalID    string `json:"original_id"`
		ArchiveReason string `json:"archive_reason"`
		ArchivedAt    string `json:"archived_at"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, decodeErr("historical_installments", err)
		}
	}
	out := make([]domain.HistoricalInstallment, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.HistoricalInstallment{
			ID:                r.ID,
			OriginalID:        r.OriginalID,
			FinancialRecordID: r.FinancialRecordID,
			StudentID:         r.StudentID,
			ItemType:          domain.ItemType(r.ItemType),
			SequenceNumber:    r.SequenceNumber,
			Value:             r.Value,
			DueDate:           parseDate(r.DueDate),
			Status:            domain.InstallmentStatus(r.Status),
			PaymentMethod:     domain.PaymentMethod(r.PaymentMethod),
			ArchiveReason:     r.ArchiveReason,
			ArchivedAt:        parseDate(r.ArchivedAt),
		})
	}
	return out, nil
}
