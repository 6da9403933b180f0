package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/reforco-edu/billing-core-go/internal/domain"
)

// ============================================================
// Students & attendance — via PostgREST
// ============================================================

func (c *Client) ListActiveStudents(ctx context.Context) ([]domain.Student, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListActiveStudents")
	defer span.End()

	body, err := c.getWithResilience(ctx, "students?active=is.true&order=name.asc")
	if err != nil {
		return nil, err
	}

	var rows []domain.Student
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, decodeErr("students", err)
		}
	}
	return rows, nil
}

// HasPresence checks for an existing Present record. The status filter
// matters: a pair recorded as absent must still be upserted to present.
func (c *Client) HasPresence(ctx context.Context, lessonID, studentID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.HasPresence")
	defer span.End()

	path := fmt.Sprintf("attendance_records?lesson_id=eq.%s&student_id=eq.%s&status=eq.%s&select=id&limit=1",
		lessonID, studentID, domain.AttendancePresent)
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return false, err
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &rows); err != nil {
			return false, decodeErr("attendance lookup", err)
		}
	}
	return len(rows) > 0, nil
}

// UpsertPresence inserts a Present record, merging into an existing row for
// the pair via PostgREST's on_conflict resolution so an Absent row is
// flipped instead of tripping the unique index.
func (c *Client) UpsertPresence(ctx context.Context, lessonID, studentID string) (*domain.AttendanceRecord, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertPresence")
	defer span.End()

	body, err := c.doPost(ctx,
		"attendance_records?on_conflict=lesson_id,student_id",
		map[string]any{
			"lesson_id":  lessonID,
			"student_id": studentID,
			"status":     string(domain.AttendancePresent),
		},
		"resolution=merge-duplicates,return=representation",
	)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID        string `json:"id"`
		LessonID  string `json:"lesson_id"`
		StudentID string `json:"student_id"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, decodeErr("attendance insert", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no result from attendance_records insert")
	}
	return &domain.AttendanceRecord{
		ID:        rows[0].ID,
		LessonID:  rows[0].LessonID,
		StudentID: rows[0].StudentID,
		Status:    domain.AttendanceStatus(rows[0].Status),
		CreatedAt: parseDate(rows[0].CreatedAt),
	}, nil
}
