package domain

import "time"

// AttendanceStatus is the recorded presence state for a lesson.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// AttendanceRecord ties a student to a lesson occurrence. Owned by the
// scheduling subsystem; this core only performs the idempotent
// upsert-to-Present when competency scores are recorded.
type AttendanceRecord struct {
	ID        string           `json:"id"`
	LessonID  string           `json:"lesson_id"`
	StudentID string           `json:"student_id"`
	Status    AttendanceStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}
