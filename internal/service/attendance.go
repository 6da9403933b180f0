package service

import (
	"context"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var attendanceTracer = otel.Tracer("attendance")

// AttendanceService performs the single attendance operation this core is
// responsible for: when a gradable lesson's scores are recorded, the
// lesson/student pair must end up with a Present record.
type AttendanceService struct {
	store  port.AttendanceStore
	logger *zap.Logger
}

// NewAttendanceService creates the attendance upserter.
func NewAttendanceService(store port.AttendanceStore, logger *zap.Logger) *AttendanceService {
	return &AttendanceService{store: store, logger: logger}
}

// EnsurePresent upserts a Present attendance record for the lesson/student
// pair. Idempotent: an existing Present record is left alone. A record with
// any other status (a prior Absent mark, say) is overwritten to Present by
// the store upsert.
func (s *AttendanceService) EnsurePresent(ctx context.Context, lessonID, studentID string) (*domain.AttendanceRecord, bool, error) {
	ctx, span := attendanceTracer.Start(ctx, "AttendanceService.EnsurePresent")
	defer span.End()
	span.SetAttributes(
		attribute.String("lesson.id", lessonID),
		attribute.String("student.id", studentID),
	)

	if lessonID == "" {
		return nil, false, &domain.ErrValidation{Field: "lesson_id", Message: "required"}
	}
	if studentID == "" {
		return nil, false, &domain.ErrValidation{Field: "student_id", Message: "required"}
	}

	exists, err := s.store.HasPresence(ctx, lessonID, studentID)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, nil
	}

	record, err := s.store.UpsertPresence(ctx, lessonID, studentID)
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("attendance upserted to present",
		zap.String("lesson_id", lessonID),
		zap.String("student_id", studentID),
	)
	return record, true, nil
}
