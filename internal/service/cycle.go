package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/infra/observability"
	"github.com/reforco-edu/billing-core-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var cycleTracer = otel.Tracer("cycle")

// rosterCacheKey is the single key under which the active roster is cached.
const rosterCacheKey = "active-roster"

// rosterConcurrency bounds parallel store reads during roster-wide
// classification.
const rosterConcurrency = 8

// CycleService classifies students as having or needing an active billing
// cycle. Only the student roster is cached; record and installment reads
// are always fresh.
type CycleService struct {
	finance  port.FinanceStore
	students port.StudentStore
	roster   port.Cache[[]domain.Student]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewCycleService creates the cycle detector.
func NewCycleService(finance port.FinanceStore, students port.StudentStore, roster port.Cache[[]domain.Student], metrics *observability.Metrics, logger *zap.Logger) *CycleService {
	return &CycleService{
		finance:  finance,
		students: students,
		roster:   roster,
		metrics:  metrics,
		logger:   logger,
	}
}

// ClassifyStudent applies the detector rules to one student.
// A missing financial record classifies as needs-new-cycle rather than
// erroring: that is precisely the "setup never happened" case.
func (s *CycleService) ClassifyStudent(ctx context.Context, studentID string) (*domain.StudentCycle, error) {
	ctx, span := cycleTracer.Start(ctx, "CycleService.ClassifyStudent")
	defer span.End()
	span.SetAttributes(attribute.String("student.id", studentID))

	if studentID == "" {
		return nil, &domain.ErrValidation{Field: "student_id", Message: "required"}
	}

	record, err := s.finance.GetFinancialRecord(ctx, studentID)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return &domain.StudentCycle{StudentID: studentID, Classification: domain.CycleNeeded}, nil
		}
		return nil, err
	}

	live, err := s.finance.ListInstallments(ctx, record.ID, port.OrderBySequence)
	if err != nil {
		return nil, err
	}

	cycle := domain.ClassifyCycle(record, live)
	cycle.StudentID = studentID
	return &cycle, nil
}

// ClassifyRoster classifies every active student, fanning out store reads
// with bounded concurrency. Results are sorted by student id for stable
// output.
func (s *CycleService) ClassifyRoster(ctx context.Context) ([]domain.StudentCycle, error) {
	ctx, span := cycleTracer.Start(ctx, "CycleService.ClassifyRoster")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("classify_roster", time.Since(start)) }()

	roster, err := s.activeRoster(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	out := make([]domain.StudentCycle, 0, len(roster))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(rosterConcurrency)
	for _, student := range roster {
		student := student
		g.Go(func() error {
			cycle, err := s.ClassifyStudent(gCtx, student.ID)
			if err != nil {
				return err
			}
			cycle.StudentName = student.Name
			mu.Lock()
			out = append(out, *cycle)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })

	needed := 0
	for i := range out {
		if out[i].Classification == domain.CycleNeeded {
			needed++
		}
	}
	s.logger.Info("roster classified",
		zap.Int("students", len(out)),
		zap.Int("needs_new_cycle", needed),
	)

	return out, nil
}

func (s *CycleService) activeRoster(ctx context.Context) ([]domain.Student, error) {
	if roster, ok := s.roster.Get(rosterCacheKey); ok {
		s.metrics.IncrCacheHit("roster")
		return roster, nil
	}
	s.metrics.IncrCacheMiss("roster")

	roster, err := s.students.ListActiveStudents(ctx)
	if err != nil {
		return nil, err
	}
	s.roster.Set(rosterCacheKey, roster)
	return roster, nil
}
