package service

import (
	"context"
	"time"

	"github.com/reforco-edu/billing-core-go/internal/domain"
	"github.com/reforco-edu/billing-core-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var contractTracer = otel.Tracer("contract")

// ContractService reads contracts and annotates them with their derived
// lifecycle status. Stored status is never trusted except for Cancelled.
type ContractService struct {
	store  port.ContractStore
	logger *zap.Logger
	now    func() time.Time
}

// NewContractService creates the contract reader.
func NewContractService(store port.ContractStore, logger *zap.Logger) *ContractService {
	return &ContractService{store: store, logger: logger, now: time.Now}
}

// GetByStudent returns the student's contract with its effective status.
func (s *ContractService) GetByStudent(ctx context.Context, studentID string) (*domain.Contract, error) {
	ctx, span := contractTracer.Start(ctx, "ContractService.GetByStudent")
	defer span.End()
	span.SetAttributes(attribute.String("student.id", studentID))

	if studentID == "" {
		return nil, &domain.ErrValidation{Field: "student_id", Message: "required"}
	}

	contract, err := s.store.GetContractByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	contract.Derive(s.now())
	return contract, nil
}

// List returns all contracts, each annotated with its derived status.
func (s *ContractService) List(ctx context.Context) ([]domain.Contract, error) {
	ctx, span := contractTracer.Start(ctx, "ContractService.List")
	defer span.End()

	contracts, err := s.store.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now()
	for i := range contracts {
		contracts[i].Derive(today)
	}
	return contracts, nil
}
