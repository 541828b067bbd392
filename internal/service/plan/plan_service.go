// internal/service/plan/plan_service.go
package plan

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"malipo-service/internal/config"
	"malipo-service/internal/domain/plan"
	xerrors "malipo-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type PlanService struct {
	planRepo plan.Repository
	cfg      *config.AppConfig
	logger   *zap.Logger
}

func NewPlanService(planRepo plan.Repository, cfg *config.AppConfig, logger *zap.Logger) *PlanService {
	return &PlanService{planRepo: planRepo, cfg: cfg, logger: logger}
}

func (s *PlanService) CreatePlan(ctx context.Context, req *plan.CreatePlanRequest) (*plan.SubscriptionPlan, error) {
	if !req.Interval.Valid() {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("unknown billing interval %q", req.Interval))
	}
	if req.Price.IsNegative() {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "plan price cannot be negative")
	}
	if existing, err := s.planRepo.FindByCode(ctx, req.PlanCode); err == nil && existing != nil {
		return nil, xerrors.Wrap(xerrors.ErrConflict, fmt.Sprintf("plan code %q already exists", req.PlanCode))
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.cfg.Currency
	}
	intervalCount := req.IntervalCount
	if intervalCount < 1 {
		intervalCount = 1
	}

	p := &plan.SubscriptionPlan{
		PlanCode:      req.PlanCode,
		Name:          req.Name,
		Description:   sql.NullString{String: req.Description, Valid: req.Description != ""},
		Price:         req.Price.Round(2),
		Currency:      currency,
		Interval:      req.Interval,
		IntervalCount: intervalCount,
		Features:      req.Features,
		Status:        plan.StatusActive,
	}
	if req.TrialPeriodDays > 0 {
		p.TrialPeriodDays = sql.NullInt32{Int32: int32(req.TrialPeriodDays), Valid: true}
	}

	if err := s.planRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	s.logger.Info("subscription plan created",
		zap.String("plan_code", p.PlanCode),
		zap.String("price", p.Price.String()),
		zap.String("interval", string(p.Interval)),
	)
	return p, nil
}

func (s *PlanService) GetPlan(ctx context.Context, id int64) (*plan.SubscriptionPlan, error) {
	return s.planRepo.FindByID(ctx, id)
}

func (s *PlanService) GetPlanByCode(ctx context.Context, code string) (*plan.SubscriptionPlan, error) {
	return s.planRepo.FindByCode(ctx, code)
}

func (s *PlanService) ListPlans(ctx context.Context, filters *plan.PlanListFilters) (*plan.PlanListResponse, error) {
	if filters == nil {
		filters = &plan.PlanListFilters{}
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	plans, total, err := s.planRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize != 0 {
		totalPages++
	}
	return &plan.PlanListResponse{
		Plans:      plans,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

// ArchivePlan retires a plan from new subscriptions. Existing
// subscriptions keep renewing on it.
func (s *PlanService) ArchivePlan(ctx context.Context, id int64) error {
	if _, err := s.planRepo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.planRepo.Archive(ctx, id); err != nil {
		return fmt.Errorf("failed to archive plan: %w", err)
	}
	return nil
}
