// internal/domain/plan/dto.go
package plan

import (
	"malipo-service/internal/pkg/period"

	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	PlanCode        string          `json:"plan_code" binding:"required"`
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price" binding:"required"`
	Currency        string          `json:"currency"`
	Interval        period.Unit     `json:"interval" binding:"required"`
	IntervalCount   int             `json:"interval_count"`
	TrialPeriodDays int             `json:"trial_period_days"`
	Features        []string        `json:"features"`
}

type PlanListFilters struct {
	Status   PlanStatus `form:"status"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
}

type PlanListResponse struct {
	Plans      []SubscriptionPlan `json:"plans"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}
