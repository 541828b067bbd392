package plan

import (
	"context"
	"testing"

	"malipo-service/internal/config"
	"malipo-service/internal/domain/plan"
	xerrors "malipo-service/internal/pkg/errors"
	"malipo-service/internal/pkg/period"
	"malipo-service/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService() *PlanService {
	store := testutil.NewInMemoryPlanStore()
	cfg := &config.AppConfig{Currency: "KES"}
	return NewPlanService(store, cfg, zap.NewNop())
}

func TestCreatePlan_Defaults(t *testing.T) {
	svc := newService()

	p, err := svc.CreatePlan(context.Background(), &plan.CreatePlanRequest{
		PlanCode: "starter",
		Name:     "Starter",
		Price:    decimal.NewFromFloat(499.999),
		Interval: period.UnitMonth,
	})
	require.NoError(t, err)

	assert.Equal(t, "KES", p.Currency, "currency falls back to the configured default")
	assert.Equal(t, 1, p.IntervalCount)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(500)), "price is rounded to cents")
	assert.Equal(t, plan.StatusActive, p.Status)
	assert.False(t, p.TrialPeriodDays.Valid)
}

func TestCreatePlan_TrialAndCurrency(t *testing.T) {
	svc := newService()

	p, err := svc.CreatePlan(context.Background(), &plan.CreatePlanRequest{
		PlanCode:        "pro",
		Name:            "Pro",
		Price:           decimal.NewFromInt(1500),
		Currency:        "usd",
		Interval:        period.UnitYear,
		TrialPeriodDays: 14,
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", p.Currency)
	require.True(t, p.TrialPeriodDays.Valid)
	assert.Equal(t, int32(14), p.TrialPeriodDays.Int32)
}

func TestCreatePlan_Validation(t *testing.T) {
	svc := newService()

	tests := []struct {
		name string
		req  *plan.CreatePlanRequest
		want error
	}{
		{
			name: "unknown interval",
			req:  &plan.CreatePlanRequest{PlanCode: "a", Name: "A", Price: decimal.NewFromInt(1), Interval: "fortnight"},
			want: xerrors.ErrInvalidInput,
		},
		{
			name: "negative price",
			req:  &plan.CreatePlanRequest{PlanCode: "b", Name: "B", Price: decimal.NewFromInt(-1), Interval: period.UnitMonth},
			want: xerrors.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePlan(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreatePlan_DuplicateCode(t *testing.T) {
	svc := newService()

	req := &plan.CreatePlanRequest{PlanCode: "pro", Name: "Pro", Price: decimal.NewFromInt(1000), Interval: period.UnitMonth}
	_, err := svc.CreatePlan(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.CreatePlan(context.Background(), req)
	assert.ErrorIs(t, err, xerrors.ErrConflict)
}

func TestArchivePlan_HiddenFromActiveListing(t *testing.T) {
	svc := newService()

	p, err := svc.CreatePlan(context.Background(), &plan.CreatePlanRequest{
		PlanCode: "legacy", Name: "Legacy", Price: decimal.NewFromInt(100), Interval: period.UnitMonth,
	})
	require.NoError(t, err)
	_, err = svc.CreatePlan(context.Background(), &plan.CreatePlanRequest{
		PlanCode: "pro", Name: "Pro", Price: decimal.NewFromInt(1000), Interval: period.UnitMonth,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ArchivePlan(context.Background(), p.ID))

	archived, err := svc.GetPlan(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusArchived, archived.Status)

	resp, err := svc.ListPlans(context.Background(), &plan.PlanListFilters{Status: plan.StatusActive})
	require.NoError(t, err)
	require.Len(t, resp.Plans, 1)
	assert.Equal(t, "pro", resp.Plans[0].PlanCode)
}

func TestListPlans_Pagination(t *testing.T) {
	svc := newService()

	codes := []string{"a", "b", "c"}
	for _, code := range codes {
		_, err := svc.CreatePlan(context.Background(), &plan.CreatePlanRequest{
			PlanCode: code, Name: code, Price: decimal.NewFromInt(100), Interval: period.UnitMonth,
		})
		require.NoError(t, err)
	}

	resp, err := svc.ListPlans(context.Background(), &plan.PlanListFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Len(t, resp.Plans, 2)
}

func TestArchivePlan_NotFound(t *testing.T) {
	svc := newService()
	err := svc.ArchivePlan(context.Background(), 999)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
