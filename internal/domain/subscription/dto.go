// internal/domain/subscription/dto.go
package subscription

type CreateSubscriptionRequest struct {
	PlanID          int64  `json:"plan_id" binding:"required"`
	PaymentMethodID *int64 `json:"payment_method_id"`
}

type ChangeSubscriptionRequest struct {
	PlanID          int64  `json:"plan_id" binding:"required"`
	PaymentMethodID *int64 `json:"payment_method_id"`
}

type UpdateCancellationRequest struct {
	CancelAtPeriodEnd *bool `json:"cancel_at_period_end" binding:"required"`
}

type UpdatePaymentMethodRequest struct {
	PaymentMethodID int64 `json:"payment_method_id" binding:"required"`
}

type SubscriptionListFilters struct {
	Status   SubscriptionStatus `form:"status"`
	Page     int                `form:"page"`
	PageSize int                `form:"page_size"`
}

type SubscriptionListResponse struct {
	Subscriptions []Subscription `json:"subscriptions"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	PageSize      int            `json:"page_size"`
}
