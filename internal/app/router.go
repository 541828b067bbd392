// internal/app/router.go
package app

import (
	invoiceHandler "malipo-service/internal/handlers/invoice"
	organizationHandler "malipo-service/internal/handlers/organization"
	paymentHandler "malipo-service/internal/handlers/payment"
	methodHandler "malipo-service/internal/handlers/paymentmethod"
	planHandler "malipo-service/internal/handlers/plan"
	subscriptionHandler "malipo-service/internal/handlers/subscription"
	wsHandler "malipo-service/internal/handlers/ws"
	"malipo-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	PlanHandler         *planHandler.PlanHandler
	OrganizationHandler *organizationHandler.OrganizationHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	MethodHandler       *methodHandler.MethodHandler
	InvoiceHandler      *invoiceHandler.InvoiceHandler
	PaymentHandler      *paymentHandler.PaymentHandler
	WSHandler           *wsHandler.WSHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	ws := r.Group("/ws")
	ws.Use(h.AuthMiddleware.Auth())
	{
		ws.GET("", h.WSHandler.Connect)
	}

	// ==================== Organizations ====================
	organizations := api.Group("/organizations")
	organizations.Use(h.AuthMiddleware.Auth())
	{
		organizations.POST("", h.AuthMiddleware.RequireAdmin(), h.OrganizationHandler.CreateOrganization)
		organizations.GET("/me", h.OrganizationHandler.GetOrganization)
		organizations.PATCH("/me", h.OrganizationHandler.UpdateOrganization)
	}

	// ==================== Subscription Plans ====================
	plans := api.Group("/plans")
	plans.Use(h.AuthMiddleware.Auth())
	{
		plans.GET("", h.PlanHandler.ListPlans)
		plans.GET("/:id", h.PlanHandler.GetPlan)
		plans.POST("", h.AuthMiddleware.RequireAdmin(), h.PlanHandler.CreatePlan)
		plans.DELETE("/:id", h.AuthMiddleware.RequireAdmin(), h.PlanHandler.ArchivePlan)
	}

	// ==================== Subscriptions ====================
	subscriptions := api.Group("/subscriptions")
	subscriptions.Use(h.AuthMiddleware.Auth())
	{
		subscriptions.POST("", h.SubscriptionHandler.CreateSubscription)
		subscriptions.GET("", h.SubscriptionHandler.ListSubscriptions)
		subscriptions.GET("/:id", h.SubscriptionHandler.GetSubscription)
		subscriptions.PUT("/:id/plan", h.SubscriptionHandler.ChangeSubscription)
		subscriptions.PUT("/:id/payment-method", h.SubscriptionHandler.UpdatePaymentMethod)
		subscriptions.PUT("/:id/cancellation", h.SubscriptionHandler.UpdateCancellation)
		subscriptions.DELETE("/:id", h.SubscriptionHandler.CancelSubscription)
	}

	// ==================== Payment Methods ====================
	methods := api.Group("/payment-methods")
	methods.Use(h.AuthMiddleware.Auth())
	{
		methods.GET("", h.MethodHandler.ListMethods)
		methods.GET("/:id", h.MethodHandler.GetMethod)
		methods.POST("/card", h.MethodHandler.AddCard)
		methods.POST("/bank-account", h.MethodHandler.AddBankAccount)
		methods.POST("/mpesa", h.MethodHandler.AddMpesa)
		methods.PUT("/:id/default", h.MethodHandler.SetDefault)
		methods.DELETE("/:id", h.MethodHandler.DeleteMethod)
	}

	// ==================== Invoices ====================
	invoices := api.Group("/invoices")
	invoices.Use(h.AuthMiddleware.Auth())
	{
		invoices.GET("", h.InvoiceHandler.ListInvoices)
		invoices.GET("/:id", h.InvoiceHandler.GetInvoice)
		invoices.GET("/:id/pdf", h.InvoiceHandler.DownloadInvoicePDF)
		invoices.POST("/:id/pay", h.InvoiceHandler.PayInvoice)
	}

	// ==================== Payments ====================
	payments := api.Group("/payments")
	payments.Use(h.AuthMiddleware.Auth())
	{
		payments.GET("", h.PaymentHandler.ListPayments)
		payments.GET("/:id", h.PaymentHandler.GetPayment)
	}
}
