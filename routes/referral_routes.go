package routes

import (
	"github.com/gin-gonic/gin"

	"seedmart/internal/handlers"
	"seedmart/internal/middleware"
)

// SetupReferralRoutes wires the order webhook, the member-facing endpoints
// and the admin back office.
func SetupReferralRoutes(
	r *gin.RouterGroup,
	orderHandler *handlers.OrderHandler,
	memberHandler *handlers.MemberHandler,
	adminHandler *handlers.AdminHandler,
	adminAPIKey string,
	webhookAPIKey string,
) {
	// Order lifecycle webhook from the commerce system.
	webhooks := r.Group("/webhooks/orders")
	webhooks.Use(middleware.WebhookKeyRequired(webhookAPIKey))
	{
		webhooks.POST("/delivered", orderHandler.HandleOrderDelivered)
		webhooks.POST("/reversed", orderHandler.HandleOrderReversed)
	}

	// Member signup and self-service reads.
	members := r.Group("/members")
	{
		members.POST("/", memberHandler.RegisterMember)
		members.GET("/:id", memberHandler.GetMember)
		members.GET("/:id/events", memberHandler.GetMemberEvents)
		members.GET("/:id/payouts", memberHandler.GetMemberPayouts)
		members.GET("/:id/commission-logs", memberHandler.GetMemberCommissionLogs)
	}

	// Customer referral binding.
	customers := r.Group("/customers")
	{
		customers.POST("/attach-referrer", memberHandler.AttachReferrer)
	}

	// Back office.
	admin := r.Group("/admin")
	admin.Use(middleware.AdminKeyRequired(adminAPIKey))
	{
		admin.GET("/members", memberHandler.ListMembers)
		admin.PUT("/members/:id/approve", adminHandler.ApproveMember)
		admin.PUT("/members/:id/custom-rate", adminHandler.SetCustomRate)
		admin.DELETE("/members/:id/custom-rate", adminHandler.DisableCustomRate)
		admin.POST("/members/:id/fraud-check", adminHandler.RunFraudCheck)
		admin.GET("/members/fraud-suspects", adminHandler.ListFraudSuspects)

		admin.GET("/events", adminHandler.ListEvents)
		admin.PUT("/events/:id/approve", adminHandler.ApproveEvent)
		admin.PUT("/events/:id/fraudulent", adminHandler.MarkEventFraudulent)
		admin.POST("/payouts", adminHandler.MarkPaid)

		admin.PUT("/customers/:id/reassign", adminHandler.ReassignCustomer)

		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings", adminHandler.UpdateSettings)

		admin.GET("/audit-logs", adminHandler.GetAuditLogs)
	}
}
