package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"seedmart/internal/models"
	"seedmart/internal/referral"
	"seedmart/internal/repositories/interfaces"
	"seedmart/internal/services"
	"seedmart/internal/utils"
	"seedmart/internal/validators"
)

// AdminHandler serves the back-office surface: approvals, payouts,
// reassignment, custom rates, fraud review and program settings.
type AdminHandler struct {
	engine   *referral.Engine
	settings *services.SettingsService
	members  interfaces.MemberRepository
	events   interfaces.EventRepository
	audits   interfaces.AuditLogRepository
}

func NewAdminHandler(
	engine *referral.Engine,
	settings *services.SettingsService,
	members interfaces.MemberRepository,
	events interfaces.EventRepository,
	audits interfaces.AuditLogRepository,
) *AdminHandler {
	return &AdminHandler{
		engine:   engine,
		settings: settings,
		members:  members,
		events:   events,
		audits:   audits,
	}
}

// ApproveMember activates a pending CTV account.
func (h *AdminHandler) ApproveMember(c *gin.Context) {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return
	}

	member, err := h.engine.ApproveMember(c.Request.Context(), memberID, adminActor(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Member approved successfully", member)
}

// ApproveEvent moves a calculated commission event to approved.
func (h *AdminHandler) ApproveEvent(c *gin.Context) {
	eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid event ID")
		return
	}

	event, err := h.engine.ApproveEvent(c.Request.Context(), eventID, adminActor(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Event approved successfully", event)
}

// MarkEventFraudulent excludes a calculated commission event from revenue
// and payout after a fraud investigation. The reason is mandatory and lands
// in the audit trail.
func (h *AdminHandler) MarkEventFraudulent(c *gin.Context) {
	eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid event ID")
		return
	}

	var request validators.MarkFraudulentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateMarkFraudulent(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	event, err := h.engine.MarkEventFraudulent(c.Request.Context(), eventID, request.Reason, adminActor(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Event marked fraudulent", event)
}

// ListEvents lists commission events by status for review queues.
func (h *AdminHandler) ListEvents(c *gin.Context) {
	status := models.ReferralEventStatus(c.DefaultQuery("status", string(models.EventStatusCalculated)))
	params := utils.GetPaginationParams(c)

	events, total, err := h.events.ListByStatus(c.Request.Context(), status, params)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}
	utils.SuccessResponseWithMeta(c, "Events retrieved successfully", map[string]interface{}{
		"events": events,
	}, meta)
}

// MarkPaid settles a batch of approved events for one member.
func (h *AdminHandler) MarkPaid(c *gin.Context) {
	var request validators.MarkPaidRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateMarkPaid(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	eventIDs := make([]primitive.ObjectID, 0, len(request.EventIDs))
	for _, raw := range request.EventIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid event ID: "+raw)
			return
		}
		eventIDs = append(eventIDs, id)
	}

	batchID := utils.GenerateBatchID()
	batch, err := h.engine.MarkPaid(c.Request.Context(), batchID, eventIDs, adminActor(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Payout batch processed successfully", batch)
}

// ReassignCustomer moves a customer to a different referrer. The reason is
// mandatory and lands in the audit trail.
func (h *AdminHandler) ReassignCustomer(c *gin.Context) {
	customerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid customer ID")
		return
	}

	var request validators.ReassignCustomerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateReassignCustomer(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	newReferrerID, err := primitive.ObjectIDFromHex(request.NewReferrerID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid referrer ID")
		return
	}

	customer, err := h.engine.ReassignCustomer(c.Request.Context(), customerID, newReferrerID, request.Reason, adminActor(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Customer reassigned successfully", customer)
}

// SetCustomRate overrides a member's commission rate.
func (h *AdminHandler) SetCustomRate(c *gin.Context) {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return
	}

	var request validators.CustomRateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateCustomRate(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	member, err := h.engine.SetCustomRate(c.Request.Context(), memberID, request.Rate, adminActor(c), request.Note)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Custom rate set successfully", member)
}

// DisableCustomRate restores a member to the standard tier rates.
func (h *AdminHandler) DisableCustomRate(c *gin.Context) {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return
	}

	member, err := h.engine.DisableCustomRate(c.Request.Context(), memberID, adminActor(c))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Custom rate disabled successfully", member)
}

// RunFraudCheck recomputes a member's fraud score on demand.
func (h *AdminHandler) RunFraudCheck(c *gin.Context) {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return
	}

	result, err := h.engine.RunFraudCheck(c.Request.Context(), memberID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Fraud check completed", result)
}

// ListFraudSuspects lists members whose score crossed the threshold.
func (h *AdminHandler) ListFraudSuspects(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	members, total, err := h.members.ListFraudSuspects(c.Request.Context(), params)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}
	utils.SuccessResponseWithMeta(c, "Fraud suspects retrieved successfully", map[string]interface{}{
		"members": members,
	}, meta)
}

// GetSettings returns the active program configuration.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	setting, err := h.settings.Get(c.Request.Context())
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Settings retrieved successfully", setting)
}

// UpdateSettings replaces the program configuration. Invalid tier or rank
// tables are rejected before anything is persisted.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var setting models.ReferralSetting
	if err := c.ShouldBindJSON(&setting); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.settings.Update(c.Request.Context(), &setting, adminActor(c)); err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Settings updated successfully", setting)
}

// GetAuditLogs queries the audit trail by target, actor or recency.
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	ctx := c.Request.Context()

	var (
		logs  []*models.AuditLog
		total int64
		err   error
	)

	switch {
	case c.Query("target_type") != "" && c.Query("target_id") != "":
		logs, total, err = h.audits.GetByTarget(ctx, c.Query("target_type"), c.Query("target_id"), params)
	case c.Query("actor") != "":
		logs, total, err = h.audits.GetByActor(ctx, c.Query("actor"), params)
	default:
		hours, convErr := strconv.Atoi(c.DefaultQuery("hours", "24"))
		if convErr != nil || hours <= 0 {
			utils.BadRequestResponse(c, "Invalid hours parameter")
			return
		}
		logs, total, err = h.audits.GetRecent(ctx, hours, params)
	}
	if err != nil {
		respondEngineError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}
	utils.SuccessResponseWithMeta(c, "Audit logs retrieved successfully", map[string]interface{}{
		"audit_logs": logs,
	}, meta)
}
