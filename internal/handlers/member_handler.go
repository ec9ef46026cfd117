package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"seedmart/internal/models"
	"seedmart/internal/referral"
	"seedmart/internal/repositories/interfaces"
	"seedmart/internal/utils"
	"seedmart/internal/validators"
)

// MemberHandler serves CTV signup and the member-facing read endpoints.
type MemberHandler struct {
	engine  *referral.Engine
	members interfaces.MemberRepository
	events  interfaces.EventRepository
	payouts interfaces.PayoutRepository
	audits  interfaces.AuditLogRepository
}

func NewMemberHandler(
	engine *referral.Engine,
	members interfaces.MemberRepository,
	events interfaces.EventRepository,
	payouts interfaces.PayoutRepository,
	audits interfaces.AuditLogRepository,
) *MemberHandler {
	return &MemberHandler{
		engine:  engine,
		members: members,
		events:  events,
		payouts: payouts,
		audits:  audits,
	}
}

// RegisterMember creates a new CTV account.
func (h *MemberHandler) RegisterMember(c *gin.Context) {
	var request validators.RegisterMemberRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateRegisterMember(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	member, err := h.engine.RegisterMember(c.Request.Context(), referral.RegisterMemberInput{
		Email:        request.Email,
		FullName:     request.FullName,
		Phone:        request.Phone,
		ReferralCode: request.ReferrerCode,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.CreatedResponse(c, "Member registered successfully", member)
}

// AttachReferrer binds a customer to a referral code before their first
// qualifying order locks the relationship.
func (h *MemberHandler) AttachReferrer(c *gin.Context) {
	var request validators.AttachReferrerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	customerID, err := primitive.ObjectIDFromHex(request.CustomerID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid customer ID")
		return
	}

	customer, err := h.engine.AttachReferrer(c.Request.Context(), customerID, request.ReferralCode)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Referrer attached successfully", customer)
}

// GetMember retrieves a single member.
func (h *MemberHandler) GetMember(c *gin.Context) {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return
	}

	member, err := h.members.GetByID(c.Request.Context(), memberID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Member retrieved successfully", member)
}

// ListMembers lists members, optionally filtered by status.
func (h *MemberHandler) ListMembers(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	status := models.MemberStatus(c.Query("status"))

	members, total, err := h.members.List(c.Request.Context(), status, params)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}
	utils.SuccessResponseWithMeta(c, "Members retrieved successfully", map[string]interface{}{
		"members": members,
	}, meta)
}

// GetMemberEvents lists a member's commission events.
func (h *MemberHandler) GetMemberEvents(c *gin.Context) {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return
	}

	params := utils.GetPaginationParams(c)
	events, total, err := h.events.ListByReferrer(c.Request.Context(), memberID, params)
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

// GetMemberPayouts lists a member's payout batches.
func (h *MemberHandler) GetMemberPayouts(c *gin.Context) {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return
	}

	params := utils.GetPaginationParams(c)
	batches, total, err := h.payouts.ListByReferrer(c.Request.Context(), memberID, params)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}
	utils.SuccessResponseWithMeta(c, "Payouts retrieved successfully", map[string]interface{}{
		"payouts": batches,
	}, meta)
}

// GetMemberCommissionLogs lists a member's calculation trail.
func (h *MemberHandler) GetMemberCommissionLogs(c *gin.Context) {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return
	}

	params := utils.GetPaginationParams(c)
	logs, total, err := h.audits.GetCommissionLogsByReferrer(c.Request.Context(), memberID, params)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}
	utils.SuccessResponseWithMeta(c, "Commission logs retrieved successfully", map[string]interface{}{
		"commission_logs": logs,
	}, meta)
}
