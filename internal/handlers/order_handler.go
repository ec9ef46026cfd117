package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"seedmart/internal/referral"
	"seedmart/internal/utils"
	"seedmart/internal/validators"
)

// OrderHandler receives order lifecycle events from the commerce system.
// Delivery is at-least-once, so both endpoints are idempotent.
type OrderHandler struct {
	engine *referral.Engine
}

func NewOrderHandler(engine *referral.Engine) *OrderHandler {
	return &OrderHandler{
		engine: engine,
	}
}

// HandleOrderDelivered posts a commission for a delivered order. Replays of
// the same order_id return the already-posted event.
func (h *OrderHandler) HandleOrderDelivered(c *gin.Context) {
	var request validators.OrderDeliveredRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateOrderDelivered(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	customerID, err := primitive.ObjectIDFromHex(request.CustomerID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid customer ID")
		return
	}

	deliveredAt := time.Now()
	if request.DeliveredAt != nil {
		deliveredAt = *request.DeliveredAt
	}

	event, err := h.engine.ProcessOrderDelivered(c.Request.Context(), referral.OrderDelivered{
		OrderID:     request.OrderID,
		CustomerID:  customerID,
		OrderAmount: request.Amount,
		DeliveredAt: deliveredAt,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}

	if event == nil {
		// Order had no commissionable referrer; acknowledge so the
		// producer does not retry.
		utils.SuccessResponse(c, "Order acknowledged, no commission due", nil)
		return
	}

	utils.SuccessResponse(c, "Commission posted", event)
}

// HandleOrderReversed reverses the active commission for a returned or
// cancelled order.
func (h *OrderHandler) HandleOrderReversed(c *gin.Context) {
	var request validators.OrderReversedRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateOrderReversed(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	event, err := h.engine.ProcessOrderReversed(c.Request.Context(), request.OrderID, request.Reason)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	utils.SuccessResponse(c, "Commission reversed", event)
}
