package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"seedmart/internal/referral"
	"seedmart/internal/repositories/interfaces"
	"seedmart/internal/utils"
)

// respondEngineError translates the referral error taxonomy into HTTP
// responses. Unknown errors surface as 500 without leaking internals.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, referral.ErrMemberNotFound):
		utils.NotFoundResponse(c, "Member")
	case errors.Is(err, referral.ErrCustomerNotFound):
		utils.NotFoundResponse(c, "Customer")
	case errors.Is(err, referral.ErrEventNotFound):
		utils.NotFoundResponse(c, "Referral event")
	case errors.Is(err, referral.ErrInvalidCode):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "INVALID_REFERRAL_CODE", err.Error())
	case errors.Is(err, referral.ErrSelfReferral):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "SELF_REFERRAL", err.Error())
	case errors.Is(err, referral.ErrAlreadyLocked):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, referral.ErrDuplicateOrder):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, referral.ErrInvalidTransition):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, referral.ErrBelowPayoutThreshold):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "BELOW_PAYOUT_THRESHOLD", err.Error())
	case errors.Is(err, referral.ErrConcurrencyConflict):
		utils.ErrorResponse(c, http.StatusConflict, "CONCURRENCY_CONFLICT", err.Error())
	case errors.Is(err, referral.ErrConfiguration):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "INVALID_CONFIGURATION", err.Error())
	case errors.Is(err, interfaces.ErrNotFound):
		utils.NotFoundResponse(c, "Resource")
	case errors.Is(err, interfaces.ErrDuplicateKey):
		utils.ConflictResponse(c, err.Error())
	default:
		utils.InternalServerErrorResponse(c)
	}
}

// adminActor returns the audit actor set by the admin key middleware.
func adminActor(c *gin.Context) string {
	if actor, exists := c.Get("admin_actor"); exists {
		if email, ok := actor.(string); ok {
			return email
		}
	}
	return ""
}
