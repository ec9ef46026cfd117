package validators

import (
	"time"
)

type RegisterMemberRequest struct {
	Email        string `json:"email" validate:"required,email,max=255"`
	FullName     string `json:"full_name" validate:"required,min=2,max=120"`
	Phone        string `json:"phone" validate:"omitempty,phone_number"`
	ReferrerCode string `json:"referrer_code" validate:"omitempty,referral_code"`
}

type AttachReferrerRequest struct {
	CustomerID   string `json:"customer_id" validate:"required,object_id"`
	ReferralCode string `json:"referral_code" validate:"required,referral_code"`
}

type OrderDeliveredRequest struct {
	OrderID     string     `json:"order_id" validate:"required,min=1,max=64"`
	CustomerID  string     `json:"customer_id" validate:"required,object_id"`
	Amount      int64      `json:"amount" validate:"required,min=1"`
	DeliveredAt *time.Time `json:"delivered_at" validate:"omitempty,past_date"`
}

type OrderReversedRequest struct {
	OrderID string `json:"order_id" validate:"required,min=1,max=64"`
	Reason  string `json:"reason" validate:"required,min=3,max=255"`
}

type MarkPaidRequest struct {
	EventIDs []string `json:"event_ids" validate:"required,min=1,max=500,dive,object_id"`
}

type MarkFraudulentRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=255"`
}

type ReassignCustomerRequest struct {
	NewReferrerID string `json:"new_referrer_id" validate:"required,object_id"`
	Reason        string `json:"reason" validate:"required,min=3,max=255"`
}

type CustomRateRequest struct {
	Rate float64 `json:"rate" validate:"rate_percent"`
	Note string  `json:"note" validate:"omitempty,max=255"`
}

func ValidateRegisterMember(req *RegisterMemberRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateOrderDelivered(req *OrderDeliveredRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateOrderReversed(req *OrderReversedRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateMarkPaid(req *MarkPaidRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateMarkFraudulent(req *MarkFraudulentRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateReassignCustomer(req *ReassignCustomerRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateCustomRate(req *CustomRateRequest) ValidationErrors {
	return ValidateStruct(req)
}
