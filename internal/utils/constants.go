package utils

import "time"

// Application Constants
const (
	AppName    = "Seedmart"
	AppVersion = "1.0.0"

	// Default values
	DefaultLanguage    = "vi"
	DefaultCurrency    = "VND"
	DefaultCountryCode = "+84"
	DefaultTimeZone    = "Asia/Ho_Chi_Minh"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Referral program
	ReferralCodeLength     = 8
	DefaultMinPayoutAmount = 200_000 // VND
	DefaultFraudThreshold  = 60

	// Notification
	NotificationRetryAttempts = 3
	NotificationTimeout       = 30 * time.Second
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFailed  = "failed"
)

// Error Messages
const (
	ErrInvalidInput     = "invalid input"
	ErrValidationFailed = "validation failed"
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrNotFound         = "not found"
	ErrConflict         = "conflict"
)

// Collection names
const (
	CollectionMembers        = "referral_members"
	CollectionCustomers      = "customers"
	CollectionEvents         = "referral_events"
	CollectionAuditLogs      = "audit_logs"
	CollectionCommissionLogs = "commission_logs"
	CollectionSettings       = "referral_settings"
	CollectionPayouts        = "payout_batches"
)
