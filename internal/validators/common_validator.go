package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"seedmart/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validation functions
	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("phone_number", validatePhoneNumber)
	validate.RegisterValidation("referral_code", validateReferralCode)
	validate.RegisterValidation("seeder_rank", validateSeederRank)
	validate.RegisterValidation("period_month", validatePeriodMonth)
	validate.RegisterValidation("vnd_amount", validateVNDAmount)
	validate.RegisterValidation("rate_percent", validateRatePercent)
	validate.RegisterValidation("past_date", validatePastDate)
}

// Common validation errors
var (
	ErrInvalidObjectID     = errors.New("invalid object ID format")
	ErrInvalidPhoneNumber  = errors.New("invalid phone number format")
	ErrInvalidReferralCode = errors.New("invalid referral code format")
	ErrInvalidRank         = errors.New("invalid seeder rank")
	ErrInvalidPeriod       = errors.New("invalid period month")
	ErrInvalidAmount       = errors.New("invalid VND amount")
	ErrInvalidRate         = errors.New("rate must be between 0 and 100")
)

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Details flattens the errors into a field -> message map for API responses.
func (v ValidationErrors) Details() map[string]string {
	details := make(map[string]string, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			validationError := ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: getErrorMessage(err),
			}
			validationErrors = append(validationErrors, validationError)
		}
	}

	return validationErrors
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "object_id":
		return "Invalid ID format"
	case "phone_number":
		return "Invalid phone number format"
	case "referral_code":
		return "Invalid referral code format"
	case "seeder_rank":
		return "Invalid seeder rank"
	case "period_month":
		return "Period must be in YYYY-MM format"
	case "vnd_amount":
		return "Amount must be a non-negative whole VND value"
	case "rate_percent":
		return "Rate must be between 0 and 100"
	case "past_date":
		return "Date must be in the past"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

// Custom validation functions
func validateObjectID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let required tag handle empty values
	}
	_, err := primitive.ObjectIDFromHex(value)
	return err == nil
}

func validatePhoneNumber(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	if phone == "" {
		return true
	}

	// E.164 or local Vietnamese format
	phoneRegex := regexp.MustCompile(`^(\+[1-9]\d{1,14}|0\d{9,10})$`)
	return phoneRegex.MatchString(phone)
}

func validateReferralCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if code == "" {
		return true
	}

	// Codes are generated from an unambiguous uppercase alphabet.
	codeRegex := regexp.MustCompile(`^[A-HJ-NP-Z2-9]{6,12}$`)
	return codeRegex.MatchString(strings.ToUpper(code))
}

func validateSeederRank(fl validator.FieldLevel) bool {
	rank := models.SeederRank(fl.Field().String())
	if rank == "" {
		return true
	}
	return models.RankIndex(rank) >= 0
}

func validatePeriodMonth(fl validator.FieldLevel) bool {
	period := fl.Field().String()
	if period == "" {
		return true
	}

	_, err := time.Parse("2006-01", period)
	return err == nil
}

func validateVNDAmount(fl validator.FieldLevel) bool {
	return fl.Field().Int() >= 0
}

func validateRatePercent(fl validator.FieldLevel) bool {
	rate := fl.Field().Float()
	return rate >= 0 && rate <= 100
}

func validatePastDate(fl validator.FieldLevel) bool {
	date := fl.Field().Interface().(time.Time)
	return date.Before(time.Now())
}

// Helper functions for common validations
func IsValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

func IsValidObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

func SanitizeInput(input string) string {
	// Remove HTML tags and trim whitespace
	htmlRegex := regexp.MustCompile(`<[^>]*>`)
	cleaned := htmlRegex.ReplaceAllString(input, "")
	return strings.TrimSpace(cleaned)
}
