package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatVND renders a whole-dong amount with thousand separators, e.g.
// 1250000 -> "1.250.000 ₫".
func FormatVND(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	return fmt.Sprintf("%s%s ₫", sign, strings.Join(groups, "."))
}

// RoundHalfUp rounds to the nearest whole dong, halves away from zero.
func RoundHalfUp(value float64) int64 {
	if value < 0 {
		return -int64(math.Floor(-value + 0.5))
	}
	return int64(math.Floor(value + 0.5))
}

// PercentOf computes pct percent of a VND amount, rounded half-up.
func PercentOf(amount int64, pct float64) int64 {
	return RoundHalfUp(float64(amount) * pct / 100)
}

// ParseVND parses user-entered amounts like "1.250.000", "1,250,000 ₫" or
// "1250000".
func ParseVND(amountStr string) (int64, error) {
	cleaned := strings.TrimSpace(amountStr)
	cleaned = strings.ReplaceAll(cleaned, "₫", "")
	cleaned = strings.ReplaceAll(cleaned, "VND", "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	amount, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amountStr, err)
	}
	return amount, nil
}
