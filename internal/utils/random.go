package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	numberBytes  = "0123456789"
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// Referral codes skip 0/O and 1/I to stay unambiguous when read
	// aloud or handwritten on flyers.
	referralCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateReferralCode returns an uppercase code suitable for sharing.
// Uniqueness is enforced by the storage index, not here.
func GenerateReferralCode(length int) string {
	return generateRandom(length, referralCodeCharset)
}

func GenerateRandomNumericString(length int) string {
	return generateRandom(length, numberBytes)
}

func GenerateBatchID() string {
	return "PB-" + generateRandom(10, upperLetters+numberBytes)
}

func generateRandom(length int, charset string) string {
	result := make([]byte, length)
	charsetLength := big.NewInt(int64(len(charset)))

	for i := range result {
		num, _ := rand.Int(rand.Reader, charsetLength)
		result[i] = charset[num.Int64()]
	}

	return string(result)
}
