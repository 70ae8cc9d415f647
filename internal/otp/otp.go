package otp

import (
	"math/rand"
	"strconv"
)

// GenerateCode returns a 6-digit numeric code. Codes are compared as
// strings during verification, so leading digits are always non-zero to
// keep the printed form six characters.
func GenerateCode() string {
	return strconv.Itoa(100000 + rand.Intn(900000))
}
