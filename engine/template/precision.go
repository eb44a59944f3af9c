package template

import (
	"math"
	"strconv"
	"strings"
)

// maxSafeDigits bounds the digit count past which a float64 mantissa can no
// longer represent every decimal digit exactly - close to the 2^53 safe
// integer boundary JSON-consuming clients rely on.
const maxSafeDigits = 15

// PrecisionConverter decides how a raw numeric literal found in a template
// path or a JSON response body should be represented once it leaves gjson's
// float64-only world: integers that fit safely stay int64 or float64,
// anything with more significant digits than float64 can carry exactly is
// preserved as its original string rather than silently losing precision.
type PrecisionConverter struct{}

// NewPrecisionConverter returns a stateless converter.
func NewPrecisionConverter() *PrecisionConverter { return &PrecisionConverter{} }

// ConvertWithPrecision converts the raw numeric text gjson reports via
// Result.Raw into the most precise Go representation that does not lose
// information. Non-numeric input is returned unchanged, except that blank
// input yields an empty string.
func (c *PrecisionConverter) ConvertWithPrecision(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil && digitCount(trimmed) <= maxSafeDigits {
		return i
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return raw
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return raw
	}
	if digitCount(trimmed) > maxSafeDigits {
		return raw
	}
	if f == math.Trunc(f) {
		return int64(f)
	}
	return f
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
