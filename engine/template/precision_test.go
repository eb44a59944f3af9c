package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrecisionConverter_ConvertWithPrecision(t *testing.T) {
	pc := NewPrecisionConverter()

	t.Run("Should convert normal integers to int64", func(t *testing.T) {
		assert.Equal(t, int64(123456789), pc.ConvertWithPrecision("123456789"))
		assert.Equal(t, int64(0), pc.ConvertWithPrecision("0"))
		assert.Equal(t, int64(-123), pc.ConvertWithPrecision("-123"))
		assert.Equal(t, int64(123), pc.ConvertWithPrecision("000123"))
	})

	t.Run("Should preserve integers beyond the safe digit count as strings", func(t *testing.T) {
		assert.Equal(t, "9007199254740992", pc.ConvertWithPrecision("9007199254740992"))
		assert.Equal(t, "123456789012345678901234567890", pc.ConvertWithPrecision("123456789012345678901234567890"))
		assert.Equal(t, "-9007199254740992", pc.ConvertWithPrecision("-9007199254740992"))
	})

	t.Run("Should convert normal decimals to float64", func(t *testing.T) {
		assert.InEpsilon(t, float64(123.456), pc.ConvertWithPrecision("123.456").(float64), 1e-9)
		assert.InEpsilon(t, float64(1.23e-10), pc.ConvertWithPrecision("1.23e-10").(float64), 1e-20)
	})

	t.Run("Should collapse whole-number decimals to int64", func(t *testing.T) {
		assert.Equal(t, int64(0), pc.ConvertWithPrecision("0.0"))
		assert.Equal(t, int64(123), pc.ConvertWithPrecision("123.000"))
	})

	t.Run("Should preserve high-precision decimals as strings", func(t *testing.T) {
		assert.Equal(t, "0.123456789123456789", pc.ConvertWithPrecision("0.123456789123456789"))
		assert.Equal(t, "-0.123456789123456789", pc.ConvertWithPrecision("-0.123456789123456789"))
	})

	t.Run("Should pass through non-numeric and special values unchanged", func(t *testing.T) {
		assert.Equal(t, "hello world", pc.ConvertWithPrecision("hello world"))
		assert.Equal(t, "", pc.ConvertWithPrecision(""))
		assert.Equal(t, "", pc.ConvertWithPrecision("   "))
		assert.Equal(t, "NaN", pc.ConvertWithPrecision("NaN"))
		assert.Equal(t, "Infinity", pc.ConvertWithPrecision("Infinity"))
	})
}
