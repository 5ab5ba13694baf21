package fields

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlice(t *testing.T) {
	raw, err := Slice("0123456789", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, "234", raw)

	raw, err = Slice("0123456789", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", raw)

	_, err = Slice("0123456789", 5, 11)
	assert.ErrorIs(t, err, ErrTruncatedRecord)

	_, err = Slice("abc", 2, 1)
	assert.Error(t, err)
}

func TestInt(t *testing.T) {
	n, err := Int("000042")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = Int("  7 ")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	for _, raw := range []string{"", "   ", "12a", "1.5"} {
		_, err := Int(raw)
		assert.ErrorIs(t, err, ErrInvalidNumber, "raw %q", raw)
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"00012345", "123.45"},
		{"0000012345", "123.45"},
		{"100000000", "1000000.00"},
		{"00000000000", "0.00"},
		{"00000000001", "0.01"},
		{"05", "0.05"},
		{"   1234", "12.34"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Amount(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
			assert.Equal(t, int32(-2), got.Exponent(), "amount must carry exactly two fractional digits")
		})
	}
}

func TestAmount_Invalid(t *testing.T) {
	for _, raw := range []string{"", "1", "000000012a", "0000-12345", "12 34", "0000001 5"} {
		_, err := Amount(raw)
		assert.ErrorIs(t, err, ErrInvalidNumber, "raw %q", raw)
	}
}

func TestDate(t *testing.T) {
	got, err := Date("240131", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), got)

	got, err = Date("991231", nil)
	require.NoError(t, err)
	assert.Equal(t, 1999, got.Year())

	for _, raw := range []string{"241301", "240230", "2401", "      ", "24013a"} {
		_, err := Date(raw, time.UTC)
		assert.ErrorIs(t, err, ErrDateParse, "raw %q", raw)
	}
}

func TestTimestamp(t *testing.T) {
	helsinki, err := time.LoadLocation("Europe/Helsinki")
	require.NoError(t, err)

	got, err := Timestamp("2403151742", helsinki)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 15, 17, 42, 0, 0, helsinki), got)

	_, err = Timestamp("2403152561", time.UTC)
	assert.ErrorIs(t, err, ErrDateParse)
}

func TestName(t *testing.T) {
	assert.Equal(t, "MÄKINEN ÖRN", Name(`M[KINEN \RN `))
	assert.Equal(t, "VIRTANEN", Name("VIRTANEN    "))
	assert.Equal(t, "", Name("            "))
	// ISO-8859-15 Å
	assert.Equal(t, "ÅSTRÖM", Name("\xc5STR\\M  "))
}

func TestStripZeros(t *testing.T) {
	assert.Equal(t, "123", StripZeros("0000000000000123"))
	assert.Equal(t, "", StripZeros("00000000000000000000"))
	assert.Equal(t, "1000", StripZeros("00001000"))
}

type color int

const (
	red color = iota
	green
)

func TestEnum(t *testing.T) {
	colors := NewEnum("color", map[string]color{"0": red, "1": green})

	c, err := colors.Decode("1")
	require.NoError(t, err)
	assert.Equal(t, green, c)

	_, err = colors.Decode("")
	assert.ErrorIs(t, err, ErrUnknownCode, "no default configured")

	_, err = colors.Decode("99")
	assert.ErrorIs(t, err, ErrUnknownCode)

	withDefault := colors.WithDefault("0")
	c, err = withDefault.Decode(" ")
	require.NoError(t, err)
	assert.Equal(t, red, c)

	_, err = withDefault.Decode("2")
	assert.ErrorIs(t, err, ErrUnknownCode)

	assert.Equal(t, []string{"0", "1"}, colors.Codes())
}
