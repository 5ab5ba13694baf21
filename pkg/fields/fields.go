package fields

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrTruncatedRecord is returned when a line ends before a field does
	ErrTruncatedRecord = errors.New("truncated record")
	// ErrDateParse is returned for dates and timestamps that do not parse
	ErrDateParse = errors.New("unparseable date")
	// ErrUnknownCode is returned for coded fields outside their enumeration
	ErrUnknownCode = errors.New("unknown code")
	// ErrInvalidNumber is returned for integer and amount fields that are not numeric
	ErrInvalidNumber = errors.New("invalid number")
)

// Layouts of the bank's two-digit-year date fields
const (
	DateLayout      = "060102"
	TimestampLayout = "0601021504"
)

var legacyReplacer = strings.NewReplacer("[", "Ä", `\`, "Ö")

// Slice returns line[start:end], failing when the line is too short
func Slice(line string, start, end int) (string, error) {
	if start < 0 || end < start {
		return "", fmt.Errorf("invalid field range [%d:%d]", start, end)
	}
	if len(line) < end {
		return "", fmt.Errorf("%w: need %d characters, have %d", ErrTruncatedRecord, end, len(line))
	}
	return line[start:end], nil
}

// Int decodes a space-padded decimal integer
func Int(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty integer field", ErrInvalidNumber)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return n, nil
}

// Amount decodes an implicit 2-decimal field. The final two characters are
// the fractional part, so "00012345" is 123.45. The result always carries
// exactly two fractional digits.
func Amount(raw string) (decimal.Decimal, error) {
	if len(raw) < 2 {
		return decimal.Zero, fmt.Errorf("%w: amount %q shorter than two digits", ErrInvalidNumber, raw)
	}

	whole := strings.TrimLeft(raw[:len(raw)-2], " ")
	frac := raw[len(raw)-2:]
	if !isDigits(frac) || (whole != "" && !isDigits(whole)) {
		return decimal.Zero, fmt.Errorf("%w: amount %q", ErrInvalidNumber, raw)
	}
	if whole == "" {
		whole = "0"
	}

	d, err := decimal.NewFromString(whole + "." + frac)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q: %v", ErrInvalidNumber, raw, err)
	}
	return d, nil
}

// Date decodes a yyMMdd date in loc
func Date(raw string, loc *time.Location) (time.Time, error) {
	return parseTime(DateLayout, raw, loc)
}

// Timestamp decodes a yyMMddHHmm timestamp in loc
func Timestamp(raw string, loc *time.Location) (time.Time, error) {
	return parseTime(TimestampLayout, raw, loc)
}

func parseTime(layout, raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(layout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match %s", ErrDateParse, raw, layout)
	}
	return t, nil
}

// Name decodes a name field: ISO-8859-15 bytes to UTF-8, legacy substitutions
// applied, trailing whitespace removed. raw must hold the undecoded bytes;
// a string that is already UTF-8 is decoded twice.
func Name(raw string) string {
	decoded, err := charmap.ISO8859_15.NewDecoder().String(raw)
	if err != nil {
		decoded = raw
	}
	return strings.TrimRightFunc(legacyReplacer.Replace(decoded), unicode.IsSpace)
}

// StripZeros removes leading zeros. An all-zero field becomes empty.
func StripZeros(raw string) string {
	return strings.TrimLeft(raw, "0")
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Enum maps fixed-width codes to typed values
type Enum[T any] struct {
	name        string
	codes       map[string]T
	defaultCode string
	hasDefault  bool
}

// NewEnum creates an enumeration named name over codes
func NewEnum[T any](name string, codes map[string]T) *Enum[T] {
	return &Enum[T]{name: name, codes: codes}
}

// WithDefault returns a copy of the enum that decodes an empty field as code
func (e *Enum[T]) WithDefault(code string) *Enum[T] {
	return &Enum[T]{name: e.name, codes: e.codes, defaultCode: code, hasDefault: true}
}

// Decode trims raw and looks it up. An empty field resolves to the default
// code when one is set; any other value must match a code exactly.
func (e *Enum[T]) Decode(raw string) (T, error) {
	code := strings.TrimSpace(raw)
	if code == "" && e.hasDefault {
		code = e.defaultCode
	}

	v, ok := e.codes[code]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q (known: %s)", ErrUnknownCode, e.name, raw, strings.Join(e.Codes(), ","))
	}
	return v, nil
}

// Codes returns the known codes in sorted order
func (e *Enum[T]) Codes() []string {
	codes := make([]string, 0, len(e.codes))
	for c := range e.codes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
