package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oikeuttaelaimille/pankkilinkki/pkg/fields"
)

// Errors returned by Parse. Field decoding errors are the ones defined by
// package fields.
var (
	ErrTruncatedRecord = fields.ErrTruncatedRecord
	ErrDateParse       = fields.ErrDateParse
	ErrUnknownCode     = fields.ErrUnknownCode
	ErrInvalidNumber   = fields.ErrInvalidNumber

	// ErrDuplicateHeader is returned when a file has more than one header record
	ErrDuplicateHeader = errors.New("duplicate header record")
)

// Kind is the record kind selected by the first character of a line
type Kind int

const (
	KindRow Kind = iota
	KindHeader
	KindFooter
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindFooter:
		return "footer"
	default:
		return "row"
	}
}

// KindOf classifies a non-blank line
func KindOf(line string) Kind {
	switch line[0] {
	case '0':
		return KindHeader
	case '9':
		return KindFooter
	default:
		return KindRow
	}
}

// RecordError describes the record that failed to decode
type RecordError struct {
	Line  int
	Kind  Kind
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s record: %v", e.Line, e.Kind, e.Err)
	}
	return fmt.Sprintf("line %d: %s record: %s: %v", e.Line, e.Kind, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Option configures Parse
type Option func(*parser)

// WithLocation sets the time zone of header timestamps and row dates.
// The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// Parse decodes a complete ledger file. Any malformed record fails the
// whole file.
//
// text holds the file bytes as delivered by the bank, one byte per
// character in ISO-8859-15. Offsets are byte offsets, so text that was
// already decoded to UTF-8 shifts fields and garbles names.
func Parse(text string, opts ...Option) (*File, error) {
	return ParseReader(strings.NewReader(text), opts...)
}

// ParseReader decodes a ledger file read from r. The bytes are read as
// described for Parse.
func ParseReader(r io.Reader, opts ...Option) (*File, error) {
	p := &parser{
		loc:  time.UTC,
		file: &File{Rows: make([]Row, 0)},
	}
	for _, opt := range opts {
		opt(p)
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := p.parseLine(lineNo, scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	return p.file, nil
}

type parser struct {
	loc  *time.Location
	file *File
}

func (p *parser) parseLine(lineNo int, line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	rec := &record{line: line, lineNo: lineNo, kind: KindOf(line)}
	switch rec.kind {
	case KindHeader:
		return p.header(rec)
	case KindFooter:
		return p.footer(rec)
	default:
		return p.row(rec)
	}
}

func (p *parser) header(rec *record) error {
	createdAt := rec.timestamp("timestamp", 1, 11, p.loc)
	if rec.err != nil {
		return rec.err
	}
	if p.file.CreatedAt != nil {
		return &RecordError{Line: rec.lineNo, Kind: rec.kind, Err: ErrDuplicateHeader}
	}
	p.file.CreatedAt = &createdAt
	return nil
}

func (p *parser) footer(rec *record) error {
	totals := FooterTotals{
		ReferencedPayments: Total{
			Count: rec.int("refPaymentCount", 1, 7),
			Sum:   rec.amount("refPaymentSum", 7, 18),
		},
		ReferencedCorrections: Total{
			Count: rec.int("refCorrectionCount", 18, 24),
			Sum:   rec.amount("refCorrectionSum", 24, 35),
		},
		FailedPayments: Total{
			Count: rec.int("failedCount", 35, 41),
			Sum:   rec.amount("failedSum", 41, 52),
		},
	}
	if rec.err != nil {
		return rec.err
	}
	p.file.Totals = p.file.Totals.Add(totals)
	return nil
}

// statusOffset is where the optional status column starts. Banks right-trim
// lines, so a row ending right before it carries an empty status.
const statusOffset = 89

func (p *parser) row(rec *record) error {
	row := Row{
		AccountNumber:   rec.str("accountNumber", 1, 15),
		BookingDate:     rec.date("bookingDate", 15, 21, p.loc),
		PaymentDate:     rec.date("paymentDate", 21, 27, p.loc),
		ArchiveID:       rec.str("archiveId", 27, 43),
		ReferenceNumber: fields.StripZeros(rec.str("referenceNumber", 43, 63)),
		Name:            fields.Name(rec.str("name", 63, 75)),
		NameSource:      rec.str("nameSource", 76, 77),
		Amount:          rec.amount("amount", 77, 87),
		CorrectionFlag:  rec.int("correctionFlag", 87, 88),
		DeliveryMethod:  rec.str("deliveryMethod", 88, statusOffset),
	}
	row.Currency = decode(rec, "currency", rec.str("currency", 75, 76), DecodeCurrency)

	status := ""
	if len(rec.line) > statusOffset {
		status = rec.line[statusOffset : statusOffset+1]
	}
	row.Status = decode(rec, "status", status, DecodeStatus)

	if rec.err != nil {
		return rec.err
	}
	p.file.Rows = append(p.file.Rows, row)
	return nil
}

// record decodes the fields of one line. The first failure sticks and later
// field reads become no-ops.
type record struct {
	line   string
	lineNo int
	kind   Kind
	err    error
}

func (r *record) fail(field string, err error) {
	if r.err == nil {
		r.err = &RecordError{Line: r.lineNo, Kind: r.kind, Field: field, Err: err}
	}
}

func (r *record) str(field string, start, end int) string {
	if r.err != nil {
		return ""
	}
	v, err := fields.Slice(r.line, start, end)
	if err != nil {
		r.fail(field, err)
		return ""
	}
	return v
}

func (r *record) int(field string, start, end int) int {
	raw := r.str(field, start, end)
	if r.err != nil {
		return 0
	}
	n, err := fields.Int(raw)
	if err != nil {
		r.fail(field, err)
	}
	return n
}

func (r *record) amount(field string, start, end int) decimal.Decimal {
	raw := r.str(field, start, end)
	if r.err != nil {
		return decimal.Zero
	}
	d, err := fields.Amount(raw)
	if err != nil {
		r.fail(field, err)
	}
	return d
}

func (r *record) date(field string, start, end int, loc *time.Location) time.Time {
	raw := r.str(field, start, end)
	if r.err != nil {
		return time.Time{}
	}
	t, err := fields.Date(raw, loc)
	if err != nil {
		r.fail(field, err)
	}
	return t
}

func (r *record) timestamp(field string, start, end int, loc *time.Location) time.Time {
	raw := r.str(field, start, end)
	if r.err != nil {
		return time.Time{}
	}
	t, err := fields.Timestamp(raw, loc)
	if err != nil {
		r.fail(field, err)
	}
	return t
}

func decode[T any](r *record, field, raw string, fn func(string) (T, error)) T {
	var zero T
	if r.err != nil {
		return zero
	}
	v, err := fn(raw)
	if err != nil {
		r.fail(field, err)
		return zero
	}
	return v
}
