// Package ledger decodes the bank's fixed-width ledger of settled payments
// (the "TL" transaction list).
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/oikeuttaelaimille/pankkilinkki/pkg/fields"
)

// Currency of a ledger row
type Currency int

const (
	// CurrencyEuro is the only currency the bank reports
	CurrencyEuro Currency = 1
)

func (c Currency) String() string {
	if c == CurrencyEuro {
		return "EURO"
	}
	return "UNKNOWN"
}

// MarshalText encodes the currency by name
func (c Currency) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Status of a ledger row
type Status int

const (
	StatusSuccess                 Status = 0
	StatusAccountNotFound         Status = 1
	StatusInsufficientFunds       Status = 2
	StatusNoPaymentServiceAccount Status = 3
	StatusPayerCancelled          Status = 4
	StatusBankCancelled           Status = 5
	StatusCancellationNotMatched  Status = 6
	StatusAuthorizationMissing    Status = 7
	StatusDueDateError            Status = 8
	StatusFormatError             Status = 9
)

var statusNames = map[Status]string{
	StatusSuccess:                 "SUCCESS",
	StatusAccountNotFound:         "ACCOUNT_NOT_FOUND",
	StatusInsufficientFunds:       "INSUFFICIENT_FUNDS",
	StatusNoPaymentServiceAccount: "NO_PAYMENT_SERVICE_ACCOUNT",
	StatusPayerCancelled:          "PAYER_CANCELLED",
	StatusBankCancelled:           "BANK_CANCELLED",
	StatusCancellationNotMatched:  "CANCELLATION_NOT_MATCHED",
	StatusAuthorizationMissing:    "AUTHORIZATION_MISSING",
	StatusDueDateError:            "DUE_DATE_ERROR",
	StatusFormatError:             "FORMAT_ERROR",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText encodes the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	currencies = fields.NewEnum("currency", map[string]Currency{
		"1": CurrencyEuro,
	})

	statuses = fields.NewEnum("status", map[string]Status{
		"0": StatusSuccess,
		"1": StatusAccountNotFound,
		"2": StatusInsufficientFunds,
		"3": StatusNoPaymentServiceAccount,
		"4": StatusPayerCancelled,
		"5": StatusBankCancelled,
		"6": StatusCancellationNotMatched,
		"7": StatusAuthorizationMissing,
		"8": StatusDueDateError,
		"9": StatusFormatError,
	}).WithDefault("0")
)

// DecodeCurrency decodes a currency code
func DecodeCurrency(raw string) (Currency, error) {
	return currencies.Decode(raw)
}

// DecodeStatus decodes a status code; an empty field is SUCCESS
func DecodeStatus(raw string) (Status, error) {
	return statuses.Decode(raw)
}

// File is a decoded ledger file
type File struct {
	// CreatedAt is nil when the file had no header record
	CreatedAt *time.Time   `json:"createdAt,omitempty"`
	Rows      []Row        `json:"rows"`
	Totals    FooterTotals `json:"totals"`
}

// Row is one settled payment
type Row struct {
	AccountNumber   string          `json:"accountNumber"`
	BookingDate     time.Time       `json:"bookingDate"`
	PaymentDate     time.Time       `json:"paymentDate"`
	ArchiveID       string          `json:"archiveId"`
	ReferenceNumber string          `json:"referenceNumber"`
	Name            string          `json:"name"`
	Currency        Currency        `json:"currency"`
	NameSource      string          `json:"nameSource"`
	Amount          decimal.Decimal `json:"amount"`
	CorrectionFlag  int             `json:"correctionFlag"`
	DeliveryMethod  string          `json:"deliveryMethod"`
	Status          Status          `json:"status"`
}

// Total is a count and sum pair from a footer record
type Total struct {
	Count int             `json:"count"`
	Sum   decimal.Decimal `json:"sum"`
}

// Add returns the element-wise sum of t and o
func (t Total) Add(o Total) Total {
	return Total{Count: t.Count + o.Count, Sum: t.Sum.Add(o.Sum)}
}

// FooterTotals are the totals reported by the bank, accumulated over every
// footer record of a file
type FooterTotals struct {
	ReferencedPayments    Total `json:"referencedPayments"`
	ReferencedCorrections Total `json:"referencedCorrections"`
	FailedPayments        Total `json:"failedPayments"`
}

// Add returns the element-wise sum of f and o
func (f FooterTotals) Add(o FooterTotals) FooterTotals {
	return FooterTotals{
		ReferencedPayments:    f.ReferencedPayments.Add(o.ReferencedPayments),
		ReferencedCorrections: f.ReferencedCorrections.Add(o.ReferencedCorrections),
		FailedPayments:        f.FailedPayments.Add(o.FailedPayments),
	}
}

// Summary computes count and sum of the decoded rows, split the same way the
// footer totals are. Footer totals are informational and are never checked
// against it by the parser.
func (f *File) Summary() FooterTotals {
	var s FooterTotals
	for _, r := range f.Rows {
		one := Total{Count: 1, Sum: r.Amount}
		switch {
		case r.Status != StatusSuccess:
			s.FailedPayments = s.FailedPayments.Add(one)
		case r.CorrectionFlag != 0:
			s.ReferencedCorrections = s.ReferencedCorrections.Add(one)
		default:
			s.ReferencedPayments = s.ReferencedPayments.Add(one)
		}
	}
	return s
}
