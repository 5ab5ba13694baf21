// Package receiverinfo maps Finvoice receiver-info documents to the
// registry's e-invoice recipient messages.
package receiverinfo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oikeuttaelaimille/pankkilinkki/pkg/document"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/stream"
)

// RootName is the document element of a receiver-info document
const RootName = "FinvoiceReceiverInfo"

var (
	// ErrNotReceiverInfo is returned for documents of any other type
	ErrNotReceiverInfo = errors.New("not a receiver info document")
	// ErrMissingField is returned when a required value is absent
	ErrMissingField = errors.New("missing field")
	// ErrInvalidServiceCode is returned when BuyerServiceCode is not an integer
	ErrInvalidServiceCode = errors.New("invalid service code")
)

// Action codes used by the bank
const (
	ActionAdd    = "ADD"
	ActionDelete = "DEL"
)

// Message is one recipient registration or cancellation
type Message struct {
	ID                     string  `json:"id"`
	ActionCode             string  `json:"action_code"`
	Timestamp              string  `json:"timestamp"`
	RecipientAddress       string  `json:"recipient_address"`
	RecipientIntermediator string  `json:"recipient_intermediator"`
	RecipientIdentifier    string  `json:"recipient_identifier"`
	RecipientName          string  `json:"recipient_name"`
	ProposedDueDate        *string `json:"proposed_due_date"`
	// ServiceCode is 0 for receiver-info version 1.0, which has no service codes
	ServiceCode int `json:"service_code"`
}

// FromDocument builds a Message from a decoded receiver-info document and
// its transport envelope
func FromDocument(doc *stream.Document) (*Message, error) {
	if doc.Tree == nil || doc.Name() != RootName {
		return nil, fmt.Errorf("%w: %s", ErrNotReceiverInfo, doc.Name())
	}
	if doc.Envelope == nil {
		return nil, fmt.Errorf("%w: envelope", ErrMissingField)
	}

	info := doc.Tree.Lookup(doc.Root.FullTag())
	r := reader{node: info}

	msg := &Message{
		ID:                     doc.Envelope.MessageID,
		ActionCode:             strings.ToUpper(r.required("MessageDetails", "MessageActionCode")),
		Timestamp:              r.required("ReceiverInfoTimeStamp"),
		RecipientAddress:       r.required("InvoiceRecipientDetails", "InvoiceRecipientAddress"),
		RecipientIntermediator: r.required("InvoiceRecipientDetails", "InvoiceRecipientIntermediatorAddress"),
		RecipientIdentifier:    r.required("InvoiceRecipientDetails", "SellerInvoiceIdentifier"),
		RecipientName:          titleCase(r.required("BuyerPartyDetails", "BuyerOrganisationName")),
	}
	if r.err != nil {
		return nil, r.err
	}

	if v, ok := info.String("ProposedDueDate"); ok {
		msg.ProposedDueDate = &v
	}

	if v, ok := info.String("BuyerServiceCode"); ok {
		code, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidServiceCode, v)
		}
		msg.ServiceCode = code
	}

	return msg, nil
}

// FromDocuments maps every receiver-info document and skips all others
func FromDocuments(docs []*stream.Document) ([]Message, error) {
	var msgs []Message
	for i, doc := range docs {
		if doc.Name() != RootName {
			continue
		}
		msg, err := FromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		msgs = append(msgs, *msg)
	}
	return msgs, nil
}

// titleCase upper-cases every letter that follows a non-letter and
// lower-cases the rest, so "O'NEIL OY" becomes "O'Neil Oy"
func titleCase(s string) string {
	runes := []rune(cases.Lower(language.Finnish).String(s))
	prevLetter := false
	for i, r := range runes {
		if !prevLetter {
			runes[i] = unicode.ToTitle(r)
		}
		prevLetter = unicode.IsLetter(r)
	}
	return string(runes)
}

// reader keeps the first missing field
type reader struct {
	node *document.Node
	err  error
}

func (r *reader) required(path ...string) string {
	v, ok := r.node.String(path...)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("%w: %s", ErrMissingField, strings.Join(path, "/"))
	}
	return v
}
