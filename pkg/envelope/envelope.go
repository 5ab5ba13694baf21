// Package envelope extracts routing and message metadata from the
// SOAP/ebXML 2.0 transport envelopes that precede bank XML documents.
package envelope

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

// Namespace constants for the bank's SOAP 1.1 / ebXML 2.0 envelopes
const (
	NsSOAPEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	NsEbXML   = "http://www.oasis-open.org/committees/ebxml-msg/schema/msg-header-2_0.xsd"
)

// Route directions
const (
	DirectionFrom = "From"
	DirectionTo   = "To"
)

// ErrMalformedEnvelope is returned when the envelope does not contain exactly
// one message header or lacks a required header field
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Party is one From or To entry of the message header
type Party struct {
	PartyID string `json:"partyId"`
	Role    string `json:"role,omitempty"`
}

// Envelope is the decoded ebXML message header
type Envelope struct {
	// Route maps "From" and "To" to parties in document order
	Route     map[string][]Party `json:"route"`
	Service   *string            `json:"service,omitempty"`
	Action    *string            `json:"action,omitempty"`
	MessageID string             `json:"messageId"`
	// Timestamp is kept exactly as the bank wrote it
	Timestamp string `json:"timestamp"`
}

// From returns the sender parties
func (e *Envelope) From() []Party {
	return e.Route[DirectionFrom]
}

// To returns the receiver parties
func (e *Envelope) To() []Party {
	return e.Route[DirectionTo]
}

// ParseBytes parses a serialized envelope document
func ParseBytes(data []byte) (*Envelope, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedEnvelope)
	}
	return Parse(doc.Root())
}

// Parse decodes the message header found at
// /SOAP-ENV:Envelope/SOAP-ENV:Header/eb:MessageHeader. Elements are matched
// by namespace URI, so any prefix works.
func Parse(el *etree.Element) (*Envelope, error) {
	if !is(el, NsSOAPEnv, "Envelope") {
		return nil, fmt.Errorf("%w: root element is %s", ErrMalformedEnvelope, el.FullTag())
	}

	var headers []*etree.Element
	for _, h := range children(el, NsSOAPEnv, "Header") {
		headers = append(headers, children(h, NsEbXML, "MessageHeader")...)
	}
	if len(headers) != 1 {
		return nil, fmt.Errorf("%w: expected one MessageHeader, found %d", ErrMalformedEnvelope, len(headers))
	}
	header := headers[0]

	env := &Envelope{Route: make(map[string][]Party)}

	for _, c := range header.ChildElements() {
		if c.NamespaceURI() != NsEbXML || (c.Tag != DirectionFrom && c.Tag != DirectionTo) {
			continue
		}
		env.Route[c.Tag] = append(env.Route[c.Tag], parseParty(c))
	}

	if v := last(children(header, NsEbXML, "Service")); v != nil {
		text := v.Text()
		env.Service = &text
	}
	if v := last(children(header, NsEbXML, "Action")); v != nil {
		text := v.Text()
		env.Action = &text
	}

	var messageID, timestamp *etree.Element
	for _, md := range children(header, NsEbXML, "MessageData") {
		if v := last(children(md, NsEbXML, "MessageId")); v != nil {
			messageID = v
		}
		if v := last(children(md, NsEbXML, "Timestamp")); v != nil {
			timestamp = v
		}
	}
	if messageID == nil {
		return nil, fmt.Errorf("%w: MessageData/MessageId is required", ErrMalformedEnvelope)
	}
	if timestamp == nil {
		return nil, fmt.Errorf("%w: MessageData/Timestamp is required", ErrMalformedEnvelope)
	}
	env.MessageID = messageID.Text()
	env.Timestamp = timestamp.Text()

	return env, nil
}

func parseParty(el *etree.Element) Party {
	var p Party
	for _, c := range el.ChildElements() {
		if c.NamespaceURI() != NsEbXML {
			continue
		}
		switch c.Tag {
		case "PartyId":
			p.PartyID = c.Text()
		case "Role":
			p.Role = c.Text()
		}
	}
	return p
}

func is(el *etree.Element, ns, local string) bool {
	return el.Tag == local && el.NamespaceURI() == ns
}

func children(el *etree.Element, ns, local string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if is(c, ns, local) {
			out = append(out, c)
		}
	}
	return out
}

func last(els []*etree.Element) *etree.Element {
	if len(els) == 0 {
		return nil
	}
	return els[len(els)-1]
}
