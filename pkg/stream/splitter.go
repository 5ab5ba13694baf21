package stream

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/oikeuttaelaimille/pankkilinkki/pkg/document"
	"github.com/oikeuttaelaimille/pankkilinkki/pkg/envelope"
)

// Root element local names with special handling
const (
	RootEnvelope = "Envelope"
	RootFinvoice = "Finvoice"
)

// ErrMalformedStream is returned when the input is not a sequence of
// well-formed XML documents
var ErrMalformedStream = errors.New("malformed XML stream")

// Document is one payload document of the stream. The envelope preceding
// a document is carried in the Envelope field and never added to Tree.
type Document struct {
	// Root is the document element as read from the stream
	Root *etree.Element
	// Tree is the converted document. It is nil for Finvoice documents,
	// which are consumed through Root.
	Tree *document.Node
	// Envelope is the transport envelope preceding the document, if any
	Envelope *envelope.Envelope
}

// Name returns the local name of the document element
func (d *Document) Name() string {
	return d.Root.Tag
}

// IsFinvoice reports whether the document is a Finvoice invoice
func (d *Document) IsFinvoice() bool {
	return d.Root.Tag == RootFinvoice
}

// Option configures a Splitter
type Option func(*Splitter)

// WithLogger sets the logger used for stream diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(s *Splitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Splitter reads documents from a stream. It is not safe for concurrent use.
type Splitter struct {
	dec    *xml.Decoder
	logger *slog.Logger

	stack   []*etree.Element
	pending *envelope.Envelope
	index   int
	err     error

	// charset is the IANA name of the declared encoding being transcoded,
	// empty while the input is read as UTF-8
	charset string
}

// New creates a Splitter reading from r
func New(r io.Reader, opts ...Option) *Splitter {
	s := &Splitter{
		dec:    xml.NewDecoder(r),
		logger: slog.Default(),
	}
	s.dec.CharsetReader = s.charsetReader

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Parse returns the documents found in data as a lazy sequence. Stopping
// the iteration early needs no cleanup.
func Parse(data []byte, opts ...Option) iter.Seq2[*Document, error] {
	return func(yield func(*Document, error) bool) {
		for doc, err := range New(bytes.NewReader(data), opts...).All() {
			if !yield(doc, err) {
				return
			}
		}
	}
}

// ReadAll reads every document from r
func ReadAll(r io.Reader, opts ...Option) ([]*Document, error) {
	var docs []*Document
	for doc, err := range New(r, opts...).All() {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// All returns the remaining documents as a single-use sequence. An error
// is yielded at most once and ends the sequence.
func (s *Splitter) All() iter.Seq2[*Document, error] {
	return func(yield func(*Document, error) bool) {
		for {
			doc, err := s.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// Next returns the next document, or io.EOF when the stream is exhausted.
// Any other error is terminal and returned by every later call.
func (s *Splitter) Next() (*Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	doc, err := s.next()
	if err != nil {
		s.err = err
		s.stack = nil
		return nil, err
	}
	return doc, nil
}

func (s *Splitter) next() (*Document, error) {
	for {
		root, err := s.readRoot()
		if err != nil {
			return nil, err
		}
		s.index++

		switch root.Tag {
		case RootEnvelope:
			env, err := envelope.Parse(root)
			if err != nil {
				return nil, fmt.Errorf("document %d: %w", s.index, err)
			}
			if s.pending != nil {
				s.logger.Warn("envelope without document",
					slog.String("message_id", s.pending.MessageID))
			}
			s.pending = env

		case RootFinvoice:
			return s.emit(&Document{Root: root}), nil

		default:
			return s.emit(&Document{Root: root, Tree: document.Convert(root)}), nil
		}
	}
}

func (s *Splitter) emit(doc *Document) *Document {
	doc.Envelope = s.pending
	s.pending = nil

	s.logger.Debug("document decoded",
		slog.Int("index", s.index),
		slog.String("root", doc.Root.FullTag()),
		slog.Bool("enveloped", doc.Envelope != nil))
	return doc
}

// readRoot consumes tokens until a root element is closed
func (s *Splitter) readRoot() (*etree.Element, error) {
	for {
		tok, err := s.dec.RawToken()
		if err == io.EOF {
			if len(s.stack) > 0 {
				return nil, fmt.Errorf("%w: unexpected end of stream inside <%s>",
					ErrMalformedStream, s.stack[len(s.stack)-1].FullTag())
			}
			if s.pending != nil {
				s.logger.Warn("stream ended after envelope",
					slog.String("message_id", s.pending.MessageID))
				s.pending = nil
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStream, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			s.start(t)

		case xml.EndElement:
			if len(s.stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected </%s>", ErrMalformedStream, qualified(t.Name))
			}
			top := s.stack[len(s.stack)-1]
			if top.FullTag() != qualified(t.Name) {
				return nil, fmt.Errorf("%w: element <%s> closed by </%s>",
					ErrMalformedStream, top.FullTag(), qualified(t.Name))
			}
			s.stack = s.stack[:len(s.stack)-1]
			if len(s.stack) == 0 {
				return top, nil
			}

		case xml.CharData:
			if len(s.stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fmt.Errorf("%w: text outside of a document", ErrMalformedStream)
				}
				continue
			}
			s.stack[len(s.stack)-1].CreateText(string(t))

		case xml.Comment:
			if len(s.stack) > 0 {
				s.stack[len(s.stack)-1].CreateComment(string(t))
			}

		case xml.ProcInst:
			if t.Target == "xml" {
				if err := s.checkDeclaration(t.Inst); err != nil {
					return nil, err
				}
			}

		case xml.Directive:
			// doctypes carry nothing for the tree
		}
	}
}

func (s *Splitter) start(t xml.StartElement) {
	var el *etree.Element
	if len(s.stack) == 0 {
		el = etree.NewElement(qualified(t.Name))
	} else {
		el = s.stack[len(s.stack)-1].CreateElement(qualified(t.Name))
	}
	for _, a := range t.Attr {
		el.CreateAttr(qualified(a.Name), a.Value)
	}
	s.stack = append(s.stack, el)
}

// charsetReader transcodes the remainder of the stream. The decoder cannot
// switch back once bytes are transcoded, so a later declaration naming a
// different encoding is rejected.
func (s *Splitter) charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	name, err := ianaindex.IANA.Name(enc)
	if err != nil {
		name = strings.ToUpper(strings.TrimSpace(label))
	}

	if s.charset != "" {
		if name != s.charset {
			return nil, fmt.Errorf("encoding %s declared after %s", name, s.charset)
		}
		return input, nil
	}
	s.charset = name
	s.logger.Debug("transcoding stream", slog.String("encoding", name))
	return enc.NewDecoder().Reader(input), nil
}

// checkDeclaration rejects a UTF-8 declaration once the stream is being
// transcoded. Other encodings are checked by charsetReader.
func (s *Splitter) checkDeclaration(inst []byte) error {
	label := declaredEncoding(inst)
	if s.charset == "" || !isUTF8(label) {
		return nil
	}
	return fmt.Errorf("%w: document %d declares UTF-8 after %s",
		ErrMalformedStream, s.index+1, s.charset)
}

// declaredEncoding returns the encoding pseudo-attribute of an XML
// declaration, or "" when there is none
func declaredEncoding(inst []byte) string {
	rest := string(inst)
	i := strings.Index(rest, "encoding")
	if i < 0 {
		return ""
	}
	rest = strings.TrimLeft(rest[i+len("encoding"):], " \t\r\n")
	if !strings.HasPrefix(rest, "=") {
		return ""
	}
	rest = strings.TrimLeft(rest[1:], " \t\r\n")
	if rest == "" || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	quote := rest[0]
	rest = rest[1:]
	end := strings.IndexByte(rest, quote)
	if end < 0 {
		return ""
	}
	return rest[:end]
}

func isUTF8(label string) bool {
	label = strings.TrimSpace(label)
	return strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8")
}

// qualified returns prefix:local as written in the source
func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
