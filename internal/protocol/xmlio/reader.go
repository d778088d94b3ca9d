// Package xmlio provides the pull-style XML reader and the ordered XML writer
// the publication codecs are written against.
//
// Ownership boundary:
// - token traversal and insignificant-token skipping
// - attribute extraction with exhaustiveness checks
// - element/text emission with fixed attribute order
//
// Element and attribute matching uses local names only; namespace
// declarations are not reported as attributes.
package xmlio

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
)

// Reader walks one XML document element by element.
type Reader struct {
	dec     *xml.Decoder
	pending xml.Token
}

func NewReader(r io.Reader) *Reader {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	return &Reader{dec: dec}
}

// Decode runs fn over the document read from r. Only whitespace, comments and
// processing instructions may follow whatever fn consumed.
func Decode(r io.Reader, fn func(*Reader) error) error {
	reader := NewReader(r)
	if err := fn(reader); err != nil {
		return err
	}
	tok, err := reader.next()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	return unexpectedToken(tok, "end of document")
}

// NextStartName peeks at the next significant token. It reports the local
// name of a start tag, or false when the next token is anything else (an end
// tag, character data, or the end of the document). The token stays queued.
func (r *Reader) NextStartName() (string, bool, error) {
	tok, err := r.next()
	if errors.Is(err, io.EOF) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	r.pending = tok
	if start, ok := tok.(xml.StartElement); ok {
		return start.Name.Local, true, nil
	}
	return "", false, nil
}

// TakeNamedElement consumes <name ...>, hands its attributes and the reader
// to fn, then requires the matching </name>. fn must consume all children.
func (r *Reader) TakeNamedElement(name string, fn func(*Attributes, *Reader) error) error {
	tok, err := r.next()
	if errors.Is(err, io.EOF) {
		return unexpectedToken(nil, "<"+name+">")
	}
	if err != nil {
		return err
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Local != name {
		return unexpectedToken(tok, "<"+name+">")
	}

	if err := fn(newAttributes(start.Attr), r); err != nil {
		return err
	}

	tok, err = r.next()
	if errors.Is(err, io.EOF) {
		return unexpectedToken(nil, "</"+name+">")
	}
	if err != nil {
		return err
	}
	end, ok := tok.(xml.EndElement)
	if !ok || end.Name.Local != name {
		return unexpectedToken(tok, "</"+name+">")
	}
	return nil
}

// TakeText returns the character data up to the enclosing end tag. The end
// tag itself is left for the caller. Child elements are rejected.
func (r *Reader) TakeText() (string, error) {
	var buf bytes.Buffer
	for {
		tok, err := r.next()
		if errors.Is(err, io.EOF) {
			return "", unexpectedToken(nil, "end tag")
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			r.pending = t
			return buf.String(), nil
		default:
			return "", unexpectedToken(tok, "character data")
		}
	}
}

// next returns the queued token or reads forward past insignificant tokens.
func (r *Reader) next() (xml.Token, error) {
	if r.pending != nil {
		tok := r.pending
		r.pending = nil
		return tok, nil
	}
	for {
		tok, err := r.dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, ReadError{Reason: "invalid document", Err: err}
		}
		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) == 0 {
				continue
			}
		case xml.Comment, xml.ProcInst, xml.Directive:
			continue
		}
		return xml.CopyToken(tok), nil
	}
}
