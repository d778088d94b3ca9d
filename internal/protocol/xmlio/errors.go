package xmlio

import (
	"encoding/xml"
	"fmt"
)

// ReadError reports a structural problem in the XML stream: a syntax error
// from the tokenizer, or a token that does not fit the expected shape.
type ReadError struct {
	Reason string
	Err    error
}

func (e ReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xmlio: %s: %v", e.Reason, e.Err)
	}
	return "xmlio: " + e.Reason
}

func (e ReadError) Unwrap() error {
	return e.Err
}

// MissingAttributeError indicates a required attribute was not present.
type MissingAttributeError struct {
	Key string
}

func (e MissingAttributeError) Error() string {
	return fmt.Sprintf("xmlio: missing attribute %q", e.Key)
}

// UnexpectedAttributeError indicates an attribute was left unconsumed.
type UnexpectedAttributeError struct {
	Key string
}

func (e UnexpectedAttributeError) Error() string {
	return fmt.Sprintf("xmlio: unexpected attribute %q", e.Key)
}

func unexpectedToken(tok xml.Token, want string) error {
	return ReadError{Reason: fmt.Sprintf("expected %s, found %s", want, describe(tok))}
}

func describe(tok xml.Token) string {
	switch t := tok.(type) {
	case nil:
		return "end of document"
	case xml.StartElement:
		return "<" + t.Name.Local + ">"
	case xml.EndElement:
		return "</" + t.Name.Local + ">"
	case xml.CharData:
		return "character data"
	default:
		return fmt.Sprintf("%T", tok)
	}
}
