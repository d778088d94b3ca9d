package protocol

import (
	"github.com/danmuck/pubd/internal/protocol/pdu"
	"github.com/danmuck/pubd/internal/protocol/xmlio"
)

const (
	Version     = "4"
	Namespace   = "http://www.hactrn.net/uris/rpki/publication-spec/"
	ContentType = "application/rpki-publication"
)

// Class is the value of the envelope's type attribute.
type Class string

const (
	ClassQuery Class = "query"
	ClassReply Class = "reply"
)

// Message is one publication protocol message. The implementations are the
// values PublishQuery, ListQuery, SuccessReply and ListReply; the set is
// closed. Pointers to them also satisfy the interface but
// are not variants: Equal and type switches elsewhere only match values.
type Message interface {
	// Class is derived from the variant and never stored.
	Class() Class
	// Variant names the payload kind for logs and metrics.
	Variant() string
	encodeBody(w *xmlio.Writer)
}

type PublishQuery struct {
	Body pdu.PublishQuery
}

type ListQuery struct {
	Body pdu.ListQuery
}

type SuccessReply struct {
	Body pdu.SuccessReply
}

type ListReply struct {
	Body pdu.ListReply
}

var (
	_ Message = PublishQuery{}
	_ Message = ListQuery{}
	_ Message = SuccessReply{}
	_ Message = ListReply{}
)

func (PublishQuery) Class() Class { return ClassQuery }
func (ListQuery) Class() Class    { return ClassQuery }
func (SuccessReply) Class() Class { return ClassReply }
func (ListReply) Class() Class    { return ClassReply }

func (PublishQuery) Variant() string { return "publish_query" }
func (ListQuery) Variant() string    { return "list_query" }
func (SuccessReply) Variant() string { return "success_reply" }
func (ListReply) Variant() string    { return "list_reply" }

func (m PublishQuery) encodeBody(w *xmlio.Writer) { m.Body.Encode(w) }
func (m ListQuery) encodeBody(w *xmlio.Writer)    { m.Body.Encode(w) }
func (m SuccessReply) encodeBody(w *xmlio.Writer) { m.Body.Encode(w) }
func (m ListReply) encodeBody(w *xmlio.Writer)    { m.Body.Encode(w) }

// Equal reports whether a and b are the same variant with equal payloads.
func Equal(a, b Message) bool {
	switch x := a.(type) {
	case PublishQuery:
		y, ok := b.(PublishQuery)
		return ok && x.Body.Equal(y.Body)
	case ListQuery:
		y, ok := b.(ListQuery)
		return ok && x == y
	case SuccessReply:
		y, ok := b.(SuccessReply)
		return ok && x == y
	case ListReply:
		y, ok := b.(ListReply)
		return ok && x.Body.Equal(y.Body)
	default:
		return false
	}
}
