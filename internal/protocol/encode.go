package protocol

import (
	"io"

	"github.com/danmuck/pubd/internal/protocol/xmlio"
)

// Marshal renders msg in the wire format. Attribute order is fixed:
// xmlns, version, type. A nil msg renders as nil.
func Marshal(msg Message) []byte {
	if msg == nil {
		return nil
	}
	return xmlio.Encode(func(w *xmlio.Writer) {
		w.PutElement("msg", envelopeAttrs(msg.Class()), msg.encodeBody)
	})
}

// Encode writes msg to w using the wire format. Only w's own errors surface.
func Encode(w io.Writer, msg Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	_, err := w.Write(Marshal(msg))
	return err
}

func envelopeAttrs(class Class) []xmlio.Attr {
	return []xmlio.Attr{
		{Key: "xmlns", Value: Namespace},
		{Key: "version", Value: Version},
		{Key: "type", Value: string(class)},
	}
}
