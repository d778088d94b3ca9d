package protocol

import (
	"bytes"
	"io"

	"github.com/danmuck/pubd/internal/protocol/xmlio"
)

// Decode reads a single message from r.
func Decode(r io.Reader) (Message, error) {
	var msg Message
	err := xmlio.Decode(r, func(r *xmlio.Reader) error {
		return r.TakeNamedElement("msg", func(a *xmlio.Attributes, r *xmlio.Reader) error {
			class, err := takeEnvelope(a)
			if err != nil {
				return err
			}
			msg, err = decodeBody(class, r)
			return err
		})
	})
	if err != nil {
		return nil, classify(LayerEnvelope, err)
	}
	return msg, nil
}

// Parse decodes a message held in memory.
func Parse(data []byte) (Message, error) {
	return Decode(bytes.NewReader(data))
}

// takeEnvelope validates the <msg> attributes. version is checked before type
// is looked at, and no attribute other than the two may remain.
func takeEnvelope(a *xmlio.Attributes) (Class, error) {
	version, err := a.TakeRequired("version")
	if err != nil {
		return "", classify(LayerEnvelope, err)
	}
	if version != Version {
		return "", &Error{Kind: KindInvalidVersion, Layer: LayerEnvelope, Name: version}
	}
	msgType, err := a.TakeRequired("type")
	if err != nil {
		return "", classify(LayerEnvelope, err)
	}
	if err := a.Exhausted(); err != nil {
		return "", classify(LayerEnvelope, err)
	}

	class := Class(msgType)
	if _, ok := routes[class]; !ok {
		return "", &Error{Kind: KindUnknownMessageType, Layer: LayerEnvelope, Name: msgType}
	}
	return class, nil
}
