package protocol

import (
	"slices"

	"github.com/danmuck/pubd/internal/protocol/pdu"
	"github.com/danmuck/pubd/internal/protocol/xmlio"
)

type bodyDecoder func(r *xmlio.Reader) (Message, error)

// route is the body table for one message class. A class with an empty
// decoder never fails with ExpectedStart, so replies carry no expected set.
type route struct {
	// expected names the accepted tags in ExpectedStart errors.
	expected string
	// tags maps the first child tag to the payload decoder.
	tags map[string]bodyDecoder
	// empty decodes a body with no child element; nil means one is required.
	empty bodyDecoder
	// unsupported tags are valid RFC 8181 elements this codec rejects.
	unsupported []string
}

var routes = map[Class]route{
	ClassQuery: {
		expected: "list, publish, or withdraw",
		tags: map[string]bodyDecoder{
			"list":     decodeListQuery,
			"publish":  decodePublishQuery,
			"withdraw": decodePublishQuery,
		},
	},
	ClassReply: {
		tags: map[string]bodyDecoder{
			"success": decodeSuccessReply,
			"list":    decodeListReply,
		},
		empty:       decodeListReply,
		unsupported: []string{"report_error"},
	},
}

func decodeBody(class Class, r *xmlio.Reader) (Message, error) {
	rt := routes[class]
	name, ok, err := r.NextStartName()
	if err != nil {
		return nil, classify(LayerEnvelope, err)
	}
	if !ok {
		if rt.empty != nil {
			msg, err := rt.empty(r)
			return msg, classify(LayerPayload, err)
		}
		return nil, &Error{Kind: KindExpectedStart, Layer: LayerEnvelope, Name: rt.expected}
	}

	decode, found := rt.tags[name]
	if !found {
		if slices.Contains(rt.unsupported, name) {
			return nil, &Error{Kind: KindUnsupported, Layer: LayerEnvelope, Name: name}
		}
		return nil, &Error{Kind: KindUnexpectedStart, Layer: LayerEnvelope, Name: name}
	}
	msg, err := decode(r)
	if err != nil {
		return nil, classify(LayerPayload, err)
	}
	return msg, nil
}

func decodePublishQuery(r *xmlio.Reader) (Message, error) {
	body, err := pdu.DecodePublishQuery(r)
	if err != nil {
		return nil, err
	}
	return PublishQuery{Body: body}, nil
}

func decodeListQuery(r *xmlio.Reader) (Message, error) {
	body, err := pdu.DecodeListQuery(r)
	if err != nil {
		return nil, err
	}
	return ListQuery{Body: body}, nil
}

func decodeSuccessReply(r *xmlio.Reader) (Message, error) {
	body, err := pdu.DecodeSuccessReply(r)
	if err != nil {
		return nil, err
	}
	return SuccessReply{Body: body}, nil
}

func decodeListReply(r *xmlio.Reader) (Message, error) {
	body, err := pdu.DecodeListReply(r)
	if err != nil {
		return nil, err
	}
	return ListReply{Body: body}, nil
}
