package pdu

import (
	"slices"

	"github.com/danmuck/pubd/internal/protocol/rsync"
	"github.com/danmuck/pubd/internal/protocol/xmlio"
)

// SuccessReply acknowledges a publish query.
type SuccessReply struct {
	Tag string
}

func DecodeSuccessReply(r *xmlio.Reader) (SuccessReply, error) {
	var s SuccessReply
	err := r.TakeNamedElement("success", func(a *xmlio.Attributes, r *xmlio.Reader) error {
		s.Tag, _ = a.TakeOptional("tag")
		return a.Exhausted()
	})
	return s, err
}

func (s SuccessReply) Encode(w *xmlio.Writer) {
	w.PutElement("success", tagAttrs(s.Tag), nil)
}

// ListElement is one published object in a list reply.
type ListElement struct {
	Tag  string
	URI  rsync.URI
	Hash Hash
}

// ListReply carries zero or more <list uri hash/> elements.
type ListReply struct {
	Elements []ListElement
}

func DecodeListReply(r *xmlio.Reader) (ListReply, error) {
	var l ListReply
	for {
		name, ok, err := r.NextStartName()
		if err != nil {
			return ListReply{}, err
		}
		if !ok {
			return l, nil
		}
		if name != "list" {
			return ListReply{}, Error{Element: name, Err: ErrUnexpectedElement}
		}
		el, err := decodeListElement(r)
		if err != nil {
			return ListReply{}, err
		}
		l.Elements = append(l.Elements, el)
	}
}

func decodeListElement(r *xmlio.Reader) (ListElement, error) {
	var el ListElement
	err := r.TakeNamedElement("list", func(a *xmlio.Attributes, r *xmlio.Reader) error {
		el.Tag, _ = a.TakeOptional("tag")
		uri, err := takeURI(a)
		if err != nil {
			return err
		}
		rawHash, err := a.TakeRequired("hash")
		if err != nil {
			return err
		}
		if err := a.Exhausted(); err != nil {
			return err
		}
		hash, err := takeHash("list", rawHash)
		if err != nil {
			return err
		}
		el.URI = uri
		el.Hash = hash
		return nil
	})
	return el, err
}

func (l ListReply) Encode(w *xmlio.Writer) {
	for _, el := range l.Elements {
		w.PutElement("list", attrs(el.Tag, el.URI, &el.Hash), nil)
	}
}

func (l ListReply) Equal(o ListReply) bool {
	return slices.Equal(l.Elements, o.Elements)
}
