package pdu

import (
	"bytes"
	"slices"

	"github.com/danmuck/pubd/internal/protocol/rsync"
	"github.com/danmuck/pubd/internal/protocol/xmlio"
)

// QueryElement is one <publish> or <withdraw> inside a publish query.
// Implementations: Publish, Update, Withdraw.
type QueryElement interface {
	Target() rsync.URI
	encode(w *xmlio.Writer)
}

// Publish adds a new object. No object may exist at URI yet.
type Publish struct {
	Tag     string
	URI     rsync.URI
	Content []byte
}

// Update replaces the object at URI, which must currently hash to Hash.
type Update struct {
	Tag     string
	URI     rsync.URI
	Hash    Hash
	Content []byte
}

// Withdraw removes the object at URI, which must currently hash to Hash.
type Withdraw struct {
	Tag  string
	URI  rsync.URI
	Hash Hash
}

func (p Publish) Target() rsync.URI  { return p.URI }
func (u Update) Target() rsync.URI   { return u.URI }
func (w Withdraw) Target() rsync.URI { return w.URI }

func (p Publish) encode(w *xmlio.Writer) {
	w.PutElement("publish", attrs(p.Tag, p.URI, nil), func(w *xmlio.Writer) {
		w.PutText(encodeContent(p.Content))
	})
}

func (u Update) encode(w *xmlio.Writer) {
	w.PutElement("publish", attrs(u.Tag, u.URI, &u.Hash), func(w *xmlio.Writer) {
		w.PutText(encodeContent(u.Content))
	})
}

func (wd Withdraw) encode(w *xmlio.Writer) {
	w.PutElement("withdraw", attrs(wd.Tag, wd.URI, &wd.Hash), nil)
}

// PublishQuery is a multi-element publish/withdraw query.
type PublishQuery struct {
	Elements []QueryElement
}

// DecodePublishQuery reads consecutive <publish> and <withdraw> elements
// until the enclosing end tag.
func DecodePublishQuery(r *xmlio.Reader) (PublishQuery, error) {
	var q PublishQuery
	for {
		name, ok, err := r.NextStartName()
		if err != nil {
			return PublishQuery{}, err
		}
		if !ok {
			return q, nil
		}
		var el QueryElement
		switch name {
		case "publish":
			el, err = decodePublish(r)
		case "withdraw":
			el, err = decodeWithdraw(r)
		default:
			return PublishQuery{}, Error{Element: name, Err: ErrUnexpectedElement}
		}
		if err != nil {
			return PublishQuery{}, err
		}
		q.Elements = append(q.Elements, el)
	}
}

func (q PublishQuery) Encode(w *xmlio.Writer) {
	for _, el := range q.Elements {
		el.encode(w)
	}
}

// Equal compares element by element, including content bytes.
func (q PublishQuery) Equal(o PublishQuery) bool {
	return slices.EqualFunc(q.Elements, o.Elements, elementEqual)
}

func elementEqual(a, b QueryElement) bool {
	switch x := a.(type) {
	case Publish:
		y, ok := b.(Publish)
		return ok && x.Tag == y.Tag && x.URI == y.URI && bytes.Equal(x.Content, y.Content)
	case Update:
		y, ok := b.(Update)
		return ok && x.Tag == y.Tag && x.URI == y.URI && x.Hash == y.Hash && bytes.Equal(x.Content, y.Content)
	case Withdraw:
		y, ok := b.(Withdraw)
		return ok && x == y
	default:
		return false
	}
}

func decodePublish(r *xmlio.Reader) (QueryElement, error) {
	var out QueryElement
	err := r.TakeNamedElement("publish", func(a *xmlio.Attributes, r *xmlio.Reader) error {
		tag, _ := a.TakeOptional("tag")
		uri, err := takeURI(a)
		if err != nil {
			return err
		}
		rawHash, replace := a.TakeOptional("hash")
		if err := a.Exhausted(); err != nil {
			return err
		}
		text, err := r.TakeText()
		if err != nil {
			return err
		}
		content, err := decodeContent(text)
		if err != nil {
			return Error{Element: "publish", Err: err}
		}
		if !replace {
			out = Publish{Tag: tag, URI: uri, Content: content}
			return nil
		}
		hash, err := takeHash("publish", rawHash)
		if err != nil {
			return err
		}
		out = Update{Tag: tag, URI: uri, Hash: hash, Content: content}
		return nil
	})
	return out, err
}

func decodeWithdraw(r *xmlio.Reader) (QueryElement, error) {
	var out Withdraw
	err := r.TakeNamedElement("withdraw", func(a *xmlio.Attributes, r *xmlio.Reader) error {
		tag, _ := a.TakeOptional("tag")
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
		hash, err := takeHash("withdraw", rawHash)
		if err != nil {
			return err
		}
		out = Withdraw{Tag: tag, URI: uri, Hash: hash}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListQuery asks for the publisher's current object set.
type ListQuery struct {
	Tag string
}

func DecodeListQuery(r *xmlio.Reader) (ListQuery, error) {
	var q ListQuery
	err := r.TakeNamedElement("list", func(a *xmlio.Attributes, r *xmlio.Reader) error {
		q.Tag, _ = a.TakeOptional("tag")
		return a.Exhausted()
	})
	return q, err
}

func (q ListQuery) Encode(w *xmlio.Writer) {
	w.PutElement("list", tagAttrs(q.Tag), nil)
}
