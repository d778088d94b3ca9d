package xmlio

import "encoding/xml"

// Attributes holds the not-yet-consumed attributes of one start tag.
type Attributes struct {
	attrs []xml.Attr
}

func newAttributes(in []xml.Attr) *Attributes {
	out := make([]xml.Attr, 0, len(in))
	for _, a := range in {
		if isNamespaceDecl(a.Name) {
			continue
		}
		out = append(out, a)
	}
	return &Attributes{attrs: out}
}

// TakeRequired removes and returns the value of key.
func (a *Attributes) TakeRequired(key string) (string, error) {
	v, ok := a.TakeOptional(key)
	if !ok {
		return "", MissingAttributeError{Key: key}
	}
	return v, nil
}

// TakeOptional removes and returns the value of key if present.
func (a *Attributes) TakeOptional(key string) (string, bool) {
	for i, attr := range a.attrs {
		if attr.Name.Space == "" && attr.Name.Local == key {
			a.attrs = append(a.attrs[:i], a.attrs[i+1:]...)
			return attr.Value, true
		}
	}
	return "", false
}

// Exhausted fails with the first attribute nobody took.
func (a *Attributes) Exhausted() error {
	if len(a.attrs) == 0 {
		return nil
	}
	name := a.attrs[0].Name
	key := name.Local
	if name.Space != "" {
		key = name.Space + ":" + name.Local
	}
	return UnexpectedAttributeError{Key: key}
}

func isNamespaceDecl(n xml.Name) bool {
	return n.Space == "xmlns" || (n.Space == "" && n.Local == "xmlns")
}
