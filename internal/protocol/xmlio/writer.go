package xmlio

import (
	"bytes"
	"encoding/xml"
)

// Attr is one attribute in emission order.
type Attr struct {
	Key   string
	Value string
}

// Writer emits compact XML: no prolog, no indentation, self-closing tags for
// elements without content.
type Writer struct {
	buf bytes.Buffer
}

// Encode runs fn against a fresh writer and returns the produced bytes.
func Encode(fn func(*Writer)) []byte {
	var w Writer
	fn(&w)
	return w.buf.Bytes()
}

// PutElement writes <name attrs...>, the content produced by fn, and the end
// tag. When fn is nil or writes nothing the element self-closes.
func (w *Writer) PutElement(name string, attrs []Attr, fn func(*Writer)) {
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	for _, a := range attrs {
		w.buf.WriteByte(' ')
		w.buf.WriteString(a.Key)
		w.buf.WriteString(`="`)
		w.escape(a.Value)
		w.buf.WriteByte('"')
	}

	mark := w.buf.Len()
	w.buf.WriteByte('>')
	if fn != nil {
		fn(w)
	}
	if w.buf.Len() == mark+1 {
		w.buf.Truncate(mark)
		w.buf.WriteString("/>")
		return
	}
	w.buf.WriteString("</")
	w.buf.WriteString(name)
	w.buf.WriteByte('>')
}

// PutText writes escaped character data.
func (w *Writer) PutText(s string) {
	w.escape(s)
}

func (w *Writer) escape(s string) {
	// bytes.Buffer writes never fail
	_ = xml.EscapeText(&w.buf, []byte(s))
}
