// Package pdu implements the RFC 8181 publication protocol bodies: the
// publish/withdraw and list queries and the success and list replies.
//
// Each body decodes from an xmlio.Reader positioned at its first element and
// leaves the reader past its last element; each encodes its own element(s)
// into an xmlio.Writer. The <msg> envelope around them belongs to package
// protocol.
package pdu

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/pubd/internal/protocol/rsync"
	"github.com/danmuck/pubd/internal/protocol/xmlio"
)

var (
	ErrInvalidHash       = errors.New("pdu: invalid hash")
	ErrInvalidContent    = errors.New("pdu: invalid base64 content")
	ErrUnexpectedElement = errors.New("pdu: unexpected element")
)

// Error ties a payload failure to the element it was found in.
type Error struct {
	Element string
	Err     error
}

func (e Error) Error() string {
	return fmt.Sprintf("%v in <%s>", e.Err, e.Element)
}

func (e Error) Unwrap() error {
	return e.Err
}

// Hash is the SHA-256 digest of a published object.
type Hash [sha256.Size]byte

func HashOf(content []byte) Hash {
	return sha256.Sum256(content)
}

// ParseHash reads 64 hex digits.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != hex.EncodedLen(len(h)) {
		return Hash{}, fmt.Errorf("%w: want %d hex digits, got %d", ErrInvalidHash, hex.EncodedLen(len(h)), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Matches reports whether content hashes to h.
func (h Hash) Matches(content []byte) bool {
	return HashOf(content) == h
}

func decodeContent(text string) ([]byte, error) {
	content, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if len(content) == 0 {
		return nil, nil
	}
	return content, nil
}

func encodeContent(content []byte) string {
	return base64.StdEncoding.EncodeToString(content)
}

func takeURI(a *xmlio.Attributes) (rsync.URI, error) {
	raw, err := a.TakeRequired("uri")
	if err != nil {
		return rsync.URI{}, err
	}
	return rsync.Parse(raw)
}

func takeHash(element string, raw string) (Hash, error) {
	h, err := ParseHash(raw)
	if err != nil {
		return Hash{}, Error{Element: element, Err: err}
	}
	return h, nil
}

// attrs builds the fixed attribute order: tag (when set), uri, hash (when set).
func attrs(tag string, uri rsync.URI, hash *Hash) []xmlio.Attr {
	out := make([]xmlio.Attr, 0, 3)
	if tag != "" {
		out = append(out, xmlio.Attr{Key: "tag", Value: tag})
	}
	out = append(out, xmlio.Attr{Key: "uri", Value: uri.String()})
	if hash != nil {
		out = append(out, xmlio.Attr{Key: "hash", Value: hash.String()})
	}
	return out
}

func tagAttrs(tag string) []xmlio.Attr {
	if tag == "" {
		return nil
	}
	return []xmlio.Attr{{Key: "tag", Value: tag}}
}
