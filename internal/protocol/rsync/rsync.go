// Package rsync parses and compares rsync URIs as used for published objects.
package rsync

import (
	"fmt"
	"net/url"
	"strings"
)

const scheme = "rsync://"

// Error reports a URI that failed validation.
type Error struct {
	URI    string
	Reason string
}

func (e Error) Error() string {
	return fmt.Sprintf("rsync: invalid uri %q: %s", e.URI, e.Reason)
}

// URI is a validated rsync URI. String returns the original text unchanged.
type URI struct {
	raw    string
	host   string
	module string
	path   string
}

// Parse validates s as rsync://host/module[/path].
func Parse(s string) (URI, error) {
	if len(s) < len(scheme) || !strings.EqualFold(s[:len(scheme)], scheme) {
		return URI{}, Error{URI: s, Reason: "scheme must be rsync"}
	}
	for _, r := range s {
		if r <= ' ' || r == 0x7f {
			return URI{}, Error{URI: s, Reason: "contains whitespace or control character"}
		}
	}
	if strings.ContainsAny(s, "?#") {
		return URI{}, Error{URI: s, Reason: "query and fragment not allowed"}
	}

	rest := s[len(scheme):]
	host, tail, _ := strings.Cut(rest, "/")
	if host == "" {
		return URI{}, Error{URI: s, Reason: "missing host"}
	}
	if u, err := url.Parse("rsync://" + host); err != nil || u.Host != host || u.User != nil {
		return URI{}, Error{URI: s, Reason: "invalid host"}
	}
	module, path, _ := strings.Cut(tail, "/")
	if module == "" {
		return URI{}, Error{URI: s, Reason: "missing module"}
	}
	if path != "" {
		segments := strings.Split(path, "/")
		for i, seg := range segments {
			switch {
			case seg == "." || seg == "..":
				return URI{}, Error{URI: s, Reason: "relative path segment"}
			case seg == "" && i != len(segments)-1:
				return URI{}, Error{URI: s, Reason: "empty path segment"}
			}
		}
	}
	return URI{raw: s, host: host, module: module, path: path}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) URI {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (u URI) String() string { return u.raw }
func (u URI) Host() string   { return u.host }
func (u URI) Module() string { return u.module }
func (u URI) Path() string   { return u.path }

// Key is the comparison form of u: scheme and host lowercased, module and
// path untouched. Two URIs naming the same object have the same Key.
func (u URI) Key() string {
	if u.IsZero() {
		return ""
	}
	return scheme + strings.ToLower(u.host) + u.raw[len(scheme)+len(u.host):]
}

// IsZero reports whether u is the zero value.
func (u URI) IsZero() bool {
	return u.raw == ""
}

// IsDirectory reports whether u names a directory (ends in a slash).
func (u URI) IsDirectory() bool {
	return strings.HasSuffix(u.raw, "/")
}

// Contains reports whether other lies at or below the directory u.
// Host comparison is case-insensitive; module and path are exact.
func (u URI) Contains(other URI) bool {
	if !u.IsDirectory() || len(other.raw) < len(u.raw) {
		return false
	}
	if !strings.EqualFold(u.host, other.host) || u.module != other.module {
		return false
	}
	return strings.HasPrefix(other.path, u.path)
}
