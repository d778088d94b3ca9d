// Package protocol owns the RFC 8181 publication message envelope.
//
// Ownership boundary:
// - <msg> decode/encode with version and type validation
// - dispatch of the body to the payload codecs in pdu
// - the unified error taxonomy (Kind, Layer)
//
// Wire shape:
//
//	<msg xmlns="http://www.hactrn.net/uris/rpki/publication-spec/" version="4" type="query|reply">
//	  exactly one payload element tree
//	</msg>
//
// Encoding is compact and deterministic, so Marshal(Parse(b)) == b for any b
// produced by Marshal.
package protocol
