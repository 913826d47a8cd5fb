package blobstore

import (
	"errors"
	"strings"
)

// refPrefix is the logical prefix every content reference carries on the
// wire (manifest JSON). storePrefix is where the blob store actually keeps
// bytes through the Adapter. The split lets the manifest stay a thin
// pointer while the store owns its own namespace end to end.
const (
	refPrefix   = "blobs/sha256-"
	storePrefix = ".store/"
	hexLen      = 64
)

// ErrMalformedRef is returned when a string doesn't look like
// "blobs/sha256-<64 lowercase hex>".
var ErrMalformedRef = errors.New("blobstore: malformed content reference")

// Ref is an opaque reference to a blob's content, equal iff the underlying
// bytes are equal. Its wire form is "blobs/sha256-<hex>"; ParseRef also
// accepts a bare legacy "blobRef" value of the same shape.
type Ref struct {
	hexDigest string
}

// RefFromDigest builds a Ref from a raw lowercase hex SHA-256 digest.
func RefFromDigest(hexDigest string) Ref {
	return Ref{hexDigest: hexDigest}
}

// ParseRef parses the wire form of a content reference.
func ParseRef(s string) (Ref, error) {
	if !strings.HasPrefix(s, refPrefix) {
		return Ref{}, ErrMalformedRef
	}
	hex := strings.TrimPrefix(s, refPrefix)
	if len(hex) != hexLen {
		return Ref{}, ErrMalformedRef
	}
	for _, c := range hex {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return Ref{}, ErrMalformedRef
		}
	}
	return Ref{hexDigest: hex}, nil
}

// String renders the canonical wire form.
func (r Ref) String() string {
	return refPrefix + r.hexDigest
}

// IsZero reports whether r is the zero value (not parsed from anything).
func (r Ref) IsZero() bool {
	return r.hexDigest == ""
}

// HexDigest returns the raw lowercase hex SHA-256 digest.
func (r Ref) HexDigest() string {
	return r.hexDigest
}

// storageKey is the full adapter key backing this ref, under the store's
// reserved ".store/" prefix.
func (r Ref) storageKey() string {
	return storePrefix + r.String()
}
