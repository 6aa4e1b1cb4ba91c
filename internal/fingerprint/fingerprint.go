// Package fingerprint computes content fingerprints for change detection.
//
// Fingerprints are xxhash64 digests of the exact byte content. They are not
// cryptographic; they only need to distinguish "same text as last build"
// from "something changed".
package fingerprint

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Sum is a content fingerprint. The zero value never matches real content.
type Sum uint64

// Of computes the fingerprint of text.
func Of(text string) Sum {
	d := xxhash.New()
	_, _ = d.WriteString(text) // xxhash.WriteString never returns an error
	return Sum(d.Sum64())
}

// String formats the fingerprint as hex, for logs.
func (s Sum) String() string {
	return strconv.FormatUint(uint64(s), 16)
}
