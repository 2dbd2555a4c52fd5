// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package ethscription

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"unicode/utf8"
)

// Decompressed payloads are capped so a malicious inscription cannot balloon
// memory during derivation.
const maxGzipDecodedSize = 10 << 20

var gzipMagic = []byte{0x1f, 0x8b}

// DecodeInput turns raw transaction input bytes into the candidate content
// string. When supportGzip is set (ESIP-7 active for the block) and the
// payload carries the gzip magic, it is decompressed; the returned flag
// reports whether decompression was actually applied. A payload that fails
// to decompress is returned verbatim with the flag unset, keeping derivation
// defensive.
func DecodeInput(input []byte, supportGzip bool) (data []byte, gzipped bool) {
	if !supportGzip || !bytes.HasPrefix(input, gzipMagic) {
		return input, false
	}
	r, err := gzip.NewReader(bytes.NewReader(input))
	if err != nil {
		return input, false
	}
	defer r.Close()
	decoded, err := io.ReadAll(io.LimitReader(r, maxGzipDecodedSize+1))
	if err != nil || len(decoded) > maxGzipDecodedSize {
		return input, false
	}
	return decoded, true
}

// ValidUTF8String reports whether b is valid UTF-8 with no NUL bytes, the
// precondition for treating transaction input as a content URI.
func ValidUTF8String(b []byte) bool {
	return utf8.Valid(b) && !bytes.ContainsRune(b, 0)
}

// CleanUTF8 replaces invalid sequences with U+FFFD. Only ever used for log
// output; hashing always operates on the original bytes.
func CleanUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
