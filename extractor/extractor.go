// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

// Package extractor turns ethscription content into protocol calls against
// the L2 system contracts. Three tiers are tried in order of strictness —
// byte-exact token templates, schema-checked collections payloads, then the
// type-inferring generic fallback — and the first tier that accepts the
// content wins. Content no tier accepts yields the empty triple; extraction
// never fails loudly, because a malformed inscription is still a valid
// ethscription.
package extractor

import (
	"regexp"

	"github.com/ethscriptions-protocol/esc-node/ethscription"
)

var protocolNameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,50}$`)

func validProtocolName(s string) bool {
	return protocolNameRegexp.MatchString(s)
}

// Extraction is the (protocol, operation, encoded params) triple. The zero
// value is the sentinel for "no protocol call".
type Extraction struct {
	Protocol  string
	Operation string
	Params    []byte
}

func (e Extraction) Empty() bool {
	return e.Protocol == "" && e.Operation == "" && len(e.Params) == 0
}

// Extract runs the tiers over the content URI's decoded payload.
func Extract(contentURI string) Extraction {
	uri, err := ethscription.ParseDataURI(contentURI)
	if err != nil {
		return Extraction{}
	}
	return ExtractBytes(uri.Data)
}

// ExtractBytes runs the tiers over an already-decoded payload.
func ExtractBytes(content []byte) Extraction {
	for _, tier := range []func([]byte) (string, string, []byte, bool){
		extractToken,
		extractCollections,
		extractGeneric,
	} {
		if protocol, operation, params, ok := tier(content); ok {
			if !validProtocolName(protocol) || !validProtocolName(operation) {
				return Extraction{}
			}
			return Extraction{Protocol: protocol, Operation: operation, Params: params}
		}
	}
	return Extraction{}
}
