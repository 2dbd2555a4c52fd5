// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package ethscription

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// uriRegexp matches the full data URI, anchored. The payload group is
// captured verbatim: percent-decoding is deliberately not performed, because
// the protocol's uniqueness hash covers the raw URI bytes.
var uriRegexp = regexp.MustCompile(`(?s)^data:([a-z0-9.+-]+/[a-z0-9.+-]+)?((?:;[a-zA-Z0-9-]+=[^;,]*)*)(;base64)?,(.*)$`)

var ErrInvalidDataURI = errors.New("invalid data URI")

// DataURI is the parsed form of a data: URI. Data holds the decoded payload:
// base64-decoded bytes when Base64 is set, otherwise the raw byte content of
// the URI's data section.
type DataURI struct {
	Mimetype    string
	MediaType   string
	MimeSubtype string
	Params      []string
	Base64      bool
	Data        []byte
}

// ValidDataURI reports whether s parses as a data URI with a decodable
// payload.
func ValidDataURI(s string) bool {
	_, err := ParseDataURI(s)
	return err == nil
}

// ParseDataURI parses a data URI. Base64 payloads are decoded strictly:
// any byte outside the base64 alphabet or bad padding fails the parse, so
// decoding is lossless by construction.
func ParseDataURI(s string) (*DataURI, error) {
	m := uriRegexp.FindStringSubmatch(s)
	if m == nil {
		return nil, ErrInvalidDataURI
	}
	mimetype := strings.ToLower(m[1])
	var mediaType, mimeSubtype string
	if mimetype != "" {
		slash := strings.IndexByte(mimetype, '/')
		mediaType = mimetype[:slash]
		mimeSubtype = mimetype[slash+1:]
	}
	var params []string
	if m[2] != "" {
		params = strings.Split(strings.TrimPrefix(m[2], ";"), ";")
	}
	uri := &DataURI{
		Mimetype:    mimetype,
		MediaType:   mediaType,
		MimeSubtype: mimeSubtype,
		Params:      params,
		Base64:      m[3] != "",
	}
	if uri.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(m[4])
		if err != nil {
			return nil, errors.Wrap(ErrInvalidDataURI, err.Error())
		}
		uri.Data = decoded
	} else {
		uri.Data = []byte(m[4])
	}
	return uri, nil
}

// Esip6 reports whether the URI syntactically declares duplicate-content
// tolerance via the rule=esip6 parameter.
func Esip6(s string) bool {
	uri, err := ParseDataURI(s)
	if err != nil {
		return false
	}
	for _, p := range uri.Params {
		if p == "rule=esip6" {
			return true
		}
	}
	return false
}
