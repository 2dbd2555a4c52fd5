// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package extractor

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// jsonKind discriminates the parsed JSON node variants. Objects keep their
// key insertion order, which the standard library map decoding would lose;
// the order is the contract's struct ordering.
type jsonKind uint8

const (
	jsonNull jsonKind = iota
	jsonBool
	jsonNumber
	jsonString
	jsonArray
	jsonObject
)

type jsonField struct {
	key string
	val *jsonNode
}

type jsonNode struct {
	kind   jsonKind
	boolV  bool
	numV   json.Number
	strV   string
	arr    []*jsonNode
	fields []jsonField
}

var errTrailingData = errors.New("trailing data after JSON value")

// parseJSON decodes a single JSON document, rejecting trailing content.
// Numbers stay in their literal form so integer vs decimal can be told
// apart later.
func parseJSON(data []byte) (*jsonNode, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := parseNode(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errTrailingData
	}
	return node, nil
}

func parseNode(dec *json.Decoder) (*jsonNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return parseToken(dec, tok)
}

func parseToken(dec *json.Decoder, tok json.Token) (*jsonNode, error) {
	switch t := tok.(type) {
	case nil:
		return &jsonNode{kind: jsonNull}, nil
	case bool:
		return &jsonNode{kind: jsonBool, boolV: t}, nil
	case json.Number:
		return &jsonNode{kind: jsonNumber, numV: t}, nil
	case string:
		return &jsonNode{kind: jsonString, strV: t}, nil
	case json.Delim:
		switch t {
		case '[':
			node := &jsonNode{kind: jsonArray}
			for dec.More() {
				elem, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				node.arr = append(node.arr, elem)
			}
			if _, err := dec.Token(); err != nil { // closing ]
				return nil, err
			}
			return node, nil
		case '{':
			node := &jsonNode{kind: jsonObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, errors.New("non-string object key")
				}
				val, err := parseNode(dec)
				if err != nil {
					return nil, err
				}
				node.fields = append(node.fields, jsonField{key: key, val: val})
			}
			if _, err := dec.Token(); err != nil { // closing }
				return nil, err
			}
			return node, nil
		}
	}
	return nil, errors.Errorf("unexpected JSON token %v", tok)
}

// keys returns the object's key list in insertion order.
func (n *jsonNode) keys() []string {
	out := make([]string, len(n.fields))
	for i, f := range n.fields {
		out[i] = f.key
	}
	return out
}

// field returns the value for key, nil when absent.
func (n *jsonNode) field(key string) *jsonNode {
	for _, f := range n.fields {
		if f.key == key {
			return f.val
		}
	}
	return nil
}

// depth computes the nesting depth of the node; scalars are depth 1.
func (n *jsonNode) depth() int {
	max := 0
	switch n.kind {
	case jsonArray:
		for _, e := range n.arr {
			if d := e.depth(); d > max {
				max = d
			}
		}
	case jsonObject:
		for _, f := range n.fields {
			if d := f.val.depth(); d > max {
				max = d
			}
		}
	default:
		return 1
	}
	return max + 1
}
