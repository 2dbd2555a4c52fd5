// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package extractor

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Limits of the type-inferring fallback tier.
const (
	maxPayloadSize = 10 * 1024
	maxJSONDepth   = 5
	maxStringLen   = 1000
	maxArrayLen    = 100
	maxObjectKeys  = 20
)

var hexBodyRegexp = regexp.MustCompile(`^[0-9a-f]*$`)

// inferValue maps a JSON node to a typed ABI value. The rules are applied
// in a fixed order so inference is deterministic; anything ambiguous is
// rejected rather than guessed.
func inferValue(n *jsonNode, depth int) (*Value, bool) {
	if depth > maxJSONDepth {
		return nil, false
	}
	switch n.kind {
	case jsonNull:
		return nil, false
	case jsonBool:
		return BoolValue(n.boolV), true
	case jsonNumber:
		lit := n.numV.String()
		if strings.ContainsAny(lit, ".eE") || strings.HasPrefix(lit, "-") {
			return nil, false
		}
		v, ok := parseUint256Literal(lit)
		if !ok {
			return nil, false
		}
		return UintValue(v), true
	case jsonString:
		return inferString(n.strV)
	case jsonArray:
		return inferArray(n, depth)
	case jsonObject:
		return inferObject(n, depth)
	}
	return nil, false
}

func inferString(s string) (*Value, bool) {
	if len(s) > maxStringLen {
		return nil, false
	}
	// Canonical decimal strings become uint256; leading zeros stay strings.
	if canonicalUintRegexp.MatchString(s) {
		if v, ok := parseUint256Literal(s); ok {
			return UintValue(v), true
		}
		return StringValue(s), true
	}
	if strings.HasPrefix(s, "0x") {
		body := strings.ToLower(s[2:])
		if len(body)%2 == 0 && len(body) > 0 && len(body) <= 64 && hexBodyRegexp.MatchString(body) {
			raw := common.FromHex(body)
			switch len(raw) {
			case 20:
				return AddressValue(common.BytesToAddress(raw)), true
			case 32:
				return &Value{Typ: TypeBytes32, Bytes: raw}, true
			default:
				return FixedBytesValue(raw), true
			}
		}
	}
	return StringValue(s), true
}

func inferArray(n *jsonNode, depth int) (*Value, bool) {
	// A two-element ["typeName", value] array is an explicit hint when the
	// first element parses as an ABI type. It is the only way to express an
	// empty typed array.
	if len(n.arr) == 2 && n.arr[0].kind == jsonString {
		if typ, err := ParseType(n.arr[0].strV); err == nil {
			return coerceValue(typ, n.arr[1], depth)
		}
	}
	if len(n.arr) == 0 || len(n.arr) > maxArrayLen {
		return nil, false
	}
	shape := n.arr[0].kind
	elems := make([]*Value, 0, len(n.arr))
	for _, e := range n.arr {
		if e.kind != shape {
			return nil, false
		}
		v, ok := inferValue(e, depth+1)
		if !ok {
			return nil, false
		}
		elems = append(elems, v)
	}
	// Objects additionally need identical key lists: positional typing alone
	// would silently merge differently-shaped structs.
	if shape == jsonObject {
		first := n.arr[0].keys()
		for _, e := range n.arr[1:] {
			if !equalKeys(first, e.keys()) {
				return nil, false
			}
		}
	}
	uniform := true
	for _, v := range elems[1:] {
		if !v.Typ.Equal(elems[0].Typ) {
			uniform = false
			break
		}
	}
	if uniform {
		return SliceValue(elems[0].Typ, elems...), true
	}
	// Arrays of arrays with per-position uniform types become a tuple array.
	if shape != jsonArray {
		return nil, false
	}
	tuples := make([]*Value, 0, len(elems))
	for _, v := range elems {
		tuples = append(tuples, TupleValue(v.Elems...))
	}
	for _, v := range tuples[1:] {
		if !v.Typ.Equal(tuples[0].Typ) {
			return nil, false
		}
	}
	return SliceValue(tuples[0].Typ, tuples...), true
}

func inferObject(n *jsonNode, depth int) (*Value, bool) {
	if len(n.fields) == 0 || len(n.fields) > maxObjectKeys {
		return nil, false
	}
	values := make([]*Value, 0, len(n.fields))
	for _, f := range n.fields {
		v, ok := inferValue(f.val, depth+1)
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return TupleValue(values...), true
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// coerceValue checks a JSON node against an explicitly hinted type.
func coerceValue(t *Type, n *jsonNode, depth int) (*Value, bool) {
	if depth > maxJSONDepth {
		return nil, false
	}
	switch t.Kind {
	case kindUint256:
		switch n.kind {
		case jsonNumber, jsonString:
			v, ok := inferValue(n, depth)
			if !ok || v.Typ.Kind != kindUint256 {
				return nil, false
			}
			return v, true
		}
	case kindBool:
		if n.kind == jsonBool {
			return BoolValue(n.boolV), true
		}
	case kindString:
		if n.kind == jsonString && len(n.strV) <= maxStringLen {
			return StringValue(n.strV), true
		}
	case kindAddress, kindFixedBytes, kindBytes:
		if n.kind != jsonString || !strings.HasPrefix(n.strV, "0x") {
			return nil, false
		}
		body := strings.ToLower(n.strV[2:])
		if len(body)%2 != 0 || !hexBodyRegexp.MatchString(body) {
			return nil, false
		}
		raw := common.FromHex(body)
		switch t.Kind {
		case kindAddress:
			if len(raw) != 20 {
				return nil, false
			}
			return AddressValue(common.BytesToAddress(raw)), true
		case kindFixedBytes:
			if len(raw) != t.Size {
				return nil, false
			}
			return &Value{Typ: t, Bytes: raw}, true
		default:
			return BytesValue(raw), true
		}
	case kindSlice:
		if n.kind != jsonArray || len(n.arr) > maxArrayLen {
			return nil, false
		}
		elems := make([]*Value, 0, len(n.arr))
		for _, e := range n.arr {
			v, ok := coerceValue(t.Elem, e, depth+1)
			if !ok {
				return nil, false
			}
			elems = append(elems, v)
		}
		return SliceValue(t.Elem, elems...), true
	case kindTuple:
		if n.kind != jsonArray || len(n.arr) != len(t.Components) {
			return nil, false
		}
		elems := make([]*Value, 0, len(n.arr))
		for i, e := range n.arr {
			v, ok := coerceValue(t.Components[i], e, depth+1)
			if !ok {
				return nil, false
			}
			elems = append(elems, v)
		}
		return TupleValue(elems...), true
	}
	return nil, false
}

// extractGeneric is the final, type-inferring tier.
func extractGeneric(content []byte) (string, string, []byte, bool) {
	if len(content) > maxPayloadSize {
		return "", "", nil, false
	}
	root, err := parseJSON(content)
	if err != nil || root.kind != jsonObject {
		return "", "", nil, false
	}
	if root.depth() > maxJSONDepth {
		return "", "", nil, false
	}
	if len(root.fields) < 2 || root.fields[0].key != "p" || root.fields[1].key != "op" {
		return "", "", nil, false
	}
	p, op := root.fields[0].val, root.fields[1].val
	if p.kind != jsonString || op.kind != jsonString {
		return "", "", nil, false
	}
	if !validProtocolName(p.strV) || !validProtocolName(op.strV) {
		return "", "", nil, false
	}
	// Protocols owned by a stricter tier never fall through: a token or
	// collections payload that failed its own tier is invalid, full stop.
	if p.strV == "erc-20" || p.strV == collectionsProtocol {
		return "", "", nil, false
	}
	if len(root.fields) > maxObjectKeys+2 {
		return "", "", nil, false
	}
	values := make([]*Value, 0, len(root.fields)-2)
	for _, f := range root.fields[2:] {
		v, ok := inferValue(f.val, 2)
		if !ok {
			return "", "", nil, false
		}
		values = append(values, v)
	}
	return p.strV, op.strV, Encode(TupleValue(values...)), true
}
