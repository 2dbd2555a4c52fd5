// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package extractor

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
)

// The extractor builds ABI types at runtime from untrusted JSON, so the
// encoder below works on a typed value tree instead of the static Go structs
// the go-ethereum abi package binds to. The layout it produces is the
// standard Solidity head/tail encoding.

type typeKind uint8

const (
	kindUint256 typeKind = iota
	kindBool
	kindAddress
	kindFixedBytes
	kindBytes
	kindString
	kindSlice
	kindTuple
)

// Type is a runtime ABI type. Size is the width for fixed-bytes, Elem the
// element type for slices, Components the member types for tuples.
type Type struct {
	Kind       typeKind
	Size       int
	Elem       *Type
	Components []*Type
}

var (
	TypeUint256 = &Type{Kind: kindUint256}
	TypeBool    = &Type{Kind: kindBool}
	TypeAddress = &Type{Kind: kindAddress}
	TypeBytes32 = &Type{Kind: kindFixedBytes, Size: 32}
	TypeBytes   = &Type{Kind: kindBytes}
	TypeString  = &Type{Kind: kindString}
)

func FixedBytesType(size int) *Type { return &Type{Kind: kindFixedBytes, Size: size} }
func SliceType(elem *Type) *Type    { return &Type{Kind: kindSlice, Elem: elem} }
func TupleType(components ...*Type) *Type {
	return &Type{Kind: kindTuple, Components: components}
}

// String renders the canonical Solidity name, with tuples in the
// parenthesised form.
func (t *Type) String() string {
	switch t.Kind {
	case kindUint256:
		return "uint256"
	case kindBool:
		return "bool"
	case kindAddress:
		return "address"
	case kindFixedBytes:
		return "bytes" + itoa(t.Size)
	case kindBytes:
		return "bytes"
	case kindString:
		return "string"
	case kindSlice:
		return t.Elem.String() + "[]"
	case kindTuple:
		names := make([]string, len(t.Components))
		for i, c := range t.Components {
			names[i] = c.String()
		}
		return "(" + strings.Join(names, ",") + ")"
	default:
		return "invalid"
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [3]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Equal reports structural type equality.
func (t *Type) Equal(o *Type) bool {
	if t.Kind != o.Kind || t.Size != o.Size {
		return false
	}
	if t.Kind == kindSlice {
		return t.Elem.Equal(o.Elem)
	}
	if t.Kind == kindTuple {
		if len(t.Components) != len(o.Components) {
			return false
		}
		for i := range t.Components {
			if !t.Components[i].Equal(o.Components[i]) {
				return false
			}
		}
	}
	return true
}

// dynamic reports whether the type uses tail encoding.
func (t *Type) dynamic() bool {
	switch t.Kind {
	case kindBytes, kindString, kindSlice:
		return true
	case kindTuple:
		for _, c := range t.Components {
			if c.dynamic() {
				return true
			}
		}
	}
	return false
}

// headSize is the number of head bytes the type occupies within a tuple.
func (t *Type) headSize() int {
	if t.dynamic() {
		return 32
	}
	if t.Kind == kindTuple {
		n := 0
		for _, c := range t.Components {
			n += c.headSize()
		}
		return n
	}
	return 32
}

// ParseType parses a canonical type name as used by explicit type hints:
// elementary names, "T[]" and "(a,b,...)" tuples. Unknown or malformed
// names return an error.
func ParseType(s string) (*Type, error) {
	if strings.HasSuffix(s, "[]") {
		elem, err := ParseType(s[:len(s)-2])
		if err != nil {
			return nil, err
		}
		return SliceType(elem), nil
	}
	if strings.HasPrefix(s, "(") {
		if !strings.HasSuffix(s, ")") {
			return nil, errors.Errorf("unbalanced tuple type %q", s)
		}
		inner := s[1 : len(s)-1]
		if inner == "" {
			return nil, errors.New("empty tuple type")
		}
		var components []*Type
		depth, start := 0, 0
		for i := 0; i <= len(inner); i++ {
			if i == len(inner) || (inner[i] == ',' && depth == 0) {
				c, err := ParseType(inner[start:i])
				if err != nil {
					return nil, err
				}
				components = append(components, c)
				start = i + 1
				continue
			}
			switch inner[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
		}
		return TupleType(components...), nil
	}
	switch s {
	case "uint256":
		return TypeUint256, nil
	case "bool":
		return TypeBool, nil
	case "address":
		return TypeAddress, nil
	case "bytes":
		return TypeBytes, nil
	case "string":
		return TypeString, nil
	}
	if strings.HasPrefix(s, "bytes") {
		n := 0
		for _, r := range s[len("bytes"):] {
			if r < '0' || r > '9' {
				return nil, errors.Errorf("unknown type %q", s)
			}
			n = n*10 + int(r-'0')
			if n > 32 {
				return nil, errors.Errorf("unknown type %q", s)
			}
		}
		if n >= 1 {
			return FixedBytesType(n), nil
		}
	}
	return nil, errors.Errorf("unknown type %q", s)
}

// Value is one typed ABI value. Which payload field is set depends on the
// type kind.
type Value struct {
	Typ *Type

	Uint  *big.Int       // uint256
	Bool  bool           // bool
	Addr  common.Address // address
	Bytes []byte         // fixed bytes / bytes
	Str   string         // string
	Elems []*Value       // slice elements or tuple components
}

func UintValue(v *big.Int) *Value        { return &Value{Typ: TypeUint256, Uint: v} }
func BoolValue(v bool) *Value            { return &Value{Typ: TypeBool, Bool: v} }
func AddressValue(a common.Address) *Value {
	return &Value{Typ: TypeAddress, Addr: a}
}
func FixedBytesValue(b []byte) *Value {
	return &Value{Typ: FixedBytesType(len(b)), Bytes: b}
}
func BytesValue(b []byte) *Value  { return &Value{Typ: TypeBytes, Bytes: b} }
func StringValue(s string) *Value { return &Value{Typ: TypeString, Str: s} }

func SliceValue(elem *Type, elems ...*Value) *Value {
	return &Value{Typ: SliceType(elem), Elems: elems}
}

func TupleValue(elems ...*Value) *Value {
	components := make([]*Type, len(elems))
	for i, e := range elems {
		components[i] = e.Typ
	}
	return &Value{Typ: TupleType(components...), Elems: elems}
}

// Encode produces the Solidity ABI encoding of the value as a single
// top-level argument.
func Encode(v *Value) []byte {
	return encodeTupleBody([]*Value{v})
}

// encodeTupleBody encodes a sequence of values with head/tail layout.
func encodeTupleBody(vals []*Value) []byte {
	headSize := 0
	for _, v := range vals {
		headSize += v.Typ.headSize()
	}
	head := make([]byte, 0, headSize)
	var tail []byte
	for _, v := range vals {
		if v.Typ.dynamic() {
			offset := new(big.Int).SetInt64(int64(headSize + len(tail)))
			head = append(head, math.U256Bytes(offset)...)
			tail = append(tail, encodeBody(v)...)
		} else {
			head = append(head, encodeBody(v)...)
		}
	}
	return append(head, tail...)
}

// encodeBody encodes the value itself: the in-place words for static types,
// the tail content for dynamic ones.
func encodeBody(v *Value) []byte {
	switch v.Typ.Kind {
	case kindUint256:
		return math.U256Bytes(new(big.Int).Set(v.Uint))
	case kindBool:
		word := make([]byte, 32)
		if v.Bool {
			word[31] = 1
		}
		return word
	case kindAddress:
		return common.LeftPadBytes(v.Addr.Bytes(), 32)
	case kindFixedBytes:
		return common.RightPadBytes(v.Bytes, 32)
	case kindBytes:
		return encodeByteChunk(v.Bytes)
	case kindString:
		return encodeByteChunk([]byte(v.Str))
	case kindSlice:
		length := math.U256Bytes(new(big.Int).SetInt64(int64(len(v.Elems))))
		return append(length, encodeTupleBody(v.Elems)...)
	case kindTuple:
		return encodeTupleBody(v.Elems)
	default:
		panic("encode of invalid abi value")
	}
}

func encodeByteChunk(b []byte) []byte {
	out := math.U256Bytes(new(big.Int).SetInt64(int64(len(b))))
	if len(b) > 0 {
		out = append(out, common.RightPadBytes(b, (len(b)+31)/32*32)...)
	}
	return out
}
