// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package extractor

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

// The collections tier validates against a per-operation schema. The payload
// object's key list must equal ["p","op"] followed by the schema keys,
// exactly and in order; every field validator is strict about its input
// type, no coercion.

const collectionsProtocol = "collections"

type collectionField struct {
	key      string
	validate func(n *jsonNode) (*Value, bool)
}

var collectionSchemas = map[string][]collectionField{
	"create_collection": {
		{"name", validateString},
		{"symbol", validateString},
		{"max_supply", validateUint256},
		{"metadata", validateString},
	},
	"add_items_batch": {
		{"collection_id", validateBytes32},
		{"start_index", validateUint256},
		{"items", validateItemsArray},
	},
	"remove_items": {
		{"collection_id", validateBytes32},
		{"item_ids", validateBytes32Array},
	},
	"edit_collection": {
		{"collection_id", validateBytes32},
		{"name", validateString},
		{"symbol", validateString},
		{"metadata", validateString},
	},
	"edit_collection_item": {
		{"collection_id", validateBytes32},
		{"item_id", validateBytes32},
		{"name", validateString},
		{"attributes", validateAttributesArray},
	},
	"lock_collection": {
		{"collection_id", validateBytes32},
	},
	"sync_ownership": {
		{"collection_id", validateBytes32},
		{"item_ids", validateBytes32Array},
	},
}

var (
	canonicalUintRegexp = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)
	bytes32Regexp       = regexp.MustCompile(`^0x[0-9a-f]{64}$`)
)

func validateString(n *jsonNode) (*Value, bool) {
	if n.kind != jsonString || len(n.strV) > maxStringLen {
		return nil, false
	}
	return StringValue(n.strV), true
}

// Numeric fields travel as canonical decimal strings; a bare JSON number
// would round-trip through float64 in most producers, so it is rejected.
func validateUint256(n *jsonNode) (*Value, bool) {
	if n.kind != jsonString || !canonicalUintRegexp.MatchString(n.strV) {
		return nil, false
	}
	v, ok := parseUint256Literal(n.strV)
	if !ok {
		return nil, false
	}
	return UintValue(v), true
}

func validateBytes32(n *jsonNode) (*Value, bool) {
	if n.kind != jsonString || !bytes32Regexp.MatchString(n.strV) {
		return nil, false
	}
	return &Value{Typ: TypeBytes32, Bytes: common.FromHex(n.strV)}, true
}

func validateBytes32Array(n *jsonNode) (*Value, bool) {
	if n.kind != jsonArray || len(n.arr) > maxArrayLen {
		return nil, false
	}
	elems := make([]*Value, 0, len(n.arr))
	for _, e := range n.arr {
		v, ok := validateBytes32(e)
		if !ok {
			return nil, false
		}
		elems = append(elems, v)
	}
	return SliceValue(TypeBytes32, elems...), true
}

var attributeTupleType = TupleType(TypeString, TypeString)

// validateAttributesArray accepts either array-of-pairs
// ([["trait","value"],...]) or array-of-objects
// ([{"trait_type":...,"value":...},...]). The two shapes must not be mixed.
// Both normalise to (string,string)[].
func validateAttributesArray(n *jsonNode) (*Value, bool) {
	if n.kind != jsonArray || len(n.arr) > maxArrayLen {
		return nil, false
	}
	if len(n.arr) == 0 {
		return SliceValue(attributeTupleType), true
	}
	shape := n.arr[0].kind
	if shape != jsonArray && shape != jsonObject {
		return nil, false
	}
	elems := make([]*Value, 0, len(n.arr))
	for _, e := range n.arr {
		if e.kind != shape {
			return nil, false
		}
		var trait, value *jsonNode
		switch shape {
		case jsonArray:
			if len(e.arr) != 2 {
				return nil, false
			}
			trait, value = e.arr[0], e.arr[1]
		case jsonObject:
			if len(e.fields) != 2 || e.fields[0].key != "trait_type" || e.fields[1].key != "value" {
				return nil, false
			}
			trait, value = e.fields[0].val, e.fields[1].val
		}
		traitV, ok1 := validateString(trait)
		valueV, ok2 := validateString(value)
		if !ok1 || !ok2 {
			return nil, false
		}
		elems = append(elems, TupleValue(traitV, valueV))
	}
	return SliceValue(attributeTupleType, elems...), true
}

var itemTupleType = TupleType(TypeBytes32, TypeString, SliceType(attributeTupleType))

// validateItemsArray accepts objects with the exact key list
// ["id","name","attributes"], normalised to
// (bytes32,string,(string,string)[])[].
func validateItemsArray(n *jsonNode) (*Value, bool) {
	if n.kind != jsonArray || len(n.arr) > maxArrayLen {
		return nil, false
	}
	elems := make([]*Value, 0, len(n.arr))
	for _, e := range n.arr {
		if e.kind != jsonObject || len(e.fields) != 3 ||
			e.fields[0].key != "id" || e.fields[1].key != "name" || e.fields[2].key != "attributes" {
			return nil, false
		}
		id, ok1 := validateBytes32(e.fields[0].val)
		name, ok2 := validateString(e.fields[1].val)
		attrs, ok3 := validateAttributesArray(e.fields[2].val)
		if !ok1 || !ok2 || !ok3 {
			return nil, false
		}
		elems = append(elems, TupleValue(id, name, attrs))
	}
	return SliceValue(itemTupleType, elems...), true
}

// extractCollections is the second extraction tier.
func extractCollections(content []byte) (string, string, []byte, bool) {
	root, err := parseJSON(content)
	if err != nil || root.kind != jsonObject {
		return "", "", nil, false
	}
	if len(root.fields) < 2 || root.fields[0].key != "p" || root.fields[1].key != "op" {
		return "", "", nil, false
	}
	p, op := root.fields[0].val, root.fields[1].val
	if p.kind != jsonString || p.strV != collectionsProtocol || op.kind != jsonString {
		return "", "", nil, false
	}
	schema, ok := collectionSchemas[op.strV]
	if !ok {
		return "", "", nil, false
	}
	if len(root.fields) != len(schema)+2 {
		return "", "", nil, false
	}
	values := make([]*Value, 0, len(schema))
	for i, field := range schema {
		f := root.fields[i+2]
		if f.key != field.key {
			return "", "", nil, false
		}
		v, ok := field.validate(f.val)
		if !ok {
			return "", "", nil, false
		}
		values = append(values, v)
	}
	return collectionsProtocol, op.strV, Encode(TupleValue(values...)), true
}
