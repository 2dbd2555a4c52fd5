// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func extractCollectionsString(t *testing.T, content string) (string, string, []byte, bool) {
	t.Helper()
	return extractCollections([]byte(content))
}

func TestCollectionsCreate(t *testing.T) {
	p, op, params, ok := extractCollectionsString(t,
		`{"p":"collections","op":"create_collection","name":"Punks","symbol":"PNK","max_supply":"10000","metadata":"ipfs://abc"}`)
	require.True(t, ok)
	require.Equal(t, "collections", p)
	require.Equal(t, "create_collection", op)
	require.NotEmpty(t, params)
}

func TestCollectionsLock(t *testing.T) {
	id := "0x" + hexChars(64)
	_, op, _, ok := extractCollectionsString(t,
		`{"p":"collections","op":"lock_collection","collection_id":"`+id+`"}`)
	require.True(t, ok)
	require.Equal(t, "lock_collection", op)
}

func TestCollectionsKeyOrderStrict(t *testing.T) {
	// symbol before name: exact key order is part of the schema.
	_, _, _, ok := extractCollectionsString(t,
		`{"p":"collections","op":"create_collection","symbol":"PNK","name":"Punks","max_supply":"10000","metadata":""}`)
	require.False(t, ok)
}

func TestCollectionsExtraKey(t *testing.T) {
	_, _, _, ok := extractCollectionsString(t,
		`{"p":"collections","op":"create_collection","name":"Punks","symbol":"PNK","max_supply":"10000","metadata":"","extra":"1"}`)
	require.False(t, ok)
}

func TestCollectionsMissingKey(t *testing.T) {
	_, _, _, ok := extractCollectionsString(t,
		`{"p":"collections","op":"create_collection","name":"Punks","symbol":"PNK","max_supply":"10000"}`)
	require.False(t, ok)
}

func TestCollectionsNumericCoercionRejected(t *testing.T) {
	// max_supply as a bare JSON number: no silent coercion.
	_, _, _, ok := extractCollectionsString(t,
		`{"p":"collections","op":"create_collection","name":"Punks","symbol":"PNK","max_supply":10000,"metadata":""}`)
	require.False(t, ok)
}

func TestCollectionsBytes32Validation(t *testing.T) {
	for _, id := range []string{
		`"0x` + hexChars(62) + `"`,               // too short
		`"0x` + hexChars(64) + `ff"`,             // too long
		`"0X` + hexChars(64) + `"`,               // uppercase prefix
		`"` + hexChars(64) + `"`,                 // missing prefix
	} {
		_, _, _, ok := extractCollectionsString(t,
			`{"p":"collections","op":"lock_collection","collection_id":`+id+`}`)
		require.False(t, ok, "should reject %s", id)
	}
}

func TestCollectionsRemoveItems(t *testing.T) {
	id := "0x" + hexChars(64)
	_, op, params, ok := extractCollectionsString(t,
		`{"p":"collections","op":"remove_items","collection_id":"`+id+`","item_ids":["`+id+`","`+id+`"]}`)
	require.True(t, ok)
	require.Equal(t, "remove_items", op)
	require.NotEmpty(t, params)
}

func TestCollectionsItemsBatch(t *testing.T) {
	id := "0x" + hexChars(64)
	content := `{"p":"collections","op":"add_items_batch","collection_id":"` + id + `","start_index":"0","items":[` +
		`{"id":"` + id + `","name":"one","attributes":[["color","red"]]},` +
		`{"id":"` + id + `","name":"two","attributes":[{"trait_type":"color","value":"blue"}]}]}`
	_, op, params, ok := extractCollectionsString(t, content)
	require.True(t, ok)
	require.Equal(t, "add_items_batch", op)
	require.NotEmpty(t, params)
}

func TestCollectionsAttributesShapes(t *testing.T) {
	pairs := `[["a","b"],["c","d"]]`
	objects := `[{"trait_type":"a","value":"b"}]`
	mixed := `[["a","b"],{"trait_type":"c","value":"d"}]`
	id := "0x" + hexChars(64)

	base := func(attrs string) string {
		return `{"p":"collections","op":"edit_collection_item","collection_id":"` + id +
			`","item_id":"` + id + `","name":"n","attributes":` + attrs + `}`
	}
	_, _, _, ok := extractCollectionsString(t, base(pairs))
	require.True(t, ok)
	_, _, _, ok = extractCollectionsString(t, base(objects))
	require.True(t, ok)
	_, _, _, ok = extractCollectionsString(t, base(mixed))
	require.False(t, ok, "mixed attribute shapes are ambiguous")
	_, _, _, ok = extractCollectionsString(t, base(`[["a","b","c"]]`))
	require.False(t, ok, "attribute pairs must have exactly two elements")
}

func hexChars(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = "0123456789abcdef"[i%16]
	}
	return string(out)
}
