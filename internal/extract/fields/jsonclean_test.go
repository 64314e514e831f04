package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	obj, err := decodeObject("```json\n{\"a\": 1}\n```")
	require.NoError(t, err)
	assert.Equal(t, 1.0, obj["a"])

	obj, err = decodeObject(`Sure! {invoice_number: "X-1", total: None, paid: True,}`)
	require.NoError(t, err)
	assert.Equal(t, "X-1", obj["invoice_number"])
	assert.Nil(t, obj["total"])
	assert.Equal(t, true, obj["paid"])

	obj, err = decodeObject("{“vendor_name”: “Globex”}")
	require.NoError(t, err)
	assert.Equal(t, "Globex", obj["vendor_name"])
}

func TestDecodeObject_Rejects(t *testing.T) {
	for _, in := range []string{"", "no json here", "[1,2,3]", "{not even close"} {
		_, err := decodeObject(in)
		assert.ErrorIs(t, err, errNotJSONObject, in)
	}
}

func TestSchemaPrune(t *testing.T) {
	s, err := compileSchema("invoice", invoiceSpecs)
	require.NoError(t, err)

	obj := map[string]any{
		"invoice_number": "A-1",
		"vendor_name":    []any{"x"},
		"items":          []any{map[string]any{"description": "ok"}, "bad", map[string]any{"quantity": true}},
	}
	dropped := s.prune(obj)

	assert.Equal(t, []string{"items", "vendor_name"}, dropped)
	assert.Nil(t, obj["vendor_name"])
	assert.Equal(t, "A-1", obj["invoice_number"])
	assert.Len(t, obj["items"], 1)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "₹₹", truncateRunes("₹₹₹", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 0))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}
