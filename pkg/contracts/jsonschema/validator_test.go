package jsonschema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputValidator_Validate(t *testing.T) {
	v, err := NewInputValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"minimal cart", `{"cart":{"lines":[]}}`, false},
		{"null attribute", `{"cart":{"attribute":null,"lines":[{"id":"L1"}]},"locations":[]}`, false},
		{
			"full host payload",
			`{"cart":{"attribute":{"value":"pickup"},"lines":[{"id":"L1","quantity":2,"merchandise":{"__typename":"CustomProduct","title":"Poster"}}]},
			  "fulfillmentGroups":[{"handle":"1","lines":[{"id":"L1"}],"inventoryLocationHandles":["shop"]}],
			  "locations":[{"handle":"shop","address":{"address1":"1 Main","address2":null,"city":null,"provinceCode":null,"countryCode":"CA","zip":null}}],
			  "deliveryOptionGenerator":{"metafield":{"value":"{\"enabled\":true}"}}}`,
			false,
		},
		{"missing cart", `{"locations":[]}`, true},
		{"lines not an array", `{"cart":{"lines":{}}}`, true},
		{"location without handle", `{"cart":{"lines":[]},"locations":[{"name":"x"}]}`, true},
		{"unknown merchandise type", `{"cart":{"lines":[{"id":"L1","merchandise":{"__typename":"GiftCard"}}]}}`, true},
		{"attribute value is a number", `{"cart":{"attribute":{"value":1},"lines":[]}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.payload))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.NotEmpty(t, verr.Fields)
		})
	}
}

func TestInputValidator_MalformedJSON(t *testing.T) {
	v, err := NewInputValidator()
	require.NoError(t, err)

	err = v.Validate([]byte(`{"cart":`))
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestSchema_ReturnsCopy(t *testing.T) {
	first := Schema()
	first[0] = 'x'

	assert.Equal(t, byte('{'), Schema()[0])
}
