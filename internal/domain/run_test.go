package domain

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pickupWithLocationInput = `{
	"cart": {
		"attribute": {"value": "pickup"},
		"lines": [
			{
				"id": "gid://shopify/CartLine/1",
				"quantity": 1,
				"merchandise": {
					"__typename": "ProductVariant",
					"id": "gid://shopify/ProductVariant/1",
					"product": {"id": "gid://shopify/Product/1", "title": "Test Product"}
				}
			}
		]
	},
	"fulfillmentGroups": [
		{
			"handle": "1",
			"lines": [{"id": "gid://shopify/CartLine/1"}],
			"deliveryGroup": {"id": "gid://shopify/CartDeliveryGroup/1"},
			"inventoryLocationHandles": ["test_location"]
		}
	],
	"locations": [
		{
			"handle": "test_location",
			"name": "Test Location",
			"address": {
				"address1": "123 Test St",
				"address2": null,
				"city": "Test City",
				"provinceCode": "CA",
				"countryCode": "US",
				"zip": "12345"
			}
		}
	],
	"deliveryOptionGenerator": {"metafield": null}
}`

func strPtr(s string) *string { return &s }

func cartWith(value *string, lines int) Cart {
	cart := Cart{Lines: make([]CartLine, 0, lines)}
	if value != nil {
		cart.Attribute = &CartAttribute{Value: value}
	}
	for i := 0; i < lines; i++ {
		cart.Lines = append(cart.Lines, CartLine{ID: "gid://shopify/CartLine/" + strconv.Itoa(i+1), Quantity: 1})
	}
	return cart
}

func decodeInput(t *testing.T, raw string) FunctionInput {
	t.Helper()
	var input FunctionInput
	require.NoError(t, json.Unmarshal([]byte(raw), &input))
	return input
}

func TestRun_DecisionMatrix(t *testing.T) {
	shopA := []Location{{Handle: "shopA"}}
	twoShops := []Location{{Handle: "L1"}, {Handle: "L2"}}

	tests := []struct {
		name       string
		cart       Cart
		locations  []Location
		wantOps    int
		wantHandle string
	}{
		{"missing attribute is ignored", Cart{Lines: []CartLine{{ID: "L1"}}}, shopA, 0, ""},
		{"attribute without value is ignored", Cart{Attribute: &CartAttribute{}, Lines: []CartLine{{ID: "L1"}}}, shopA, 0, ""},
		{"non-trigger value is ignored", cartWith(strPtr("other"), 1), shopA, 0, ""},
		{"trigger match is case sensitive", cartWith(strPtr("Pickup"), 1), shopA, 0, ""},
		{"pickup with location", cartWith(strPtr("pickup"), 1), shopA, 1, "shopA"},
		{"true with location", cartWith(strPtr("true"), 2), shopA, 1, "shopA"},
		{"first location wins", cartWith(strPtr("pickup"), 1), twoShops, 1, "L1"},
		{"no locations falls back to virtual", cartWith(strPtr("pickup"), 1), nil, 1, VirtualLocationHandle},
		{"empty cart with locations", cartWith(strPtr("pickup"), 0), shopA, 0, ""},
		{"empty cart without locations", cartWith(strPtr("true"), 0), nil, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Run(FunctionInput{Cart: tt.cart, Locations: tt.locations})

			require.Len(t, result.Operations, tt.wantOps)
			if tt.wantOps == 0 {
				return
			}
			add := result.Operations[0].Add
			assert.Equal(t, tt.wantHandle, add.PickupLocation.LocationHandle)
			require.NotNil(t, add.Title)
			require.NotNil(t, add.Cost)
			require.NotNil(t, add.PickupLocation.PickupInstruction)
			assert.True(t, add.Cost.IsZero())
			assert.Equal(t, PickupTitle, *add.Title)
			assert.Equal(t, PickupInstruction, *add.PickupLocation.PickupInstruction)
			assert.Nil(t, add.Metafields)
		})
	}
}

func TestRun_JSONScenarios(t *testing.T) {
	t.Run("creates pickup option with POS location", func(t *testing.T) {
		result := Run(decodeInput(t, pickupWithLocationInput))

		require.Len(t, result.Operations, 1)
		assert.Equal(t, "test_location", result.Operations[0].Add.PickupLocation.LocationHandle)
	})

	t.Run("empty result serializes as an empty array", func(t *testing.T) {
		input := decodeInput(t, `{"cart":{"attribute":null,"lines":[]},"fulfillmentGroups":[],"locations":[]}`)

		out, err := json.Marshal(Run(input))
		require.NoError(t, err)
		assert.JSONEq(t, `{"operations":[]}`, string(out))
	})

	t.Run("output uses host field names", func(t *testing.T) {
		input := decodeInput(t, `{"cart":{"attribute":{"value":"pickup"},"lines":[{"id":"L1"}]},"locations":[{"handle":"shopA"}]}`)

		out, err := json.Marshal(Run(input))
		require.NoError(t, err)
		assert.JSONEq(t, `{"operations":[{"add":{
			"title":"🌱 Local Print Shop Pickup",
			"cost":"0.0",
			"pickup_location":{"location_handle":"shopA","pickup_instruction":"`+PickupInstruction+`"},
			"metafields":null
		}}]}`, string(out))
	})
}

func TestRun_Idempotent(t *testing.T) {
	input := decodeInput(t, pickupWithLocationInput)

	first, err := json.Marshal(Run(input))
	require.NoError(t, err)
	second, err := json.Marshal(Run(input))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_FulfillmentGroupsAreIgnored(t *testing.T) {
	input := decodeInput(t, pickupWithLocationInput)
	withoutGroups := input
	withoutGroups.FulfillmentGroups = nil

	with, err := json.Marshal(Run(input))
	require.NoError(t, err)
	without, err := json.Marshal(Run(withoutGroups))
	require.NoError(t, err)

	assert.JSONEq(t, string(with), string(without))
}

func TestEvaluate_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		input       FunctionInput
		policy      Policy
		wantOutcome Outcome
		wantVirtual bool
	}{
		{"offered", FunctionInput{Cart: cartWith(strPtr("pickup"), 1), Locations: []Location{{Handle: "a"}}}, DefaultPolicy, OutcomeOffered, false},
		{"offered virtual", FunctionInput{Cart: cartWith(strPtr("pickup"), 1)}, DefaultPolicy, OutcomeOffered, true},
		{"attribute missing", FunctionInput{Cart: cartWith(nil, 1)}, DefaultPolicy, OutcomeAttributeMissing, false},
		{"not triggered", FunctionInput{Cart: cartWith(strPtr("no"), 1)}, DefaultPolicy, OutcomeAttributeNotTriggered, false},
		{"empty cart", FunctionInput{Cart: cartWith(strPtr("true"), 0)}, DefaultPolicy, OutcomeEmptyCart, false},
		{"strict without location", FunctionInput{Cart: cartWith(strPtr("pickup"), 1)}, StrictPolicy, OutcomeNoLocation, false},
		{"strict rejects true", FunctionInput{Cart: cartWith(strPtr("true"), 1), Locations: []Location{{Handle: "a"}}}, StrictPolicy, OutcomeAttributeNotTriggered, false},
		{
			"disabled by configuration",
			FunctionInput{
				Cart:                    cartWith(strPtr("pickup"), 1),
				DeliveryOptionGenerator: &DeliveryOptionGenerator{Metafield: &Metafield{Value: `{"enabled": false}`}},
			},
			DefaultPolicy, OutcomeDisabled, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Evaluate(tt.input, tt.policy)

			assert.Equal(t, tt.wantOutcome, decision.Outcome)
			assert.Equal(t, tt.wantVirtual, decision.VirtualLocation)
			assert.Equal(t, tt.wantOutcome == OutcomeOffered, !decision.Result.IsEmpty())
			assert.NotNil(t, decision.Result.Operations)
		})
	}
}

func TestEvaluate_StrictPolicyInstruction(t *testing.T) {
	result := RunWithPolicy(FunctionInput{
		Cart:      cartWith(strPtr("pickup"), 1),
		Locations: []Location{{Handle: "shop"}},
	}, StrictPolicy)

	require.Len(t, result.Operations, 1)
	assert.Equal(t, StrictPickupInstruction, *result.Operations[0].Add.PickupLocation.PickupInstruction)
}

func TestEvaluate_GeneratorConfigExtendsInstruction(t *testing.T) {
	input := FunctionInput{
		Cart: cartWith(strPtr("true"), 1),
		DeliveryOptionGenerator: &DeliveryOptionGenerator{Metafield: &Metafield{
			Value: `{"enabled": true, "defaultPickupTime": "2-3 business days", "sustainabilityMessage": true}`,
		}},
	}

	decision := Evaluate(input, DefaultPolicy)

	require.Len(t, decision.Result.Operations, 1)
	assert.Equal(t,
		PickupInstruction+" Ready for pickup in 2-3 business days. 🌱 Printed locally to reduce shipping impact and support your community!",
		*decision.Result.Operations[0].Add.PickupLocation.PickupInstruction,
	)
	assert.NoError(t, decision.ConfigErr)
}

func TestEvaluate_MalformedConfigUsesDefaults(t *testing.T) {
	input := FunctionInput{
		Cart:                    cartWith(strPtr("pickup"), 1),
		DeliveryOptionGenerator: &DeliveryOptionGenerator{Metafield: &Metafield{Value: `{not json`}},
	}

	decision := Evaluate(input, DefaultPolicy)

	assert.Error(t, decision.ConfigErr)
	assert.Equal(t, OutcomeOffered, decision.Outcome)
	assert.Equal(t, PickupInstruction, *decision.Result.Operations[0].Add.PickupLocation.PickupInstruction)
}

func TestOutcome_IsValid(t *testing.T) {
	assert.True(t, OutcomeOffered.IsValid())
	assert.True(t, OutcomeNoLocation.IsValid())
	assert.False(t, Outcome("maybe").IsValid())
	assert.False(t, Outcome("").IsValid())
}
