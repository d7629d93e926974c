package domain

// FunctionRunResult holds zero or one operation
type FunctionRunResult struct {
	Operations []Operation `json:"operations" bson:"operations"`
}

// EmptyResult returns a result that serializes as {"operations":[]}
func EmptyResult() FunctionRunResult {
	return FunctionRunResult{Operations: []Operation{}}
}

// IsEmpty reports whether no delivery option is added
func (r FunctionRunResult) IsEmpty() bool {
	return len(r.Operations) == 0
}

// Operation is an "add delivery option" instruction
type Operation struct {
	Add LocalPickupDeliveryOption `json:"add" bson:"add"`
}

// LocalPickupDeliveryOption is the local pickup option offered to the buyer
type LocalPickupDeliveryOption struct {
	Title          *string           `json:"title" bson:"title"`
	Cost           *Decimal          `json:"cost" bson:"cost"`
	PickupLocation PickupLocation    `json:"pickup_location" bson:"pickupLocation"`
	Metafields     []OutputMetafield `json:"metafields" bson:"metafields,omitempty"`
}

// PickupLocation is the resolved handle plus buyer-facing instruction
type PickupLocation struct {
	LocationHandle    string  `json:"location_handle" bson:"locationHandle"`
	PickupInstruction *string `json:"pickup_instruction" bson:"pickupInstruction"`
}

// OutputMetafield is reserved by the host schema and never populated
type OutputMetafield struct {
	Key   string `json:"key" bson:"key"`
	Value string `json:"value" bson:"value"`
}
