package domain

// MerchandiseType tags the concrete variant behind a cart line's merchandise
type MerchandiseType string

const (
	MerchandiseProductVariant MerchandiseType = "ProductVariant"
	MerchandiseCustomProduct  MerchandiseType = "CustomProduct"
)

// FunctionInput is the full snapshot the host supplies for one evaluation
type FunctionInput struct {
	Cart                    Cart                     `json:"cart"`
	FulfillmentGroups       []FulfillmentGroup       `json:"fulfillmentGroups"`
	Locations               []Location               `json:"locations"`
	DeliveryOptionGenerator *DeliveryOptionGenerator `json:"deliveryOptionGenerator,omitempty"`
}

// Cart is the cart-level data read by the eligibility check
type Cart struct {
	Attribute *CartAttribute `json:"attribute"`
	Lines     []CartLine     `json:"lines"`
}

// CartAttribute is the pickup opt-in annotation set by the checkout UI
type CartAttribute struct {
	Value *string `json:"value"`
}

// CartLine is an opaque line-item reference
type CartLine struct {
	ID          string       `json:"id"`
	Quantity    int          `json:"quantity"`
	Merchandise *Merchandise `json:"merchandise,omitempty"`
}

// Merchandise is a tagged record, Typename selects the variant
type Merchandise struct {
	Typename MerchandiseType `json:"__typename"`
	ID       string          `json:"id,omitempty"`
	Title    string          `json:"title,omitempty"`
	Product  *Product        `json:"product,omitempty"`
}

// Product identifies the catalog product behind a variant
type Product struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Handle string `json:"handle,omitempty"`
}

// FulfillmentGroup groups cart lines for joint fulfillment. Carried through, never read by the decision.
type FulfillmentGroup struct {
	Handle                   string          `json:"handle"`
	Lines                    []LineReference `json:"lines"`
	DeliveryGroup            *DeliveryGroup  `json:"deliveryGroup,omitempty"`
	InventoryLocationHandles []string        `json:"inventoryLocationHandles"`
}

// LineReference points at a cart line by id
type LineReference struct {
	ID string `json:"id"`
}

// DeliveryGroup identifies the host delivery group
type DeliveryGroup struct {
	ID string `json:"id"`
}

// Location is a known fulfillment point. Address fields are pass-through.
type Location struct {
	Handle  string   `json:"handle"`
	Name    string   `json:"name,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// Address is an opaque postal address
type Address struct {
	Address1     *string `json:"address1"`
	Address2     *string `json:"address2"`
	City         *string `json:"city"`
	ProvinceCode *string `json:"provinceCode"`
	CountryCode  *string `json:"countryCode"`
	Zip          *string `json:"zip"`
}

// DeliveryOptionGenerator carries the generator's own configuration metafield
type DeliveryOptionGenerator struct {
	Metafield *Metafield `json:"metafield"`
}

// Metafield is a raw host metafield value
type Metafield struct {
	Value string `json:"value"`
}

// AttributeValue returns the cart attribute value and whether one was supplied
func (c Cart) AttributeValue() (string, bool) {
	if c.Attribute == nil || c.Attribute.Value == nil {
		return "", false
	}
	return *c.Attribute.Value, true
}

// GeneratorMetafield returns the configuration metafield, or nil when absent
func (in FunctionInput) GeneratorMetafield() *Metafield {
	if in.DeliveryOptionGenerator == nil {
		return nil
	}
	return in.DeliveryOptionGenerator.Metafield
}
