package domain

// IsEligible reports whether the cart opted into local pickup under the default policy
func IsEligible(cart Cart) bool {
	return DefaultPolicy.IsEligible(cart)
}

// IsEligible requires a trigger attribute value and at least one cart line
func (p Policy) IsEligible(cart Cart) bool {
	return p.checkCart(cart) == OutcomeOffered
}

// checkCart returns OutcomeOffered when the cart passes the gate, otherwise the reason it did not
func (p Policy) checkCart(cart Cart) Outcome {
	value, ok := cart.AttributeValue()
	if !ok {
		return OutcomeAttributeMissing
	}
	if !p.IsTrigger(value) {
		return OutcomeAttributeNotTriggered
	}
	if len(cart.Lines) == 0 {
		return OutcomeEmptyCart
	}
	return OutcomeOffered
}
