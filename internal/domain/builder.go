package domain

// BuildOption builds the free local pickup option for handle under the default policy
func BuildOption(handle string) Operation {
	return DefaultPolicy.BuildOption(handle, DefaultPolicy.Instruction)
}

// BuildOption builds the operation with the policy title, zero cost and the given instruction
func (p Policy) BuildOption(handle, instruction string) Operation {
	title := p.Title
	cost := ZeroDecimal()
	return Operation{
		Add: LocalPickupDeliveryOption{
			Title: &title,
			Cost:  &cost,
			PickupLocation: PickupLocation{
				LocationHandle:    handle,
				PickupInstruction: &instruction,
			},
		},
	}
}
