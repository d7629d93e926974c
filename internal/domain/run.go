package domain

// Outcome records why an evaluation did or did not offer pickup
type Outcome string

const (
	OutcomeOffered               Outcome = "offered"
	OutcomeAttributeMissing      Outcome = "attribute_missing"
	OutcomeAttributeNotTriggered Outcome = "attribute_not_triggered"
	OutcomeEmptyCart             Outcome = "empty_cart"
	OutcomeDisabled              Outcome = "disabled"
	OutcomeNoLocation            Outcome = "no_location"
)

// IsValid checks if the outcome is known
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeOffered, OutcomeAttributeMissing, OutcomeAttributeNotTriggered,
		OutcomeEmptyCart, OutcomeDisabled, OutcomeNoLocation:
		return true
	default:
		return false
	}
}

// Decision is the result of one evaluation together with how it was reached
type Decision struct {
	Result          FunctionRunResult
	Outcome         Outcome
	LocationHandle  string
	VirtualLocation bool
	Config          GeneratorConfig
	// ConfigErr is set when the generator metafield could not be parsed and defaults were used
	ConfigErr error
}

// Run evaluates input under the default policy
func Run(input FunctionInput) FunctionRunResult {
	return Evaluate(input, DefaultPolicy).Result
}

// RunWithPolicy evaluates input under policy
func RunWithPolicy(input FunctionInput, policy Policy) FunctionRunResult {
	return Evaluate(input, policy).Result
}

// Evaluate runs gate, resolve and emit once. It never fails: every input shape
// yields either an empty result or exactly one operation.
func Evaluate(input FunctionInput, policy Policy) Decision {
	cfg, cfgErr := ParseGeneratorConfig(input.GeneratorMetafield())
	decision := Decision{
		Result:    EmptyResult(),
		Config:    cfg,
		ConfigErr: cfgErr,
	}

	if !cfg.Enabled {
		decision.Outcome = OutcomeDisabled
		return decision
	}

	if outcome := policy.checkCart(input.Cart); outcome != OutcomeOffered {
		decision.Outcome = outcome
		return decision
	}

	handle, ok := policy.ResolveLocation(input.Locations)
	if !ok {
		decision.Outcome = OutcomeNoLocation
		return decision
	}

	decision.Outcome = OutcomeOffered
	decision.LocationHandle = handle
	decision.VirtualLocation = len(input.Locations) == 0
	decision.Result = FunctionRunResult{
		Operations: []Operation{policy.BuildOption(handle, cfg.Instruction(policy.Instruction))},
	}
	return decision
}
