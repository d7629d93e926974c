package application

import "github.com/Tauheed-Elahee/diylabel-shopify-extension-public/internal/domain"

// ToEvaluationDTO converts a domain Evaluation to EvaluationDTO
func ToEvaluationDTO(evaluation *domain.Evaluation) *EvaluationDTO {
	if evaluation == nil {
		return nil
	}

	result := evaluation.Result
	if result.Operations == nil {
		result = domain.EmptyResult()
	}

	return &EvaluationDTO{
		EvaluationID:    evaluation.EvaluationID,
		Policy:          evaluation.Policy,
		Outcome:         string(evaluation.Outcome),
		LocationHandle:  evaluation.LocationHandle,
		VirtualLocation: evaluation.VirtualLocation,
		AttributeValue:  evaluation.AttributeValue,
		LineCount:       evaluation.LineCount,
		LocationCount:   evaluation.LocationCount,
		ConfigEnabled:   evaluation.ConfigEnabled,
		Result:          result,
		CorrelationID:   evaluation.CorrelationID,
		EvaluatedAt:     evaluation.EvaluatedAt,
	}
}

// ToEvaluationDTOs converts a slice of domain Evaluations to EvaluationDTOs
func ToEvaluationDTOs(evaluations []*domain.Evaluation) []EvaluationDTO {
	dtos := make([]EvaluationDTO, 0, len(evaluations))
	for _, evaluation := range evaluations {
		if dto := ToEvaluationDTO(evaluation); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}

// ToPolicyDTO converts a domain Policy to PolicyDTO
func ToPolicyDTO(policy domain.Policy) PolicyDTO {
	return PolicyDTO{
		Name:                  policy.Name,
		TriggerValues:         append([]string(nil), policy.TriggerValues...),
		Fallback:              string(policy.Fallback),
		VirtualLocationHandle: policy.VirtualLocationHandle,
		Title:                 policy.Title,
		Instruction:           policy.Instruction,
	}
}
