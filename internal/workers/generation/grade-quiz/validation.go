package gradequiz

import "edu-content-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId", "testId", "answers"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:        "integer",
				Description: "User submitting the answers",
				Minimum:     validation.Float(1),
			},
			"testId": {
				Type:        "integer",
				Description: "Quiz returned by generate-quiz",
				Minimum:     validation.Float(1),
			},
			"answers": {
				Type:        "object",
				Description: "Chosen option index keyed by question index",
			},
		},
		AdditionalProperties: true,
	}
}
