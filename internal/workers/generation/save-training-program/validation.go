package savetrainingprogram

import "edu-content-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId", "draftId"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:    "integer",
				Minimum: validation.Float(1),
			},
			"draftId": {
				Type:        "string",
				Description: "Draft returned by generate-training-program",
				MinLength:   validation.Int(1),
			},
		},
		AdditionalProperties: true,
	}
}
