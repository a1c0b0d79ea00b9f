package generatetrainingprogram

import "edu-content-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId", "goal"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:    "integer",
				Minimum: validation.Float(1),
			},
			"goal": {
				Type:        "string",
				Description: "Training goal, e.g. endurance or weight loss",
				MinLength:   validation.Int(1),
				MaxLength:   validation.Int(200),
			},
			"level":       {Type: "string", MaxLength: validation.Int(100)},
			"duration":    {Type: "string", MaxLength: validation.Int(100)},
			"preferences": {Type: "string", MaxLength: validation.Int(1000)},
		},
		AdditionalProperties: true,
	}
}
