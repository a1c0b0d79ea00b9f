package generatemealplan

import "edu-content-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"userId": {
				Type:        "integer",
				Description: "Requesting user, for logging only",
			},
			"caloriesTarget": {
				Type:        "integer",
				Description: "Daily calorie target",
				Minimum:     validation.Float(0),
				Maximum:     validation.Float(10000),
			},
			"mealsCount": {
				Type:        "integer",
				Description: "Number of meals in the day",
				Minimum:     validation.Float(0),
				Maximum:     validation.Float(10),
			},
			"preferences": {
				Type:      "string",
				MaxLength: validation.Int(1000),
			},
			"restrictions": {
				Type:      "string",
				MaxLength: validation.Int(1000),
			},
		},
		AdditionalProperties: true,
	}
}
