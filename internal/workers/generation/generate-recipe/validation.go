package generaterecipe

import "edu-content-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:        "integer",
				Description: "Cook requesting the recipe",
				Minimum:     validation.Float(1),
			},
			"dishType":    {Type: "string", MaxLength: validation.Int(200)},
			"cuisine":     {Type: "string", MaxLength: validation.Int(200)},
			"dietary":     {Type: "string", MaxLength: validation.Int(200)},
			"maxCalories": {Type: "integer", Minimum: validation.Float(0), Maximum: validation.Float(5000)},
			"notes":       {Type: "string", MaxLength: validation.Int(1000)},
		},
		AdditionalProperties: true,
	}
}
