package generatequiz

import "edu-content-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:        "integer",
				Description: "Owner of the generated quiz",
				Minimum:     validation.Float(1),
			},
			"subject": {
				Type:        "string",
				Description: "School subject, ignored when customText is set",
				MaxLength:   validation.Int(100),
			},
			"topic": {
				Type:        "string",
				Description: "Topic within the subject",
				MaxLength:   validation.Int(200),
			},
			"customText": {
				Type:        "string",
				Description: "Uploaded study material to build the quiz from",
			},
			"numQuestions": {
				Type:        "integer",
				Description: "Requested number of questions",
				Minimum:     validation.Float(1),
				Maximum:     validation.Float(50),
				Default:     10,
			},
		},
		AdditionalProperties: true,
	}
}
