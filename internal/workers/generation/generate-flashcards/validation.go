package generateflashcards

import "edu-content-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"sessionId", "userId"},
		Properties: map[string]validation.Property{
			"sessionId": {
				Type:        "integer",
				Description: "Game session the deck belongs to",
				Minimum:     validation.Float(1),
			},
			"userId": {
				Type:        "integer",
				Description: "Teacher who created the session",
				Minimum:     validation.Float(1),
			},
		},
		AdditionalProperties: true,
	}
}
