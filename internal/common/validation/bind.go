package validation

import (
	"encoding/json"
	"fmt"

	"edu-content-workers/internal/common/errors"
)

// ParseInput validates job variables against schema and decodes them into out.
// Failures are INVALID_INPUT errors.
func ParseInput(variables map[string]interface{}, schema JSONSchema, out interface{}) error {
	result := ValidateInput(variables, schema)
	if !result.Valid {
		return errors.NewInvalidInputError(result.Error())
	}

	raw, err := json.Marshal(variables)
	if err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("re-encode variables: %v", err))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("decode variables: %v", err))
	}
	return nil
}
