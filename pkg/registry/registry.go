// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"edu-content-workers/internal/common/validation"
)

var storageBackends = map[string]bool{"postgres": true, "redis": true}

var implementationStatuses = map[string]bool{
	"planned":     true,
	"in-progress": true,
	"completed":   true,
	"verified":    true,
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Save writes the registry as indented JSON, stamping LastUpdated.
func (r *ActivityRegistry) Save(path string) error {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns the activity with the given id, or nil.
func (r *ActivityRegistry) Find(id string) *Activity {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return &r.Activities[i]
		}
	}
	return nil
}

// Upsert replaces the activity with the same id or appends a new one.
func (r *ActivityRegistry) Upsert(a Activity) {
	if existing := r.Find(a.ID); existing != nil {
		*existing = a
		return
	}
	r.Activities = append(r.Activities, a)
}

// Validate checks ids, task type naming and that every input schema compiles.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	for _, a := range r.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity ID: %s", a.ID)
		}
		ids[a.ID] = true

		if a.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
		}
		if a.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", a.ID)
		}
		if err := validation.ValidateTaskType(a.TaskType); err != nil {
			return fmt.Errorf("activity %s: %w", a.ID, err)
		}
		if !implementationStatuses[a.ImplementationStatus] {
			return fmt.Errorf("activity %s: unknown implementation status %q", a.ID, a.ImplementationStatus)
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				return fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout)
			}
		}
		for _, backend := range a.Storage {
			if !storageBackends[backend] {
				return fmt.Errorf("activity %s: unknown storage backend %q", a.ID, backend)
			}
		}
		if a.Fallback != "" && a.Fallback != "template" {
			return fmt.Errorf("activity %s: unknown fallback %q", a.ID, a.Fallback)
		}
		if a.Fallback != "" && !a.UsesGenerator {
			return fmt.Errorf("activity %s: fallback set but the activity does not use the generator", a.ID)
		}
		if len(a.InputSchema) > 0 {
			raw, err := json.Marshal(a.InputSchema)
			if err != nil {
				return fmt.Errorf("activity %s: %w", a.ID, err)
			}
			schema, err := validation.GetSchemaFromJSON(string(raw))
			if err != nil {
				return fmt.Errorf("activity %s: %w", a.ID, err)
			}
			if _, err := validation.Compile(schema); err != nil {
				return fmt.Errorf("activity %s: input schema: %w", a.ID, err)
			}
		}
	}
	return nil
}

// SchemaMap converts a worker input schema into the registry's generic form.
func SchemaMap(schema validation.JSONSchema) (map[string]interface{}, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
