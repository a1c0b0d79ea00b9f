// pkg/registry/schema.go
package registry

// ActivityRegistry is the catalogue of task types the workers implement,
// kept in configs/activity-registry.json for BPMN authors.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one task type. InputSchema is generated from the
// worker package; Workflows and Tags are edited by hand.
type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`

	// UsesGenerator marks activities that call the text generator.
	UsesGenerator bool `json:"usesGenerator"`
	// Fallback is what the worker returns when the generator is not
	// configured: "template", or empty when it fails instead.
	Fallback string `json:"fallback,omitempty"`
	// Storage lists the backends written: "postgres", "redis".
	Storage []string `json:"storage"`

	Workflows []string `json:"workflows"`
	Tags      []string `json:"tags"`
}
