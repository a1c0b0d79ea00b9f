// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"edu-content-workers/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var path string

	root := &cobra.Command{
		Use:          "registry-updater",
		Short:        "Maintain the activity registry read by BPMN authors",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&path, "path", defaultRegistryPath, "Path to registry file")

	var status string
	sync := &cobra.Command{
		Use:   "sync",
		Short: "Write worker task types and input schemas into the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return syncRegistry(path, status)
		},
	}
	sync.Flags().StringVar(&status, "status", "completed", "Implementation status for synced activities")

	var id, field, value string
	update := &cobra.Command{
		Use:     "update",
		Short:   "Update an existing activity's field",
		Example: "  registry-updater update --id generate-quiz --field status --value verified",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateActivity(path, id, field, value)
		},
	}
	update.Flags().StringVar(&id, "id", "", "Activity ID to update")
	update.Flags().StringVar(&field, "field", "", "Field to update (status, version, timeout, retries, ...)")
	update.Flags().StringVar(&value, "value", "", "New value for the field")
	for _, name := range []string{"id", "field", "value"} {
		_ = update.MarkFlagRequired(name)
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the registry file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateRegistry(path)
		},
	}

	root.AddCommand(sync, update, validate)
	return root
}

// syncRegistry writes every worker's task type and input schema into the
// registry, keeping fields maintained by hand such as workflows and tags.
func syncRegistry(path, status string) error {
	reg, err := registry.LoadRegistry(path)
	if os.IsNotExist(err) {
		reg, err = &registry.ActivityRegistry{Version: "1.0.0"}, nil
	}
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	for _, w := range workers {
		schema, err := registry.SchemaMap(w.schema())
		if err != nil {
			return fmt.Errorf("%s: %w", w.taskType, err)
		}

		a := registry.Activity{
			ID:           w.taskType,
			Version:      "1.0.0",
			Workflows:    []string{},
			Tags:         []string{"generation"},
			OutputSchema: map[string]interface{}{},
		}
		if existing := reg.Find(w.taskType); existing != nil {
			a = *existing
		}
		a.DisplayName = w.displayName
		a.Description = w.description
		a.Category = "generation"
		a.TaskType = w.taskType
		a.ImplementationStatus = status
		a.InputSchema = schema
		a.ErrorCodes = w.errorCodes
		a.Timeout = w.timeout
		a.UsesGenerator = w.generator
		a.Fallback = w.fallback
		a.Storage = w.storage
		reg.Upsert(a)
		fmt.Printf("Synced activity: %s\n", w.taskType)
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	return reg.Save(path)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	a := reg.Find(id)
	if a == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "timeout":
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	if err := reg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Updated activity %s, field %s to %s\n", id, field, value)
	return nil
}

func validateRegistry(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}
