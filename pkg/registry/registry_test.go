package registry

import (
	"path/filepath"
	"testing"

	"edu-content-workers/internal/common/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quizActivity(t *testing.T) Activity {
	t.Helper()
	schema, err := SchemaMap(validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId"},
		Properties: map[string]validation.Property{
			"userId": {Type: "integer", Minimum: validation.Float(1)},
		},
		AdditionalProperties: true,
	})
	require.NoError(t, err)

	return Activity{
		ID:                   "generate-quiz",
		DisplayName:          "Generate Quiz",
		Category:             "generation",
		Version:              "1.0.0",
		TaskType:             "generate-quiz",
		ImplementationStatus: "completed",
		InputSchema:          schema,
		Timeout:              "180s",
		UsesGenerator:        true,
		Fallback:             "template",
		Storage:              []string{"postgres"},
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	reg := &ActivityRegistry{Version: "1.0.0"}
	reg.Upsert(quizActivity(t))

	require.NoError(t, reg.Save(path))
	assert.NotEmpty(t, reg.LastUpdated)

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, loaded.Activities, 1)
	assert.Equal(t, "generate-quiz", loaded.Find("generate-quiz").TaskType)
	assert.Equal(t, []interface{}{"userId"}, loaded.Activities[0].InputSchema["required"])
	assert.NoError(t, loaded.Validate())
}

func TestUpsertReplaces(t *testing.T) {
	reg := &ActivityRegistry{}
	a := quizActivity(t)
	reg.Upsert(a)

	a.ImplementationStatus = "verified"
	reg.Upsert(a)

	require.Len(t, reg.Activities, 1)
	assert.Equal(t, "verified", reg.Activities[0].ImplementationStatus)
	assert.Nil(t, reg.Find("grade-quiz"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Activity)
		wantErr string
	}{
		{"bad task type", func(a *Activity) { a.TaskType = "GenerateQuiz" }, "task type"},
		{"unknown status", func(a *Activity) { a.ImplementationStatus = "done" }, "implementation status"},
		{"bad timeout", func(a *Activity) { a.Timeout = "three minutes" }, "invalid timeout"},
		{"missing category", func(a *Activity) { a.Category = "" }, "Category"},
		{"unknown storage", func(a *Activity) { a.Storage = []string{"s3"} }, "storage backend"},
		{"unknown fallback", func(a *Activity) { a.Fallback = "cache" }, "unknown fallback"},
		{"fallback without generator", func(a *Activity) { a.UsesGenerator = false }, "does not use the generator"},
		{"broken schema", func(a *Activity) { a.InputSchema = map[string]interface{}{"type": 42} }, "activity generate-quiz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := quizActivity(t)
			tt.mutate(&a)
			reg := &ActivityRegistry{Activities: []Activity{a}}
			err := reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Duplicates(t *testing.T) {
	a := quizActivity(t)
	reg := &ActivityRegistry{Activities: []Activity{a, a}}
	assert.ErrorContains(t, reg.Validate(), "duplicate activity ID")

	assert.ErrorContains(t, (&ActivityRegistry{}).Validate(), "no activities")
}
