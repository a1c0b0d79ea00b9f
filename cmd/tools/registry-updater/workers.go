package main

import (
	"edu-content-workers/internal/common/validation"
	gfc "edu-content-workers/internal/workers/generation/generate-flashcards"
	gmp "edu-content-workers/internal/workers/generation/generate-mealplan"
	gq "edu-content-workers/internal/workers/generation/generate-quiz"
	grc "edu-content-workers/internal/workers/generation/generate-recipe"
	gtp "edu-content-workers/internal/workers/generation/generate-training-program"
	grq "edu-content-workers/internal/workers/generation/grade-quiz"
	stp "edu-content-workers/internal/workers/generation/save-training-program"
)

// workerSpec is what sync copies from a worker package into the registry.
type workerSpec struct {
	taskType    string
	displayName string
	description string
	schema      func() validation.JSONSchema
	errorCodes  []string
	timeout     string
	generator   bool
	fallback    string
	storage     []string
}

var generationErrors = []string{
	"INVALID_INPUT", "LLM_TIMEOUT", "LLM_REQUEST_FAILED",
	"AI_RESPONSE_INVALID", "DATABASE_INSERT_FAILED",
}

var workers = []workerSpec{
	{gq.TaskType, "Generate Quiz", "Generates a multiple choice test and stores it for grading", gq.GetInputSchema, generationErrors, "180s", true, "template", []string{"postgres"}},
	{grq.TaskType, "Grade Quiz", "Scores submitted answers against a stored test", grq.GetInputSchema, []string{"INVALID_INPUT", "RESOURCE_NOT_FOUND", "QUERY_EXECUTION_FAILED"}, "10s", false, "", []string{"postgres"}},
	{gfc.TaskType, "Generate Flashcards", "Generates the card deck of a game session", gfc.GetInputSchema, append([]string{"RESOURCE_NOT_FOUND"}, generationErrors...), "180s", true, "template", []string{"postgres"}},
	{gmp.TaskType, "Generate Meal Plan", "Plans a day of meals for a calorie target", gmp.GetInputSchema, generationErrors[:4], "120s", true, "template", []string{}},
	{grc.TaskType, "Generate Recipe", "Generates a recipe pending cook approval", grc.GetInputSchema, append([]string{"GENERATOR_UNAVAILABLE"}, generationErrors...), "120s", true, "", []string{"postgres"}},
	{gtp.TaskType, "Generate Training Program", "Drafts a weekly training program", gtp.GetInputSchema, []string{"INVALID_INPUT", "LLM_TIMEOUT", "LLM_REQUEST_FAILED", "DRAFT_STORE_FAILED"}, "120s", true, "template", []string{"redis"}},
	{stp.TaskType, "Save Training Program", "Persists a drafted training program", stp.GetInputSchema, []string{"INVALID_INPUT", "DRAFT_NOT_FOUND", "DRAFT_STORE_FAILED", "DATABASE_INSERT_FAILED"}, "10s", false, "", []string{"postgres", "redis"}},
}
