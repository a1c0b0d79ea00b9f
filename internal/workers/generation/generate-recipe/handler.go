package generaterecipe

import (
	"context"
	"fmt"
	"strings"

	"edu-content-workers/internal/common/camunda"
	"edu-content-workers/internal/common/config"
	"edu-content-workers/internal/common/errors"
	"edu-content-workers/internal/common/genai"
	"edu-content-workers/internal/common/llmjson"
	"edu-content-workers/internal/common/logger"
	"edu-content-workers/internal/common/metrics"
	"edu-content-workers/internal/common/observability"
	"edu-content-workers/internal/common/validation"
	"edu-content-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "generate-recipe"

const systemPrompt = "You are a chef writing precise recipes. Answer with a single JSON object and nothing else."

const defaultInstructions = "Cook according to the recipe."

var recipeFields = []llmjson.Field{
	{Name: "title", Kind: llmjson.KindString, Required: true},
	{Name: "ingredients", Kind: llmjson.KindStringArray, Required: true, Default: []string{}},
	{Name: "instructions", Kind: llmjson.KindText, Required: true, MinLength: 50, Default: defaultInstructions},
	{Name: "calories", Kind: llmjson.KindInt, Required: true},
	{Name: "proteins", Kind: llmjson.KindInt, Required: true},
	{Name: "fats", Kind: llmjson.KindInt, Required: true},
	{Name: "carbs", Kind: llmjson.KindInt, Required: true},
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	generator genai.TextGenerator
	store     *store.Store
	runner    *camunda.Runner
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Generator     genai.TextGenerator
	Store         *store.Store
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%s: store is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:    cfg,
		logger:    log,
		generator: opts.Generator,
		store:     opts.Store,
		runner:    camunda.NewRunner(TaskType, cfg.Timeout, log, opts.Observability),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Handle(client, job, func(ctx context.Context, variables map[string]interface{}) (interface{}, error) {
		var input Input
		if err := validation.ParseInput(variables, GetInputSchema(), &input); err != nil {
			return nil, err
		}
		return h.Execute(ctx, &input)
	})
}

// Execute generates one recipe and stores it pending cook approval.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	// a recipe has no sensible template
	if h.generator == nil {
		return nil, errors.NewGeneratorUnavailableError("recipe generation")
	}

	if input.MaxCalories == 0 {
		input.MaxCalories = h.config.DefaultMaxCalories
	}

	log := h.logger.With(map[string]interface{}{
		"userId":   input.UserID,
		"dishType": input.DishType,
	})

	raw, err := h.generator.Complete(ctx, genai.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(input),
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
	})
	if err != nil {
		return nil, genai.JobError(err)
	}

	ext, err := llmjson.Extract(raw, h.config.extractOptions()...)
	if err != nil {
		metrics.RecordDecode(TaskType, nil, err)
		log.Warn("Model response rejected", map[string]interface{}{"reason": string(llmjson.ReasonOf(err)), "error": err.Error()})
		return nil, errors.FromExtraction(err)
	}

	obj, err := llmjson.ValidateObject(ext.Object, recipeFields)
	if err != nil {
		metrics.RecordDecode(TaskType, nil, err)
		log.Warn("Recipe incomplete", map[string]interface{}{"error": err.Error()})
		return nil, errors.FromExtraction(err)
	}
	metrics.RecordDecode(TaskType, &llmjson.Result{Strategy: ext.Strategy}, nil)

	recipe := toRecipe(input.UserID, obj)
	id, err := h.store.CreateRecipe(ctx, recipe)
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	log.Info("Recipe stored", map[string]interface{}{
		"recipeId":    id,
		"ingredients": len(recipe.Ingredients),
		"calories":    recipe.Calories,
	})

	return &Output{RecipeID: id, Status: store.RecipeStatusPending, Recipe: recipe}, nil
}

func toRecipe(userID int64, obj map[string]interface{}) store.Recipe {
	r := store.Recipe{UserID: userID}
	r.Title, _ = obj["title"].(string)
	r.Ingredients, _ = obj["ingredients"].([]string)
	r.Instructions, _ = obj["instructions"].(string)
	r.Calories, _ = obj["calories"].(int)
	r.Proteins, _ = obj["proteins"].(int)
	r.Fats, _ = obj["fats"].(int)
	r.Carbs, _ = obj["carbs"].(int)
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	return r
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func buildPrompt(input *Input) string {
	var b strings.Builder
	b.WriteString("Write a recipe as JSON.\n\n")
	fmt.Fprintf(&b, "Dish: %s\nCuisine: %s\nDiet: %s\nMax calories: %d kcal\n",
		orDefault(input.DishType, "main course"),
		orDefault(input.Cuisine, "European"),
		orDefault(input.Dietary, "regular"),
		input.MaxCalories)
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		fmt.Fprintf(&b, "\nAdditional wishes, follow them:\n%s\n", notes)
	}
	b.WriteString("\nRequirements:\n")
	b.WriteString("1. Output only valid JSON, no markdown and no commentary.\n")
	b.WriteString("2. \"ingredients\" is an array of strings with exact quantities such as 200g.\n")
	b.WriteString("3. \"instructions\" is one text with numbered steps.\n")
	b.WriteString("4. calories, proteins, fats and carbs are plain numbers.\n")
	fmt.Fprintf(&b, "5. Total calories are close to %d.\n\n", input.MaxCalories)
	b.WriteString("Format:\n")
	b.WriteString(`{"title":"Dish name","ingredients":["200g chicken fillet","150g basmati rice"],"instructions":"1. Rinse the rice. 2. Boil it for 12 minutes. 3. Fry the chicken.","calories":450,"proteins":38,"fats":12,"carbs":45}`)
	b.WriteString("\n\nStart with {:")
	return b.String()
}
