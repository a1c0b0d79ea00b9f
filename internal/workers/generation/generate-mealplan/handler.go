package generatemealplan

import (
	"context"
	"fmt"
	"math"
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

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "generate-mealplan"

const systemPrompt = "You are a nutritionist planning a day of meals. Answer with a single JSON object and nothing else."

var mealFields = []llmjson.Field{
	{Name: "meal_type", Kind: llmjson.KindString, Required: true},
	{Name: "food_items", Kind: llmjson.KindStringArray, Required: true},
	{Name: "calories", Kind: llmjson.KindInt},
	{Name: "proteins", Kind: llmjson.KindInt},
	{Name: "fats", Kind: llmjson.KindInt},
	{Name: "carbs", Kind: llmjson.KindInt},
}

var mealPattern = llmjson.MustItemPattern("meals", mealFields...)

var defaultMealTypes = []string{"Breakfast", "Lunch", "Dinner", "Snack"}

// Handler plans meals. Plans are returned to the process and not stored.
type Handler struct {
	config    *Config
	logger    logger.Logger
	generator genai.TextGenerator
	runner    *camunda.Runner
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Generator     genai.TextGenerator
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:    cfg,
		logger:    log,
		generator: opts.Generator,
		runner:    camunda.NewRunner(TaskType, cfg.Timeout, log, opts.Observability),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Handle(client, job, func(ctx context.Context, variables map[string]interface{}) (interface{}, error) {
		input, err := h.parseInput(variables)
		if err != nil {
			return nil, err
		}
		return h.Execute(ctx, input)
	})
}

func (h *Handler) parseInput(variables map[string]interface{}) (*Input, error) {
	var input Input
	if err := validation.ParseInput(variables, GetInputSchema(), &input); err != nil {
		return nil, err
	}
	if input.CaloriesTarget == 0 {
		input.CaloriesTarget = h.config.DefaultCalories
	}
	if input.MealsCount == 0 {
		input.MealsCount = h.config.DefaultMeals
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	log := h.logger.With(map[string]interface{}{
		"userId":     input.UserID,
		"mealsCount": input.MealsCount,
	})

	if h.generator == nil {
		log.Warn("Text generator unavailable, using template plan", nil)
		metrics.RecordFallback(TaskType)
		meals := templateMeals(input.MealsCount, input.CaloriesTarget)
		return &Output{
			Meals:         meals,
			TotalCalories: totalCalories(meals),
			Warning:       "Text generation is unavailable, a template plan was used",
		}, nil
	}

	raw, err := h.generator.Complete(ctx, genai.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(input),
		Temperature: h.config.Temperature,
		MaxTokens:   h.config.MaxTokens,
	})
	if err != nil {
		return nil, genai.JobError(err)
	}

	res, err := llmjson.Decode(raw, llmjson.Schema{
		Key:      "meals",
		Fields:   mealFields,
		MaxItems: input.MealsCount,
		MinItems: h.config.MinValidItems,
		Salvage:  mealPattern.WithMinItems(h.config.MinValidItems),
	}, h.config.decodeOptions()...)
	metrics.RecordDecode(TaskType, res, err)
	if err != nil {
		log.Warn("Model response rejected", map[string]interface{}{"reason": string(llmjson.ReasonOf(err)), "error": err.Error()})
		return nil, errors.FromExtraction(err)
	}

	meals := toMeals(res.Items)
	log.Info("Meal plan generated", map[string]interface{}{"meals": len(meals), "salvaged": res.Salvaged})

	return &Output{
		Meals:         meals,
		TotalCalories: totalCalories(meals),
		Salvaged:      res.Salvaged,
	}, nil
}

func toMeals(items []map[string]interface{}) []Meal {
	meals := make([]Meal, 0, len(items))
	for _, it := range items {
		m := Meal{}
		m.MealType, _ = it["meal_type"].(string)
		m.FoodItems, _ = it["food_items"].([]string)
		m.Calories, _ = it["calories"].(int)
		m.Proteins, _ = it["proteins"].(int)
		m.Fats, _ = it["fats"].(int)
		m.Carbs, _ = it["carbs"].(int)
		meals = append(meals, m)
	}
	return meals
}

func templateMeals(n, calories int) []Meal {
	perMeal := int(math.Round(float64(calories) / float64(n)))
	meals := make([]Meal, n)
	for i := range meals {
		mealType := fmt.Sprintf("Meal %d", i+1)
		if i < len(defaultMealTypes) {
			mealType = defaultMealTypes[i]
		}
		meals[i] = Meal{
			MealType:  mealType,
			FoodItems: []string{fmt.Sprintf("Dish %dA", i+1), fmt.Sprintf("Dish %dB", i+1)},
			Calories:  perMeal,
			Proteins:  15,
			Fats:      10,
			Carbs:     30,
		}
	}
	return meals
}

func totalCalories(meals []Meal) int {
	total := 0
	for _, m := range meals {
		total += m.Calories
	}
	return total
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}

func buildPrompt(input *Input) string {
	var b strings.Builder
	b.WriteString("Plan one day of meals as JSON.\n\n")
	fmt.Fprintf(&b, "Meals: %d\nCalorie target: %d\nPreferences: %s\nRestrictions: %s\n\n",
		input.MealsCount, input.CaloriesTarget, orNone(input.Preferences), orNone(input.Restrictions))
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "1. \"meals\" holds exactly %d meals.\n", input.MealsCount)
	b.WriteString("2. Every meal has meal_type, food_items (products with grams or ml), calories, proteins, fats and carbs.\n")
	b.WriteString("3. Numbers are plain integers, not strings.\n")
	fmt.Fprintf(&b, "4. Calories add up to about %d.\n", input.CaloriesTarget)
	b.WriteString("5. Every meal respects the preferences and avoids the restrictions.\n\n")
	b.WriteString("Format:\n")
	b.WriteString(`{"meals":[{"meal_type":"Breakfast","food_items":["Omelette of 2 eggs 150g","Wholegrain bread 30g"],"calories":350,"proteins":20,"fats":15,"carbs":30}]}`)
	b.WriteString("\n\nStart with {:")
	return b.String()
}
