package generatetrainingprogram

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

const TaskType = "generate-training-program"

const systemPrompt = "You are a fitness coach writing weekly training programs. Answer with a single JSON object and nothing else."

const restDay = "rest"

type Handler struct {
	config    *Config
	logger    logger.Logger
	generator genai.TextGenerator
	drafts    *store.Drafts
	runner    *camunda.Runner
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Generator     genai.TextGenerator
	Drafts        *store.Drafts
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Drafts == nil {
		return nil, fmt.Errorf("%s: draft store is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:    cfg,
		logger:    log,
		generator: opts.Generator,
		drafts:    opts.Drafts,
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

	input.Goal = strings.TrimSpace(input.Goal)
	if input.Goal == "" {
		return nil, errors.NewInvalidInputError("goal must not be blank")
	}
	if strings.TrimSpace(input.Level) == "" {
		input.Level = h.config.DefaultLevel
	}
	if strings.TrimSpace(input.Duration) == "" {
		input.Duration = h.config.DefaultDuration
	}
	return &input, nil
}

// Execute generates a program and keeps it as a draft until the user saves it.
// A response that cannot be parsed falls back to a template program.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	log := h.logger.With(map[string]interface{}{
		"userId": input.UserID,
		"goal":   input.Goal,
	})

	var (
		program store.Program
		warning string
	)

	if h.generator == nil {
		log.Warn("Text generator unavailable, using template program", nil)
		metrics.RecordFallback(TaskType)
		program = templateProgram(input)
		warning = "Text generation is unavailable, a template program was used"
	} else {
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
			metrics.RecordFallback(TaskType)
			log.Warn("Model response rejected, using template program", map[string]interface{}{"reason": string(llmjson.ReasonOf(err)), "error": err.Error()})
			program = templateProgram(input)
			warning = "The model returned invalid JSON, a template program was used"
		} else {
			metrics.RecordDecode(TaskType, &llmjson.Result{Strategy: ext.Strategy}, nil)
			program = normalizeProgram(ext.Object, input)
		}
	}
	program.UserID = input.UserID

	draftID, err := h.drafts.Save(ctx, program)
	if err != nil {
		return nil, errors.NewDraftStoreFailedError(err)
	}

	log.Info("Training program drafted", map[string]interface{}{"draftId": draftID, "title": program.Title})

	return &Output{DraftID: draftID, Program: program, Warning: warning}, nil
}

// normalizeProgram fills title and duration and pads the schedule to all
// seven weekdays.
func normalizeProgram(obj map[string]interface{}, input *Input) store.Program {
	p := store.Program{
		Title:    stringOr(obj["title"], input.Goal+" program"),
		Duration: stringOr(obj["duration"], input.Duration),
		Schedule: map[string][]string{},
	}

	if raw, ok := obj["schedule"].(map[string]interface{}); ok {
		for day, v := range raw {
			key := strings.ToLower(strings.TrimSpace(day))
			p.Schedule[key] = exercises(v)
		}
	}
	padSchedule(p.Schedule)
	return p
}

func padSchedule(schedule map[string][]string) {
	for _, day := range store.Weekdays {
		if _, ok := schedule[day]; ok {
			continue
		}
		if day == "sunday" {
			schedule[day] = []string{restDay}
		} else {
			schedule[day] = []string{}
		}
	}
}

func exercises(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func stringOr(v interface{}, def string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

func templateProgram(input *Input) store.Program {
	schedule := map[string][]string{
		"monday":    {input.Goal + ": light session, 30 min"},
		"wednesday": {input.Goal + ": moderate session, 30-45 min"},
		"friday":    {input.Goal + ": intense session, 30-45 min"},
	}
	padSchedule(schedule)
	return store.Program{
		Title:    fmt.Sprintf("%s program (%s)", input.Goal, input.Level),
		Duration: input.Duration,
		Schedule: schedule,
	}
}

func buildPrompt(input *Input) string {
	var b strings.Builder
	b.WriteString("Create a weekly training program as JSON.\n\n")
	fmt.Fprintf(&b, "Goal: %s\nLevel: %s\nDuration: %s\n", input.Goal, input.Level, input.Duration)
	if prefs := strings.TrimSpace(input.Preferences); prefs != "" {
		fmt.Fprintf(&b, "\nAdditional wishes, follow them:\n%s\n", prefs)
	}
	b.WriteString("\nRequirements:\n")
	b.WriteString("1. Output only valid JSON, no text before or after.\n")
	b.WriteString("2. \"schedule\" has all seven days, monday to sunday, in lower case.\n")
	b.WriteString("3. Each day is an array of exercises such as \"squats - 3x10\".\n")
	b.WriteString("4. \"title\" names the program; the load matches the level and goal.\n\n")
	b.WriteString("Format:\n")
	fmt.Fprintf(&b, `{"title":"Program name","duration":%q,"schedule":{"monday":["push-ups - 3x10"],"tuesday":["lunges - 2x12"],"wednesday":["squats - 3x12"],"thursday":["plank - 3x30s"],"friday":["push-ups - 3x10"],"saturday":["jogging - 20 min"],"sunday":["rest or stretching"]}}`, input.Duration)
	b.WriteString("\n\nStart with {:")
	return b.String()
}
