package generatequiz

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
	"edu-content-workers/internal/common/material"
	"edu-content-workers/internal/common/metrics"
	"edu-content-workers/internal/common/observability"
	"edu-content-workers/internal/common/validation"
	"edu-content-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "generate-quiz"

const systemPrompt = "You write multiple choice tests for students. Answer with a single JSON object and nothing else."

var questionFields = []llmjson.Field{
	{Name: "question", Kind: llmjson.KindString, Required: true},
	{Name: "options", Kind: llmjson.KindStringArray, Required: true, Length: 4},
	{Name: "correct", Kind: llmjson.KindChoice, Required: true, Min: 0, Max: 3, Default: 0},
	{Name: "explanation", Kind: llmjson.KindText, Required: true, MinLength: 30, Fallback: correctAnswerExplanation},
}

var questionPattern = llmjson.MustItemPattern("questions", questionFields...)

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

	input.Subject = strings.TrimSpace(input.Subject)
	input.Topic = strings.TrimSpace(input.Topic)
	if input.Subject == "" && strings.TrimSpace(input.CustomText) == "" {
		return nil, errors.NewInvalidInputError("subject or customText is required")
	}
	if input.NumQuestions == 0 {
		input.NumQuestions = h.config.DefaultQuestions
	}
	if input.NumQuestions > h.config.MaxQuestions {
		input.NumQuestions = h.config.MaxQuestions
	}
	return &input, nil
}

// Execute generates, validates and stores one quiz.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	text := material.Normalize(input.CustomText, h.config.MaterialChars)

	subject, topic := input.Subject, input.Topic
	if text != "" {
		subject, topic = customSubject, customTopic
	}

	log := h.logger.With(map[string]interface{}{
		"userId":       input.UserID,
		"numQuestions": input.NumQuestions,
	})

	var (
		questions []store.QuizQuestion
		warning   string
		salvaged  bool
	)

	if h.generator == nil {
		log.Warn("Text generator unavailable, using template questions", nil)
		metrics.RecordFallback(TaskType)
		questions = templateQuestions(input.NumQuestions, input.Topic)
		warning = "Text generation is unavailable, template questions were used"
	} else {
		raw, err := h.generator.Complete(ctx, genai.Request{
			System:      systemPrompt,
			Prompt:      buildPrompt(input, text),
			Temperature: h.config.Temperature,
			MaxTokens:   h.config.MaxTokens,
		})
		if err != nil {
			return nil, genai.JobError(err)
		}

		res, err := llmjson.Decode(raw, h.schema(input.NumQuestions), h.config.decodeOptions()...)
		metrics.RecordDecode(TaskType, res, err)
		if err != nil {
			log.Warn("Model response rejected", map[string]interface{}{"reason": string(llmjson.ReasonOf(err)), "error": err.Error()})
			return nil, errors.FromExtraction(err)
		}

		questions = toQuestions(res.Items)
		salvaged = res.Salvaged
		if len(res.Dropped) > 0 {
			log.Info("Dropped invalid questions", map[string]interface{}{"dropped": res.Dropped, "kept": len(questions)})
		}
	}

	testID, err := h.store.CreateTest(ctx, input.UserID, subject, topic, questions)
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	log.Info("Quiz stored", map[string]interface{}{"testId": testID, "questions": len(questions), "salvaged": salvaged})

	return &Output{
		TestID:         testID,
		QuestionsCount: len(questions),
		Salvaged:       salvaged,
		Warning:        warning,
	}, nil
}

func (h *Handler) schema(numQuestions int) llmjson.Schema {
	return llmjson.Schema{
		Key:      "questions",
		Fields:   questionFields,
		MaxItems: numQuestions,
		MinItems: h.config.MinValidItems,
		Salvage:  questionPattern.WithMinItems(h.config.MinValidItems),
	}
}

func correctAnswerExplanation(item map[string]interface{}) string {
	options, _ := item["options"].([]string)
	correct, _ := item["correct"].(int)
	if correct >= 0 && correct < len(options) {
		return fmt.Sprintf("Correct answer: %s.", options[correct])
	}
	return "Correct answer."
}

func toQuestions(items []map[string]interface{}) []store.QuizQuestion {
	questions := make([]store.QuizQuestion, 0, len(items))
	for _, it := range items {
		q := store.QuizQuestion{}
		q.Question, _ = it["question"].(string)
		q.Options, _ = it["options"].([]string)
		q.Correct, _ = it["correct"].(int)
		q.Explanation, _ = it["explanation"].(string)
		questions = append(questions, q)
	}
	return questions
}

func templateQuestions(n int, topic string) []store.QuizQuestion {
	if topic == "" {
		topic = "general knowledge"
	}
	questions := make([]store.QuizQuestion, n)
	for i := range questions {
		options := []string{"Option A", "Option B", "Option C", "Option D"}
		questions[i] = store.QuizQuestion{
			Question:    fmt.Sprintf("Question %d on %s", i+1, topic),
			Options:     options,
			Correct:     1,
			Explanation: fmt.Sprintf("The correct answer is %s (the second option).", options[1]),
		}
	}
	return questions
}

func buildPrompt(input *Input, text string) string {
	format := `{"questions":[{"question":"Q1","options":["A","B","C","D"],"correct":0,"explanation":"E1"}]}`

	var b strings.Builder
	if text != "" {
		fmt.Fprintf(&b, "Create a JSON test with %d questions about the text below.\n\n", input.NumQuestions)
	} else {
		fmt.Fprintf(&b, "Create a JSON test with %d questions.\n\nSUBJECT: %s\nTOPIC: %s\n\n", input.NumQuestions, input.Subject, input.Topic)
	}
	b.WriteString("Requirements:\n")
	b.WriteString("1. Output only valid JSON starting with { and ending with }, no markdown and no commentary.\n")
	b.WriteString("2. \"options\" is an array of exactly 4 strings.\n")
	b.WriteString("3. \"correct\" is the index of the right option: 0, 1, 2 or 3.\n")
	b.WriteString("4. \"explanation\" says in one or two sentences why the answer is right.\n\n")
	b.WriteString("Format:\n")
	b.WriteString(format)
	if text != "" {
		b.WriteString("\n\nTEXT:\n")
		b.WriteString(text)
	}
	b.WriteString("\n\nStart with {:")
	return b.String()
}
