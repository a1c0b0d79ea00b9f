package gradequiz

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strconv"

	"edu-content-workers/internal/common/camunda"
	"edu-content-workers/internal/common/config"
	"edu-content-workers/internal/common/errors"
	"edu-content-workers/internal/common/logger"
	"edu-content-workers/internal/common/observability"
	"edu-content-workers/internal/common/validation"
	"edu-content-workers/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "grade-quiz"

type Handler struct {
	config *Config
	logger logger.Logger
	store  *store.Store
	runner *camunda.Runner
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
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
		config: cfg,
		logger: log,
		store:  opts.Store,
		runner: camunda.NewRunner(TaskType, cfg.Timeout, log, opts.Observability),
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

// Execute scores the answers against the stored quiz and records the score.
// Quizzes of other users are reported as not found.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	quiz, err := h.store.GetTest(ctx, input.TestID)
	if stderrors.Is(err, store.ErrNotFound) || (err == nil && quiz.UserID != input.UserID) {
		return nil, errors.NewResourceNotFoundError("quiz", fmt.Sprintf("test %d", input.TestID))
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("load quiz", err)
	}

	correct := 0
	for i, q := range quiz.Questions {
		if answer, ok := chosenOption(input.Answers[strconv.Itoa(i)]); ok && answer == q.Correct {
			correct++
		}
	}

	out := &Output{Correct: correct, Total: len(quiz.Questions)}
	if out.Total > 0 {
		out.Score = int(math.Round(float64(correct) / float64(out.Total) * 100))
	}

	if err := h.store.SetScore(ctx, quiz.ID, out.Score); err != nil {
		return nil, errors.NewQueryExecutionFailedError("update score", err)
	}

	h.logger.Info("Quiz graded", map[string]interface{}{
		"testId":  quiz.ID,
		"userId":  input.UserID,
		"score":   out.Score,
		"correct": correct,
		"total":   out.Total,
	})
	return out, nil
}

// chosenOption accepts the index as a JSON number or numeric string.
func chosenOption(v interface{}) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	default:
		return 0, false
	}
}
