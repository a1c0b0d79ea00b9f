package savetrainingprogram

import (
	"context"
	stderrors "errors"
	"fmt"

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

const TaskType = "save-training-program"

type Handler struct {
	config *Config
	logger logger.Logger
	store  *store.Store
	drafts *store.Drafts
	runner *camunda.Runner
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Store         *store.Store
	Drafts        *store.Drafts
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Store == nil || opts.Drafts == nil {
		return nil, fmt.Errorf("%s: store and draft store are required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	return &Handler{
		config: cfg,
		logger: log,
		store:  opts.Store,
		drafts: opts.Drafts,
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

// Execute moves a draft into training_programs. The draft is removed only
// after the insert succeeded.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	program, err := h.drafts.Load(ctx, input.DraftID)
	if stderrors.Is(err, store.ErrNotFound) || (err == nil && program.UserID != input.UserID) {
		return nil, errors.NewDraftNotFoundError(input.DraftID)
	}
	if err != nil {
		return nil, errors.NewDraftStoreFailedError(err)
	}

	id, err := h.store.CreateProgram(ctx, *program)
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	if err := h.drafts.Delete(ctx, input.DraftID); err != nil {
		// the draft expires on its own
		h.logger.Warn("Failed to delete saved draft", map[string]interface{}{"draftId": input.DraftID, "error": err.Error()})
	}

	h.logger.Info("Training program saved", map[string]interface{}{"programId": id, "userId": input.UserID})
	return &Output{ProgramID: id, Title: program.Title}, nil
}
