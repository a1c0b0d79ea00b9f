package generateflashcards

import (
	"context"
	stderrors "errors"
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

const TaskType = "generate-flashcards"

const systemPrompt = "You write study flashcards. Answer with a single JSON object and nothing else."

var cardFields = []llmjson.Field{
	{Name: "question", Kind: llmjson.KindString, Required: true},
	{Name: "answer", Kind: llmjson.KindString, Required: true},
	{Name: "explanation", Kind: llmjson.KindString, Required: true},
}

var cardPattern = llmjson.MustItemPattern("cards", cardFields...)

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

// Execute generates the deck for a session and replaces any previous one.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	session, err := h.store.GetSession(ctx, input.SessionID)
	if stderrors.Is(err, store.ErrNotFound) || (err == nil && session.CreatorID != input.UserID) {
		return nil, errors.NewResourceNotFoundError("game session", fmt.Sprintf("session %d", input.SessionID))
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("load game session", err)
	}

	numCards := session.NumCards
	if numCards > h.config.MaxCards {
		numCards = h.config.MaxCards
	}

	log := h.logger.With(map[string]interface{}{
		"sessionId": session.ID,
		"numCards":  numCards,
	})

	var (
		cards    []store.Card
		warning  string
		salvaged bool
	)

	if h.generator == nil {
		log.Warn("Text generator unavailable, using template cards", nil)
		metrics.RecordFallback(TaskType)
		cards = templateCards(numCards, session.Topic)
		warning = "Text generation is unavailable, template cards were used"
	} else {
		text := material.Normalize(session.MaterialText, h.config.MaterialChars)
		raw, err := h.generator.Complete(ctx, genai.Request{
			System:      systemPrompt,
			Prompt:      buildPrompt(session, numCards, text),
			Temperature: h.config.Temperature,
			MaxTokens:   h.config.MaxTokens,
		})
		if err != nil {
			return nil, genai.JobError(err)
		}

		res, err := llmjson.Decode(raw, llmjson.Schema{
			Key:      "cards",
			Fields:   cardFields,
			MaxItems: numCards,
			MinItems: h.config.MinValidItems,
			Salvage:  cardPattern.WithMinItems(h.config.MinValidItems),
		}, h.config.decodeOptions()...)
		metrics.RecordDecode(TaskType, res, err)
		if err != nil {
			log.Warn("Model response rejected", map[string]interface{}{"reason": string(llmjson.ReasonOf(err)), "error": err.Error()})
			return nil, errors.FromExtraction(err)
		}

		cards = toCards(res.Items)
		salvaged = res.Salvaged
	}

	if err := h.store.ReplaceCards(ctx, session.ID, cards); err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	log.Info("Flashcards stored", map[string]interface{}{"cards": len(cards), "salvaged": salvaged})

	return &Output{
		SessionID:  session.ID,
		CardsCount: len(cards),
		Salvaged:   salvaged,
		Warning:    warning,
	}, nil
}

func toCards(items []map[string]interface{}) []store.Card {
	cards := make([]store.Card, 0, len(items))
	for _, it := range items {
		c := store.Card{}
		c.Question, _ = it["question"].(string)
		c.Answer, _ = it["answer"].(string)
		c.Explanation, _ = it["explanation"].(string)
		cards = append(cards, c)
	}
	return cards
}

func templateCards(n int, topic string) []store.Card {
	cards := make([]store.Card, n)
	for i := range cards {
		cards[i] = store.Card{
			Question:    fmt.Sprintf("Question %d on %s", i+1, topic),
			Answer:      fmt.Sprintf("Answer to question %d", i+1),
			Explanation: fmt.Sprintf("Explanation for question %d", i+1),
		}
	}
	return cards
}

func buildPrompt(s *store.Session, numCards int, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create %d flashcards as JSON.\n\nSUBJECT: %s\nTOPIC: %s\n", numCards, s.Subject, s.Topic)
	if text != "" {
		b.WriteString("\nUse this study material:\n")
		b.WriteString(text)
		b.WriteString("\n")
	}
	b.WriteString("\nRequirements:\n")
	b.WriteString("1. Output only valid JSON, no markdown and no commentary.\n")
	b.WriteString("2. Every card has a short \"question\", a precise \"answer\" and a one sentence \"explanation\".\n\n")
	b.WriteString("Format:\n")
	b.WriteString(`{"cards":[{"question":"Q1","answer":"A1","explanation":"E1"}]}`)
	b.WriteString("\n\nStart with {:")
	return b.String()
}
