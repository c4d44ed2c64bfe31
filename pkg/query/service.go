package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/istat-census/pkg/catalog"
	"github.com/hazyhaar/istat-census/pkg/llm"
	"github.com/hazyhaar/istat-census/pkg/population"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

// ErrNoResults means the query produced no data: the model did not call a
// tool, the arguments were unusable, the statistics service failed or
// answered with no observations.
var ErrNoResults = errors.New("no results")

// Query outcomes reported to the Observer.
const (
	OutcomeOK          = "ok"
	OutcomeNoResults   = "no_results"
	OutcomeConfigError = "config_error"
	OutcomeError       = "error"
)

// Observer receives the outcome of every query.
type Observer interface {
	ObserveQuery(outcome string, elapsed time.Duration, tokens int)
}

// Service answers population questions.
type Service struct {
	llm       llm.Client
	modelErr  error
	tools     *Toolbox
	locations LocationLister
	logger    *slog.Logger
	observer  Observer
}

// NewService wires the model, the tool registry and the location catalog.
// client may be nil when no model is configured; every query then fails
// with a configuration error. observer may be nil.
func NewService(client llm.Client, tools *Toolbox, locations LocationLister, logger *slog.Logger, observer Observer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		llm:       client,
		tools:     tools,
		locations: locations,
		logger:    logger.With("component", "query"),
		observer:  observer,
	}
}

// WithModelError records why no model could be built. Queries of a Service
// without a client then fail with it, so the missing settings are named.
func (s *Service) WithModelError(err error) *Service {
	var ce *llm.ConfigurationError
	if err != nil && !errors.As(err, &ce) {
		err = &llm.ConfigurationError{Reason: err.Error()}
	}
	s.modelErr = err
	return s
}

// Answer resolves prompt into a census document. It returns ErrNoResults
// when there is nothing to show and *llm.ConfigurationError when the model
// cannot be used or calls an undeclared tool.
func (s *Service) Answer(ctx context.Context, prompt string) (*Response, error) {
	start := time.Now()
	tokens := 0
	resp, err := s.answer(ctx, prompt, &tokens)
	elapsed := time.Since(start)

	outcome := OutcomeOK
	var ce *llm.ConfigurationError
	switch {
	case err == nil:
		resp.RequestDuration = elapsed.Milliseconds()
		resp.RequestTokens = tokens
	case errors.Is(err, ErrNoResults):
		outcome = OutcomeNoResults
	case errors.As(err, &ce):
		outcome = OutcomeConfigError
	default:
		outcome = OutcomeError
	}
	if s.observer != nil {
		s.observer.ObserveQuery(outcome, elapsed, tokens)
	}
	s.logger.Info("query", "outcome", outcome, "tokens", tokens, "duration", elapsed)
	return resp, err
}

func (s *Service) answer(ctx context.Context, prompt string, tokens *int) (*Response, error) {
	if s.llm == nil {
		if s.modelErr != nil {
			return nil, s.modelErr
		}
		return nil, &llm.ConfigurationError{Reason: "no model configured"}
	}
	system, err := LocationPrompt(s.locations)
	if err != nil {
		return nil, err
	}
	defs, err := s.tools.Definitions()
	if err != nil {
		return nil, err
	}

	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
		{Role: llm.RoleSystem, Content: system},
	}
	first, err := s.llm.Complete(ctx, msgs, llm.Options{})
	if err != nil {
		return nil, fmt.Errorf("resolve locations: %w", err)
	}
	*tokens += first.TotalTokens
	ids := cleanLocationIDs(first.Text)
	s.logger.Debug("locations resolved", "ids", ids, "text", first.Text)
	msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: ids})

	second, err := s.llm.Complete(ctx, msgs, llm.Options{Tools: defs, ToolChoice: llm.ToolChoiceAuto})
	if err != nil {
		return nil, fmt.Errorf("extract arguments: %w", err)
	}
	*tokens += second.TotalTokens
	if len(second.ToolCalls) == 0 {
		s.logger.Info("model answered without a tool call", "text", second.Text)
		return nil, ErrNoResults
	}

	call := second.ToolCalls[0]
	s.logger.Debug("tool call", "tool", call.Name, "arguments", string(call.Arguments))
	out, err := s.tools.Call(ctx, call.Name, call.Arguments)
	if err != nil {
		var ae *ArgumentError
		if errors.As(err, &ae) || sdmx.IsNetwork(err) || sdmx.IsParse(err) {
			s.logger.Warn("tool call failed", "tool", call.Name, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrNoResults, err)
		}
		return nil, err
	}

	res, ok := out.(*population.Result)
	if !ok || res == nil || len(res.Rows) == 0 {
		return nil, ErrNoResults
	}
	return BuildResponse(res), nil
}

// cleanLocationIDs keeps the territorial code of every '+'-separated part of
// the model's answer. An answer without any code is returned trimmed.
func cleanLocationIDs(text string) string {
	var ids []string
	for _, part := range strings.Split(text, "+") {
		if id, ok := catalog.CleanLocationID(strings.TrimSpace(part)); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.Join(ids, "+")
}
