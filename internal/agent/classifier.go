package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/djvaroli/cinemai/internal/adapter"
	"github.com/djvaroli/cinemai/internal/memory"
	"github.com/djvaroli/cinemai/internal/prompts"
	"github.com/djvaroli/cinemai/pkg/errors"
	"github.com/djvaroli/cinemai/pkg/logger"
)

// Classification is the classifier's verdict on one utterance. For query
// turns, ContextHint names the prior entities or topics the new query depends
// on; it is empty when the query stands alone.
type Classification struct {
	Category    memory.Category
	ContextHint string
}

// Classifier assigns each incoming utterance one of the four categories using
// the recent conversation log as context. It has no side effects; it never
// touches memory itself.
type Classifier struct {
	llm     adapter.Inference
	prompts *prompts.Library
	logger  *zap.Logger
}

// NewClassifier creates a new intent classifier
func NewClassifier(llm adapter.Inference, lib *prompts.Library) *Classifier {
	return &Classifier{
		llm:     llm,
		prompts: lib,
		logger:  logger.Get(),
	}
}

// Classify assigns the utterance a category given the recent turns. An
// inference failure yields a classification error; no category is guessed in
// its place.
func (c *Classifier) Classify(ctx context.Context, utterance string, history []memory.Turn) (Classification, error) {
	system, err := c.prompts.Render(prompts.TemplateClassify, map[string]any{
		"History": FormatHistory(history),
	})
	if err != nil {
		return Classification{}, errors.NewClassificationUnavailable(utterance, err)
	}

	raw, err := c.llm.Complete(ctx, system, utterance)
	if err != nil {
		if ctx.Err() != nil {
			return Classification{}, ctx.Err()
		}
		return Classification{}, errors.NewClassificationUnavailable(utterance, err)
	}

	cls := parseClassification(raw)
	c.logger.Debug("utterance classified",
		zap.String("category", string(cls.Category)),
		zap.String("hint", cls.ContextHint),
	)
	return cls, nil
}

// parseClassification reads the tag letter leading the model output. For
// query turns the hint follows the tag after a colon. Output that carries no
// recognizable tag falls back to Irrelevant.
func parseClassification(raw string) Classification {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Classification{Category: memory.CategoryIrrelevant}
	}

	category := memory.Category(strings.ToUpper(trimmed[:1]))
	if !category.Valid() {
		return Classification{Category: memory.CategoryIrrelevant}
	}

	cls := Classification{Category: category}
	if category == memory.CategoryQuery {
		rest := trimmed[1:]
		if i := strings.Index(rest, ":"); i >= 0 {
			rest = rest[i+1:]
		}
		rest = strings.SplitN(rest, "\n", 2)[0]
		cls.ContextHint = strings.TrimSpace(rest)
	}
	return cls
}

// FormatHistory renders prior turns oldest-first for use in prompt context
func FormatHistory(turns []memory.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "User: %s\n", t.Utterance)
		fmt.Fprintf(&b, "Assistant: %s\n", t.Reply)
	}
	return strings.TrimSpace(b.String())
}
