package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/djvaroli/cinemai/internal/adapter"
	"github.com/djvaroli/cinemai/internal/graph"
	"github.com/djvaroli/cinemai/internal/memory"
	"github.com/djvaroli/cinemai/internal/prompts"
	"github.com/djvaroli/cinemai/internal/style"
	"github.com/djvaroli/cinemai/pkg/errors"
	"github.com/djvaroli/cinemai/pkg/logger"
)

// Composer turns a query result, or prior turns for memory-only answers, into
// a natural-language reply. The style profile shapes phrasing only; it never
// alters what the reply asserts.
type Composer struct {
	llm     adapter.Inference
	prompts *prompts.Library
	logger  *zap.Logger
}

// NewComposer creates a new result composer
func NewComposer(llm adapter.Inference, lib *prompts.Library) *Composer {
	return &Composer{
		llm:     llm,
		prompts: lib,
		logger:  logger.Get(),
	}
}

// Compose produces the reply for an utterance given a context block and the
// current style profile.
func (c *Composer) Compose(ctx context.Context, contextBlock, utterance string, profile *style.Profile) (string, error) {
	system, err := c.prompts.Render(prompts.TemplateSystem, map[string]any{
		"Directives": profile.Directives(),
	})
	if err != nil {
		return "", errors.NewCompositionFailed(err)
	}

	full, err := c.prompts.Render(prompts.TemplateCompose, map[string]any{
		"System":  system,
		"Context": contextBlock,
	})
	if err != nil {
		return "", errors.NewCompositionFailed(err)
	}

	reply, err := c.llm.Complete(ctx, full, utterance)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.NewCompositionFailed(err)
	}

	reply = strings.TrimSpace(reply)
	c.logger.Debug("reply composed", zap.Int("length", len(reply)))
	return reply, nil
}

// Context block framings, one per downstream path. These mirror the handlers
// the assistant routes responses through.

// DatabaseContext frames a query result for composition. The Unknown case is
// stated explicitly so the reply can never pass silence off as an answer.
func DatabaseContext(result graph.QueryResult) string {
	if result.Unknown {
		return "Context: the database legitimately has no answer to this question. The information is not available; say so clearly and politely, and do not invent one."
	}
	data, err := json.Marshal(result.Records)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", result.Records))
	}
	return fmt.Sprintf("Context: database response was %s", data)
}

// MemoryContext frames prior turns for a memory-only answer
func MemoryContext(turns []memory.Turn) string {
	return fmt.Sprintf("Context: respond using only this conversation history, nothing else:\n%s", FormatHistory(turns))
}

// FeedbackContext frames the outcome of feedback integration so the reply
// acknowledges it, or politely explains why it was not applied.
func FeedbackContext(outcome FeedbackOutcome) string {
	if outcome.Accepted {
		return "Context: the user provided feedback and it has been applied to future responses. Acknowledge it briefly and warmly."
	}
	return fmt.Sprintf("Context: the user provided feedback but it was not applied (%s). Politely explain why, without being defensive.", outcome.Reason)
}
