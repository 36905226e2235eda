package agent

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/djvaroli/cinemai/internal/adapter"
	"github.com/djvaroli/cinemai/internal/prompts"
	"github.com/djvaroli/cinemai/internal/style"
	"github.com/djvaroli/cinemai/pkg/errors"
	"github.com/djvaroli/cinemai/pkg/logger"
)

// StyleUpdate is one (dimension, preference, justification) change extracted
// from a feedback utterance.
type StyleUpdate struct {
	Dimension     string `json:"dimension"`
	Preference    string `json:"preference"`
	Justification string `json:"justification,omitempty"`
}

// FeedbackOutcome is the result of interpreting a feedback utterance.
// Rejection is a normal outcome, not an error: the turn is still recorded,
// the profile just stays untouched.
type FeedbackOutcome struct {
	Accepted bool          `json:"accepted"`
	Reason   string        `json:"reason,omitempty"`
	Updates  []StyleUpdate `json:"updates,omitempty"`
}

// Integrator folds accepted feedback into the session's style profile.
// Accepted updates take effect from the next turn onward.
type Integrator struct {
	llm     adapter.Inference
	prompts *prompts.Library
	logger  *zap.Logger
}

// NewIntegrator creates a new feedback integrator
func NewIntegrator(llm adapter.Inference, lib *prompts.Library) *Integrator {
	return &Integrator{
		llm:     llm,
		prompts: lib,
		logger:  logger.Get(),
	}
}

// Integrate interprets the feedback utterance and, when actionable, applies
// its updates to the profile. turnSeq is recorded as provenance.
func (i *Integrator) Integrate(ctx context.Context, utterance string, profile *style.Profile, turnSeq int) (FeedbackOutcome, error) {
	system, err := i.prompts.Render(prompts.TemplateFeedback, nil)
	if err != nil {
		return FeedbackOutcome{}, errors.NewCompositionFailed(err)
	}

	raw, err := i.llm.Complete(ctx, system, utterance)
	if err != nil {
		if ctx.Err() != nil {
			return FeedbackOutcome{}, ctx.Err()
		}
		return FeedbackOutcome{}, errors.NewCompositionFailed(err)
	}

	outcome, err := parseFeedbackOutcome(raw)
	if err != nil {
		i.logger.Warn("unparseable feedback extraction, treating as not actionable",
			zap.Error(err),
			zap.String("raw", raw),
		)
		return FeedbackOutcome{Reason: "the feedback could not be mapped to a response dimension"}, nil
	}

	if outcome.Accepted && len(outcome.Updates) == 0 {
		// accepted but empty is not actionable
		outcome.Accepted = false
		if outcome.Reason == "" {
			outcome.Reason = "the feedback was too vague to map to a response dimension"
		}
	}

	if outcome.Accepted {
		for _, u := range outcome.Updates {
			profile.Set(u.Dimension, u.Preference, u.Justification, turnSeq)
		}
		i.logger.Info("feedback applied",
			zap.Int("updates", len(outcome.Updates)),
			zap.Int("turn_seq", turnSeq),
		)
	} else {
		i.logger.Info("feedback rejected", zap.String("reason", outcome.Reason))
	}

	return outcome, nil
}

func parseFeedbackOutcome(raw string) (FeedbackOutcome, error) {
	cleaned := stripCodeFences(raw)
	// tolerate prose around the object
	if start := strings.Index(cleaned, "{"); start >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}
	var outcome FeedbackOutcome
	if err := json.Unmarshal([]byte(cleaned), &outcome); err != nil {
		return FeedbackOutcome{}, err
	}
	return outcome, nil
}
