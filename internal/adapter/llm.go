// Package adapter wraps the inference service behind a narrow prompt-in,
// text-out boundary. Retry policy lives here, at the client, not in the
// turn-processing core.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/djvaroli/cinemai/pkg/logger"
)

// Inference is the capability consumed by the classifier, translator,
// composer, and feedback integrator: one blocking prompt round-trip.
type Inference interface {
	Complete(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

// LLMAdapter handles communication with the OpenAI-compatible inference service
type LLMAdapter struct {
	client      *openai.Client
	model       string
	temperature float32
	mu          sync.RWMutex // Protects model field for concurrent access
	logger      *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter. baseURL is optional; when empty the
// default OpenAI endpoint is used.
func NewLLMAdapter(apiKey, baseURL, model string, temperature float64) *LLMAdapter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &LLMAdapter{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: float32(temperature),
		logger:      logger.Get(),
	}
}

// SetModel updates the model used by this adapter
func (a *LLMAdapter) SetModel(model string) {
	if model != "" {
		a.mu.Lock()
		a.model = model
		a.mu.Unlock()
		a.logger.Debug("LLM adapter model updated", zap.String("model", model))
	}
}

// GetModel returns the current model
func (a *LLMAdapter) GetModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Complete sends one prompt round-trip to the inference service and returns
// the generated text.
func (a *LLMAdapter) Complete(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	a.mu.RLock()
	currentModel := a.model
	a.mu.RUnlock()

	// The request codec omits a zero temperature, which would let the service
	// substitute its own default. The smallest positive value survives
	// serialization and behaves as zero.
	temperature := a.temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	req := openai.ChatCompletionRequest{
		Model: currentModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		Temperature: temperature,
	}

	// Retry with linear backoff; a cancelled context is never retried
	var resp openai.ChatCompletionResponse
	var err error
	maxRetries := 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", currentModel),
		)
	}

	if err != nil {
		return "", fmt.Errorf("failed to generate response after %d attempts: %w", maxRetries, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	content := resp.Choices[0].Message.Content
	a.logger.Debug("LLM response generated",
		zap.String("model", currentModel),
		zap.Int("length", len(content)),
	)

	return content, nil
}
