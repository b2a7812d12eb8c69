// Package drafting wraps the text-generation collaborator. It asks an LLM for
// a JSON draft ({subject, body}), repairs malformed output, and hands back
// plain content for the schedulers to send or queue.
package drafting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/claimspilot/internal/agent"
	"github.com/claimspilot/internal/config"
	"github.com/claimspilot/internal/logging"
	"github.com/claimspilot/internal/retry"
)

// ErrNotConfigured signals a missing API key. The orchestrator's caller skips
// the drafting capability for the whole run and logs it once.
var ErrNotConfigured = errors.New("text-generation collaborator is not configured")

const defaultCallTimeout = 45 * time.Second

// Drafter generates follow-up and nudge message bodies through langchaingo
type Drafter struct {
	llm         llms.Model
	modelName   string
	limiter     *rate.Limiter
	callTimeout time.Duration
}

// NewDrafter builds a drafter for the configured AI provider
func NewDrafter(ctx context.Context, cfg *config.Config) (*Drafter, error) {
	provider := cfg.General.DefaultAI
	apiKey := cfg.AIAPIKey(provider)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}

	modelName := cfg.AIModel(provider)

	var model llms.Model
	var err error
	switch provider {
	case "openai":
		opts := []openai.Option{openai.WithToken(apiKey)}
		if modelName != "" {
			opts = append(opts, openai.WithModel(modelName))
		}
		model, err = openai.New(opts...)
	case "gemini":
		opts := []googleai.Option{googleai.WithAPIKey(apiKey)}
		if modelName != "" {
			opts = append(opts, googleai.WithDefaultModel(modelName))
		}
		model, err = googleai.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", provider, err)
	}

	return &Drafter{
		llm:         model,
		modelName:   modelName,
		limiter:     rate.NewLimiter(rate.Every(2*time.Second), 3),
		callTimeout: defaultCallTimeout,
	}, nil
}

// DraftMessage generates a message draft for the given claim context
func (d *Drafter) DraftMessage(ctx context.Context, req agent.DraftRequest) (*agent.Draft, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	prompt := buildPrompt(req)
	logger := logging.GetCurrentLogger()

	var response string
	result := retry.RetryWithBackoff(ctx, retry.DrafterRetryConfig(), func() error {
		callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
		defer cancel()

		out, err := llms.GenerateFromSinglePrompt(callCtx, d.llm, prompt)
		if err != nil {
			return err
		}
		response = out
		return nil
	}, logger)

	if !result.Success {
		return nil, fmt.Errorf("text generation failed after %d attempts: %w", result.Attempts, result.LastError)
	}

	draft, err := ParseDraft(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse draft from model output: %w", err)
	}

	return draft, nil
}

func buildPrompt(req agent.DraftRequest) string {
	return fmt.Sprintf(`You are an assistant for a claims advocacy firm drafting a short message on an insurance claim.

Claim number: %s
Policyholder: %s
Carrier: %s
Current status: %s
Days since last contact: %d
Reason for reaching out: %s
Tone: %s

Write the message now. Respond with ONLY a JSON object in this exact shape, no other text:
{"subject": "...", "body": "..."}

The body must be plain text, under 200 words, and must not promise any outcome or give legal advice.`,
		req.Claim.ClaimNumber,
		req.Claim.PolicyholderName,
		req.Claim.CarrierName,
		req.Claim.Status,
		req.DaysSinceContact,
		req.Reason,
		req.Tone,
	)
}
