// Package ai implements the external LLM collaborators the pipeline
// depends on: failure-reason backfill for records, pattern naming, and
// per-pattern root-cause analysis with recommendation drafting. All calls
// go through bounded retry with exponential backoff, a circuit breaker, a
// concurrency semaphore, and a request rate limiter; a failing call
// degrades that one record or pattern, never the run.
package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/siftlabs/sift/internal/types"
)

// Model selection is tiered by task complexity: root-cause analysis needs
// deep reasoning, failure-reason backfill and pattern naming do not.
const (
	// ModelDefault is used for root-cause analysis and drafting.
	ModelDefault = "claude-sonnet-4-5-20250929"

	// ModelSimple is the cost-efficient model for reason backfill and
	// pattern naming.
	ModelSimple = "claude-3-5-haiku-20241022"
)

// DefaultModel returns the analysis model, honoring SIFT_MODEL.
func DefaultModel() string {
	if m := os.Getenv("SIFT_MODEL"); m != "" {
		return m
	}
	return ModelDefault
}

// SimpleModel returns the lightweight-task model, honoring SIFT_MODEL_SIMPLE.
func SimpleModel() string {
	if m := os.Getenv("SIFT_MODEL_SIMPLE"); m != "" {
		return m
	}
	return ModelSimple
}

// Collaborator is the interface the pipeline consumes. Analyst implements
// it against the Anthropic API; Heuristic implements it offline.
type Collaborator interface {
	// GenerateFailureReason synthesizes a failure reason for a record
	// whose harness recorded none.
	GenerateFailureReason(ctx context.Context, record types.TestRecord) (string, error)

	// NamePattern names and describes one frozen pattern given its
	// exemplar and member summaries.
	NamePattern(ctx context.Context, pattern types.Pattern, examples []types.TestRecord) (name, description string, err error)

	// AnalyzePattern produces root-cause text and recommendation drafts
	// for one pattern. Read-only with respect to the analyzed codebase.
	AnalyzePattern(ctx context.Context, pattern types.Pattern, examples []types.TestRecord) (rootCause string, drafts []types.RecommendationDraft, err error)
}

// Config holds analyst configuration.
type Config struct {
	APIKey            string      // falls back to ANTHROPIC_API_KEY
	Model             string      // default: DefaultModel()
	SimpleModel       string      // default: SimpleModel()
	Retry             RetryConfig // zero value means DefaultRetryConfig()
	RequestsPerSecond float64     // rate limit across all calls (default 2)
}

// Analyst talks to the Anthropic API.
type Analyst struct {
	client      *anthropic.Client
	model       string
	simpleModel string
	retry       RetryConfig
	breaker     *circuitBreaker
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
}

var _ Collaborator = (*Analyst)(nil)

// NewAnalyst creates an analyst. Returns an error when no API key is
// available; callers that want offline analysis should use NewHeuristic
// instead.
func NewAnalyst(cfg Config) (*Analyst, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel()
	}
	simpleModel := cfg.SimpleModel
	if simpleModel == "" {
		simpleModel = SimpleModel()
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	a := &Analyst{
		client:      &client,
		model:       model,
		simpleModel: simpleModel,
		retry:       retry,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
	}
	if retry.CircuitBreakerEnabled {
		a.breaker = newCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}
	if retry.MaxConcurrentCalls > 0 {
		a.sem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}
	return a, nil
}

// call makes one rate-limited, retried API call and returns the
// concatenated text blocks of the response.
func (a *Analyst) call(ctx context.Context, operation, model, prompt string, maxTokens int64) (string, error) {
	var response *anthropic.Message
	err := a.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		if err := a.limiter.Wait(attemptCtx); err != nil {
			return err
		}
		resp, apiErr := a.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// EnrichmentError is the typed per-pattern failure surfaced when retries
// are exhausted. It never aborts clustering or other patterns' enrichment.
type EnrichmentError struct {
	PatternID int
	Op        string
	Err       error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("pattern %d: %s failed: %v", e.PatternID, e.Op, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}
