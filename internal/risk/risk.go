// Package risk arbitrates protective-exit decisions: it picks a scoring
// model tier from signal badness, prompts an external reasoning endpoint,
// and parses a structured verdict, degrading to a conservative neutral
// verdict when the endpoint cannot be used.
package risk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"vibeguard/internal/democtx"
	"vibeguard/internal/feeds"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Verdict is the structured risk decision.
type Verdict struct {
	RiskScore  int    `json:"riskScore"`
	ShouldExit bool   `json:"shouldExit"`
	Reason     string `json:"reason"`
	AIModel    string `json:"aiModel"`
	Degraded   bool   `json:"degraded,omitempty"`
}

// neutralVerdict is returned whenever analysis cannot complete; it never
// triggers an execution on its own.
func neutralVerdict(reason string) Verdict {
	return Verdict{RiskScore: 50, ShouldExit: false, Reason: reason, AIModel: "fallback", Degraded: true}
}

// Input bundles the signals for one evaluation.
type Input struct {
	Sentiment feeds.SentimentSignal
	Price     feeds.PriceSnapshot
	Injected  *democtx.Context
	// ModelOverride is an externally supplied routing decision; when set it
	// wins over tier selection.
	ModelOverride string
}

// Analyzer produces verdicts from market signals.
type Analyzer interface {
	AnalyzeRisk(ctx context.Context, in Input) Verdict
}

// Options parameterise the arbitration service.
type Options struct {
	BaseURL               string
	APIKey                string
	ModelHigh             string
	ModelLow              string
	FallbackModels        []string
	BadSentimentThreshold float64
	Timeout               time.Duration
	ModelListTTL          time.Duration
	ReportOutcomes        bool
}

// Service implements Analyzer against an OpenAI-compatible reasoning
// endpoint with model resolution and shared rate-limit backoff.
type Service struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	models  *modelCatalog
	backoff *backoff
	now     func() time.Time
}

// NewService constructs the arbitration service.
func NewService(opts Options, logger zerolog.Logger) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.ModelHigh == "" {
		opts.ModelHigh = "gpt-4o"
	}
	if opts.ModelLow == "" {
		opts.ModelLow = "gpt-4o-mini"
	}
	if opts.BadSentimentThreshold <= 0 {
		opts.BadSentimentThreshold = 30
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.kalibr.ai/v1"
	}

	client := &http.Client{Timeout: timeout}
	scoped := logger.With().Str("component", "risk_arbitration").Logger()

	return &Service{
		opts:    opts,
		logger:  scoped,
		client:  client,
		baseURL: baseURL,
		models:  newModelCatalog(baseURL, opts.APIKey, client, opts.ModelListTTL, scoped),
		backoff: newBackoff(nil),
		now:     time.Now,
	}
}

// AnalyzeRisk evaluates one position. It never fails: any endpoint or parse
// problem degrades to the neutral verdict.
func (s *Service) AnalyzeRisk(ctx context.Context, in Input) Verdict {
	if blocked, remaining := s.backoff.blocked(); blocked {
		s.logger.Warn().Dur("remaining", remaining).Msg("reasoning endpoint backed off; skipping call")
		return neutralVerdict(fmt.Sprintf("risk analysis backed off for %s", remaining.Round(time.Second)))
	}

	requested := s.selectModel(in)
	model, substituted := s.models.resolve(ctx, requested, s.opts.FallbackModels)
	if substituted {
		s.logger.Info().Str("requested", requested).Str("substituted", model).Msg("model unavailable; substituted from fallback list")
	}

	prompt := buildPrompt(in)
	raw, err := s.complete(ctx, model, prompt)
	if err != nil {
		if isRateLimitErr(err) {
			wait := s.backoff.onRateLimit()
			s.logger.Warn().Dur("backoff", wait).Msg("reasoning endpoint rate limited")
			return neutralVerdict("risk analysis rate limited")
		}
		s.logger.Error().Err(err).Str("model", model).Msg("risk analysis call failed")
		return neutralVerdict("risk analysis failed")
	}
	s.backoff.onSuccess()

	verdict, ok := parseVerdict(raw)
	if !ok {
		s.logger.Error().Str("model", model).Msg("no well-formed verdict in model output")
		return neutralVerdict("risk analysis returned malformed output")
	}
	verdict.AIModel = model

	if s.opts.ReportOutcomes {
		go s.reportOutcome(model, verdict, substituted)
	}
	return verdict
}

// selectModel prefers the higher-capability tier when the signal is bad; an
// explicit routing decision always wins.
func (s *Service) selectModel(in Input) string {
	if in.ModelOverride != "" {
		return in.ModelOverride
	}
	if in.Sentiment.Score < s.opts.BadSentimentThreshold {
		return s.opts.ModelHigh
	}
	return s.opts.ModelLow
}

type completionRequest struct {
	Model          string            `json:"model"`
	Messages       []completionMsg   `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

type completionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *Service) complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:          model,
		Messages:       []completionMsg{{Role: "user", Content: prompt}},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &endpointError{status: resp.StatusCode, message: strings.TrimSpace(string(payload))}
	}

	var parsed completionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("parse completion payload: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

type endpointError struct {
	status  int
	message string
}

func (e *endpointError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("reasoning endpoint error (%d): %s", e.status, e.message)
	}
	return fmt.Sprintf("reasoning endpoint error (%d)", e.status)
}

func isRateLimitErr(err error) bool {
	ee, ok := err.(*endpointError)
	return ok && ee.status == http.StatusTooManyRequests
}

// reportOutcome sends a best-effort verdict report to the routing
// intelligence backend. Failures only surface at debug level.
func (s *Service) reportOutcome(model string, verdict Verdict, substituted bool) {
	body, err := json.Marshal(map[string]any{
		"model":       model,
		"riskScore":   verdict.RiskScore,
		"shouldExit":  verdict.ShouldExit,
		"substituted": substituted,
		"reportedAt":  s.now().UnixMilli(),
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/outcomes", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug().Err(err).Msg("outcome report failed")
		return
	}
	_ = resp.Body.Close()
}

var _ Analyzer = (*Service)(nil)
