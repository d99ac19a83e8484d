package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kapu/ghostwriter-go/internal/constants"
	"github.com/kapu/ghostwriter-go/internal/util"
	"github.com/kapu/ghostwriter-go/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var (
	statusCodeRegex = regexp.MustCompile(`\b(5\d{2})\b`)
	geminiCodeRegex = regexp.MustCompile(`"code":(\d{3})`)
	openaiCodeRegex = regexp.MustCompile(`^(\d{3})\s`)
)

// ErrCircuitOpen is returned while generation is suspended after repeated failures.
var ErrCircuitOpen = stderrors.New("generation service temporarily unavailable")

type ModelManagerConfig struct {
	GeminiAPIKey       string
	OpenAIAPIKey       string
	DefaultGeminiModel string
	DefaultOpenAIModel string
	EnableFallback     bool
	Defaults           GenerateOptions
}

// ModelManager routes generation to a primary provider and, when enabled, a
// fallback provider, guarded by a circuit breaker.
type ModelManager struct {
	primary        TextProvider
	fallback       TextProvider
	defaults       GenerateOptions
	logger         *zap.Logger
	enableFallback bool
	circuitBreaker *util.CircuitBreaker
}

// NewModelManager uses Gemini as primary when a Gemini key is present, OpenAI
// otherwise. OpenAI becomes the fallback only when both keys are set.
func NewModelManager(ctx context.Context, cfg ModelManagerConfig, logger *zap.Logger) (*ModelManager, error) {
	defaultGemini := cfg.DefaultGeminiModel
	if defaultGemini == "" {
		defaultGemini = "gemini-2.5-flash"
	}

	defaultOpenAI := cfg.DefaultOpenAIModel
	if defaultOpenAI == "" {
		defaultOpenAI = "gpt-4.1-mini"
	}

	var geminiProvider TextProvider
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		geminiProvider = NewGeminiProvider(geminiClient, defaultGemini, logger)
	}

	var openaiProvider TextProvider
	if p := NewOpenAIProvider(cfg.OpenAIAPIKey, defaultOpenAI, logger); p != nil {
		openaiProvider = p
	}

	var primary, fallback TextProvider
	switch {
	case geminiProvider != nil:
		primary = geminiProvider
		if cfg.EnableFallback {
			fallback = openaiProvider
		}
	case openaiProvider != nil:
		primary = openaiProvider
	default:
		return nil, errors.NewValidationError("no generation provider configured", "model", "")
	}

	if fallback != nil {
		logger.Info("OpenAI fallback enabled", zap.String("model", defaultOpenAI))
	} else {
		logger.Info("Generation fallback disabled", zap.String("primary", primary.Name()))
	}

	return NewModelManagerWithProviders(primary, fallback, cfg.Defaults, logger), nil
}

// NewModelManagerWithProviders wires already built providers; fallback may be nil.
func NewModelManagerWithProviders(primary, fallback TextProvider, defaults GenerateOptions, logger *zap.Logger) *ModelManager {
	mm := &ModelManager{
		primary:        primary,
		fallback:       fallback,
		defaults:       defaults,
		logger:         logger,
		enableFallback: fallback != nil,
	}

	mm.circuitBreaker = util.NewCircuitBreaker(
		constants.CircuitBreakerConfig.FailureThreshold,
		constants.CircuitBreakerConfig.ResetTimeout,
		constants.CircuitBreakerConfig.HealthCheckInterval,
		mm.healthCheckPing,
		logger,
	)

	return mm
}

// Generate sends prompt with the configured sampling defaults.
func (mm *ModelManager) Generate(ctx context.Context, prompt string) (string, *GenerateMetadata, error) {
	return mm.GenerateWithOptions(ctx, prompt, mm.defaults)
}

func (mm *ModelManager) GenerateWithOptions(ctx context.Context, prompt string, opts GenerateOptions) (string, *GenerateMetadata, error) {
	if !mm.circuitBreaker.CanExecute() {
		status := mm.circuitBreaker.GetStatus()
		nextRetry := "unknown"
		if status.NextRetryTime != nil {
			nextRetry = status.NextRetryTime.Format(time.TimeOnly)
		}

		mm.logger.Error("AI service unavailable (Circuit OPEN)",
			zap.String("state", status.State.String()),
			zap.Int("failure_count", status.FailureCount),
			zap.String("next_retry", nextRetry),
		)

		return "", nil, fmt.Errorf("%w, next retry at %s", ErrCircuitOpen, nextRetry)
	}

	primaryResult, primaryErr := mm.invokeProvider(ctx, mm.primary, prompt, opts)
	if primaryErr == nil {
		mm.circuitBreaker.RecordSuccess()
		return mm.finish(primaryResult, &GenerateMetadata{
			Provider: mm.primary.Name(),
			Model:    primaryResult.Model,
		})
	}

	if mm.enableFallback && mm.fallback != nil {
		mm.logger.Warn("Primary provider failed, trying fallback",
			zap.String("primary", mm.primary.Name()),
			zap.Error(primaryErr),
		)

		fallbackResult, fallbackErr := mm.invokeProvider(ctx, mm.fallback, prompt, opts)
		if fallbackErr == nil {
			mm.circuitBreaker.RecordSuccess()
			return mm.finish(fallbackResult, &GenerateMetadata{
				Provider:     mm.fallback.Name(),
				Model:        fallbackResult.Model,
				UsedFallback: true,
			})
		}

		mm.recordFailure(primaryErr)
		mm.recordFailure(fallbackErr)

		return "", nil, errors.NewServiceError("generation failed on every provider", "ai", "generate", fallbackErr)
	}

	mm.recordFailure(primaryErr)

	return "", nil, errors.NewServiceError("generation failed", "ai", "generate", primaryErr)
}

func (mm *ModelManager) finish(result ProviderResult, metadata *GenerateMetadata) (string, *GenerateMetadata, error) {
	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", nil, fmt.Errorf("%s API returned empty response", metadata.Provider)
	}
	return text, metadata, nil
}

func (mm *ModelManager) invokeProvider(ctx context.Context, provider TextProvider, prompt string, opts GenerateOptions) (ProviderResult, error) {
	if provider == nil {
		return ProviderResult{}, fmt.Errorf("model provider is not configured")
	}
	return provider.Generate(ctx, prompt, opts)
}

func (mm *ModelManager) recordFailure(err error) {
	if err == nil {
		return
	}

	if !isServiceFailure(err) {
		return
	}

	timeout := constants.CircuitBreakerConfig.ResetTimeout
	if isRateLimitError(err) {
		timeout = constants.CircuitBreakerConfig.RateLimitTimeout
	}

	mm.circuitBreaker.RecordFailure(timeout)
}

func (mm *ModelManager) healthCheckPing() bool {
	mm.logger.Info("Health Check: Testing AI services...")

	ctx, cancel := context.WithTimeout(context.Background(), constants.CircuitBreakerConfig.HealthCheckTimeout)
	defer cancel()

	primaryOK := mm.primary != nil && mm.primary.Ping(ctx)
	fallbackOK := mm.enableFallback && mm.fallback != nil && mm.fallback.Ping(ctx)

	isHealthy := primaryOK || fallbackOK

	mm.logger.Info("Health Check: Result",
		zap.Bool("primary", primaryOK),
		zap.Bool("fallback", fallbackOK),
		zap.Bool("healthy", isHealthy),
	)

	return isHealthy
}

func isServiceFailure(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	if strings.Contains(msg, "timeout") || strings.Contains(msg, "ETIMEDOUT") {
		return true
	}

	if isRateLimitError(err) {
		return true
	}

	if statusCodeRegex.MatchString(msg) {
		return true
	}

	if code, ok := matchCode(geminiCodeRegex, msg); ok {
		return code >= 500 && code < 600
	}
	if code, ok := matchCode(openaiCodeRegex, msg); ok {
		return code >= 500 && code < 600
	}

	return false
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	if strings.Contains(msg, "429") || strings.Contains(msg, "Rate limit") || strings.Contains(msg, "quota") {
		return true
	}

	if code, ok := matchCode(geminiCodeRegex, msg); ok {
		return code == 429
	}
	if code, ok := matchCode(openaiCodeRegex, msg); ok {
		return code == 429
	}

	return false
}

func matchCode(re *regexp.Regexp, msg string) (int, bool) {
	matches := re.FindStringSubmatch(msg)
	if len(matches) < 2 {
		return 0, false
	}
	code, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return code, true
}

func (mm *ModelManager) GetCircuitStatus() util.CircuitBreakerStatus {
	return mm.circuitBreaker.GetStatus()
}

func (mm *ModelManager) ResetCircuit() {
	mm.circuitBreaker.Reset()
}
