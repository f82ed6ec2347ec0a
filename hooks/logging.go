package hooks

import (
	"context"
	"log"

	"github.com/youssefsiam38/windowpg/types"
	"github.com/youssefsiam38/windowpg/window"
)

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger *log.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// DefaultLoggingHooks creates logging hooks with default logger
func DefaultLoggingHooks() *LoggingHooks {
	return &LoggingHooks{logger: log.Default()}
}

// Append logs appended turns
func (h *LoggingHooks) Append(ctx context.Context, sessionID string, turn *types.Turn) error {
	h.logger.Printf("[WindowPG] Appended %s turn %d to session %s (%d chars)",
		turn.Role, turn.SequenceIndex, sessionID, len(turn.Content))
	return nil
}

// BeforeTrim logs before a trim operation
func (h *LoggingHooks) BeforeTrim(ctx context.Context, sessionID string) error {
	h.logger.Printf("[WindowPG] Starting trim for session %s", sessionID)
	return nil
}

// AfterTrim logs after a trim operation
func (h *LoggingHooks) AfterTrim(ctx context.Context, result *window.TrimResult) error {
	h.logger.Printf("[WindowPG] Trim complete: %d → %d tokens (%.1f%% reduction, %d turns evicted)",
		result.OriginalTokens, result.TrimmedTokens, result.Reduction(), result.TurnsEvicted)
	return nil
}

// VerboseLoggingHooks provides detailed logging for debugging
type VerboseLoggingHooks struct {
	logger *log.Logger
}

// NewVerboseLoggingHooks creates verbose logging hooks
func NewVerboseLoggingHooks(logger *log.Logger) *VerboseLoggingHooks {
	return &VerboseLoggingHooks{logger: logger}
}

// Append logs detailed turn information
func (h *VerboseLoggingHooks) Append(ctx context.Context, sessionID string, turn *types.Turn) error {
	h.logger.Printf("[WindowPG][VERBOSE] === Append: session %s ===", sessionID)
	h.logger.Printf("[WindowPG][VERBOSE] Turn %d: role=%s pinned=%v summary=%v",
		turn.SequenceIndex, turn.Role, turn.IsPinned, turn.IsSummary)
	return nil
}

// BeforeTrim logs detailed trim start information
func (h *VerboseLoggingHooks) BeforeTrim(ctx context.Context, sessionID string) error {
	h.logger.Printf("[WindowPG][VERBOSE] === Starting Trim ===")
	h.logger.Printf("[WindowPG][VERBOSE] Session: %s", sessionID)
	return nil
}

// AfterTrim logs detailed trim results
func (h *VerboseLoggingHooks) AfterTrim(ctx context.Context, result *window.TrimResult) error {
	h.logger.Printf("[WindowPG][VERBOSE] === Trim Complete ===")
	h.logger.Printf("[WindowPG][VERBOSE] Original tokens: %d", result.OriginalTokens)
	h.logger.Printf("[WindowPG][VERBOSE] Trimmed tokens: %d", result.TrimmedTokens)
	h.logger.Printf("[WindowPG][VERBOSE] Turns evicted: %d", result.TurnsEvicted)
	h.logger.Printf("[WindowPG][VERBOSE] Summary created: %v", result.SummaryCreated)
	h.logger.Printf("[WindowPG][VERBOSE] Duration: %v", result.Duration)

	if result.OriginalTokens > 0 {
		h.logger.Printf("[WindowPG][VERBOSE] Reduction: %.1f%%", result.Reduction())
	}

	return nil
}

// MetricsHooks collects metrics for monitoring
type MetricsHooks struct {
	OnMetric func(name string, value float64, tags map[string]string)
}

// NewMetricsHooks creates metrics collection hooks
func NewMetricsHooks(onMetric func(string, float64, map[string]string)) *MetricsHooks {
	return &MetricsHooks{OnMetric: onMetric}
}

// Append records append metrics
func (h *MetricsHooks) Append(ctx context.Context, sessionID string, turn *types.Turn) error {
	tags := map[string]string{"role": string(turn.Role)}
	h.OnMetric("window.turns.appended", 1, tags)
	h.OnMetric("window.turns.chars", float64(len(turn.Content)), tags)
	return nil
}

// AfterTrim records trim metrics
func (h *MetricsHooks) AfterTrim(ctx context.Context, result *window.TrimResult) error {
	h.OnMetric("window.trim.original_tokens", float64(result.OriginalTokens), nil)
	h.OnMetric("window.trim.trimmed_tokens", float64(result.TrimmedTokens), nil)
	h.OnMetric("window.trim.turns_evicted", float64(result.TurnsEvicted), nil)

	if result.OriginalTokens > 0 {
		h.OnMetric("window.trim.reduction_pct", result.Reduction(), nil)
	}

	return nil
}
