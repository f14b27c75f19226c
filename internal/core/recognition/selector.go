package recognition

import (
	"context"
	"fmt"
	"time"

	"nutriscan/internal/pkg/common"

	"go.uber.org/zap"
)

// UsageRecorder counts a request against the global monthly budget and
// reports whether it is exhausted.
type UsageRecorder interface {
	RecordRequest(ctx context.Context) bool
}

// Selector composes the recognition strategies into an explicit ordered
// fallback list. The per-client tier decision arrives from the quota
// middleware; the global monthly budget can further downgrade it.
type Selector struct {
	primary  Strategy
	fallback Strategy
	usage    UsageRecorder
}

// NewSelector creates a strategy selector.
func NewSelector(primary, fallback Strategy, usage UsageRecorder) *Selector {
	return &Selector{
		primary:  primary,
		fallback: fallback,
		usage:    usage,
	}
}

// Recognize runs the strategies in priority order and returns the first
// successful outcome. Strategy failures are "no result", never fatal; only
// when every strategy fails does Recognize return an error.
func (s *Selector) Recognize(ctx context.Context, image []byte, useOCR, useFallback bool) (Outcome, error) {
	if exhausted := s.usage.RecordRequest(ctx); exhausted {
		if !useFallback {
			common.LogWarn("monthly request budget exhausted, downgrading strategy")
		}
		useFallback = true
	}

	strategies := []Strategy{s.primary, s.fallback}
	if useFallback {
		strategies = []Strategy{s.fallback}
	}

	var lastErr error
	for _, strategy := range strategies {
		start := time.Now()
		outcome, err := strategy.Recognize(ctx, image, useOCR)
		common.LogRecognitionCall(strategy.Name(), time.Since(start), err)
		if err != nil {
			lastErr = err
			continue
		}
		common.LogInfo("recognition outcome",
			zap.String("strategy", outcome.Strategy),
			zap.Int("tokens_used", outcome.TokensUsed),
			zap.Int("text_length", len(outcome.Text)),
		)
		return outcome, nil
	}

	return Outcome{}, fmt.Errorf("all recognition strategies failed: %w", lastErr)
}
