package recognition

import (
	"context"
	"errors"
	"testing"

	"nutriscan/internal/pkg/common"

	"go.uber.org/zap"
)

func init() {
	common.Logger = zap.NewNop()
}

type stubStrategy struct {
	name    string
	text    string
	err     error
	calls   int
	lastOCR bool
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Recognize(ctx context.Context, image []byte, useOCR bool) (Outcome, error) {
	s.calls++
	s.lastOCR = useOCR
	if s.err != nil {
		return Outcome{}, s.err
	}
	return Outcome{Text: s.text, Strategy: s.name}, nil
}

type stubUsage struct {
	exhausted bool
	calls     int
}

func (u *stubUsage) RecordRequest(ctx context.Context) bool {
	u.calls++
	return u.exhausted
}

func TestSelectorPrimaryWins(t *testing.T) {
	primary := &stubStrategy{name: "primary", text: "corn flakes box"}
	fallback := &stubStrategy{name: "fallback", text: "unused"}
	usage := &stubUsage{}

	outcome, err := NewSelector(primary, fallback, usage).Recognize(context.Background(), []byte("img"), false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Strategy != "primary" || outcome.Text != "corn flakes box" {
		t.Errorf("outcome = %+v", outcome)
	}
	if fallback.calls != 0 {
		t.Error("fallback should not run when the primary succeeds")
	}
	if usage.calls != 1 {
		t.Errorf("usage recorded %d times, want 1", usage.calls)
	}
}

func TestSelectorFallsBackOnPrimaryFailure(t *testing.T) {
	primary := &stubStrategy{name: "primary", err: errors.New("model down")}
	fallback := &stubStrategy{name: "fallback", text: "cereal"}

	outcome, err := NewSelector(primary, fallback, &stubUsage{}).Recognize(context.Background(), []byte("img"), false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Strategy != "fallback" {
		t.Errorf("outcome strategy = %q, want fallback", outcome.Strategy)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d", primary.calls)
	}
}

func TestSelectorHonorsFallbackTier(t *testing.T) {
	primary := &stubStrategy{name: "primary", text: "unused"}
	fallback := &stubStrategy{name: "fallback", text: "cereal"}

	outcome, err := NewSelector(primary, fallback, &stubUsage{}).Recognize(context.Background(), []byte("img"), true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Strategy != "fallback" {
		t.Errorf("outcome strategy = %q, want fallback", outcome.Strategy)
	}
	if primary.calls != 0 {
		t.Error("primary must be bypassed on the fallback tier")
	}
	if !fallback.lastOCR {
		t.Error("ocr flag should pass through to the strategy")
	}
}

func TestSelectorExhaustedBudgetForcesFallback(t *testing.T) {
	primary := &stubStrategy{name: "primary", text: "unused"}
	fallback := &stubStrategy{name: "fallback", text: "cereal"}
	usage := &stubUsage{exhausted: true}

	outcome, err := NewSelector(primary, fallback, usage).Recognize(context.Background(), []byte("img"), false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Strategy != "fallback" {
		t.Errorf("outcome strategy = %q, want fallback", outcome.Strategy)
	}
	if primary.calls != 0 {
		t.Error("primary must be bypassed when the monthly budget is exhausted")
	}
}

func TestSelectorAllStrategiesFail(t *testing.T) {
	primary := &stubStrategy{name: "primary", err: errors.New("down")}
	fallback := &stubStrategy{name: "fallback", err: errors.New("also down")}

	_, err := NewSelector(primary, fallback, &stubUsage{}).Recognize(context.Background(), []byte("img"), false, false)
	if err == nil {
		t.Fatal("expected error when every strategy fails")
	}
}
