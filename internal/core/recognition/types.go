package recognition

import (
	"context"
)

// Outcome is a successful recognition result.
type Outcome struct {
	Text       string
	TokensUsed int
	Strategy   string
}

// Strategy is one recognition path. An error means "no result" and never
// aborts the request; the selector moves on to the next strategy.
type Strategy interface {
	Name() string
	Recognize(ctx context.Context, image []byte, useOCR bool) (Outcome, error)
}

// Recognition prompts, chosen by the OCR flag.
const (
	promptDescribe = "Identify the food product in this image. State the brand and product name " +
		"as printed on the packaging, followed by a short description of the product."
	promptOCR = "Read and transcribe all text visible on the food packaging in this image, " +
		"starting with the brand and product name."
)

func promptFor(useOCR bool) string {
	if useOCR {
		return promptOCR
	}
	return promptDescribe
}
