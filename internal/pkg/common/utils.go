package common

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID generates a UUID string.
func GenerateUUID() string {
	return uuid.New().String()
}

// CountWords counts whitespace-separated words; used to charge generated
// answers against the monthly token budget.
func CountWords(s string) int {
	return len(strings.Fields(s))
}
