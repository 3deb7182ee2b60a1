package ai

import (
	"fmt"
	"strings"
	"time"
)

// Request describes the market a provider is asked about
type Request struct {
	MarketID    uint
	Question    string
	Description string
	Category    string
	Options     []string
	Deadline    time.Time
	Evidence    string
}

// BuildPrompt renders the resolution prompt sent to every provider
func BuildPrompt(req Request, now time.Time) string {
	var b strings.Builder

	b.WriteString("Decide whether the following prediction market can be resolved now.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", req.Question)
	if req.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", req.Description)
	}
	if req.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", req.Category)
	}
	b.WriteString("Options:\n")
	for _, opt := range req.Options {
		fmt.Fprintf(&b, "- %s\n", opt)
	}
	fmt.Fprintf(&b, "Deadline: %s\n", req.Deadline.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Current date: %s\n", now.UTC().Format(time.RFC3339))

	if strings.TrimSpace(req.Evidence) != "" {
		b.WriteString("\nEvidence gathered from external sources (advisory, may be incomplete):\n")
		b.WriteString(req.Evidence)
		if !strings.HasSuffix(req.Evidence, "\n") {
			b.WriteString("\n")
		}
	}

	b.WriteString(`
Only resolve when the outcome is publicly confirmed. If it is not yet known, keep the market open.
Reply with a single JSON object and nothing else:
{"decision": "RESOLVE" or "KEEP_OPEN", "winner": one option exactly as written above or null, "confidence": integer 0-100, "reasoning": "short explanation"}
`)
	return b.String()
}
