package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type Decision string

const (
	DecisionResolve  Decision = "RESOLVE"
	DecisionKeepOpen Decision = "KEEP_OPEN"
)

// DefaultConfidenceThreshold is the minimum confidence for an automatic settlement
const DefaultConfidenceThreshold = 95

// Verdict is a provider's structured answer about one market
type Verdict struct {
	Decision   Decision `json:"decision"`
	Winner     *string  `json:"winner"`
	Confidence int      `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

type verdictWire struct {
	Decision   *string         `json:"decision"`
	Winner     json.RawMessage `json:"winner"`
	Confidence *json.Number    `json:"confidence"`
	Reasoning  json.RawMessage `json:"reasoning"`
}

// ParseVerdict extracts the first JSON object in text that is a valid verdict.
// Replies often wrap the object in prose or code fences.
func ParseVerdict(text string) (*Verdict, error) {
	var firstErr error
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		dec.UseNumber()
		var wire verdictWire
		if err := dec.Decode(&wire); err != nil {
			continue
		}
		v, err := wire.verdict()
		if err == nil {
			return v, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableResponse, firstErr)
	}
	return nil, fmt.Errorf("%w: no JSON object found", ErrUnparseableResponse)
}

func (w verdictWire) verdict() (*Verdict, error) {
	if w.Decision == nil {
		return nil, fmt.Errorf("missing decision")
	}
	decision := Decision(strings.ToUpper(strings.TrimSpace(*w.Decision)))
	if decision != DecisionResolve && decision != DecisionKeepOpen {
		return nil, fmt.Errorf("unknown decision %q", *w.Decision)
	}

	if w.Confidence == nil {
		return nil, fmt.Errorf("missing confidence")
	}
	conf, err := w.Confidence.Float64()
	if err != nil || math.IsNaN(conf) || conf < 0 || conf > 100 {
		return nil, fmt.Errorf("confidence %q out of range", w.Confidence.String())
	}

	v := &Verdict{Decision: decision, Confidence: int(math.Floor(conf))}

	winner := bytes.TrimSpace(w.Winner)
	if len(winner) > 0 && !bytes.Equal(winner, []byte("null")) {
		var s string
		if err := json.Unmarshal(winner, &s); err != nil {
			return nil, fmt.Errorf("winner must be a string or null")
		}
		v.Winner = &s
	}

	reasoning := bytes.TrimSpace(w.Reasoning)
	if len(reasoning) > 0 && !bytes.Equal(reasoning, []byte("null")) {
		if err := json.Unmarshal(reasoning, &v.Reasoning); err != nil {
			return nil, fmt.Errorf("reasoning must be a string")
		}
	}
	return v, nil
}

// Actionable reports whether a verdict may settle a market: it must say RESOLVE,
// name a winner that is exactly one of options, and meet the confidence threshold.
// Anything else keeps the market open.
func Actionable(v *Verdict, options []string, threshold int) bool {
	if v == nil || v.Decision != DecisionResolve || v.Winner == nil {
		return false
	}
	if v.Confidence < threshold {
		return false
	}
	for _, opt := range options {
		if opt == *v.Winner {
			return true
		}
	}
	return false
}
