// Package extract turns free-form status updates into task descriptors
// using the language oracle.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scrum-maestro/agent/internal/llm"
	"github.com/scrum-maestro/agent/internal/task"
)

// Extractor asks the oracle to pull structured task details out of a message.
type Extractor struct {
	oracle llm.Oracle
	prompt string
	logger zerolog.Logger
}

// New creates an extractor. prompt is prepended to each message before it
// is sent to the oracle.
func New(oracle llm.Oracle, prompt string, logger zerolog.Logger) *Extractor {
	return &Extractor{
		oracle: oracle,
		prompt: prompt,
		logger: logger.With().Str("component", "extract").Logger(),
	}
}

// Extract returns the task descriptors found in text. Oracle failures and
// unparseable responses yield an empty slice, never an error: a message
// that produced nothing is simply not a status update.
func (e *Extractor) Extract(ctx context.Context, text string) []task.Descriptor {
	raw, err := e.oracle.Complete(ctx, e.prompt+text)
	if err != nil {
		e.logger.Warn().Err(err).Msg("oracle extraction failed")
		return nil
	}

	arr, ok := firstJSONArray(raw)
	if !ok {
		e.logger.Debug().Str("response", truncate(raw, 200)).Msg("no JSON array in oracle response")
		return nil
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		e.logger.Warn().Err(err).Msg("malformed descriptor array")
		return nil
	}

	descs := make([]task.Descriptor, 0, len(items))
	for _, item := range items {
		d, err := parseDescriptor(item)
		if err != nil {
			e.logger.Warn().Err(err).Msg("rejecting descriptor")
			continue
		}
		descs = append(descs, d)
	}
	return descs
}

func parseDescriptor(item map[string]json.RawMessage) (task.Descriptor, error) {
	var d task.Descriptor

	id, err := stringOrNumber(item["task_id"])
	if err != nil {
		return d, fmt.Errorf("task_id: %w", err)
	}
	id = strings.TrimSpace(id)
	if id == "" || strings.EqualFold(id, "none") {
		return d, fmt.Errorf("task_id %q is not usable", id)
	}
	d.TaskID = id

	if raw, ok := item["description"]; ok {
		if err := json.Unmarshal(raw, &d.Description); err != nil {
			return d, fmt.Errorf("description: %w", err)
		}
	}
	if strings.TrimSpace(d.Description) == "" {
		return d, fmt.Errorf("descriptor for task %s has no description", id)
	}

	if raw, ok := item["duration_in_days"]; ok && string(raw) != "null" {
		var days int
		if err := json.Unmarshal(raw, &days); err != nil {
			return d, fmt.Errorf("duration_in_days: %w", err)
		}
		d.DurationDays = days
	}
	return d, nil
}

// stringOrNumber accepts both "7" and 7 for identifier fields.
func stringOrNumber(raw json.RawMessage) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("missing")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("neither string nor number: %s", raw)
}

// firstJSONArray scans for the first balanced bracket span that parses as
// JSON. Oracles tend to wrap their answer in prose or code fences.
func firstJSONArray(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '[' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '[':
				depth++
			case ']':
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(s) // abandon this start position
				}
			}
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
