package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules holds the tunable classification keywords and oracle prompts.
// Every field has a built-in default; a YAML rules file overrides only the
// fields it sets.
type Rules struct {
	// InProgressMarkers are scanned first: if both sets match, the
	// message classifies as in-progress.
	InProgressMarkers []string `yaml:"in_progress_markers"`
	CompletionMarkers []string `yaml:"completion_markers"`

	// ExtractionPrompt precedes the raw message text in the extraction
	// oracle call.
	ExtractionPrompt string `yaml:"extraction_prompt"`

	// ReplyPreamble precedes mention-reply prompts.
	ReplyPreamble string `yaml:"reply_preamble"`

	// SummaryPrompt wraps the grouped standup conversation.
	SummaryPromptHeader string `yaml:"summary_prompt_header"`
	SummaryPromptFooter string `yaml:"summary_prompt_footer"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		InProgressMarkers: []string{"in progress", "halfway", "started", "still working", "ongoing"},
		CompletionMarkers: []string{"finished", "completed", "done", "wrapped up"},
		ExtractionPrompt: "Extract structured task details from the following message. " +
			"Return a JSON list with task_id, description, duration_in_days:\n\n",
		ReplyPreamble: "You are ScrumMaestro. Respond only to serious or work-related questions.",
		SummaryPromptHeader: "You are ScrumMaestro, an AI Scrum Master summarizing daily updates.\n" +
			"Based on the following standup inputs, write a brief yet descriptive summary per person.\n" +
			"For each individual, mention what they accomplished yesterday, what they plan to do today, " +
			"and any blockers. Sound like a helpful Scrum Master facilitating a meeting.\n\n",
		SummaryPromptFooter: "\n\nReturn the summary in a conversational tone but keep it organized per person.",
	}
}

// LoadRules reads a YAML rules file and merges it over the defaults.
// An empty path returns the defaults unchanged.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("reading rules file: %w", err)
	}

	var overrides Rules
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return rules, fmt.Errorf("parsing rules file: %w", err)
	}

	if len(overrides.InProgressMarkers) > 0 {
		rules.InProgressMarkers = overrides.InProgressMarkers
	}
	if len(overrides.CompletionMarkers) > 0 {
		rules.CompletionMarkers = overrides.CompletionMarkers
	}
	if overrides.ExtractionPrompt != "" {
		rules.ExtractionPrompt = overrides.ExtractionPrompt
	}
	if overrides.ReplyPreamble != "" {
		rules.ReplyPreamble = overrides.ReplyPreamble
	}
	if overrides.SummaryPromptHeader != "" {
		rules.SummaryPromptHeader = overrides.SummaryPromptHeader
	}
	if overrides.SummaryPromptFooter != "" {
		rules.SummaryPromptFooter = overrides.SummaryPromptFooter
	}
	return rules, nil
}
