package dailyword

import (
	"strings"

	"taalbot/internal/store"
)

// parseFields extracts the five-field textual schema from a model response.
// Each non-empty line is split on the first ": "; keys are lower-cased with
// spaces folded to underscores. Unmatched lines are ignored and missing
// fields stay empty. Never fails: validation is storage's job.
func parseFields(text string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ": ")
		if !found {
			continue
		}
		key = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
		fields[key] = strings.TrimSpace(value)
	}
	return fields
}

// recordFromFields assembles a DailyWord from parsed fields, leaving absent
// values empty.
func recordFromFields(fields map[string]string) store.DailyWord {
	return store.DailyWord{
		Word:               fields["word"],
		Translation:        fields["translation"],
		UsageExample:       fields["usage_example"],
		ExampleTranslation: fields["example_translation"],
		Pronunciation:      fields["pronunciation_tip"],
	}
}
