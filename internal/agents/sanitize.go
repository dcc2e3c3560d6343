package agents

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/spec-kit/refund-claim-service/pkg/util"
)

var fencedJSONBlock = regexp.MustCompile("```json([\\s\\S]*?)```")

// SanitizeJSON coerces raw model text into target, which must be a pointer to
// the expected record type. Models inconsistently wrap structured output in
// prose or markdown, so recovery is attempted in order: direct parse, fenced
// ```json block, then the substring between the first '{' and the last '}'.
// Required-field validation is the caller's responsibility.
func SanitizeJSON(raw string, target any) error {
	candidate, ok := extractJSON(raw)
	if !ok {
		return util.NewMalformedModelOutput(raw)
	}
	if err := json.Unmarshal([]byte(candidate), target); err != nil {
		return util.NewMalformedModelOutput(raw)
	}
	return nil
}

func extractJSON(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if json.Valid([]byte(trimmed)) {
		return trimmed, true
	}

	if match := fencedJSONBlock.FindStringSubmatch(raw); len(match) == 2 {
		inner := strings.TrimSpace(match[1])
		if json.Valid([]byte(inner)) {
			return inner, true
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		sub := raw[start : end+1]
		if json.Valid([]byte(sub)) {
			return sub, true
		}
	}

	return "", false
}
