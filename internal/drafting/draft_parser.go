package drafting

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/claimspilot/internal/agent"
)

// ParseDraft extracts a subject/body draft from raw model output. Models
// wrap JSON in prose or code fences and occasionally emit broken JSON, so
// extraction and repair run before giving up.
func ParseDraft(raw string) (*agent.Draft, error) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object found in model output")
	}

	var draft agent.Draft
	if err := json.Unmarshal([]byte(jsonStr), &draft); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(jsonStr)
		if repairErr != nil {
			return nil, fmt.Errorf("draft JSON unparseable and unrepairable: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &draft); err != nil {
			return nil, fmt.Errorf("repaired draft JSON still invalid: %w", err)
		}
	}

	draft.Subject = strings.TrimSpace(draft.Subject)
	draft.Body = strings.TrimSpace(draft.Body)
	if draft.Body == "" {
		return nil, fmt.Errorf("draft body is empty")
	}

	return &draft, nil
}

// extractJSON pulls the JSON object out of mixed prose/code-fence output
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		return raw
	}

	// Prefer fenced blocks when present
	if strings.Contains(raw, "```") {
		lines := strings.Split(raw, "\n")
		var jsonLines []string
		inCodeBlock := false

		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inCodeBlock = !inCodeBlock
				continue
			}
			if inCodeBlock {
				jsonLines = append(jsonLines, line)
			}
		}

		if len(jsonLines) > 0 {
			return strings.TrimSpace(strings.Join(jsonLines, "\n"))
		}
	}

	// Otherwise scan for a balanced top-level object
	startIdx := strings.Index(raw, "{")
	if startIdx == -1 {
		return ""
	}

	count := 0
	for i := startIdx; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			count++
		case '}':
			count--
			if count == 0 {
				return raw[startIdx : i+1]
			}
		}
	}

	// Incomplete object; let the repair pass try to close it
	return raw[startIdx:]
}
