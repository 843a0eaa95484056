package rubric

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/hirelytics/internal/ai"
)

// listKeys are the object keys a provider may wrap the per-candidate array in.
var listKeys = []string{"candidates", "rankings", "results", "analyses", "analysis"}

type rawEntry struct {
	Score       *float64           `mapstructure:"score"`
	Skills      map[string]float64 `mapstructure:"skills"`
	Personality map[string]float64 `mapstructure:"personality"`
	CulturalFit *float64           `mapstructure:"culturalfit"`
	Summary     string             `mapstructure:"summary"`
}

// ParseEntries parses generated text into exactly expected entries.
func ParseEntries(provider ai.Provider, raw string, expected int) ([]ai.Entry, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, &ai.ParseError{Provider: provider, Reason: "empty response"}
	}

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, &ai.ParseError{Provider: provider, Reason: "content is not valid json", Err: err}
	}

	items, err := entryList(doc, expected)
	if err != nil {
		return nil, &ai.ParseError{Provider: provider, Reason: err.Error()}
	}

	if len(items) != expected {
		return nil, &ai.ParseError{
			Provider: provider,
			Reason:   fmt.Sprintf("expected %d candidate entries, got %d", expected, len(items)),
		}
	}

	entries := make([]ai.Entry, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ai.ParseError{Provider: provider, Reason: fmt.Sprintf("entry %d is not an object", i)}
		}

		entry, err := decodeEntry(obj)
		if err != nil {
			return nil, &ai.ParseError{Provider: provider, Reason: fmt.Sprintf("entry %d", i), Err: err}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func entryList(doc any, expected int) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		normalized := normalizeKeys(v)
		for _, key := range listKeys {
			if list, ok := normalized[key].([]any); ok {
				return list, nil
			}
		}
		if _, ok := normalized["score"]; ok && expected == 1 {
			return []any{v}, nil
		}
		return nil, fmt.Errorf("no candidate array found in response object")
	default:
		return nil, fmt.Errorf("unexpected json document of type %T", doc)
	}
}

func decodeEntry(obj map[string]any) (ai.Entry, error) {
	var out rawEntry
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return ai.Entry{}, err
	}

	if err := decoder.Decode(deepNormalize(obj)); err != nil {
		return ai.Entry{}, err
	}

	return ai.Entry{
		Score:       out.Score,
		Skills:      out.Skills,
		Personality: out.Personality,
		CulturalFit: out.CulturalFit,
		Summary:     strings.TrimSpace(out.Summary),
	}, nil
}

// deepNormalize lowercases keys and strips separators on the entry and its direct child objects,
// so "Cultural_Fit", "culturalFit" and "cultural-fit" decode alike.
func deepNormalize(obj map[string]any) map[string]any {
	out := normalizeKeys(obj)
	if _, ok := out["score"]; !ok {
		if v, ok := out["overallscore"]; ok {
			out["score"] = v
		}
	}
	for k, v := range out {
		if child, ok := v.(map[string]any); ok {
			out[k] = normalizeKeys(child)
		}
	}
	return out
}

func normalizeKeys(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[normalizeKey(k)] = v
	}
	return out
}

func normalizeKey(k string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(k)))
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
