package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// ExtractObject pulls a JSON object out of free-form model output. Strategies
// are tried in order, stopping at the first success:
//
//  1. the contents of a fenced code block,
//  2. the largest brace-delimited span in the text,
//  3. the same span after a lenient quote repair.
//
// The boolean is false when no object could be recovered; that is not an
// error condition, the caller decides between a fallback model and
// degradation.
func ExtractObject(raw string) (map[string]json.RawMessage, bool) {
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		if obj, ok := decodeObject(strings.TrimSpace(m[1])); ok {
			return obj, true
		}
	}

	span := largestBraceSpan(raw)
	if span == "" {
		return nil, false
	}
	if obj, ok := decodeObject(span); ok {
		return obj, true
	}
	if obj, ok := decodeObject(repairQuotes(span)); ok {
		return obj, true
	}
	return nil, false
}

// Parse extracts a structured Document from raw model output, returning the
// empty Document when nothing could be recovered.
func Parse(raw string) Document {
	obj, ok := ExtractObject(raw)
	if !ok {
		return Document{}
	}
	return DecodeDocument(obj)
}

func decodeObject(candidate string) (map[string]json.RawMessage, bool) {
	if candidate == "" {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	if len(obj) == 0 {
		return nil, false
	}
	return obj, true
}

func largestBraceSpan(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// repairQuotes normalizes single-quoted pseudo-JSON. It is deliberately
// crude: apostrophes inside values will break the candidate, in which case
// decoding simply fails and the caller degrades.
func repairQuotes(candidate string) string {
	return strings.ReplaceAll(candidate, "'", `"`)
}
