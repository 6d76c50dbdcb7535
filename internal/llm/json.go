package llm

import (
	"fmt"
	"strings"
)

// ExtractJSON pulls a JSON document out of model output. Models frequently
// wrap JSON in markdown code fences or surround it with prose; this strips
// the wrapping and returns the raw document text.
//
// Resolution order: a ```json fence, then any ``` fence whose body starts
// with a brace or bracket, then the outermost span of whichever delimiter
// opens first, {...} or [...]. Doubled braces ({{ and }}), an artifact of
// prompt templating, are normalized to single braces before extraction.
func ExtractJSON(text string) (string, error) {
	text = strings.ReplaceAll(text, "{{", "{")
	text = strings.ReplaceAll(text, "}}", "}")

	if body, ok := fencedBlock(text, "```json"); ok {
		return strings.TrimSpace(body), nil
	}
	if body, ok := fencedBlock(text, "```"); ok {
		body = strings.TrimSpace(body)
		if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
			return body, nil
		}
	}

	// An array of objects must resolve as the array, not as a span from the
	// first to the last object brace.
	objStart := strings.IndexByte(text, '{')
	arrStart := strings.IndexByte(text, '[')
	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		if doc, ok := braceSpan(text, '[', ']'); ok {
			return doc, nil
		}
	}
	if doc, ok := braceSpan(text, '{', '}'); ok {
		return doc, nil
	}
	if doc, ok := braceSpan(text, '[', ']'); ok {
		return doc, nil
	}

	return "", fmt.Errorf("no JSON document found in response")
}

func fencedBlock(text, marker string) (string, bool) {
	start := strings.Index(text, marker)
	if start == -1 {
		return "", false
	}
	rest := text[start+len(marker):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}

func braceSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
