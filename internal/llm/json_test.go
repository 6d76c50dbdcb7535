package llm

import (
	"encoding/json"
	"testing"
)

func TestExtractJSONFencedBlock(t *testing.T) {
	text := "Here are the tasks:\n```json\n{\"tasks\": []}\n```\nLet me know."
	got, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	if got != `{"tasks": []}` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSONBareFence(t *testing.T) {
	text := "```\n[{\"id\": 1}]\n```"
	got, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	if got != `[{"id": 1}]` {
		t.Errorf("got %q", got)
	}
}

func TestExtractJSONBraceFallback(t *testing.T) {
	text := `Sure! The answer is {"action": "T", "note": "ok"} as requested.`
	got, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	var doc map[string]string
	if err := json.Unmarshal([]byte(got), &doc); err != nil {
		t.Fatalf("extracted text is not valid JSON: %v", err)
	}
	if doc["action"] != "T" {
		t.Errorf("action = %q, want T", doc["action"])
	}
}

func TestExtractJSONNormalizesDoubledBraces(t *testing.T) {
	text := `{{"status": "done"}}`
	got, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	var doc map[string]string
	if err := json.Unmarshal([]byte(got), &doc); err != nil {
		t.Fatalf("extracted text is not valid JSON: %v", err)
	}
	if doc["status"] != "done" {
		t.Errorf("status = %q, want done", doc["status"])
	}
}

func TestExtractJSONArraySpan(t *testing.T) {
	text := "tasks below\n[\n {\"description\": \"buy milk\"}\n]\ndone"
	got, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	var docs []map[string]string
	if err := json.Unmarshal([]byte(got), &docs); err != nil {
		t.Fatalf("extracted text is not valid JSON: %v", err)
	}
	if len(docs) != 1 || docs[0]["description"] != "buy milk" {
		t.Errorf("unexpected parse result: %v", docs)
	}
}

func TestExtractJSONBareArrayOfObjects(t *testing.T) {
	text := `Here you go: [{"description": "a"}, {"description": "b"}]`
	got, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	var docs []map[string]string
	if err := json.Unmarshal([]byte(got), &docs); err != nil {
		t.Fatalf("extracted text is not valid JSON: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("got %d drafts, want 2", len(docs))
	}
}

func TestExtractJSONNoDocument(t *testing.T) {
	if _, err := ExtractJSON("no structured content here"); err == nil {
		t.Error("expected error for text without JSON")
	}
}

func TestExtractJSONPrefersObjectOverArray(t *testing.T) {
	// An object containing an array must come back whole.
	text := `{"updated_tasks": [{"id": "a", "new_status": "done"}]}`
	got, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	if got != text {
		t.Errorf("got %q, want full object", got)
	}
}
