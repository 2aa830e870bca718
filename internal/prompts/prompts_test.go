package prompts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadBundled(t *testing.T) {
	store := NewStore("")
	for _, name := range []string{ManagerPrompt, ArchitectPrompt, CoderPrompt, ReviewerPrompt, PayloadSchema} {
		t.Run(name, func(t *testing.T) {
			text, err := store.Load(name)
			if err != nil {
				t.Fatalf("Load(%q) error = %v", name, err)
			}
			if strings.TrimSpace(text) == "" {
				t.Errorf("Load(%q) returned empty text", name)
			}
		})
	}
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	override := "You are a terse product manager."
	if err := os.WriteFile(filepath.Join(dir, ManagerPrompt), []byte(override), 0644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(dir)
	text, err := store.Load(ManagerPrompt)
	if err != nil {
		t.Fatal(err)
	}
	if text != override {
		t.Errorf("Load() = %q, want the override", text)
	}

	// Assets without an override fall back to the bundled copy.
	text, err = store.Load(CoderPrompt)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, `"files"`) {
		t.Errorf("bundled coder prompt missing payload contract: %q", text)
	}
}

func TestLoadUnknown(t *testing.T) {
	store := NewStore("")
	if _, err := store.Load("nonexistent.txt"); err == nil {
		t.Error("expected error for unknown prompt")
	}
	if _, err := store.Load(""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestBundledPayloadSchemaIsValidJSON(t *testing.T) {
	var schema map[string]any
	if err := json.Unmarshal(BundledPayloadSchema(), &schema); err != nil {
		t.Fatalf("bundled schema is not valid JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("schema type = %v", schema["type"])
	}
	required, ok := schema["required"].([]any)
	if !ok || len(required) == 0 || required[0] != "files" {
		t.Errorf("schema must require files, got %v", schema["required"])
	}
}

func TestReviewerApprovalContract(t *testing.T) {
	store := NewStore("")
	text, err := store.Load(ReviewerPrompt)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, ReviewerApproval) {
		t.Errorf("reviewer prompt does not mention the approval token %q", ReviewerApproval)
	}
}
