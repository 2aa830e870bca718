// Package prompts holds the bundled agent system prompts and the files
// payload schema, with optional per-project overrides on disk.
package prompts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Prompt asset names. Override files use these names inside the prompt dir.
const (
	ManagerPrompt   = "manager.txt"
	ArchitectPrompt = "architect.txt"
	CoderPrompt     = "coder.txt"
	ReviewerPrompt  = "reviewer.txt"
	PayloadSchema   = "payload.schema.json"
)

// ReviewerApproval is the exact reply the reviewer gives when there are no
// blocking issues. The chat engine terminates on it.
const ReviewerApproval = "LGTM"

const bundledManagerPrompt = `You are a pragmatic product manager. Rewrite the vague feature as bullet user stories plus acceptance criteria. No code.`

const bundledArchitectPrompt = `You are a senior Java architect. Produce a concise design (modules, deps) and finish with a Maven directory tree. No implementation code.`

const bundledCoderPrompt = `You are a Java code generator. Respond with one JSON object ONLY:
{ "files": [ { "path": "...", "content": "..." } ] }
Return exactly one Java class plus pom.xml. No markdown, no commentary.`

const bundledReviewerPrompt = `You are a code reviewer. List up to 5 blocking issues or reply exactly ` + "`LGTM`" + `.`

// bundledPayloadSchema validates the Coder's files payload.
const bundledPayloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Coder files payload",
  "type": "object",
  "required": ["files"],
  "properties": {
    "files": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["path", "content"],
        "properties": {
          "path": { "type": "string", "minLength": 1 },
          "content": { "type": "string" }
        }
      }
    }
  }
}`

var bundled = map[string]string{
	ManagerPrompt:   bundledManagerPrompt,
	ArchitectPrompt: bundledArchitectPrompt,
	CoderPrompt:     bundledCoderPrompt,
	ReviewerPrompt:  bundledReviewerPrompt,
	PayloadSchema:   bundledPayloadSchema,
}

// BundledPayloadSchema returns the embedded payload schema JSON.
func BundledPayloadSchema() []byte {
	return []byte(bundledPayloadSchema)
}

// Store loads prompt assets, preferring per-project overrides over the
// bundled defaults.
type Store struct {
	dir string
}

// NewStore creates a prompt store. An empty promptDir means bundled-only.
func NewStore(promptDir string) *Store {
	return &Store{dir: promptDir}
}

// Dir returns the override directory, which may be empty.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads a prompt asset, falling back to the bundled copy when no
// override file exists.
func (s *Store) Load(name string) (string, error) {
	if name == "" {
		return "", errors.New("prompt name is empty")
	}
	if s.dir != "" {
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read prompt %q: %w", name, err)
		}
	}
	text, ok := bundled[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	return text, nil
}
