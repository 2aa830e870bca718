package agents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"agentpipe/internal/prompts"
)

// Payload is the Coder's structured answer: the generated files.
type Payload struct {
	Files []PayloadFile `json:"files"`
}

// PayloadFile is one generated file.
type PayloadFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ErrNoPayload indicates no valid files payload was found in the
// conversation.
var ErrNoPayload = errors.New("coder did not return a valid files payload")

// RawDumpName is where the raw messages go when payload extraction fails,
// so the model output can be inspected.
const RawDumpName = "coder_raw_dump.txt"

var jsonFence = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// JSONBlocks yields candidate JSON objects from a message: fenced blocks
// first, then the whole message if it is itself a bare object.
func JSONBlocks(text string) []string {
	var blocks []string
	for _, m := range jsonFence.FindAllStringSubmatch(text, -1) {
		blocks = append(blocks, m[1])
	}
	stripped := strings.TrimSpace(text)
	if strings.HasPrefix(stripped, "{") && strings.HasSuffix(stripped, "}") {
		blocks = append(blocks, stripped)
	}
	return blocks
}

// ParsePayload scans the conversation for the first JSON block that
// validates against the files payload schema.
func ParsePayload(turns []Turn) (*Payload, error) {
	schema, err := compilePayloadSchema()
	if err != nil {
		return nil, err
	}

	for _, turn := range turns {
		for _, block := range JSONBlocks(turn.Content) {
			var generic any
			if err := json.Unmarshal([]byte(block), &generic); err != nil {
				continue
			}
			if err := schema.Validate(generic); err != nil {
				continue
			}
			var payload Payload
			if err := json.Unmarshal([]byte(block), &payload); err != nil {
				continue
			}
			return &payload, nil
		}
	}
	return nil, ErrNoPayload
}

func compilePayloadSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(prompts.PayloadSchema, bytes.NewReader(prompts.BundledPayloadSchema())); err != nil {
		return nil, fmt.Errorf("add payload schema: %w", err)
	}
	schema, err := compiler.Compile(prompts.PayloadSchema)
	if err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}
	return schema, nil
}

// Materialize writes the payload under outDir: the first .java entry (or the
// first entry when none is Java) plus pom.xml when present. Returns the
// written paths.
func Materialize(payload *Payload, outDir string) ([]string, error) {
	if payload == nil || len(payload.Files) == 0 {
		return nil, ErrNoPayload
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	entry := payload.Files[0]
	for _, f := range payload.Files {
		if strings.HasSuffix(f.Path, ".java") {
			entry = f
			break
		}
	}

	var written []string
	path, err := writePayloadFile(outDir, entry)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	for _, f := range payload.Files {
		if f.Path == "pom.xml" && f.Path != entry.Path {
			path, err := writePayloadFile(outDir, f)
			if err != nil {
				return written, err
			}
			written = append(written, path)
			break
		}
	}
	return written, nil
}

func writePayloadFile(outDir string, f PayloadFile) (string, error) {
	rel := filepath.Clean(strings.TrimSpace(f.Path))
	if rel == "" || rel == "." || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("payload file has unsafe path %q", f.Path)
	}
	dest := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", rel, err)
	}
	content := strings.TrimRight(f.Content, "\n") + "\n"
	if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return dest, nil
}

// DumpRaw writes all turn bodies to path for post-mortem inspection when no
// payload was found.
func DumpRaw(turns []Turn, path string) error {
	var parts []string
	for _, t := range turns {
		parts = append(parts, t.Content)
	}
	data := strings.Join(parts, "\n\n---\n\n")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("write raw dump: %w", err)
	}
	return nil
}
