// Package extract materialises Java classes from a markdown transcript.
//
// Two shapes are recognised, matching what the agents produce: literal
// ```java fences containing a class, and ```json fences carrying a
// "javaClass" object whose implementation follows in the next java fence.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultOutDir is where extracted classes land unless the caller supplies a
// directory.
const DefaultOutDir = "extracted_src"

var (
	classRe   = regexp.MustCompile(`\bclass\s+([A-Za-z_][A-Za-z0-9_]*)`)
	packageRe = regexp.MustCompile(`(?m)^\s*package\s+([A-Za-z0-9_.]+);`)
)

// Fence is one fenced code block from the markdown document, in document
// order.
type Fence struct {
	Lang string
	Body string
}

// DuplicateClassError reports two blocks resolving to the same output path
// with conflicting content. Extraction fails loudly rather than silently
// overwriting.
type DuplicateClassError struct {
	Path string
}

func (e *DuplicateClassError) Error() string {
	return fmt.Sprintf("duplicate class output path %q", e.Path)
}

// Fences parses markdown and returns all fenced code blocks in order.
func Fences(source []byte) ([]Fence, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var fences []Fence
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}
		fences = append(fences, Fence{
			Lang: strings.ToLower(string(fcb.Language(source))),
			Body: buf.String(),
		})
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk markdown: %w", err)
	}
	return fences, nil
}

// ClassName returns the first declared class name in code, or "".
func ClassName(code string) string {
	m := classRe.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1]
}

// PathForClass derives the output path for a class: the package line maps to
// a directory tree (com.foo -> com/foo), otherwise the file sits at the
// output root.
func PathForClass(code, className string) string {
	if m := packageRe.FindStringSubmatch(code); m != nil {
		pkgPath := strings.ReplaceAll(m[1], ".", "/")
		return filepath.Join(pkgPath, className+".java")
	}
	return className + ".java"
}

// javaClassRef is the JSON shape some agent replies use to announce a class.
type javaClassRef struct {
	JavaClass *struct {
		Path string `json:"path"`
		Name string `json:"name"`
	} `json:"javaClass"`
}

// filesPayload is the Coder's structured answer; its .java entries carry
// their implementation inline.
type filesPayload struct {
	Files []struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	} `json:"files"`
}

type extracted struct {
	relPath string
	code    string
}

// Extract scans the markdown file and writes each detected class under
// outDir, creating it if absent. Returns the written paths in document
// order. Two blocks resolving to the same path with different content abort
// before anything is overwritten.
func Extract(mdPath, outDir string) ([]string, error) {
	if outDir == "" {
		outDir = DefaultOutDir
	}
	source, err := os.ReadFile(mdPath)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	fences, err := Fences(source)
	if err != nil {
		return nil, err
	}

	var files []extracted

	// Literal java fences with a class declaration.
	for _, f := range fences {
		if f.Lang != "java" {
			continue
		}
		name := ClassName(f.Body)
		if name == "" {
			continue
		}
		files = append(files, extracted{
			relPath: PathForClass(f.Body, name),
			code:    f.Body,
		})
	}

	// JSON payloads. Two shapes: the Coder's files payload with inline
	// implementations, and a javaClass announcement whose implementation is
	// the next java fence (or a stub when none follows).
	for i, f := range fences {
		if f.Lang != "json" && f.Lang != "" {
			continue
		}
		body := strings.TrimSpace(f.Body)

		var payload filesPayload
		if err := json.Unmarshal([]byte(body), &payload); err == nil && len(payload.Files) > 0 {
			for _, pf := range payload.Files {
				if !strings.HasSuffix(pf.Path, ".java") {
					continue
				}
				files = append(files, extracted{relPath: pf.Path, code: pf.Content})
			}
			continue
		}

		var ref javaClassRef
		if err := json.Unmarshal([]byte(body), &ref); err != nil {
			continue
		}
		if ref.JavaClass == nil {
			continue
		}
		relPath := ref.JavaClass.Path
		if relPath == "" {
			if ref.JavaClass.Name == "" {
				continue
			}
			relPath = ref.JavaClass.Name + ".java"
		}
		code := nextJavaFence(fences, i+1)
		if code == "" {
			code = stubClass(relPath)
		}
		files = append(files, extracted{relPath: relPath, code: code})
	}

	// A javaClass announcement followed by its implementation fence resolves
	// to the same path twice with the same code; collapse those. Refuse
	// genuinely conflicting duplicates before writing anything.
	seen := make(map[string]string, len(files))
	unique := files[:0]
	for _, f := range files {
		rel := filepath.Clean(f.relPath)
		code := strings.TrimRight(f.code, "\n")
		if prev, ok := seen[rel]; ok {
			if prev == code {
				continue
			}
			return nil, &DuplicateClassError{Path: rel}
		}
		seen[rel] = code
		unique = append(unique, f)
	}
	files = unique

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, f := range files {
		dest, err := writeClass(outDir, f.relPath, f.code)
		if err != nil {
			return written, err
		}
		written = append(written, dest)
	}
	return written, nil
}

func nextJavaFence(fences []Fence, from int) string {
	for _, f := range fences[from:] {
		if f.Lang == "java" {
			return f.Body
		}
	}
	return ""
}

// stubClass generates a placeholder implementation for a class announced in
// JSON without a following code fence.
func stubClass(relPath string) string {
	name := strings.TrimSuffix(filepath.Base(relPath), ".java")
	dir := filepath.Dir(relPath)
	var b strings.Builder
	if dir != "." {
		pkg := strings.ReplaceAll(filepath.ToSlash(dir), "/", ".")
		fmt.Fprintf(&b, "package %s;\n\n", pkg)
	}
	fmt.Fprintf(&b, "public class %s {\n    // TODO: implement\n}\n", name)
	return b.String()
}

func writeClass(outDir, relPath, code string) (string, error) {
	rel := filepath.Clean(relPath)
	if rel == "." || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("class has unsafe path %q", relPath)
	}
	dest := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", rel, err)
	}
	content := strings.TrimRight(code, "\n") + "\n"
	if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return dest, nil
}
