package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeMarkdown(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo_output.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFences(t *testing.T) {
	md := "### Coder\n\n```java\nclass A {}\n```\n\nplain text\n\n```json\n{\"x\": 1}\n```\n"
	fences, err := Fences([]byte(md))
	if err != nil {
		t.Fatal(err)
	}
	if len(fences) != 2 {
		t.Fatalf("expected 2 fences, got %d", len(fences))
	}
	if fences[0].Lang != "java" || !strings.Contains(fences[0].Body, "class A") {
		t.Errorf("fence 0 = %+v", fences[0])
	}
	if fences[1].Lang != "json" {
		t.Errorf("fence 1 lang = %q, want json", fences[1].Lang)
	}
}

func TestClassName(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"public class", "public class LoginController {}", "LoginController"},
		{"plain class", "class JwtUtil {}", "JwtUtil"},
		{"with package", "package com.example;\n\npublic class App {}", "App"},
		{"no class", "int x = 1;", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassName(tt.code); got != tt.want {
				t.Errorf("ClassName(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestPathForClass(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{
			"package maps to directories",
			"package com.example.demo;\npublic class App {}",
			filepath.Join("com", "example", "demo", "App.java"),
		},
		{
			"no package stays at root",
			"public class App {}",
			"App.java",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PathForClass(tt.code, "App"); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	t.Run("two java fences yield two files", func(t *testing.T) {
		md := "### Coder\n\n" +
			"```java\npackage com.example.demo;\n\npublic class LoginController {\n}\n```\n\n" +
			"```java\npackage com.example.demo.security;\n\npublic class JwtUtil {\n}\n```\n"
		outDir := filepath.Join(t.TempDir(), "extracted_src")

		written, err := Extract(writeMarkdown(t, md), outDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(written) != 2 {
			t.Fatalf("expected 2 files, got %d: %v", len(written), written)
		}
		for _, want := range []string{
			filepath.Join(outDir, "com", "example", "demo", "LoginController.java"),
			filepath.Join(outDir, "com", "example", "demo", "security", "JwtUtil.java"),
		} {
			data, err := os.ReadFile(want)
			if err != nil {
				t.Fatalf("missing extracted file %s: %v", want, err)
			}
			if !strings.HasSuffix(string(data), "\n") {
				t.Errorf("%s does not end with a newline", want)
			}
		}
	})

	t.Run("files payload with inline content", func(t *testing.T) {
		md := "### Coder\n\n```json\n" +
			`{"files": [` +
			`{"path": "src/main/java/com/example/demo/LoginController.java", "content": "package com.example.demo;\n\npublic class LoginController {}\n"},` +
			`{"path": "src/main/java/com/example/demo/security/JwtUtil.java", "content": "package com.example.demo.security;\n\npublic class JwtUtil {}\n"},` +
			`{"path": "pom.xml", "content": "<project/>"}` +
			`]}` + "\n```\n"
		outDir := filepath.Join(t.TempDir(), "out")

		written, err := Extract(writeMarkdown(t, md), outDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(written) != 2 {
			t.Fatalf("expected only the .java entries, got %d: %v", len(written), written)
		}
		data, err := os.ReadFile(filepath.Join(outDir, "src", "main", "java", "com", "example", "demo", "LoginController.java"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "class LoginController") {
			t.Errorf("unexpected content: %s", data)
		}
	})

	t.Run("javaClass ref picks up the next java fence", func(t *testing.T) {
		md := "```json\n{\"javaClass\": {\"path\": \"com/example/Service.java\"}}\n```\n\n" +
			"```java\npublic class Service { void run() {} }\n```\n"
		outDir := filepath.Join(t.TempDir(), "out")

		written, err := Extract(writeMarkdown(t, md), outDir)
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, path := range written {
			if strings.HasSuffix(path, filepath.Join("com", "example", "Service.java")) {
				found = true
				data, err := os.ReadFile(path)
				if err != nil {
					t.Fatal(err)
				}
				if !strings.Contains(string(data), "void run()") {
					t.Errorf("ref did not pick up the fence body: %s", data)
				}
			}
		}
		if !found {
			t.Fatalf("Service.java not written, got %v", written)
		}
	})

	t.Run("announce then implement yields one file", func(t *testing.T) {
		// The json announcement and the fence's package-derived path resolve
		// to the same output file; that must collapse, not error.
		md := "```json\n{\"javaClass\": {\"path\": \"com/example/Service.java\"}}\n```\n\n" +
			"```java\npackage com.example;\n\npublic class Service { void run() {} }\n```\n"
		outDir := filepath.Join(t.TempDir(), "out")

		written, err := Extract(writeMarkdown(t, md), outDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(written) != 1 {
			t.Fatalf("expected exactly 1 file, got %v", written)
		}
		data, err := os.ReadFile(filepath.Join(outDir, "com", "example", "Service.java"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "void run()") {
			t.Errorf("wrong content written: %s", data)
		}
	})

	t.Run("identical repeated fences collapse", func(t *testing.T) {
		md := "```java\npublic class Same {}\n```\n\n```java\npublic class Same {}\n```\n"
		outDir := filepath.Join(t.TempDir(), "out")

		written, err := Extract(writeMarkdown(t, md), outDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(written) != 1 {
			t.Errorf("expected 1 file, got %v", written)
		}
	})

	t.Run("javaClass ref without a fence gets a stub", func(t *testing.T) {
		md := "```json\n{\"javaClass\": {\"name\": \"Orphan\"}}\n```\n"
		outDir := filepath.Join(t.TempDir(), "out")

		written, err := Extract(writeMarkdown(t, md), outDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(written) != 1 {
			t.Fatalf("expected 1 stub, got %v", written)
		}
		data, err := os.ReadFile(written[0])
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "public class Orphan") {
			t.Errorf("stub missing class declaration: %s", data)
		}
	})

	t.Run("duplicate output path fails before writing", func(t *testing.T) {
		md := "```java\npublic class Dup {}\n```\n\n```java\npublic class Dup { int x; }\n```\n"
		outDir := filepath.Join(t.TempDir(), "out")

		_, err := Extract(writeMarkdown(t, md), outDir)
		var dup *DuplicateClassError
		if !errors.As(err, &dup) {
			t.Fatalf("expected DuplicateClassError, got %v", err)
		}
		if _, statErr := os.Stat(outDir); !os.IsNotExist(statErr) {
			entries, _ := os.ReadDir(outDir)
			if len(entries) > 0 {
				t.Errorf("files were written despite duplicate: %v", entries)
			}
		}
	})

	t.Run("unsafe payload paths are rejected", func(t *testing.T) {
		md := "```json\n{\"files\": [{\"path\": \"../escape/Evil.java\", \"content\": \"class Evil {}\"}]}\n```\n"
		outDir := filepath.Join(t.TempDir(), "out")

		if _, err := Extract(writeMarkdown(t, md), outDir); err == nil {
			t.Fatal("expected error for path escaping the output dir")
		}
	})

	t.Run("no classes yields no files and no error", func(t *testing.T) {
		md := "### PM\n\njust prose, no code\n"
		outDir := filepath.Join(t.TempDir(), "out")

		written, err := Extract(writeMarkdown(t, md), outDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(written) != 0 {
			t.Errorf("expected no files, got %v", written)
		}
	})

	t.Run("missing markdown is an error", func(t *testing.T) {
		if _, err := Extract(filepath.Join(t.TempDir(), "nope.md"), ""); err == nil {
			t.Fatal("expected error for missing markdown file")
		}
	})
}
