package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MockClient is an offline stand-in that plays each role from canned
// responses, keyed off the system prompt. It lets the whole pipeline run
// without a model backend (provider = "mock" or the -mock flag).
type MockClient struct{}

// NewMockClient returns a role-aware mock.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Complete answers with a canned response for the role implied by the system
// prompt.
func (m *MockClient) Complete(_ context.Context, req Request) (string, error) {
	feature := lastUserContent(req.Messages)
	sys := strings.ToLower(req.System)
	switch {
	case strings.Contains(sys, "product"):
		return fmt.Sprintf("User stories:\n- As a user I want %s\nAcceptance criteria:\n- Feature works end to end\n", firstLine(feature)), nil
	case strings.Contains(sys, "architect"):
		return "Design:\n- module `web` with a controller layer\n- module `security` with a token utility\n\nMaven tree:\n```\nsrc/main/java/com/example/demo\n```\n", nil
	case strings.Contains(sys, "code generator"):
		return mockCoderPayload, nil
	case strings.Contains(sys, "reviewer"):
		return "LGTM", nil
	default:
		return "", errors.New("mock llm: unrecognized role in system prompt")
	}
}

const mockCoderPayload = "```json\n" +
	`{
  "files": [
    {
      "path": "src/main/java/com/example/demo/LoginController.java",
      "content": "package com.example.demo;\n\npublic class LoginController {\n}\n"
    },
    {
      "path": "src/main/java/com/example/demo/JwtUtil.java",
      "content": "package com.example.demo;\n\npublic class JwtUtil {\n}\n"
    },
    {
      "path": "pom.xml",
      "content": "<project></project>\n"
    }
  ]
}` + "\n```\n"

func lastUserContent(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// ScriptedClient returns a fixed sequence of responses. Intended for tests.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []string
	next      int
}

// NewScriptedClient builds a ScriptedClient from the given responses.
func NewScriptedClient(responses ...string) *ScriptedClient {
	return &ScriptedClient{responses: responses}
}

// Complete returns the next scripted response.
func (s *ScriptedClient) Complete(_ context.Context, _ Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.responses) {
		return "", errors.New("scripted llm: no responses left")
	}
	resp := s.responses[s.next]
	s.next++
	return resp, nil
}
