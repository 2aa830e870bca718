package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agentpipe/internal/llm"
	"agentpipe/internal/prompts"
	"agentpipe/internal/runlog"
)

// Turn is one message in the conversation.
type Turn struct {
	Speaker string
	Content string
}

// Chat runs a round-robin group chat over an LLM client. Every turn is
// written to the log writer as it happens, so a failed run still leaves the
// turns that completed.
type Chat struct {
	client    llm.Client
	roster    []Agent
	maxRounds int
	logWriter runlog.Writer
}

// NewChat creates a chat engine. maxRounds caps the number of agent turns.
func NewChat(client llm.Client, roster []Agent, maxRounds int, logWriter runlog.Writer) (*Chat, error) {
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if len(roster) == 0 {
		return nil, errors.New("agent roster is empty")
	}
	if maxRounds <= 0 {
		return nil, fmt.Errorf("max rounds must be positive, got %d", maxRounds)
	}
	return &Chat{
		client:    client,
		roster:    roster,
		maxRounds: maxRounds,
		logWriter: runlog.Locked(logWriter),
	}, nil
}

// Run drives the conversation for a feature request. Agents speak in roster
// order until the reviewer approves or maxRounds turns have passed. The
// returned turns include the opening user message.
func (c *Chat) Run(ctx context.Context, feature string) ([]Turn, error) {
	opening := fmt.Sprintf("We need a new feature: %s. Collaborate & output boilerplate code.", feature)
	turns := []Turn{{Speaker: UserName, Content: opening}}
	if err := c.logTurn(turns[0]); err != nil {
		return turns, err
	}

	for i := 0; i < c.maxRounds; i++ {
		if err := ctx.Err(); err != nil {
			return turns, err
		}

		agent := c.roster[i%len(c.roster)]
		req := llm.Request{
			System:   agent.System,
			Messages: viewFor(agent, turns),
		}

		content, err := c.client.Complete(ctx, req)
		if err != nil {
			c.logError(fmt.Sprintf("%s turn failed: %v", agent.Name, err))
			return turns, fmt.Errorf("%s turn: %w", agent.Name, err)
		}

		turn := Turn{Speaker: agent.Name, Content: content}
		turns = append(turns, turn)
		if err := c.logTurn(turn); err != nil {
			return turns, err
		}

		if agent.Name == "Reviewer" && isApproval(content) {
			break
		}
	}

	return turns, nil
}

// viewFor maps the shared transcript into one agent's perspective: its own
// turns become assistant messages, everyone else's become user messages
// prefixed with the speaker name.
func viewFor(agent Agent, turns []Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		if t.Speaker == agent.Name {
			msgs = append(msgs, llm.Message{Role: "assistant", Content: t.Content})
			continue
		}
		msgs = append(msgs, llm.Message{
			Role:    "user",
			Content: fmt.Sprintf("%s: %s", t.Speaker, t.Content),
		})
	}
	return msgs
}

func isApproval(content string) bool {
	return strings.TrimSpace(content) == prompts.ReviewerApproval
}

func (c *Chat) logTurn(turn Turn) error {
	return c.logWriter.Write(runlog.Event{
		Type:      runlog.EventMessage,
		Speaker:   turn.Speaker,
		Content:   turn.Content,
		Timestamp: time.Now().UTC(),
	})
}

func (c *Chat) logError(msg string) {
	_ = c.logWriter.Write(runlog.Event{
		Type:      runlog.EventError,
		Content:   msg,
		Timestamp: time.Now().UTC(),
	})
}
