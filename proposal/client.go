// Package proposal talks to the external correction collaborator: a
// remote language model that receives batches of text-bearing nodes and
// returns candidate corrections. The engine never inspects how proposals
// are generated; any transport or shape problem from the collaborator is
// an error here and degrades to an empty correction list at the
// dispatcher, never a run failure.
package proposal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stencilworks/redline/editor"
)

// NodeText is the wire shape of one text node submitted for review.
type NodeText struct {
	ID   int    `json:"id"`
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// Proposer is the proposal collaborator boundary.
type Proposer interface {
	Propose(ctx context.Context, nodes []NodeText) ([]editor.CorrectionRecord, error)
}

const systemPrompt = `You are a copy editor for marketing emails. You receive a JSON array of text fragments, each with an id, its element tag, and its text. Find spelling and grammar errors and respond with ONLY a JSON array of corrections, one object per fragment that needs changes:
[{"id": 0, "tag": "p", "original": "...", "corrected": "...", "changes": [{"find": "exact error text", "replace": "corrected text", "reason": "short explanation"}]}]
The find value must be the exact substring as it appears in the text. Fragments without issues must not appear in the output. Respond with [] when nothing needs fixing.`

// maxResponseBody caps collaborator response reads (1 MiB).
const maxResponseBody int64 = 1 << 20

// ClientConfig configures the LLM collaborator client.
type ClientConfig struct {
	// BaseURL of an OpenAI-compatible chat completions server.
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	// MaxTokens per completion. Default 2048.
	MaxTokens int `yaml:"max_tokens"`
	// Timeout for one chunk's round trip. Default 60s.
	Timeout time.Duration `yaml:"timeout"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *ClientConfig) defaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// LLMClient is an OpenAI-style chat completions client.
type LLMClient struct {
	cfg    ClientConfig
	client *http.Client
	logger *slog.Logger
}

// NewLLMClient creates a collaborator client.
func NewLLMClient(cfg ClientConfig) *LLMClient {
	cfg.defaults()
	return &LLMClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Propose submits one chunk of nodes and parses the returned corrections.
func (c *LLMClient) Propose(ctx context.Context, nodes []NodeText) ([]editor.CorrectionRecord, error) {
	payload, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("marshal nodes: %w", err)
	}

	reqBody, err := json.Marshal(chatRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payload)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("collaborator request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("collaborator returned status %d: %s", resp.StatusCode, body)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("collaborator returned no choices")
	}

	records, err := parseCorrections(chat.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("proposal chunk completed",
		"nodes", len(nodes),
		"records", len(records),
		"duration", time.Since(start))
	return records, nil
}

// parseCorrections extracts the correction array from model output,
// tolerating fenced code blocks and surrounding prose.
func parseCorrections(content string) ([]editor.CorrectionRecord, error) {
	lo := strings.Index(content, "[")
	hi := strings.LastIndex(content, "]")
	if lo < 0 || hi < lo {
		return nil, fmt.Errorf("no JSON array in collaborator output")
	}
	var records []editor.CorrectionRecord
	if err := json.Unmarshal([]byte(content[lo:hi+1]), &records); err != nil {
		return nil, fmt.Errorf("parse corrections: %w", err)
	}
	return records, nil
}
