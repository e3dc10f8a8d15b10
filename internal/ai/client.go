// Package ai holds the optional LLM-backed parsing and generation
// collaborators and the similarity-retrieval store. Every collaborator is
// probed for availability at call time; any failure falls back to the
// rule-based path at the integration boundary and never surfaces as a
// user-visible failure.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	defaultModel   = "claude-sonnet-4-20250514"
)

// Client is a minimal Anthropic Messages API client
type Client struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client. An empty apiKey yields an unavailable client,
// which callers treat as "collaborator absent".
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Available reports whether the API can be called
func (c *Client) Available() bool {
	return c != nil && strings.HasPrefix(c.apiKey, "sk-ant-")
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one user turn and returns the response text
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("llm client not available")
	}

	reqBody, err := json.Marshal(messageRequest{
		Model:     c.model,
		MaxTokens: 4096,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode llm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("llm error (%s): %s", parsed.Error.Type, parsed.Error.Message)
		}
		return "", fmt.Errorf("llm request returned status %d", resp.StatusCode)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("llm response has no content")
	}

	return parsed.Content[0].Text, nil
}

// CompleteJSON requests a JSON-only answer and unmarshals it into out
func (c *Client) CompleteJSON(ctx context.Context, system, user string, out interface{}) error {
	system += "\n\nRespond with valid JSON only. Do not include any other text."

	text, err := c.Complete(ctx, system, user)
	if err != nil {
		return err
	}

	text = stripCodeFence(text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("malformed llm json: %w", err)
	}
	return nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
