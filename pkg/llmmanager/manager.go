package llmmanager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/agentrt/runtime/pkg/httpclient"
	"github.com/agentrt/runtime/pkg/metrics"
)

// Manager is the runtime's single interface over every configured
// chat-completion provider (§4.3).
type Manager struct {
	providers *ProviderRegistry
	http      *httpclient.Client
	metrics   *metrics.Metrics
}

// New builds a Manager over the given provider registry and shared
// HTTP client (§5 "single connection-pooled HTTP client shared by Tool
// and LLM Managers").
func New(providers *ProviderRegistry, client *httpclient.Client) *Manager {
	return &Manager{providers: providers, http: client}
}

// WithMetrics attaches a metrics sink. A nil mtr disables recording.
func (m *Manager) WithMetrics(mtr *metrics.Metrics) *Manager {
	m.metrics = mtr
	return m
}

// Chat sends one non-streaming chat-completion call and normalizes the
// provider's response (§4.3).
func (m *Manager) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	entry, err := m.providers.Get(req.Provider)
	if err != nil {
		return ChatResponse{}, err
	}
	model := req.Model
	if model == "" {
		model = entry.DefaultModel
	}
	started := time.Now()

	messages := req.Messages
	if req.SystemPrompt != "" {
		messages = append([]Message{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	body := providerChatRequest{
		Messages:    messages,
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      false,
		TopP:        req.TopP,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llmmanager: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, entry.BaseURL+entry.ChatPath, bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llmmanager: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if key := os.Getenv(entry.APIKeyEnv); key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := m.http.Do(httpReq)
	if err != nil {
		m.metrics.RecordLLMError(model, entry.Name)
		return ChatResponse{Success: false, Provider: entry.Name, Model: model, Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		m.metrics.RecordLLMError(model, entry.Name)
		return ChatResponse{Success: false, Provider: entry.Name, Model: model, Error: fmt.Sprintf("reading response: %v", err)}, nil
	}
	var parsed providerChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		m.metrics.RecordLLMError(model, entry.Name)
		return ChatResponse{Success: false, Provider: entry.Name, Model: model, Error: fmt.Sprintf("decoding response: %v", err)}, nil
	}

	if parsed.Error != nil {
		m.metrics.RecordLLMError(model, entry.Name)
		return ChatResponse{Success: false, Provider: entry.Name, Model: model, Error: parsed.Error.Message}, nil
	}
	if resp.StatusCode >= 400 {
		m.metrics.RecordLLMError(model, entry.Name)
		return ChatResponse{Success: false, Provider: entry.Name, Model: model, Error: fmt.Sprintf("provider returned status %d", resp.StatusCode)}, nil
	}

	usage := parsed.Usage.toUsage()
	m.metrics.RecordLLMCall(model, entry.Name, time.Since(started), usage.PromptTokens, usage.CompletionTokens)

	content := parsed.extractContent()
	if content == "" {
		content = string(bytes.TrimSpace(raw))
	}
	return ChatResponse{
		Success:  true,
		Content:  content,
		Model:    model,
		Provider: entry.Name,
		Usage:    usage,
	}, nil
}

// StreamToken is one incremental piece of a streaming chat response.
type StreamToken struct {
	Content string
	Done    bool
	Usage   Usage
	Err     error
}

// ChatStream sends a streaming chat-completion call and returns a
// channel of incremental tokens, parsing the provider's
// Server-Sent-Events feed (§4.3: "data:" lines terminated by
// "[DONE]"). The channel is closed when the stream ends or ctx is
// cancelled.
func (m *Manager) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamToken, error) {
	entry, err := m.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}
	model := req.Model
	if model == "" {
		model = entry.DefaultModel
	}

	messages := req.Messages
	if req.SystemPrompt != "" {
		messages = append([]Message{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	body := providerChatRequest{
		Messages:    messages,
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
		TopP:        req.TopP,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llmmanager: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, entry.BaseURL+entry.ChatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("llmmanager: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if key := os.Getenv(entry.APIKeyEnv); key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := m.http.Do(httpReq)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamToken, 32)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		m.scanStream(ctx, resp, out)
	}()
	return out, nil
}

func (m *Manager) scanStream(ctx context.Context, resp *http.Response, out chan<- StreamToken) {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var usage Usage
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		line = bytes.TrimSpace(line[len("data:"):])
		if bytes.Equal(line, []byte("[DONE]")) {
			out <- StreamToken{Done: true, Usage: usage}
			return
		}
		if len(line) == 0 {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Usage != nil {
			usage = chunk.Usage.toUsage()
		}
		token := chunk.extractToken()
		if token != "" {
			out <- StreamToken{Content: token}
		}
	}
	if err := scanner.Err(); err != nil {
		out <- StreamToken{Err: err}
		return
	}
	out <- StreamToken{Done: true, Usage: usage}
}

// streamChunk is one SSE event payload. Providers vary in where the
// incremental token lives: choices[0].delta.content, a bare "token"
// field, or a bare "content" field (§4.3).
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Token   string    `json:"token"`
	Content string    `json:"content"`
	Usage   *rawUsage `json:"usage"`
}

func (c *streamChunk) extractToken() string {
	if len(c.Choices) > 0 && c.Choices[0].Delta.Content != "" {
		return c.Choices[0].Delta.Content
	}
	if c.Token != "" {
		return c.Token
	}
	return c.Content
}
