// Package llmmanager is one interface over multiple chat-completion
// providers (§4.3). It is a stateless HTTP fan-out layer: it holds a
// provider endpoint registry and calls out through the shared
// httpclient.Client.
package llmmanager

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is cumulative token accounting (§3 ExecutionContext.usage).
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns the elementwise sum of two Usage values (§3 invariant:
// "ExecutionContext.usage equals the elementwise sum of usage across its
// step_results").
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// ChatRequest is the Chat contract's input (§4.3).
type ChatRequest struct {
	Messages     []Message
	Provider     string
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	TopP         *float64
}

// ChatResponse is the Chat contract's output (§4.3).
type ChatResponse struct {
	Success  bool
	Content  string
	Model    string
	Provider string
	Usage    Usage
	Error    string
}

// providerChatRequest is the wire shape POSTed to the chat peer (§6.3).
type providerChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
	TopP        *float64  `json:"top_p,omitempty"`
}

// providerChatResponse covers the fallback-parse sequence named in §4.3:
// message.content -> content -> choices[0].message.content ->
// choices[0].text -> response -> string form. extractContent walks the
// first five; Manager.Chat supplies the last, the raw response body text,
// when all of them are empty.
type providerChatResponse struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Content string `json:"content"`
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Response string      `json:"response"`
	Usage    *rawUsage   `json:"usage"`
	Error    *apiError   `json:"error"`
}

type rawUsage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
}

func (u *rawUsage) toUsage() Usage {
	if u == nil {
		return Usage{}
	}
	out := Usage{}
	if u.PromptTokens != nil {
		out.PromptTokens = *u.PromptTokens
	}
	if u.CompletionTokens != nil {
		out.CompletionTokens = *u.CompletionTokens
	}
	if u.TotalTokens != nil {
		out.TotalTokens = *u.TotalTokens
	} else {
		// §4.3 / §8: total defaults to the sum of the other two when absent.
		out.TotalTokens = out.PromptTokens + out.CompletionTokens
	}
	return out
}

func (r *providerChatResponse) extractContent() string {
	if r.Message != nil && r.Message.Content != "" {
		return r.Message.Content
	}
	if r.Content != "" {
		return r.Content
	}
	if len(r.Choices) > 0 {
		c := r.Choices[0]
		if c.Message != nil && c.Message.Content != "" {
			return c.Message.Content
		}
		if c.Text != "" {
			return c.Text
		}
	}
	if r.Response != "" {
		return r.Response
	}
	return ""
}
