package llmmanager

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrt/runtime/pkg/httpclient"
)

func testManager(t *testing.T, baseURL string) *Manager {
	t.Helper()
	reg := NewProviderRegistry()
	reg.Register(ProviderEntry{Name: "stub", BaseURL: baseURL, ChatPath: "/chat", DefaultModel: "stub-1"})
	return New(reg, httpclient.New())
}

func TestManager_Chat_ContentFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message.content", `{"message":{"content":"hi from message"}}`, "hi from message"},
		{"content", `{"content":"hi bare"}`, "hi bare"},
		{"choices message", `{"choices":[{"message":{"content":"hi choice"}}]}`, "hi choice"},
		{"choices text", `{"choices":[{"text":"hi text"}]}`, "hi text"},
		{"response", `{"response":"hi response"}`, "hi response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			m := testManager(t, srv.URL)
			resp, err := m.Chat(context.Background(), ChatRequest{Provider: "stub", Messages: []Message{{Role: "user", Content: "hi"}}})
			require.NoError(t, err)
			assert.True(t, resp.Success)
			assert.Equal(t, tc.want, resp.Content)
		})
	}
}

func TestManager_Chat_UsageFallsBackToSum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":"ok","usage":{"prompt_tokens":10,"completion_tokens":5}}`)
	}))
	defer srv.Close()

	m := testManager(t, srv.URL)
	resp, err := m.Chat(context.Background(), ChatRequest{Provider: "stub"})
	require.NoError(t, err)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestManager_Chat_UnknownProviderErrors(t *testing.T) {
	m := testManager(t, "http://unused")
	_, err := m.Chat(context.Background(), ChatRequest{Provider: "nope"})
	assert.Error(t, err)
}

func TestManager_ChatStream_ParsesSSEUntilDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	m := testManager(t, srv.URL)
	ch, err := m.ChatStream(context.Background(), ChatRequest{Provider: "stub"})
	require.NoError(t, err)

	var got string
	var sawDone bool
	for tok := range ch {
		require.NoError(t, tok.Err)
		got += tok.Content
		if tok.Done {
			sawDone = true
		}
	}
	assert.Equal(t, "Hello", got)
	assert.True(t, sawDone)
}
