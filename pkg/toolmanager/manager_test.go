package toolmanager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrt/runtime/pkg/httpclient"
)

func newManagerWithTool(t *testing.T, handler http.HandlerFunc, entry RegistryEntry) (*Manager, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	entry.BaseURL = srv.URL
	reg := NewRegistry()
	reg.Register(entry)
	return New(reg, httpclient.New()), srv
}

func TestManager_Execute_JSONBody(t *testing.T) {
	m, srv := newManagerWithTool(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"result":42}`))
	}, RegistryEntry{ToolID: "calc", EndpointPath: "/run"})
	defer srv.Close()

	result := m.Execute(context.Background(), "calc", map[string]any{"x": 1}, nil, 0)
	require.True(t, result.Success)
	assert.Equal(t, map[string]any{"result": float64(42)}, result.Output)
}

func TestManager_Execute_MultipartWhenFilesPresent(t *testing.T) {
	m, srv := newManagerWithTool(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("document")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "report.txt", header.Filename)
		w.Write([]byte(`{"ok":true}`))
	}, RegistryEntry{ToolID: "ingest", EndpointPath: "/run", RequiresFileInput: true})
	defer srv.Close()

	result := m.Execute(context.Background(), "ingest", map[string]any{"mode": "fast"},
		[]File{{FieldName: "document", Filename: "report.txt", Bytes: []byte("hello")}}, 0)
	require.True(t, result.Success)
}

func TestManager_Execute_UnknownToolFails(t *testing.T) {
	m := New(NewRegistry(), httpclient.New())
	result := m.Execute(context.Background(), "nope", nil, nil, 0)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestManager_Execute_TimeoutProducesFailure(t *testing.T) {
	m, srv := newManagerWithTool(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{}`))
	}, RegistryEntry{ToolID: "slow", EndpointPath: "/run"})
	defer srv.Close()

	result := m.Execute(context.Background(), "slow", nil, nil, 5*time.Millisecond)
	assert.False(t, result.Success)
}

func TestManager_CheckHealth(t *testing.T) {
	m, srv := newManagerWithTool(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte("ok"))
	}, RegistryEntry{ToolID: "calc", EndpointPath: "/run"})
	defer srv.Close()

	healthy, detail, err := m.CheckHealth(context.Background(), "calc")
	require.NoError(t, err)
	assert.True(t, healthy)
	assert.Equal(t, "ok", detail)
}
