package toolmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/agentrt/runtime/pkg/httpclient"
	"github.com/agentrt/runtime/pkg/metrics"
)

// Manager dispatches tool calls to registered tool peers (§4.2).
type Manager struct {
	registry *Registry
	http     *httpclient.Client
	metrics  *metrics.Metrics
}

// New builds a Manager over the given registry and shared HTTP client.
func New(registry *Registry, client *httpclient.Client) *Manager {
	return &Manager{registry: registry, http: client}
}

// WithMetrics attaches a metrics sink. A nil mtr disables recording.
func (m *Manager) WithMetrics(mtr *metrics.Metrics) *Manager {
	m.metrics = mtr
	return m
}

// Execute calls tool_id with the resolved parameter map, encoding as
// multipart when the tool requires file input and files are present,
// otherwise as a JSON body (§4.2). The call is bounded by timeout, or
// DefaultTimeout when timeout is zero.
func (m *Manager) Execute(ctx context.Context, toolID string, params map[string]any, files []File, timeout time.Duration) ExecuteResult {
	start := time.Now()
	var result ExecuteResult
	defer func() {
		m.metrics.RecordToolCall(toolID, time.Since(start), result.Success)
	}()

	entry, err := m.registry.Get(toolID)
	if err != nil {
		result = ExecuteResult{Success: false, Error: err.Error(), DurationMs: time.Since(start).Milliseconds()}
		return result
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var req *http.Request
	url := entry.BaseURL + entry.EndpointPath

	if entry.RequiresFileInput && len(files) > 0 {
		req, err = m.buildMultipartRequest(callCtx, url, params, files)
	} else {
		req, err = m.buildJSONRequest(callCtx, url, params)
	}
	if err != nil {
		result = ExecuteResult{Success: false, Error: err.Error(), DurationMs: time.Since(start).Milliseconds()}
		return result
	}

	resp, err := m.http.Do(req)
	if err != nil {
		result = ExecuteResult{Success: false, Error: fmt.Sprintf("tool call failed: %v", err), DurationMs: time.Since(start).Milliseconds()}
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result = ExecuteResult{Success: false, Error: fmt.Sprintf("reading response: %v", err), DurationMs: time.Since(start).Milliseconds()}
		return result
	}

	if resp.StatusCode >= 400 {
		result = ExecuteResult{Success: false, Error: fmt.Sprintf("tool %s returned status %d: %s", toolID, resp.StatusCode, string(body)), DurationMs: time.Since(start).Milliseconds()}
		return result
	}

	var output any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &output); err != nil {
			output = string(body)
		}
	}

	result = ExecuteResult{Success: true, Output: output, DurationMs: time.Since(start).Milliseconds()}
	return result
}

func (m *Manager) buildJSONRequest(ctx context.Context, url string, params map[string]any) (*http.Request, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding parameters: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// buildMultipartRequest encodes files as (field_name, filename, bytes)
// triples and every other parameter as a form field, JSON-encoding
// non-scalar values (§4.2).
func (m *Manager) buildMultipartRequest(ctx context.Context, url string, params map[string]any, files []File) (*http.Request, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for _, f := range files {
		part, err := writer.CreateFormFile(f.FieldName, f.Filename)
		if err != nil {
			return nil, fmt.Errorf("creating multipart file field: %w", err)
		}
		if _, err := part.Write(f.Bytes); err != nil {
			return nil, fmt.Errorf("writing multipart file bytes: %w", err)
		}
	}

	for name, value := range params {
		field, ok := value.(string)
		if !ok {
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("json-encoding non-scalar parameter %q: %w", name, err)
			}
			field = string(encoded)
		}
		if err := writer.WriteField(name, field); err != nil {
			return nil, fmt.Errorf("writing multipart field %q: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

// CheckHealth GETs base_url/health with a 5-second timeout (§4.2).
func (m *Manager) CheckHealth(ctx context.Context, toolID string) (healthy bool, detail string, err error) {
	entry, err := m.registry.Get(toolID)
	if err != nil {
		return false, "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, entry.BaseURL+"/health", nil)
	if err != nil {
		return false, "", err
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return false, err.Error(), nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, string(body), nil
	}
	return false, fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)), nil
}
