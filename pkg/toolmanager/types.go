// Package toolmanager dispatches tool_call steps to external tool
// microservices over HTTP (§4.2). Tools are never in-process: every
// tool is an HTTP peer reachable at base_url/endpoint_path.
package toolmanager

import "time"

// RegistryEntry is one Tool Registry record (§4.2 "static map tool_id ->
// (base_url, endpoint_path, requires_file_input, produces_file_output)").
type RegistryEntry struct {
	ToolID             string
	Name               string
	Description        string
	BaseURL            string
	EndpointPath       string
	RequiresFileInput  bool
	ProducesFileOutput bool
}

// File is one multipart file attachment (§4.2 "(field_name, filename,
// bytes)").
type File struct {
	FieldName string
	Filename  string
	Bytes     []byte
}

// ExecuteResult is the outcome of one tool call (§4.2).
type ExecuteResult struct {
	Success    bool
	Output     any
	Error      string
	DurationMs int64
}

// DefaultTimeout is used when a ToolConfig sets no timeout_ms (§4.2).
const DefaultTimeout = 30 * time.Second

// HealthTimeout bounds check_health calls (§4.2).
const HealthTimeout = 5 * time.Second
