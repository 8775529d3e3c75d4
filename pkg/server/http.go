// Package server exposes the executor-facing HTTP surface named in §6.2
// over the runtimeapi.Service bridge. Routing is chi (go-chi/chi/v5),
// grounded on the teacher's transport layer idiom
// (pkg/transport/http_metrics_middleware.go's wrapped-ResponseWriter/
// chi.RouteContext pattern) with the A2A/gRPC specifics this
// specification has no component for stripped out.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentrt/runtime/pkg/runtimeapi"
	"github.com/agentrt/runtime/pkg/session"
)

// routes builds the full executor-facing HTTP surface (§6.2).
func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(s.metricsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/reload", s.handleReload)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", s.handleListAgents)
		r.Route("/{idOrSlug}", func(r chi.Router) {
			r.Get("/", s.handleGetAgent)
			r.Get("/definition", s.handleGetDefinition)
			r.Get("/ui", s.handleGetUI)
			r.Post("/execute", s.handleExecute)
			r.Post("/execute/stream", s.handleExecuteStream)
			r.Post("/execute/upload", s.handleExecuteUpload)
			r.Post("/chat", s.handleChat)
		})
	})

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Delete("/", s.handleDeleteSession)
		r.Get("/messages", s.handleGetSessionMessages)
		r.Post("/clear", s.handleClearSession)
	})

	return r
}

func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.cfg.CORSOrigins) > 0 {
			origin := r.Header.Get("Origin")
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == "*" || allowed == origin {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
					break
				}
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// agentStatusCode maps a Service error to the HTTP status named in §7
// ("Agent not found: HTTP 404").
func agentStatusCode(err error) int {
	if errors.Is(err, runtimeapi.ErrAgentNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, session.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *HTTPServer) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListAgents())
}

func (s *HTTPServer) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.svc.GetAgent(chi.URLParam(r, "idOrSlug"))
	if err != nil {
		writeError(w, agentStatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *HTTPServer) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.GetDefinition(chi.URLParam(r, "idOrSlug"))
	if err != nil {
		writeError(w, agentStatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *HTTPServer) handleGetUI(w http.ResponseWriter, r *http.Request) {
	ui, err := s.svc.GetUI(chi.URLParam(r, "idOrSlug"))
	if err != nil {
		writeError(w, agentStatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ui)
}

func (s *HTTPServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req runtimeapi.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.svc.Execute(r.Context(), chi.URLParam(r, "idOrSlug"), req)
	if err != nil {
		writeError(w, agentStatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req runtimeapi.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.svc.Chat(r.Context(), chi.URLParam(r, "idOrSlug"), req)
	if err != nil {
		writeError(w, agentStatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExecuteUpload decodes the multipart variant of /execute (§6.2),
// building the same ExecuteRequest the JSON path uses.
func (s *HTTPServer) handleExecuteUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req := runtimeapi.ExecuteRequest{
		Inputs: map[string]any{},
		Files:  map[string][]runtimeapi.UploadFile{},
	}
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			req.Inputs[key] = values[0]
		}
	}
	req.Message = r.FormValue("message")
	req.SessionID = r.FormValue("session_id")
	req.WorkflowID = r.FormValue("workflow_id")
	req.Trigger = r.FormValue("trigger")

	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			req.Files[field] = append(req.Files[field], runtimeapi.UploadFile{Filename: fh.Filename, Content: data})
		}
	}

	resp, err := s.svc.Execute(r.Context(), chi.URLParam(r, "idOrSlug"), req)
	if err != nil {
		writeError(w, agentStatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExecuteStream drives the execution synchronously and replays its
// result as SSE events: start, then complete carrying the full
// ExecuteResponse, or error when the request cannot be decoded, the agent
// is unknown, execution returns an error, or the safety gate blocks the
// turn. No token, step or tool events are emitted; a workflow that fails
// is reported inside the complete event.
func (s *HTTPServer) handleExecuteStream(w http.ResponseWriter, r *http.Request) {
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	var req runtimeapi.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		_ = sse.send("error", map[string]string{"error": err.Error()})
		return
	}

	idOrSlug := chi.URLParam(r, "idOrSlug")
	agent, err := s.svc.GetAgent(idOrSlug)
	if err != nil {
		_ = sse.send("error", map[string]string{"error": err.Error()})
		return
	}
	_ = sse.send("start", map[string]string{"agent_id": agent.ID, "agent_name": agent.Name})

	resp, err := s.svc.Execute(r.Context(), idOrSlug, req)
	if err != nil {
		_ = sse.send("error", map[string]string{"error": err.Error()})
		return
	}
	if resp.BlockedReason != "" {
		_ = sse.send("error", map[string]string{"blocked_reason": resp.BlockedReason})
		return
	}

	_ = sse.send("complete", resp)
}

func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, agentStatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, agentStatusCode(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleGetSessionMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	msgs, err := s.svc.GetSessionMessages(chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, agentStatusCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *HTTPServer) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, agentStatusCode(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reload(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reloaded": true})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Stats())
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}
