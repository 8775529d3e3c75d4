// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package agentloader ingests ADL documents from a filesystem directory,
// validates them, and publishes an immutable, concurrency-safe agent
// registry (§4.4).
package agentloader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentrt/runtime/pkg/config"
	"github.com/agentrt/runtime/pkg/registry"
)

// LoaderError carries an {Action, Message} pair plus the wrapped cause,
// adapted from the teacher's AgentRegistryError (pkg/agent/registry.go);
// it has no Component field, the "agentloader" prefix in Error() stands
// in for it.
type LoaderError struct {
	Action  string
	Message string
	Err     error
}

func (e *LoaderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agentloader:%s: %s: %v", e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("agentloader:%s: %s", e.Action, e.Message)
}

func (e *LoaderError) Unwrap() error { return e.Err }

var adlExtensions = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// Loader scans a directory for ADL files and publishes a Registry.
type Loader struct {
	dir          string
	knownToolIDs map[string]bool

	reg *Registry

	watcher *fsnotify.Watcher
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New creates a Loader rooted at dir. knownToolIDs is used to populate
// the soft warnings in §4.4 ("tool_id values not present in the Tool
// Registry"); it may be nil if the Tool Manager has not been wired yet.
func New(dir string, knownToolIDs map[string]bool) *Loader {
	return &Loader{
		dir:          dir,
		knownToolIDs: knownToolIDs,
		reg:          NewRegistry(),
	}
}

// Registry returns the loader's live registry. The returned value is
// read-shared, write-exclusive: readers never see a torn reload.
func (l *Loader) Registry() *Registry { return l.reg }

// Load performs a full directory scan and atomically swaps the registry.
// Files failing schema or reference validation are skipped with a logged
// error (§7 "Schema/reference issues at load: ... skipped with warning at
// startup"); files with status draft/disabled/archived are also skipped
// per §4.4, except draft which is accepted but excluded from
// ListActive.
func (l *Loader) Load() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return &LoaderError{Action: "Load", Message: fmt.Sprintf("reading %s", l.dir), Err: err}
	}

	byID := make(map[string]config.Agent)
	bySlug := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !adlExtensions[ext] {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		agent, err := l.loadFile(path)
		if err != nil {
			slog.Error("agent file rejected", "path", path, "error", err)
			continue
		}
		if agent == nil {
			continue // status disabled/archived: skipped, not an error
		}

		if _, exists := byID[agent.ID]; exists {
			slog.Error("duplicate agent id skipped", "path", path, "id", agent.ID)
			continue
		}

		byID[agent.ID] = *agent
		bySlug[agent.Slug] = agent.ID
	}

	l.reg.replace(byID, bySlug)
	return nil
}

// loadFile parses and validates a single ADL file. It returns (nil, nil)
// for files that are valid but intentionally skipped (disabled/archived).
func (l *Loader) loadFile(path string) (*config.Agent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := config.ParseDocument(data)
	if err != nil {
		return nil, err
	}

	if doc.Identity.Status == config.StatusDisabled || doc.Identity.Status == config.StatusArchived {
		slog.Info("skipping disabled/archived agent", "path", path, "status", doc.Identity.Status)
		return nil, nil
	}

	if err := doc.ValidateShape(); err != nil {
		return nil, err
	}
	if err := doc.ValidateReferences(); err != nil {
		return nil, err
	}

	for _, w := range doc.Warnings(l.knownToolIDs) {
		slog.Warn("agent reference warning", "path", path, "warning", w)
	}

	agent := doc.ToAgent()
	agent.LoadedAt = time.Now()
	return &agent, nil
}

// Watch starts an fsnotify watch on the agents directory; on any
// create/write/remove/rename event it reloads the full registry. It
// returns once the watch goroutine is running; Close stops it. Errors
// starting the watch are returned; errors during an individual reload
// are logged and watching continues.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &LoaderError{Action: "Watch", Message: "creating fsnotify watcher", Err: err}
	}
	if err := watcher.Add(l.dir); err != nil {
		watcher.Close()
		return &LoaderError{Action: "Watch", Message: fmt.Sprintf("watching %s", l.dir), Err: err}
	}

	l.watcher = watcher
	l.stop = make(chan struct{})
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()
		defer watcher.Close()
		for {
			select {
			case <-l.stop:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				ext := strings.ToLower(filepath.Ext(event.Name))
				if !adlExtensions[ext] {
					continue
				}
				if err := l.Load(); err != nil {
					slog.Error("hot-reload failed", "error", err)
					continue
				}
				slog.Info("agents reloaded", "trigger", event.Name, "op", event.Op.String())
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("agent directory watch error", "error", watchErr)
			}
		}
	}()

	return nil
}

// Close stops the watch goroutine, if running.
func (l *Loader) Close() error {
	if l.stop != nil {
		close(l.stop)
		l.wg.Wait()
	}
	return nil
}
