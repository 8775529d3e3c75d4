package agentloader

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/agentrt/runtime/pkg/config"
)

// Reload re-scans the agents directory and republishes the registry
// (§4.4 Registry contract: "reload").
func (l *Loader) Reload() error { return l.Load() }

// Register validates an in-memory Document, persists it under the
// storage path (filename stem = slug, §6.5), and reloads the registry so
// the new agent becomes visible. It mirrors the §4.4 contract
// "register(data)".
func (l *Loader) Register(doc *config.Document) (*config.Agent, error) {
	if err := doc.ValidateShape(); err != nil {
		return nil, err
	}
	if err := doc.ValidateReferences(); err != nil {
		return nil, err
	}

	agent := doc.ToAgent()
	if err := l.Save(doc); err != nil {
		return nil, err
	}
	if err := l.Load(); err != nil {
		return nil, err
	}
	return &agent, nil
}

// Save writes a Document to disk under <storage path>/<slug>.yaml,
// matching §6.5's "one file per agent under the storage path; filename
// stem = slug".
func (l *Loader) Save(doc *config.Document) error {
	slug := doc.Identity.Slug
	if slug == "" {
		slug = config.DeriveSlug(doc.Identity.Name)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return &LoaderError{Action: "Save", Message: "marshaling document", Err: err}
	}

	path := filepath.Join(l.dir, slug+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &LoaderError{Action: "Save", Message: fmt.Sprintf("writing %s", path), Err: err}
	}
	return nil
}

// Delete removes an agent's file from the storage path and republishes
// the registry without it.
func (l *Loader) Delete(id string) error {
	agent, ok := l.reg.Get(id)
	if !ok {
		return &LoaderError{Action: "Delete", Message: fmt.Sprintf("agent %q not found", id)}
	}

	path := filepath.Join(l.dir, agent.Slug+".yaml")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &LoaderError{Action: "Delete", Message: fmt.Sprintf("removing %s", path), Err: err}
	}
	return l.Load()
}
