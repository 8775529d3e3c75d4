package agentloader

import (
	"sort"
	"sync"

	"github.com/agentrt/runtime/pkg/config"
	"github.com/agentrt/runtime/pkg/registry"
)

// Registry is the published, read-shared agent store (§3 "Ownership:
// The Agent Loader exclusively owns the Agent map"). It layers a slug ->
// id index on top of registry.BaseRegistry, matching the spec's
// invariant that "the slug index is a function of the id index".
type Registry struct {
	byID *registry.BaseRegistry[config.Agent]

	muSlug sync.RWMutex
	bySlug map[string]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   registry.NewBaseRegistry[config.Agent](),
		bySlug: make(map[string]string),
	}
}

// replace swaps both indexes atomically relative to slug readers: muSlug
// is held for writing across the id-map swap (BaseRegistry.ReplaceAll)
// and the slug-map swap, and GetBySlug holds it for reading across both
// of its lookups, so a slug lookup resolves through the old pair of maps
// or the new pair, never one of each.
func (r *Registry) replace(byID map[string]config.Agent, bySlug map[string]string) {
	fresh := make(map[string]string, len(bySlug))
	for k, v := range bySlug {
		fresh[k] = v
	}
	r.muSlug.Lock()
	defer r.muSlug.Unlock()
	r.byID.ReplaceAll(byID)
	r.bySlug = fresh
}

// Get returns the agent with the given id.
func (r *Registry) Get(id string) (config.Agent, bool) {
	return r.byID.Get(id)
}

// GetBySlug resolves a slug to its agent, if known.
func (r *Registry) GetBySlug(slug string) (config.Agent, bool) {
	r.muSlug.RLock()
	defer r.muSlug.RUnlock()
	id, ok := r.bySlug[slug]
	if !ok {
		return config.Agent{}, false
	}
	return r.byID.Get(id)
}

// GetByIDOrSlug resolves an agent by id first, falling back to slug —
// the lookup shape §6.2's `{id_or_slug}` path parameter needs.
func (r *Registry) GetByIDOrSlug(idOrSlug string) (config.Agent, bool) {
	if a, ok := r.Get(idOrSlug); ok {
		return a, true
	}
	return r.GetBySlug(idOrSlug)
}

// ListAll returns every loaded agent, including draft/disabled/archived
// ones that survived loading (disabled/archived are in fact never loaded;
// draft is), ordered by LoadedAt, then id.
func (r *Registry) ListAll() []config.Agent {
	all := r.byID.List()
	sort.Slice(all, func(i, j int) bool {
		if !all[i].LoadedAt.Equal(all[j].LoadedAt) {
			return all[i].LoadedAt.Before(all[j].LoadedAt)
		}
		return all[i].ID < all[j].ID
	})
	return all
}

// ListActive returns agents with status == active or beta.
func (r *Registry) ListActive() []config.Agent {
	all := r.byID.List()
	out := make([]config.Agent, 0, len(all))
	for _, a := range all {
		if a.Status == config.StatusActive || a.Status == config.StatusBeta {
			out = append(out, a)
		}
	}
	return out
}

// ListByCategory returns active agents in the given category.
func (r *Registry) ListByCategory(category string) []config.Agent {
	out := make([]config.Agent, 0)
	for _, a := range r.ListActive() {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

// Count returns the number of loaded agents.
func (r *Registry) Count() int { return r.byID.Count() }
