package safety

import (
	"encoding/json"
	"os"
)

// ruleDef is one natural-language moderation rule as persisted on disk.
type ruleDef struct {
	ID          string `json:"id"`
	Instruction string `json:"instruction"`
	Enabled     bool   `json:"enabled"`
}

// scopeConfig is one scope's slice of the moderation rule set (§3
// "Moderation rule set: a global list of natural-language instructions
// plus per-agent and per-user lists").
type scopeConfig struct {
	Enabled bool      `json:"enabled"`
	Rules   []ruleDef `json:"rules"`
}

// ruleDocument is the on-disk shape at MODERATION_SETTINGS_PATH (§6.5
// "a single JSON document ... with {global_config, agent_configs,
// user_configs}").
type ruleDocument struct {
	GlobalConfig scopeConfig            `json:"global_config"`
	AgentConfigs map[string]scopeConfig `json:"agent_configs"`
	UserConfigs  map[string]scopeConfig `json:"user_configs"`
}

// RuleStore holds the loaded moderation rule document and assembles the
// applicable rule set for a given (agent_id, user_id) pair (§4.6 "Stage
// 1").
type RuleStore struct {
	doc ruleDocument
}

// LoadRuleStore reads the document at path. A missing path yields an
// empty store (moderation rules are simply absent, not an error — the
// gate itself still runs and fails open if the moderation peer is
// unreachable).
func LoadRuleStore(path string) (*RuleStore, error) {
	store := &RuleStore{doc: ruleDocument{
		AgentConfigs: map[string]scopeConfig{},
		UserConfigs:  map[string]scopeConfig{},
	}}
	if path == "" {
		return store, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &store.doc); err != nil {
		return nil, err
	}
	return store, nil
}

// RulesFor assembles the global, agent-scoped, and user-scoped rule
// lists for one (agentID, userID) context, to pass through to
// Gate.Check (§4.6 "Assemble the applicable rules for the (agent_id,
// user_id) context").
func (s *RuleStore) RulesFor(agentID, userID string) (global, agent, user []Rule) {
	if s == nil {
		return nil, nil, nil
	}
	global = toRules(s.doc.GlobalConfig, "global")
	if ac, ok := s.doc.AgentConfigs[agentID]; ok {
		agent = toRules(ac, "agent")
	}
	if uc, ok := s.doc.UserConfigs[userID]; ok {
		user = toRules(uc, "user")
	}
	return
}

func toRules(scope scopeConfig, scopeName string) []Rule {
	out := make([]Rule, 0, len(scope.Rules))
	for _, r := range scope.Rules {
		id := r.Instruction
		if id == "" {
			id = r.ID
		}
		out = append(out, Rule{ID: id, Scope: scopeName, Enabled: r.Enabled, ParentEnabled: scope.Enabled})
	}
	return out
}
