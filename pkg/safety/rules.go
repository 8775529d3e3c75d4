package safety

// assembleRuleIDs concatenates global, agent, and user rules and keeps
// only those whose individual and parent enabled flags are true (§4.6).
func assembleRuleIDs(req CheckRequest) []string {
	var ids []string
	for _, r := range req.GlobalRules {
		if r.applies() {
			ids = append(ids, r.ID)
		}
	}
	for _, r := range req.AgentRules {
		if r.applies() {
			ids = append(ids, r.ID)
		}
	}
	for _, r := range req.UserRules {
		if r.applies() {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
