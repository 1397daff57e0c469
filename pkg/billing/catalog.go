package billing

import "sort"

// Model is the raw pricing model as published by the billing backend: plan
// IDs mapped to definitions, every historical version included.
type Model struct {
	Plans map[string]Plan `json:"plans"`
}

// LatestPlans collapses a raw model into the pricing-page catalog: one entry
// per plan name, keeping the lexicographically latest version, sorted by
// name ascending.
func LatestPlans(m Model) []Plan {
	latest := make(map[string]string)
	for id := range m.Plans {
		name, version := SplitPlanID(id)
		if cur, ok := latest[name]; !ok || version > cur {
			latest[name] = version
		}
	}

	plans := make([]Plan, 0, len(latest))
	for name, version := range latest {
		id := name
		if version != "" {
			id = name + "@" + version
		}
		plan := m.Plans[id]
		plan.ID = id
		plan.Name = name
		plan.Version = version
		plans = append(plans, plan)
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].Name < plans[j].Name
	})
	return plans
}
