package billing

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBackend implements Client entirely in process. It backs the billing
// sidecar simulator and lets tests and demo runs work without a backend.
type MemoryBackend struct {
	mu      sync.RWMutex
	model   Model
	phases  map[string]string           // org -> current plan ID
	used    map[string]map[Feature]int64 // org -> feature -> used
	whois   map[string]string           // org -> processor customer ID
	nextCus int
}

// NewMemoryBackend creates a backend serving the given pricing model.
func NewMemoryBackend(model Model) *MemoryBackend {
	return &MemoryBackend{
		model:  model,
		phases: make(map[string]string),
		used:   make(map[string]map[Feature]int64),
		whois:  make(map[string]string),
	}
}

// Model returns the raw pricing model, every version included.
func (b *MemoryBackend) Model() Model {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// ListPlans returns the deduplicated, sorted catalog.
func (b *MemoryBackend) ListPlans(context.Context) ([]Plan, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return LatestPlans(b.model), nil
}

// Subscribe puts org on planID.
func (b *MemoryBackend) Subscribe(_ context.Context, org, planID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.model.Plans[planID]; !ok {
		return fmt.Errorf("%w: unknown plan %q", ErrBillingUnavailable, planID)
	}
	b.phases[org] = planID
	if _, ok := b.whois[org]; !ok {
		b.nextCus++
		b.whois[org] = fmt.Sprintf("cus_sim_%04d", b.nextCus)
	}
	return nil
}

// CurrentPlan returns org's current plan ID.
func (b *MemoryBackend) CurrentPlan(_ context.Context, org string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	plan, ok := b.phases[org]
	if !ok {
		return "", ErrNoSubscription
	}
	return plan, nil
}

// Usage returns used/limit counters for (org, feature).
func (b *MemoryBackend) Usage(_ context.Context, org string, feature Feature) (Usage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usageLocked(org, feature), nil
}

func (b *MemoryBackend) usageLocked(org string, feature Feature) Usage {
	u := Usage{Feature: feature, Limit: UnlimitedUsage}

	planID, ok := b.phases[org]
	if !ok {
		// No plan means no entitlement.
		u.Limit = 0
		return u
	}
	if def, ok := b.model.Plans[planID].Features[feature]; ok {
		u.Limit = def.Limit
	} else {
		// Feature absent from the plan: not entitled.
		u.Limit = 0
	}
	if usage, ok := b.used[org]; ok {
		u.Used = usage[feature]
	}
	return u
}

// AllUsage returns usage for every feature of org's current plan. The
// sidecar simulator serves /v1/limits from this.
func (b *MemoryBackend) AllUsage(_ context.Context, org string) ([]Usage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	planID, ok := b.phases[org]
	if !ok {
		return nil, ErrNoSubscription
	}
	var out []Usage
	for feature := range b.model.Plans[planID].Features {
		out = append(out, b.usageLocked(org, feature))
	}
	return out, nil
}

// CheckEntitlement reports whether org may use feature right now.
func (b *MemoryBackend) CheckEntitlement(ctx context.Context, org string, feature Feature) (bool, error) {
	u, err := b.Usage(ctx, org, feature)
	if err != nil {
		return false, err
	}
	return u.Entitled(), nil
}

// ReportUsage records n metered units for (org, feature).
func (b *MemoryBackend) ReportUsage(_ context.Context, org string, feature Feature, n int64) error {
	if n <= 0 {
		n = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.phases[org]; !ok {
		return fmt.Errorf("%w: org %q has no subscription", ErrBillingUnavailable, org)
	}
	if b.used[org] == nil {
		b.used[org] = make(map[Feature]int64)
	}
	b.used[org][feature] += n
	return nil
}

// WhoIs resolves org to its payment-processor customer ID.
func (b *MemoryBackend) WhoIs(_ context.Context, org string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	id, ok := b.whois[org]
	if !ok {
		return "", ErrNoSubscription
	}
	return id, nil
}

// Ping always succeeds for the in-process backend.
func (b *MemoryBackend) Ping(context.Context) error {
	return nil
}

// DemoModel returns the pricing model used by tests and out-of-the-box demo
// runs: a capped free plan and an uncapped pro plan, with a superseded free
// version to exercise catalog deduplication.
func DemoModel() Model {
	return Model{Plans: map[string]Plan{
		"free@0": {
			Title: "Free (legacy)",
			Features: map[Feature]FeatureDef{
				FeatureConvert: {Limit: 5},
			},
		},
		"free@1": {
			Title: "Free",
			Features: map[Feature]FeatureDef{
				FeatureConvert: {Limit: 10},
			},
		},
		"pro@1": {
			Title:    "Pro",
			Base:     999,
			Currency: "usd",
			Interval: "month",
			Features: map[Feature]FeatureDef{
				FeatureConvert: {Limit: UnlimitedUsage},
			},
		},
	}}
}
