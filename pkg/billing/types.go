package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Feature identifies a meterable capability, e.g. "feature:convert".
type Feature string

// FeatureConvert is the metered temperature-conversion capability.
const FeatureConvert Feature = "feature:convert"

// UnlimitedUsage marks a feature with no usage cap.
const UnlimitedUsage int64 = -1

// Plan is a priced offering identified by "name@version".
type Plan struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Version  string                 `json:"version"`
	Title    string                 `json:"title,omitempty"`
	Base     int64                  `json:"base"` // monthly price, cents
	Currency string                 `json:"currency,omitempty"`
	Interval string                 `json:"interval,omitempty"`
	Features map[Feature]FeatureDef `json:"features,omitempty"`
}

// FeatureDef describes a feature's terms within a plan.
type FeatureDef struct {
	Limit int64 `json:"limit"` // UnlimitedUsage when uncapped
	Base  int64 `json:"base,omitempty"`
}

// SplitPlanID splits "name@version" into its parts. Version is empty when
// the ID carries none.
func SplitPlanID(id string) (name, version string) {
	if i := strings.LastIndex(id, "@"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// Usage holds consumed/limit counters for an (org, feature) pair over the
// current billing period.
type Usage struct {
	Feature Feature `json:"feature"`
	Used    int64   `json:"used"`
	Limit   int64   `json:"limit"` // UnlimitedUsage when uncapped
}

// Entitled reports whether further use of the feature is allowed: the limit
// is unbounded, or consumption is strictly below it.
func (u Usage) Entitled() bool {
	return u.Limit == UnlimitedUsage || u.Used < u.Limit
}

// ErrBillingUnavailable indicates the billing backend could not be reached
// or returned an error status. Handlers map this to 503, never to 402.
var ErrBillingUnavailable = errors.New("billing backend unavailable")

// ErrNoSubscription indicates the org has no current plan.
var ErrNoSubscription = errors.New("no current subscription")

// NotEntitledError indicates the org's plan does not permit a feature.
type NotEntitledError struct {
	Org     string
	Feature Feature
	Usage   Usage
}

func (e *NotEntitledError) Error() string {
	return fmt.Sprintf("org %s not entitled to %s", e.Org, e.Feature)
}

// IsNotEntitled checks if an error is a NotEntitledError.
func IsNotEntitled(err error) bool {
	var ne *NotEntitledError
	return errors.As(err, &ne)
}

// Client defines the billing backend contract, independent of transport.
// Every call takes a context and completes within a bounded timeout;
// transport failures and backend error statuses wrap ErrBillingUnavailable.
type Client interface {
	// ListPlans returns the catalog, deduplicated to the lexicographically
	// latest version per plan name and sorted by name ascending.
	ListPlans(ctx context.Context) ([]Plan, error)

	// Subscribe puts org on planID, replacing any current plan.
	Subscribe(ctx context.Context, org, planID string) error

	// CurrentPlan returns org's current plan ID, or ErrNoSubscription.
	CurrentPlan(ctx context.Context, org string) (string, error)

	// CheckEntitlement reports whether org may use feature right now.
	CheckEntitlement(ctx context.Context, org string, feature Feature) (bool, error)

	// Usage returns used/limit counters for (org, feature).
	Usage(ctx context.Context, org string, feature Feature) (Usage, error)

	// ReportUsage records n metered units for (org, feature). Callers treat
	// failure as a degraded condition: logged, never silently dropped.
	ReportUsage(ctx context.Context, org string, feature Feature, n int64) error

	// WhoIs resolves org to its payment-processor customer ID.
	WhoIs(ctx context.Context, org string) (string, error)

	// Ping reports backend reachability, for health checks.
	Ping(ctx context.Context) error
}

// PermissiveClient wraps a Client so every entitlement check passes. Demo
// mode only; all other operations pass through unchanged.
type PermissiveClient struct {
	Client
}

// NewPermissive wraps c so CheckEntitlement always allows.
func NewPermissive(c Client) *PermissiveClient {
	return &PermissiveClient{Client: c}
}

// CheckEntitlement always reports entitled.
func (p *PermissiveClient) CheckEntitlement(context.Context, string, Feature) (bool, error) {
	return true, nil
}
