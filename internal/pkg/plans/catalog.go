package plans

import (
	"fmt"
	"sync"

	"github.com/HoshinoLab/CreatorBase/internal/pkg/env"
)

// Plan describes a single recurring purchase plan. Plans are value objects;
// the catalog never mutates after startup.
type Plan struct {
	Key            string  `json:"plan_key"`
	ExternalPlanID string  `json:"external_plan_id"`
	PointsPerCycle int64   `json:"points"`
	USDAmount      float64 `json:"usd_amount"`
	Label          string  `json:"label"`
}

// Catalog is an immutable plan registry keyed by plan key and by the
// gateway-side external plan id.
type Catalog struct {
	plans  []Plan
	byKey  map[string]Plan
	byExID map[string]Plan
}

type planSpec struct {
	key    string
	points int64
	usd    float64
	envKey string
}

// Fixed plan tiers. The gateway-side plan ids are deployment-specific and
// come from the environment.
var planSpecs = []planSpec{
	{key: "points_980", points: 980, usd: 6.76, envKey: "ONELAT_PLAN_980_ID"},
	{key: "points_1980", points: 1980, usd: 13.66, envKey: "ONELAT_PLAN_1980_ID"},
	{key: "points_2980", points: 2980, usd: 20.55, envKey: "ONELAT_PLAN_2980_ID"},
	{key: "points_4980", points: 4980, usd: 34.34, envKey: "ONELAT_PLAN_4980_ID"},
	{key: "points_9980", points: 9980, usd: 68.83, envKey: "ONELAT_PLAN_9980_ID"},
}

var (
	defaultCatalog *Catalog
	setupOnce      sync.Once
)

// NewCatalog builds a catalog from explicit plans. Used directly in tests.
func NewCatalog(list []Plan) *Catalog {
	c := &Catalog{
		plans:  make([]Plan, len(list)),
		byKey:  make(map[string]Plan, len(list)),
		byExID: make(map[string]Plan, len(list)),
	}
	copy(c.plans, list)
	for _, p := range c.plans {
		c.byKey[p.Key] = p
		if p.ExternalPlanID != "" {
			c.byExID[p.ExternalPlanID] = p
		}
	}
	return c
}

// NewCatalogFromEnv resolves the gateway plan ids from the environment.
// Plans without a configured id are rejected outright so a misconfigured
// deployment fails at startup, not at checkout time.
func NewCatalogFromEnv() (*Catalog, error) {
	list := make([]Plan, 0, len(planSpecs))
	for _, spec := range planSpecs {
		externalID := env.GetEnv(spec.envKey, "")
		if externalID == "" {
			return nil, fmt.Errorf("plans: %s is not configured for plan %q", spec.envKey, spec.key)
		}
		list = append(list, Plan{
			Key:            spec.key,
			ExternalPlanID: externalID,
			PointsPerCycle: spec.points,
			USDAmount:      spec.usd,
			Label:          fmt.Sprintf("%dpt / month", spec.points),
		})
	}
	return NewCatalog(list), nil
}

// Setup initializes the process-wide catalog once. Called from main.
func Setup() error {
	var err error
	setupOnce.Do(func() {
		defaultCatalog, err = NewCatalogFromEnv()
	})
	if err != nil {
		return err
	}
	if defaultCatalog == nil {
		return fmt.Errorf("plans: catalog not initialized")
	}
	return nil
}

// Default returns the process-wide catalog. Setup must have succeeded.
func Default() *Catalog {
	return defaultCatalog
}

// ByKey looks a plan up by its internal key.
func (c *Catalog) ByKey(key string) (Plan, bool) {
	p, ok := c.byKey[key]
	return p, ok
}

// ByExternalID looks a plan up by the gateway-side plan id.
func (c *Catalog) ByExternalID(id string) (Plan, bool) {
	p, ok := c.byExID[id]
	return p, ok
}

// All returns the plans in display order.
func (c *Catalog) All() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}
