package services

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"loot-tracker/internal/auth/models"

	"github.com/casbin/casbin/v2"
	casbinModel "github.com/casbin/casbin/v2/model"
	mongodbadapter "github.com/casbin/mongodb-adapter/v3"
	"go.mongodb.org/mongo-driver/mongo"
)

// PolicyCollection stores the role to capability rules
const PolicyCollection = "casbin_policies"

// policyModel grants an action on a resource to a role. Capabilities are written
// "resource:action" and split before enforcement.
const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Policy is the single role to capability check used by every route
type Policy struct {
	enforcer *casbin.Enforcer
}

// NewMemoryPolicy builds a policy seeded from models.DefaultRoleCapabilities without persistence
func NewMemoryPolicy() (*Policy, error) {
	m, err := casbinModel.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy enforcer: %w", err)
	}

	policy := &Policy{enforcer: enforcer}
	if err := policy.seed(); err != nil {
		return nil, err
	}
	return policy, nil
}

// NewMongoPolicy builds a policy persisted in the casbin_policies collection. An empty
// collection is seeded with the default table.
func NewMongoPolicy(client *mongo.Client, dbName string) (*Policy, error) {
	adapter, err := mongodbadapter.NewAdapterByDB(client, &mongodbadapter.AdapterConfig{
		DatabaseName:   dbName,
		CollectionName: PolicyCollection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create policy adapter: %w", err)
	}

	m, err := casbinModel.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy enforcer: %w", err)
	}
	enforcer.EnableAutoSave(true)

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}

	policy := &Policy{enforcer: enforcer}
	if err := policy.seed(); err != nil {
		return nil, err
	}

	slog.Info("Policy enforcer initialized", "adapter", "mongodb", "collection", PolicyCollection)
	return policy, nil
}

func (p *Policy) seed() error {
	existing, err := p.enforcer.GetPolicy()
	if err != nil {
		return fmt.Errorf("failed to read policies: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	var rules [][]string
	for role, capabilities := range models.DefaultRoleCapabilities {
		for _, capability := range capabilities {
			obj, act := splitCapability(capability)
			rules = append(rules, []string{string(role), obj, act})
		}
	}

	if _, err := p.enforcer.AddPolicies(rules); err != nil {
		return fmt.Errorf("failed to seed policies: %w", err)
	}
	return nil
}

// Can reports whether role holds capability. Enforcement errors deny.
func (p *Policy) Can(role models.Role, capability models.Capability) bool {
	obj, act := splitCapability(capability)
	allowed, err := p.enforcer.Enforce(string(role), obj, act)
	if err != nil {
		slog.Error("Policy enforcement failed", "role", role, "capability", capability, "error", err)
		return false
	}
	return allowed
}

// Capabilities lists every capability granted to role, sorted
func (p *Policy) Capabilities(role models.Role) []models.Capability {
	rules, err := p.enforcer.GetFilteredPolicy(0, string(role))
	if err != nil {
		slog.Error("Failed to list role policies", "role", role, "error", err)
		return nil
	}

	capabilities := make([]models.Capability, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		capabilities = append(capabilities, models.Capability(rule[1]+":"+rule[2]))
	}
	sort.Slice(capabilities, func(i, j int) bool { return capabilities[i] < capabilities[j] })
	return capabilities
}

func splitCapability(capability models.Capability) (string, string) {
	obj, act, found := strings.Cut(string(capability), ":")
	if !found {
		return obj, "*"
	}
	return obj, act
}
