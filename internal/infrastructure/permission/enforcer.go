// Package permission wraps a casbin RBAC enforcer whose policies live in the database.
package permission

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"

	"msgdeck/internal/shared/authorization"
	"msgdeck/internal/shared/logger"
)

// Subjects are role names; a user-specific grant can be added with AddRoleForUser.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// Resources guarded by RequirePermission.
const (
	ResourcePlan         = "plan"
	ResourcePromoCode    = "promo_code"
	ResourceSubscription = "subscription"
	ResourceTransaction  = "transaction"
	ResourceUsage        = "usage"
)

// Actions.
const (
	ActionCreate       = "create"
	ActionRead         = "read"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionRenew        = "renew"
	ActionRefund       = "refund"
	ActionUpdateStatus = "update_status"
	ActionStats        = "stats"
	ActionAdjust       = "adjust"
)

// DefaultPolicies are seeded on startup when permission.seed_defaults is on.
func DefaultPolicies() [][]string {
	admin := authorization.RoleAdmin.String()
	return [][]string{
		{admin, ResourcePlan, ActionCreate},
		{admin, ResourcePlan, ActionUpdate},
		{admin, ResourcePromoCode, ActionCreate},
		{admin, ResourcePromoCode, ActionRead},
		{admin, ResourcePromoCode, ActionUpdate},
		{admin, ResourcePromoCode, ActionDelete},
		{admin, ResourceSubscription, ActionRenew},
		{admin, ResourceTransaction, ActionUpdateStatus},
		{admin, ResourceTransaction, ActionRefund},
		{admin, ResourceTransaction, ActionStats},
		{admin, ResourceUsage, ActionAdjust},
		{authorization.RoleService.String(), ResourceUsage, ActionAdjust},
		{authorization.RoleUser.String(), ResourceUsage, ActionAdjust},
	}
}

type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   logger.Interface
}

// NewEnforcer stores policies in the casbin_rule table through gorm-adapter.
func NewEnforcer(db *gorm.DB, log logger.Interface) (*Enforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	return &Enforcer{
		enforcer: enforcer,
		logger:   log,
	}, nil
}

func (e *Enforcer) Enforce(subject, resource, action string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	allowed, err := e.enforcer.Enforce(subject, resource, action)
	if err != nil {
		e.logger.Errorw("permission check failed", "error", err, "subject", subject, "resource", resource, "action", action)
		return false, fmt.Errorf("permission check failed: %w", err)
	}

	return allowed, nil
}

// Seed adds the given policies, skipping ones already stored. It returns how many were new.
func (e *Enforcer) Seed(policies [][]string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	added := 0
	for _, p := range policies {
		ok, err := e.enforcer.AddPolicy(p[0], p[1], p[2])
		if err != nil {
			e.logger.Errorw("failed to add permission policy",
				"error", err,
				"role", p[0],
				"resource", p[1],
				"action", p[2])
			return added, fmt.Errorf("failed to add policy [%s, %s, %s]: %w", p[0], p[1], p[2], err)
		}
		if ok {
			added++
		}
	}

	e.logger.Infow("permission policies seeded", "added", added, "total", len(policies))
	return added, nil
}

func (e *Enforcer) AddPolicy(role, resource, action string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.enforcer.AddPolicy(role, resource, action); err != nil {
		e.logger.Errorw("failed to add policy", "error", err)
		return fmt.Errorf("failed to add policy: %w", err)
	}
	return nil
}

func (e *Enforcer) RemovePolicy(role, resource, action string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.enforcer.RemovePolicy(role, resource, action); err != nil {
		e.logger.Errorw("failed to remove policy", "error", err)
		return fmt.Errorf("failed to remove policy: %w", err)
	}
	return nil
}

// AddRoleForUser grants a role to a single subject, e.g. "user:42".
func (e *Enforcer) AddRoleForUser(subject, role string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.enforcer.AddRoleForUser(subject, role); err != nil {
		e.logger.Errorw("failed to add role for user", "error", err, "subject", subject, "role", role)
		return fmt.Errorf("failed to add role for user: %w", err)
	}
	return nil
}

func (e *Enforcer) LoadPolicy() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to reload policy: %w", err)
	}

	e.logger.Info("policy reloaded successfully")
	return nil
}

// UserSubject is the casbin subject for a single user.
func UserSubject(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}
