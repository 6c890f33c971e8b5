package access

import (
	"fmt"
	"sync"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"go.uber.org/zap"
)

// roleAdmins lists which roles may grant or revoke each role. The owner may manage every role.
var roleAdmins = map[domain.Role][]domain.Role{
	domain.RoleSuperAdmin: {},
	domain.RoleAdmin:      {domain.RoleSuperAdmin},
	domain.RolePauser:     {domain.RoleSuperAdmin, domain.RoleAdmin},
}

// Gate is an in-process role-based access gate with a global pause switch.
// Hierarchy: owner > super admin > admin > pauser.
type Gate struct {
	mu     sync.RWMutex
	owner  string
	paused bool
	roles  map[domain.Role]map[string]bool
	logger *logger.Logger
}

// NewGate creates a gate owned by owner, who also starts as super admin.
func NewGate(owner string, log *logger.Logger) *Gate {
	g := &Gate{
		owner: owner,
		roles: map[domain.Role]map[string]bool{
			domain.RoleSuperAdmin: {},
			domain.RoleAdmin:      {},
			domain.RolePauser:     {},
		},
		logger: log.Named("AccessGate"),
	}
	if owner != "" {
		g.roles[domain.RoleSuperAdmin][owner] = true
	}
	return g
}

func (g *Gate) IsPaused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}

func (g *Gate) HasRole(role domain.Role, principal string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.roles[role][principal]
}

func (g *Gate) IsOwner(principal string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return principal != "" && g.owner == principal
}

func (g *Gate) Owner() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.owner
}

// anyOfLocked reports whether principal is the owner or holds one of roles.
func (g *Gate) anyOfLocked(principal string, roles ...domain.Role) bool {
	if principal != "" && principal == g.owner {
		return true
	}
	for _, r := range roles {
		if g.roles[r][principal] {
			return true
		}
	}
	return false
}

// Pause stops every mutating marketplace operation. Pausers and above may pause.
func (g *Gate) Pause(caller string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.anyOfLocked(caller, domain.RoleSuperAdmin, domain.RoleAdmin, domain.RolePauser) {
		return fmt.Errorf("%w: %s may not pause", domain.ErrUnauthorized, caller)
	}
	g.paused = true
	g.logger.Warn("Marketplace paused", zap.String("caller", caller))
	return nil
}

// Unpause resumes the marketplace. Admins and above may unpause.
func (g *Gate) Unpause(caller string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.anyOfLocked(caller, domain.RoleSuperAdmin, domain.RoleAdmin) {
		return fmt.Errorf("%w: %s may not unpause", domain.ErrUnauthorized, caller)
	}
	g.paused = false
	g.logger.Info("Marketplace unpaused", zap.String("caller", caller))
	return nil
}

func (g *Gate) GrantRole(caller string, role domain.Role, principal string) error {
	return g.setRole(caller, role, principal, true)
}

func (g *Gate) RevokeRole(caller string, role domain.Role, principal string) error {
	return g.setRole(caller, role, principal, false)
}

func (g *Gate) setRole(caller string, role domain.Role, principal string, grant bool) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	if principal == "" {
		return fmt.Errorf("%w: principal is required", domain.ErrInvalidInput)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.anyOfLocked(caller, roleAdmins[role]...) {
		return fmt.Errorf("%w: %s may not manage role %s", domain.ErrUnauthorized, caller, role)
	}
	if grant {
		g.roles[role][principal] = true
	} else {
		delete(g.roles[role], principal)
	}
	g.logger.Info("Role changed",
		zap.String("caller", caller),
		zap.String("role", string(role)),
		zap.String("principal", principal),
		zap.Bool("granted", grant))
	return nil
}

// TransferOwnership hands the gate to newOwner and migrates the old owner's roles with it.
func (g *Gate) TransferOwnership(caller, newOwner string) error {
	if newOwner == "" {
		return fmt.Errorf("%w: new owner is required", domain.ErrInvalidInput)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if caller == "" || caller != g.owner {
		return fmt.Errorf("%w: only the owner may transfer ownership", domain.ErrUnauthorized)
	}
	old := g.owner
	for role, members := range g.roles {
		if members[old] {
			delete(members, old)
			members[newOwner] = true
			g.logger.Debug("Role migrated", zap.String("role", string(role)), zap.String("from", old), zap.String("to", newOwner))
		}
	}
	g.roles[domain.RoleSuperAdmin][newOwner] = true
	g.owner = newOwner
	g.logger.Info("Ownership transferred", zap.String("from", old), zap.String("to", newOwner))
	return nil
}
