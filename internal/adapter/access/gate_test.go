package access

import (
	"testing"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_PauseUnpause(t *testing.T) {
	g := NewGate("owner", logger.NewNop())
	require.NoError(t, g.GrantRole("owner", domain.RolePauser, "pauser"))

	assert.ErrorIs(t, g.Pause("stranger"), domain.ErrUnauthorized)
	require.NoError(t, g.Pause("pauser"))
	assert.True(t, g.IsPaused())

	assert.ErrorIs(t, g.Unpause("pauser"), domain.ErrUnauthorized)
	require.NoError(t, g.Unpause("owner"))
	assert.False(t, g.IsPaused())
}

func TestGate_RoleHierarchy(t *testing.T) {
	g := NewGate("owner", logger.NewNop())
	assert.True(t, g.HasRole(domain.RoleSuperAdmin, "owner"))

	require.NoError(t, g.GrantRole("owner", domain.RoleSuperAdmin, "sa"))
	require.NoError(t, g.GrantRole("sa", domain.RoleAdmin, "admin"))
	require.NoError(t, g.GrantRole("admin", domain.RolePauser, "pauser"))

	assert.ErrorIs(t, g.GrantRole("admin", domain.RoleAdmin, "other"), domain.ErrUnauthorized)
	assert.ErrorIs(t, g.GrantRole("sa", domain.RoleSuperAdmin, "other"), domain.ErrUnauthorized)
	assert.ErrorIs(t, g.GrantRole("owner", domain.Role("root"), "other"), domain.ErrInvalidInput)

	require.NoError(t, g.RevokeRole("sa", domain.RoleAdmin, "admin"))
	assert.False(t, g.HasRole(domain.RoleAdmin, "admin"))
}

func TestGate_TransferOwnershipMigratesRoles(t *testing.T) {
	g := NewGate("owner", logger.NewNop())
	require.NoError(t, g.GrantRole("owner", domain.RolePauser, "owner"))

	assert.ErrorIs(t, g.TransferOwnership("stranger", "next"), domain.ErrUnauthorized)
	require.NoError(t, g.TransferOwnership("owner", "next"))

	assert.True(t, g.IsOwner("next"))
	assert.False(t, g.IsOwner("owner"))
	assert.True(t, g.HasRole(domain.RoleSuperAdmin, "next"))
	assert.True(t, g.HasRole(domain.RolePauser, "next"))
	assert.False(t, g.HasRole(domain.RoleSuperAdmin, "owner"))
	assert.False(t, g.HasRole(domain.RolePauser, "owner"))
	assert.ErrorIs(t, g.Pause("owner"), domain.ErrUnauthorized)
}
