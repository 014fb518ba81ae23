package services

import (
	"testing"

	"loot-tracker/internal/auth/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyDefaults(t *testing.T) {
	policy, err := NewMemoryPolicy()
	require.NoError(t, err)

	tests := []struct {
		role       models.Role
		capability models.Capability
		want       bool
	}{
		{models.RoleAdmin, models.CapApplicationsResolve, true},
		{models.RoleAdmin, models.CapSchedulerAdmin, true},
		{models.RoleModerator, models.CapKillsWrite, true},
		{models.RoleModerator, models.CapWalletAdjust, false},
		{models.RoleModerator, models.CapKillsDelete, false},
		{models.RoleUser, models.CapApplicationsSubmit, true},
		{models.RoleUser, models.CapApplicationsResolve, false},
		{models.RoleUser, models.CapAuctionsBid, true},
		{models.RoleGuild, models.CapUploadsWrite, false},
		{models.Role("ghost"), models.CapAuctionsBid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.capability), func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Can(tt.role, tt.capability))
		})
	}
}

func TestPolicyCapabilities(t *testing.T) {
	policy, err := NewMemoryPolicy()
	require.NoError(t, err)

	capabilities := policy.Capabilities(models.RoleAdmin)
	assert.Len(t, capabilities, len(models.DefaultRoleCapabilities[models.RoleAdmin]))
	assert.Contains(t, capabilities, models.CapGuildSettings)
	assert.Empty(t, policy.Capabilities(models.Role("ghost")))
}
