package models

import "time"

// Role is the coarse permission group a user belongs to
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
	RoleGuild     Role = "guild"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser, RoleGuild:
		return true
	}
	return false
}

// Capability names one action guarded by the policy
type Capability string

const (
	CapKillsWrite          Capability = "kills:write"
	CapKillsDelete         Capability = "kills:delete"
	CapApplicationsResolve Capability = "applications:resolve"
	CapApplicationsSubmit  Capability = "applications:submit"
	CapAuctionsCreate      Capability = "auctions:create"
	CapAuctionsBid         Capability = "auctions:bid"
	CapAuctionsCancel      Capability = "auctions:cancel"
	CapWalletAdjust        Capability = "wallet:adjust"
	CapUsersAdmin          Capability = "users:admin"
	CapGuildSettings       Capability = "guild:settings"
	CapVotesCreate         Capability = "votes:create"
	CapVotesCast           Capability = "votes:cast"
	CapBossesWrite         Capability = "bosses:write"
	CapSchedulerAdmin      Capability = "scheduler:admin"
	CapUploadsWrite        Capability = "uploads:write"
)

// DefaultRoleCapabilities seeds the policy store. Admin holds every capability.
var DefaultRoleCapabilities = map[Role][]Capability{
	RoleAdmin: {
		CapKillsWrite, CapKillsDelete, CapApplicationsResolve, CapApplicationsSubmit, CapAuctionsCreate,
		CapAuctionsBid, CapAuctionsCancel, CapWalletAdjust, CapUsersAdmin, CapGuildSettings,
		CapVotesCreate, CapVotesCast, CapBossesWrite, CapSchedulerAdmin, CapUploadsWrite,
	},
	RoleModerator: {
		CapKillsWrite, CapApplicationsResolve, CapApplicationsSubmit, CapAuctionsCreate,
		CapAuctionsBid, CapVotesCreate, CapVotesCast, CapUploadsWrite,
	},
	RoleUser: {
		CapApplicationsSubmit, CapAuctionsBid, CapVotesCast, CapUploadsWrite,
	},
	RoleGuild: {
		CapApplicationsSubmit, CapAuctionsBid, CapVotesCast,
	},
}

// AuthenticatedUser represents an authenticated user in context
type AuthenticatedUser struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	CharacterName string `json:"character_name"`
	Role          Role   `json:"role"`
}

// Session is an issued token and its expiry
type Session struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      AuthenticatedUser `json:"user"`
}
