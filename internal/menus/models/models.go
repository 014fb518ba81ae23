package models

import authModels "loot-tracker/internal/auth/models"

// NavigationGroup is a labelled section of the navigation
type NavigationGroup struct {
	Label string    `json:"label"`
	Icon  string    `json:"icon,omitempty"`
	Order int       `json:"-"`
	Items []NavItem `json:"children"`
}

// NavItem is one entry, or a folder when it has children. Capability, when set, hides
// the item from roles that lack it.
type NavItem struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	To         string                `json:"to,omitempty"`
	Icon       string                `json:"icon,omitempty"`
	Order      int                   `json:"-"`
	Capability authModels.Capability `json:"-"`
	Children   []NavItem             `json:"children,omitempty"`
}

// IsFolder reports whether the item only groups other items
func (i NavItem) IsFolder() bool {
	return i.To == "" && len(i.Children) > 0
}

// DefaultNavigation is the menu every client is served, before role filtering
var DefaultNavigation = []NavigationGroup{
	{
		Label: "Loot",
		Icon:  "gem",
		Order: 10,
		Items: []NavItem{
			{ID: "boss-kills", Name: "Boss kills", To: "/boss-kills", Icon: "skull", Order: 10},
			{ID: "record-kill", Name: "Record kill", To: "/boss-kills/new", Icon: "plus", Order: 20, Capability: authModels.CapKillsWrite},
			{ID: "my-applications", Name: "My applications", To: "/applications/mine", Icon: "inbox", Order: 30, Capability: authModels.CapApplicationsSubmit},
			{ID: "review", Name: "Review", Icon: "gavel", Order: 40, Children: []NavItem{
				{ID: "applications", Name: "Applications", To: "/applications", Order: 10, Capability: authModels.CapApplicationsResolve},
				{ID: "attendee-requests", Name: "Attendance requests", To: "/attendee-requests", Order: 20, Capability: authModels.CapKillsWrite},
			}},
		},
	},
	{
		Label: "Auctions",
		Icon:  "gavel",
		Order: 20,
		Items: []NavItem{
			{ID: "auctions", Name: "Auctions", To: "/auctions", Icon: "hammer", Order: 10},
			{ID: "auctionable", Name: "Auctionable items", To: "/items/auctionable", Icon: "box", Order: 20, Capability: authModels.CapAuctionsCreate},
		},
	},
	{
		Label: "Guild",
		Icon:  "users",
		Order: 30,
		Items: []NavItem{
			{ID: "wallet", Name: "Wallet", To: "/wallet", Icon: "coins", Order: 10},
			{ID: "votes", Name: "Votes", To: "/votes", Icon: "check-square", Order: 20},
			{ID: "bosses", Name: "Bosses", To: "/bosses", Icon: "dragon", Order: 30},
			{ID: "notifications", Name: "Notifications", To: "/notifications", Icon: "bell", Order: 40},
		},
	},
	{
		Label: "Administration",
		Icon:  "shield",
		Order: 40,
		Items: []NavItem{
			{ID: "users", Name: "Members", To: "/admin/users", Icon: "user-cog", Order: 10, Capability: authModels.CapUsersAdmin},
			{ID: "wallet-adjust", Name: "Adjust balances", To: "/admin/wallet", Icon: "scale", Order: 20, Capability: authModels.CapWalletAdjust},
			{ID: "guild-settings", Name: "Guild settings", To: "/admin/settings", Icon: "sliders", Order: 30, Capability: authModels.CapGuildSettings},
			{ID: "scheduler", Name: "Scheduled jobs", To: "/admin/scheduler", Icon: "clock", Order: 40, Capability: authModels.CapSchedulerAdmin},
		},
	},
}
