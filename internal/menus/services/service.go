package services

import (
	"sort"

	authModels "loot-tracker/internal/auth/models"
	"loot-tracker/internal/menus/models"
)

// CapabilityChecker answers whether a user holds a capability
type CapabilityChecker interface {
	Can(user *authModels.AuthenticatedUser, capability authModels.Capability) bool
}

// Service computes the navigation a user is allowed to see. Nothing is stored; the tree is
// filtered per request so role changes apply immediately.
type Service struct {
	navigation []models.NavigationGroup
	checker    CapabilityChecker
}

// NewService creates a service serving navigation
func NewService(navigation []models.NavigationGroup, checker CapabilityChecker) *Service {
	return &Service{navigation: navigation, checker: checker}
}

// ForUser returns the navigation filtered for user. Folders and groups left without
// visible entries are dropped.
func (s *Service) ForUser(user *authModels.AuthenticatedUser) []models.NavigationGroup {
	groups := make([]models.NavigationGroup, 0, len(s.navigation))
	for _, group := range s.navigation {
		items := s.filter(user, group.Items)
		if len(items) == 0 {
			continue
		}
		group.Items = items
		groups = append(groups, group)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Order < groups[j].Order })
	return groups
}

func (s *Service) filter(user *authModels.AuthenticatedUser, items []models.NavItem) []models.NavItem {
	out := make([]models.NavItem, 0, len(items))
	for _, item := range items {
		if item.Capability != "" && !s.checker.Can(user, item.Capability) {
			continue
		}
		if len(item.Children) > 0 {
			folder := item.IsFolder()
			item.Children = s.filter(user, item.Children)
			if folder && len(item.Children) == 0 {
				continue
			}
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
