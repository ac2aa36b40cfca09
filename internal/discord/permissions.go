package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// PermissionChecker gates recording-control commands behind an optional
// admin role.
type PermissionChecker struct {
	adminRoleID string
}

// NewPermissionChecker creates a PermissionChecker for the given role ID.
func NewPermissionChecker(adminRoleID string) *PermissionChecker {
	return &PermissionChecker{adminRoleID: adminRoleID}
}

// IsAdmin checks whether the message author carries the admin role.
// With no role configured, every member qualifies.
func (p *PermissionChecker) IsAdmin(m *discordgo.MessageCreate) bool {
	if p.adminRoleID == "" {
		return true
	}
	if m.Member == nil {
		return false
	}
	return slices.Contains(m.Member.Roles, p.adminRoleID)
}
