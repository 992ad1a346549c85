// Package permission derives user roles and scoped blacklist status from
// the permission table and applies role mutations. Mutations validate role
// tokens but never check caller privilege; the command layer owns that.
package permission

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/yuibot/yuibot/internal/config"
)

// ErrInvalidRole is returned for role tokens outside the closed enum.
var ErrInvalidRole = errors.New("invalid role")

// Role is a permission tier. The set is closed; per-group blacklisting is a
// (user, group) relation, not a role value.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleGroupManager      Role = "group_manager"
	RolePrivateUser       Role = "private_user"
	RoleGlobalBlacklisted Role = "global_blacklisted"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleGroupManager, RolePrivateUser, RoleGlobalBlacklisted:
		return true
	}
	return false
}

// ParseRole validates a role token.
func ParseRole(token string) (Role, error) {
	r := Role(token)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, token)
	}
	return r, nil
}

// RoleSet is the set of roles held by one user.
type RoleSet map[Role]struct{}

// Has reports membership.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Slice returns the roles in stable order.
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Registry reads and mutates the permission table through the shared store.
type Registry struct {
	store *config.Store
}

// New returns a registry over store.
func New(store *config.Store) *Registry {
	return &Registry{store: store}
}

// Roles returns the role set for userID. The configured admin id always
// includes the admin role; a stored entry missing it is repaired in place
// (unless the entry is globally blacklisted, which takes precedence).
func (g *Registry) Roles(userID string) RoleSet {
	set := RoleSet{}
	isAdminID := false
	globallyBlacklisted := false
	g.store.View(func(doc *config.Document) {
		isAdminID = userID != "" && userID == doc.Bot.AdminQQ
		if entry := doc.Permissions.Users[userID]; entry != nil {
			for _, token := range entry.Roles {
				if r := Role(token); r.Valid() {
					set[r] = struct{}{}
				}
			}
		}
		globallyBlacklisted = set.Has(RoleGlobalBlacklisted)
	})

	if isAdminID && !globallyBlacklisted && !set.Has(RoleAdmin) {
		set[RoleAdmin] = struct{}{}
		err := g.store.Update(func(doc *config.Document) error {
			entry := ensureEntry(doc, userID)
			entry.Roles = addToken(entry.Roles, string(RoleAdmin))
			return nil
		})
		if err == nil {
			slog.Info("repaired admin permission entry", "user", userID)
		}
	}
	return set
}

// IsBlacklistedInGroup reports whether userID is blocked in groupID, either
// globally or by a blacklist entry scoped to that group.
func (g *Registry) IsBlacklistedInGroup(userID, groupID string) bool {
	blocked := false
	g.store.View(func(doc *config.Document) {
		entry := doc.Permissions.Users[userID]
		if entry == nil {
			return
		}
		if hasToken(entry.Roles, string(RoleGlobalBlacklisted)) {
			blocked = true
			return
		}
		blocked = groupID != "" && hasToken(entry.BlacklistedIn, groupID)
	})
	return blocked
}

// IsGloballyBlacklisted reports whether userID is blocked everywhere.
func (g *Registry) IsGloballyBlacklisted(userID string) bool {
	blocked := false
	g.store.View(func(doc *config.Document) {
		entry := doc.Permissions.Users[userID]
		blocked = entry != nil && hasToken(entry.Roles, string(RoleGlobalBlacklisted))
	})
	return blocked
}

// ManagesGroup reports whether userID holds the group_manager role and
// manages groupID. Managed group entries without the role have no effect.
func (g *Registry) ManagesGroup(userID, groupID string) bool {
	if !g.Roles(userID).Has(RoleGroupManager) {
		return false
	}
	manages := false
	g.store.View(func(doc *config.Document) {
		entry := doc.Permissions.Users[userID]
		manages = entry != nil && hasToken(entry.ManagedGroups, groupID)
	})
	return manages
}

// Grant adds role to userID. Granting global_blacklisted is equivalent to
// SetGlobalBlacklist(userID, true).
func (g *Registry) Grant(userID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if role == RoleGlobalBlacklisted {
		return g.SetGlobalBlacklist(userID, true)
	}
	return g.store.Update(func(doc *config.Document) error {
		entry := doc.Permissions.Users[userID]
		if entry != nil && hasToken(entry.Roles, string(RoleGlobalBlacklisted)) {
			return fmt.Errorf("user %s is globally blacklisted", userID)
		}
		entry = ensureEntry(doc, userID)
		entry.Roles = addToken(entry.Roles, string(role))
		return nil
	})
}

// Revoke removes role from userID. Revoking group_manager also clears the
// managed group set, since it is meaningless without the role.
func (g *Registry) Revoke(userID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return g.store.Update(func(doc *config.Document) error {
		entry := doc.Permissions.Users[userID]
		if entry == nil {
			return nil
		}
		entry.Roles = removeToken(entry.Roles, string(role))
		if role == RoleGroupManager {
			entry.ManagedGroups = nil
		}
		pruneEntry(doc, userID)
		return nil
	})
}

// AddManagedGroup records that userID manages groupID and lifts any
// blacklist entry for that group. The group_manager role is granted
// separately.
func (g *Registry) AddManagedGroup(userID, groupID string) error {
	return g.store.Update(func(doc *config.Document) error {
		entry := ensureEntry(doc, userID)
		entry.ManagedGroups = addToken(entry.ManagedGroups, groupID)
		entry.BlacklistedIn = removeToken(entry.BlacklistedIn, groupID)
		return nil
	})
}

// RemoveManagedGroup removes groupID from userID's managed set. When the
// last managed group goes away the group_manager role is dropped with it.
func (g *Registry) RemoveManagedGroup(userID, groupID string) error {
	return g.store.Update(func(doc *config.Document) error {
		entry := doc.Permissions.Users[userID]
		if entry == nil {
			return nil
		}
		entry.ManagedGroups = removeToken(entry.ManagedGroups, groupID)
		if len(entry.ManagedGroups) == 0 {
			entry.Roles = removeToken(entry.Roles, string(RoleGroupManager))
		}
		pruneEntry(doc, userID)
		return nil
	})
}

// BlacklistInGroup blocks userID in groupID. The configured admin cannot be
// blacklisted. A manager blacklisted in a group stops managing it.
func (g *Registry) BlacklistInGroup(userID, groupID string) error {
	return g.store.Update(func(doc *config.Document) error {
		if userID == doc.Bot.AdminQQ {
			return fmt.Errorf("cannot blacklist the configured admin")
		}
		entry := ensureEntry(doc, userID)
		entry.ManagedGroups = removeToken(entry.ManagedGroups, groupID)
		entry.BlacklistedIn = addToken(entry.BlacklistedIn, groupID)
		return nil
	})
}

// Unblacklist lifts a group-scoped blacklist entry.
func (g *Registry) Unblacklist(userID, groupID string) error {
	return g.store.Update(func(doc *config.Document) error {
		entry := doc.Permissions.Users[userID]
		if entry == nil {
			return nil
		}
		entry.BlacklistedIn = removeToken(entry.BlacklistedIn, groupID)
		pruneEntry(doc, userID)
		return nil
	})
}

// SetGlobalBlacklist blocks or unblocks userID everywhere. Blocking wipes
// every other role and relation; the configured admin cannot be blocked.
func (g *Registry) SetGlobalBlacklist(userID string, on bool) error {
	return g.store.Update(func(doc *config.Document) error {
		if on && userID == doc.Bot.AdminQQ {
			return fmt.Errorf("cannot blacklist the configured admin")
		}
		if on {
			entry := ensureEntry(doc, userID)
			entry.Roles = []string{string(RoleGlobalBlacklisted)}
			entry.ManagedGroups = nil
			entry.BlacklistedIn = nil
			return nil
		}
		entry := doc.Permissions.Users[userID]
		if entry == nil {
			return nil
		}
		entry.Roles = removeToken(entry.Roles, string(RoleGlobalBlacklisted))
		pruneEntry(doc, userID)
		return nil
	})
}

// Entry returns a copy of the stored entry for userID, or nil.
func (g *Registry) Entry(userID string) *config.PermissionEntry {
	var entry *config.PermissionEntry
	g.store.View(func(doc *config.Document) {
		entry = doc.Permissions.Users[userID].Clone()
	})
	return entry
}

func ensureEntry(doc *config.Document, userID string) *config.PermissionEntry {
	if doc.Permissions.Users == nil {
		doc.Permissions.Users = map[string]*config.PermissionEntry{}
	}
	entry := doc.Permissions.Users[userID]
	if entry == nil {
		entry = &config.PermissionEntry{}
		doc.Permissions.Users[userID] = entry
	}
	return entry
}

// pruneEntry drops entries holding no roles and no relations, keeping the
// persisted table minimal.
func pruneEntry(doc *config.Document, userID string) {
	entry := doc.Permissions.Users[userID]
	if entry != nil && len(entry.Roles) == 0 && len(entry.ManagedGroups) == 0 && len(entry.BlacklistedIn) == 0 {
		delete(doc.Permissions.Users, userID)
	}
}

func hasToken(tokens []string, t string) bool {
	for _, v := range tokens {
		if v == t {
			return true
		}
	}
	return false
}

// addToken appends t if absent, keeping the slice a logical set.
func addToken(tokens []string, t string) []string {
	if hasToken(tokens, t) {
		return tokens
	}
	out := append(tokens, t)
	sort.Strings(out)
	return out
}

func removeToken(tokens []string, t string) []string {
	out := tokens[:0]
	for _, v := range tokens {
		if v != t {
			out = append(out, v)
		}
	}
	return out
}
