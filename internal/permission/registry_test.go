package permission

import (
	"errors"
	"testing"

	"github.com/yuibot/yuibot/internal/config"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	doc := config.DefaultDocument()
	doc.Bot.QQNo = "10000"
	doc.Bot.AdminQQ = "9999"
	doc.Gemini.APIKeys = []string{"key-1"}
	doc.Permissions.Users["9999"] = &config.PermissionEntry{
		Roles: []string{"admin", "private_user"},
	}
	store := config.NewStore(doc, nil)
	t.Cleanup(func() { store.Close() })
	return New(store)
}

func TestParseRole(t *testing.T) {
	for _, token := range []string{"admin", "group_manager", "private_user", "global_blacklisted"} {
		if _, err := ParseRole(token); err != nil {
			t.Errorf("ParseRole(%q): %v", token, err)
		}
	}
	if _, err := ParseRole("moderator"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("unknown role error = %v", err)
	}
}

func TestGrantRevoke(t *testing.T) {
	reg := testRegistry(t)

	if err := reg.Grant("u1", RolePrivateUser); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if !reg.Roles("u1").Has(RolePrivateUser) {
		t.Fatalf("granted role not visible")
	}
	// Granting twice keeps the set semantics.
	if err := reg.Grant("u1", RolePrivateUser); err != nil {
		t.Fatalf("re-Grant: %v", err)
	}
	if entry := reg.Entry("u1"); len(entry.Roles) != 1 {
		t.Fatalf("duplicate role stored: %v", entry.Roles)
	}

	if err := reg.Revoke("u1", RolePrivateUser); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if reg.Roles("u1").Has(RolePrivateUser) {
		t.Fatalf("revoked role still visible")
	}
	if reg.Entry("u1") != nil {
		t.Fatalf("empty entry not pruned")
	}
}

func TestRolesOfUnknownUserIsEmpty(t *testing.T) {
	reg := testRegistry(t)
	if got := reg.Roles("nobody"); len(got) != 0 {
		t.Fatalf("unknown user roles = %v", got)
	}
}

func TestAdminSelfHeal(t *testing.T) {
	doc := config.DefaultDocument()
	doc.Bot.QQNo = "10000"
	doc.Bot.AdminQQ = "9999"
	doc.Gemini.APIKeys = []string{"key-1"}
	// The stored entry lost the admin role, e.g. by a hand edit.
	doc.Permissions.Users["9999"] = &config.PermissionEntry{Roles: []string{"private_user"}}
	store := config.NewStore(doc, nil)
	defer store.Close()
	reg := New(store)

	if !reg.Roles("9999").Has(RoleAdmin) {
		t.Fatalf("admin id must always carry the admin role")
	}
	// The repair is persisted back into the table.
	entry := reg.Entry("9999")
	found := false
	for _, r := range entry.Roles {
		if r == "admin" {
			found = true
		}
	}
	if !found {
		t.Fatalf("admin role not written back: %v", entry.Roles)
	}
}

func TestGlobalBlacklistWipesEverything(t *testing.T) {
	reg := testRegistry(t)
	if err := reg.Grant("u1", RoleGroupManager); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := reg.AddManagedGroup("u1", "g1"); err != nil {
		t.Fatalf("AddManagedGroup: %v", err)
	}

	if err := reg.SetGlobalBlacklist("u1", true); err != nil {
		t.Fatalf("SetGlobalBlacklist: %v", err)
	}
	entry := reg.Entry("u1")
	if len(entry.Roles) != 1 || entry.Roles[0] != "global_blacklisted" {
		t.Fatalf("roles after global blacklist = %v", entry.Roles)
	}
	if len(entry.ManagedGroups) != 0 {
		t.Fatalf("managed groups survived global blacklist")
	}
	if !reg.IsGloballyBlacklisted("u1") {
		t.Fatalf("IsGloballyBlacklisted = false")
	}
	if !reg.IsBlacklistedInGroup("u1", "any-group") {
		t.Fatalf("global blacklist must apply in every group")
	}
	if reg.ManagesGroup("u1", "g1") {
		t.Fatalf("blacklisted user still manages a group")
	}

	// Granting another role while blacklisted is refused.
	if err := reg.Grant("u1", RolePrivateUser); err == nil {
		t.Fatalf("Grant to blacklisted user must fail")
	}

	if err := reg.SetGlobalBlacklist("u1", false); err != nil {
		t.Fatalf("lift blacklist: %v", err)
	}
	if reg.IsGloballyBlacklisted("u1") {
		t.Fatalf("blacklist not lifted")
	}
}

func TestCannotBlacklistAdmin(t *testing.T) {
	reg := testRegistry(t)
	if err := reg.SetGlobalBlacklist("9999", true); err == nil {
		t.Fatalf("global blacklist of the admin must fail")
	}
	if err := reg.BlacklistInGroup("9999", "g1"); err == nil {
		t.Fatalf("group blacklist of the admin must fail")
	}
}

func TestGroupBlacklistIsScoped(t *testing.T) {
	reg := testRegistry(t)
	if err := reg.BlacklistInGroup("u1", "g1"); err != nil {
		t.Fatalf("BlacklistInGroup: %v", err)
	}
	if !reg.IsBlacklistedInGroup("u1", "g1") {
		t.Fatalf("blacklist not applied in g1")
	}
	if reg.IsBlacklistedInGroup("u1", "g2") {
		t.Fatalf("group blacklist leaked into g2")
	}
	if reg.IsGloballyBlacklisted("u1") {
		t.Fatalf("group blacklist must not be global")
	}

	if err := reg.Unblacklist("u1", "g1"); err != nil {
		t.Fatalf("Unblacklist: %v", err)
	}
	if reg.IsBlacklistedInGroup("u1", "g1") {
		t.Fatalf("blacklist not lifted")
	}
}

func TestBlacklistRemovesManagement(t *testing.T) {
	reg := testRegistry(t)
	if err := reg.Grant("u1", RoleGroupManager); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := reg.AddManagedGroup("u1", "g1"); err != nil {
		t.Fatalf("AddManagedGroup: %v", err)
	}
	if err := reg.BlacklistInGroup("u1", "g1"); err != nil {
		t.Fatalf("BlacklistInGroup: %v", err)
	}
	if reg.ManagesGroup("u1", "g1") {
		t.Fatalf("blacklisted-in-group user still manages it")
	}
}

func TestManagedGroupLifecycle(t *testing.T) {
	reg := testRegistry(t)
	if err := reg.Grant("u1", RoleGroupManager); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := reg.AddManagedGroup("u1", "g1"); err != nil {
		t.Fatalf("AddManagedGroup: %v", err)
	}
	if err := reg.AddManagedGroup("u1", "g2"); err != nil {
		t.Fatalf("AddManagedGroup g2: %v", err)
	}
	if !reg.ManagesGroup("u1", "g1") || !reg.ManagesGroup("u1", "g2") {
		t.Fatalf("management not recorded")
	}
	if reg.ManagesGroup("u1", "g3") {
		t.Fatalf("manages a group never added")
	}

	if err := reg.RemoveManagedGroup("u1", "g1"); err != nil {
		t.Fatalf("RemoveManagedGroup: %v", err)
	}
	if !reg.Roles("u1").Has(RoleGroupManager) {
		t.Fatalf("role dropped while groups remain")
	}
	if err := reg.RemoveManagedGroup("u1", "g2"); err != nil {
		t.Fatalf("RemoveManagedGroup g2: %v", err)
	}
	if reg.Roles("u1").Has(RoleGroupManager) {
		t.Fatalf("group_manager role must drop with the last managed group")
	}
}

func TestManagedGroupsWithoutRoleHaveNoEffect(t *testing.T) {
	reg := testRegistry(t)
	if err := reg.AddManagedGroup("u1", "g1"); err != nil {
		t.Fatalf("AddManagedGroup: %v", err)
	}
	// The entry records the group, but without group_manager it is inert.
	if reg.ManagesGroup("u1", "g1") {
		t.Fatalf("management without the role must have no effect")
	}
}

func TestAddManagedGroupLiftsBlacklist(t *testing.T) {
	reg := testRegistry(t)
	if err := reg.BlacklistInGroup("u1", "g1"); err != nil {
		t.Fatalf("BlacklistInGroup: %v", err)
	}
	if err := reg.AddManagedGroup("u1", "g1"); err != nil {
		t.Fatalf("AddManagedGroup: %v", err)
	}
	if reg.IsBlacklistedInGroup("u1", "g1") {
		t.Fatalf("promotion must lift the group blacklist")
	}
}

func TestRevokeManagerClearsGroups(t *testing.T) {
	reg := testRegistry(t)
	if err := reg.Grant("u1", RoleGroupManager); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := reg.AddManagedGroup("u1", "g1"); err != nil {
		t.Fatalf("AddManagedGroup: %v", err)
	}
	if err := reg.Revoke("u1", RoleGroupManager); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if entry := reg.Entry("u1"); entry != nil && len(entry.ManagedGroups) != 0 {
		t.Fatalf("managed groups survived role revocation: %+v", entry)
	}
}
