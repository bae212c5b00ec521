package guild

import (
	"testing"
	"time"

	"guildhall-backend/facets/membershiptoken"
	"guildhall-backend/facets/organization"
	"guildhall-backend/shared/accesscontrol"
	"guildhall-backend/shared/apperrors"
	"guildhall-backend/shared/events"
	"guildhall-backend/shared/storage"
	"guildhall-backend/shared/utils/policy"
)

type fakePolicy struct {
	allowCreate     bool
	createErr       error
	maxUsers        int
	maxErr          error
	onCreationErr   error
	onCreationCalls []uint64
}

func (p *fakePolicy) CanCreateGuild(user, orgID string) (bool, error) {
	return p.allowCreate, p.createErr
}

func (p *fakePolicy) OnGuildCreation(owner, orgID string, guildID uint64) error {
	p.onCreationCalls = append(p.onCreationCalls, guildID)
	return p.onCreationErr
}

func (p *fakePolicy) MaxUsersForGuild(orgID string, guildID uint64) (int, error) {
	return p.maxUsers, p.maxErr
}

type fakeTag struct {
	balances map[string]int64
	err      error
}

func (tc *fakeTag) BalanceOf(account string) (int64, error) {
	return tc.balances[account], tc.err
}

type harness struct {
	facet    *GuildFacet
	orgs     *organization.OrganizationFacet
	registry *accesscontrol.Registry
	token    *membershiptoken.TokenFacet
	policy   *fakePolicy
	tag      *fakeTag
	now      time.Time
}

func defaultOrgConfig() organization.Config {
	return organization.Config{
		MaxGuildsPerUser:         3,
		TimeoutAfterLeavingGuild: 0,
		DefaultGuildCapacity:     10,
		CreationRule:             organization.CreationRuleAnyone,
	}
}

// newHarness wires the guild facet against real sibling facets and
// fake external clients, with organization "acme" administered by
// "root".
func newHarness(t *testing.T, cfg organization.Config) *harness {
	t.Helper()
	store := storage.NewStore()
	bus := events.NewBus()

	registry, err := accesscontrol.NewRegistry(store, bus)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	registry.Bootstrap(accesscontrol.DefaultAdminRole, "root")

	token, err := membershiptoken.New(store, registry, bus)
	if err != nil {
		t.Fatalf("token New: %v", err)
	}
	orgs, err := organization.New(store, registry, bus)
	if err != nil {
		t.Fatalf("organization New: %v", err)
	}

	h := &harness{
		orgs:     orgs,
		registry: registry,
		token:    token,
		policy:   &fakePolicy{allowCreate: true, maxUsers: 10},
		tag:      &fakeTag{balances: map[string]int64{}},
		now:      time.Unix(1700000000, 0).UTC(),
	}
	orgs.WithClock(func() time.Time { return h.now })

	facet, err := New(
		store, orgs, registry, token,
		func(string) policy.GuildPolicy { return h.policy },
		func(string) policy.TagCredential { return h.tag },
		bus,
	)
	if err != nil {
		t.Fatalf("guild New: %v", err)
	}
	h.facet = facet.WithClock(func() time.Time { return h.now })

	if _, err := orgs.Create("root", "acme", "Acme", "", cfg); err != nil {
		t.Fatalf("create organization: %v", err)
	}
	return h
}

func (h *harness) advance(seconds int64) {
	h.now = h.now.Add(time.Duration(seconds) * time.Second)
}

func (h *harness) mustCreate(t *testing.T, owner string) *Guild {
	t.Helper()
	g, err := h.facet.CreateGuild(owner, "acme", "Raiders", "a guild", "RDR")
	if err != nil {
		t.Fatalf("CreateGuild: %v", err)
	}
	return g
}

func (h *harness) mustJoin(t *testing.T, g *Guild, inviter, user string) {
	t.Helper()
	if err := h.facet.InviteToGuild(inviter, "acme", g.ID, user); err != nil {
		t.Fatalf("InviteToGuild(%s): %v", user, err)
	}
	if err := h.facet.AcceptInvitation(user, "acme", g.ID); err != nil {
		t.Fatalf("AcceptInvitation(%s): %v", user, err)
	}
}

func TestCreateGuildSeatsOwner(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())

	g := h.mustCreate(t, "alice")
	if g.ID != 1 {
		t.Fatalf("guild id = %d, want 1", g.ID)
	}
	if g.Status != GuildActive {
		t.Fatalf("status = %s, want ACTIVE", g.Status)
	}
	if g.UsersInGuild != 1 {
		t.Fatalf("users = %d, want 1", g.UsersInGuild)
	}
	if status := h.facet.MemberStatus("acme", g.ID, "alice"); status != StatusOwner {
		t.Fatalf("creator status = %s, want OWNER", status)
	}
	if balance := h.token.BalanceOf("alice", g.ID); balance != 1 {
		t.Fatalf("membership token balance = %d, want 1", balance)
	}

	second, err := h.facet.CreateGuild("bob", "acme", "Defenders", "", "DEF")
	if err != nil {
		t.Fatalf("second CreateGuild: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("second guild id = %d, want 2", second.ID)
	}
}

func TestCreateGuildAdminOnlyRule(t *testing.T) {
	cfg := defaultOrgConfig()
	cfg.CreationRule = organization.CreationRuleAdminOnly
	h := newHarness(t, cfg)

	if _, err := h.facet.CreateGuild("alice", "acme", "Raiders", "", ""); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("create by non-admin: got %v, want UNAUTHORIZED", err)
	}
	if _, err := h.facet.CreateGuild("root", "acme", "Raiders", "", ""); err != nil {
		t.Fatalf("create by org admin: %v", err)
	}
}

func TestCreateGuildCustomRule(t *testing.T) {
	cfg := defaultOrgConfig()
	cfg.CreationRule = organization.CreationRuleCustom
	cfg.PolicyURL = "http://policy.test"
	h := newHarness(t, cfg)

	h.policy.allowCreate = false
	if _, err := h.facet.CreateGuild("alice", "acme", "Raiders", "", ""); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("rejected by policy: got %v, want UNAUTHORIZED", err)
	}

	h.policy.allowCreate = true
	h.policy.createErr = apperrors.New(apperrors.KindPolicy, "down")
	if _, err := h.facet.CreateGuild("alice", "acme", "Raiders", "", ""); !apperrors.IsKind(err, apperrors.KindPolicy) {
		t.Fatalf("policy unreachable: got %v, want POLICY_ERROR", err)
	}

	h.policy.createErr = nil
	g, err := h.facet.CreateGuild("alice", "acme", "Raiders", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(h.policy.onCreationCalls) != 1 || h.policy.onCreationCalls[0] != g.ID {
		t.Fatalf("OnGuildCreation calls = %v, want [%d]", h.policy.onCreationCalls, g.ID)
	}
}

func TestTagRequirementGatesEntry(t *testing.T) {
	cfg := defaultOrgConfig()
	cfg.TagRequirementURL = "http://tag.test"
	h := newHarness(t, cfg)

	if _, err := h.facet.CreateGuild("alice", "acme", "Raiders", "", ""); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("create without tag: got %v, want UNAUTHORIZED", err)
	}

	h.tag.balances["alice"] = 1
	g := h.mustCreate(t, "alice")

	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "bob"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if err := h.facet.AcceptInvitation("bob", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("accept without tag: got %v, want UNAUTHORIZED", err)
	}

	h.tag.balances["bob"] = 2
	if err := h.facet.AcceptInvitation("bob", "acme", g.ID); err != nil {
		t.Fatalf("accept with tag: %v", err)
	}
}

func TestInviteRules(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")

	// Plain members cannot invite.
	if err := h.facet.InviteToGuild("bob", "acme", g.ID, "carol"); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("invite by member: got %v, want UNAUTHORIZED", err)
	}
	// Existing associations cannot be invited again.
	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "bob"); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("invite of member: got %v, want INVALID_STATE", err)
	}
	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "carol"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "carol"); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("double invite: got %v, want INVALID_STATE", err)
	}

	// An invitation alone holds no seat and no token.
	if g2, _ := h.facet.GetGuild("acme", g.ID); g2.UsersInGuild != 2 {
		t.Fatalf("users = %d, want 2", g2.UsersInGuild)
	}
	if balance := h.token.BalanceOf("carol", g.ID); balance != 0 {
		t.Fatalf("invited balance = %d, want 0", balance)
	}
}

func TestAcceptWithoutInvitation(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())
	g := h.mustCreate(t, "alice")

	if err := h.facet.AcceptInvitation("bob", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("accept without invitation: got %v, want INVALID_STATE", err)
	}
}

func TestCapacityLimit(t *testing.T) {
	cfg := defaultOrgConfig()
	cfg.DefaultGuildCapacity = 2
	h := newHarness(t, cfg)
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")

	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "carol"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if err := h.facet.AcceptInvitation("carol", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindCapacityExceeded) {
		t.Fatalf("join at capacity: got %v, want CAPACITY_EXCEEDED", err)
	}
}

func TestCustomCapacityRule(t *testing.T) {
	cfg := defaultOrgConfig()
	cfg.CustomCapacityRule = true
	cfg.PolicyURL = "http://policy.test"
	h := newHarness(t, cfg)

	h.policy.maxUsers = 1
	g := h.mustCreate(t, "alice")

	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "bob"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if err := h.facet.AcceptInvitation("bob", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindCapacityExceeded) {
		t.Fatalf("join above custom capacity: got %v, want CAPACITY_EXCEEDED", err)
	}

	// Out-of-bounds policy answers are rejected, not trusted.
	h.policy.maxUsers = 0
	if err := h.facet.AcceptInvitation("bob", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindPolicy) {
		t.Fatalf("zero capacity from policy: got %v, want POLICY_ERROR", err)
	}

	// Absurdly large answers are clamped instead of overflowing.
	org, err := h.orgs.Get("acme")
	if err != nil {
		t.Fatalf("get org: %v", err)
	}
	h.policy.maxUsers = AbsoluteMaxGuildCapacity * 10
	capacity, err := h.facet.resolveCapacity(org, g.ID)
	if err != nil {
		t.Fatalf("resolveCapacity: %v", err)
	}
	if capacity != AbsoluteMaxGuildCapacity {
		t.Fatalf("capacity = %d, want %d", capacity, AbsoluteMaxGuildCapacity)
	}
}

func TestMaxGuildsPerUser(t *testing.T) {
	cfg := defaultOrgConfig()
	cfg.MaxGuildsPerUser = 1
	h := newHarness(t, cfg)
	h.mustCreate(t, "alice")

	if _, err := h.facet.CreateGuild("alice", "acme", "Defenders", "", ""); !apperrors.IsKind(err, apperrors.KindTooManyGuilds) {
		t.Fatalf("second guild: got %v, want TOO_MANY_GUILDS", err)
	}
}

func TestCooldownAfterLeaving(t *testing.T) {
	cfg := defaultOrgConfig()
	cfg.TimeoutAfterLeavingGuild = 100
	h := newHarness(t, cfg)
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")

	if err := h.facet.LeaveGuild("bob", "acme", g.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "bob"); err != nil {
		t.Fatalf("re-invite: %v", err)
	}

	h.advance(50)
	if err := h.facet.AcceptInvitation("bob", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindCooldownActive) {
		t.Fatalf("rejoin during cooldown: got %v, want COOLDOWN_ACTIVE", err)
	}

	h.advance(51)
	if err := h.facet.AcceptInvitation("bob", "acme", g.ID); err != nil {
		t.Fatalf("rejoin after cooldown: %v", err)
	}
}

func TestFailedAcceptKeepsInvitation(t *testing.T) {
	cfg := defaultOrgConfig()
	cfg.TimeoutAfterLeavingGuild = 100
	h := newHarness(t, cfg)
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")

	if err := h.facet.LeaveGuild("bob", "acme", g.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "bob"); err != nil {
		t.Fatalf("re-invite: %v", err)
	}

	// A rejected accept must not consume the invitation.
	if err := h.facet.AcceptInvitation("bob", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindCooldownActive) {
		t.Fatalf("accept during cooldown: got %v, want COOLDOWN_ACTIVE", err)
	}
	if status := h.facet.MemberStatus("acme", g.ID, "bob"); status != StatusInvited {
		t.Fatalf("status after failed accept = %s, want INVITED", status)
	}

	h.advance(101)
	if err := h.facet.AcceptInvitation("bob", "acme", g.ID); err != nil {
		t.Fatalf("accept after cooldown: %v", err)
	}
	if status := h.facet.MemberStatus("acme", g.ID, "bob"); status != StatusMember {
		t.Fatalf("status = %s, want MEMBER", status)
	}
}

func TestFailedCreateLeavesNoGuild(t *testing.T) {
	cfg := defaultOrgConfig()
	cfg.MaxGuildsPerUser = 1
	h := newHarness(t, cfg)
	h.mustCreate(t, "alice")

	if _, err := h.facet.CreateGuild("alice", "acme", "Defenders", "", ""); !apperrors.IsKind(err, apperrors.KindTooManyGuilds) {
		t.Fatalf("second guild: got %v, want TOO_MANY_GUILDS", err)
	}
	if _, err := h.facet.GetGuild("acme", 2); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("failed create left a guild record: %v", err)
	}
	if balance := h.token.BalanceOf("alice", 2); balance != 0 {
		t.Fatalf("failed create minted a token: balance = %d", balance)
	}

	// The rejected creation must not consume an id either.
	second, err := h.facet.CreateGuild("bob", "acme", "Defenders", "", "")
	if err != nil {
		t.Fatalf("create by bob: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("guild id = %d, want 2", second.ID)
	}
}

func TestKickRules(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")
	h.mustJoin(t, g, "alice", "carol")
	if err := h.facet.SetAdminStatus("alice", "acme", g.ID, "carol", true); err != nil {
		t.Fatalf("promote carol: %v", err)
	}

	if err := h.facet.KickFromGuild("bob", "acme", g.ID, "carol"); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("kick by member: got %v, want UNAUTHORIZED", err)
	}
	// Admins must be demoted before removal; the owner never leaves by kick.
	if err := h.facet.KickFromGuild("alice", "acme", g.ID, "carol"); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("kick of admin: got %v, want INVALID_STATE", err)
	}
	if err := h.facet.KickFromGuild("carol", "acme", g.ID, "alice"); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("kick of owner: got %v, want INVALID_STATE", err)
	}
	if err := h.facet.KickFromGuild("alice", "acme", g.ID, "ghost"); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("kick of stranger: got %v, want INVALID_STATE", err)
	}

	if err := h.facet.KickFromGuild("carol", "acme", g.ID, "bob"); err != nil {
		t.Fatalf("kick member: %v", err)
	}
	if status := h.facet.MemberStatus("acme", g.ID, "bob"); status != StatusNotAssociated {
		t.Fatalf("kicked status = %s, want NOT_ASSOCIATED", status)
	}
	if balance := h.token.BalanceOf("bob", g.ID); balance != 0 {
		t.Fatalf("kicked balance = %d, want 0", balance)
	}

	// Revoking an invitation leaves counters untouched.
	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "dave"); err != nil {
		t.Fatalf("invite dave: %v", err)
	}
	before, _ := h.facet.GetGuild("acme", g.ID)
	if err := h.facet.KickFromGuild("alice", "acme", g.ID, "dave"); err != nil {
		t.Fatalf("revoke invitation: %v", err)
	}
	after, _ := h.facet.GetGuild("acme", g.ID)
	if before.UsersInGuild != after.UsersInGuild {
		t.Fatalf("users changed on invitation revoke: %d -> %d", before.UsersInGuild, after.UsersInGuild)
	}
}

func TestLeaveRules(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")

	if err := h.facet.LeaveGuild("alice", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("owner leave: got %v, want INVALID_STATE", err)
	}
	if err := h.facet.LeaveGuild("ghost", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("stranger leave: got %v, want INVALID_STATE", err)
	}

	if err := h.facet.LeaveGuild("bob", "acme", g.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	ids, lastLeftAt := h.facet.GuildsOfUser("acme", "bob")
	if len(ids) != 0 {
		t.Fatalf("guild ids after leave = %v, want empty", ids)
	}
	if lastLeftAt != h.now.Unix() {
		t.Fatalf("last left at = %d, want %d", lastLeftAt, h.now.Unix())
	}
	g2, _ := h.facet.GetGuild("acme", g.ID)
	if g2.UsersInGuild != 1 {
		t.Fatalf("users = %d, want 1", g2.UsersInGuild)
	}
}

func TestAdminStatusTransitions(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")
	h.mustJoin(t, g, "alice", "carol")
	if err := h.facet.SetAdminStatus("alice", "acme", g.ID, "carol", true); err != nil {
		t.Fatalf("promote carol: %v", err)
	}

	// Only the owner may flip the flag; admins cannot.
	if err := h.facet.SetAdminStatus("carol", "acme", g.ID, "bob", true); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("promote by admin: got %v, want UNAUTHORIZED", err)
	}
	// Assigning the already-held status fails.
	if err := h.facet.SetAdminStatus("alice", "acme", g.ID, "carol", true); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("re-promote: got %v, want INVALID_STATE", err)
	}
	if err := h.facet.SetAdminStatus("alice", "acme", g.ID, "bob", false); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("demote member: got %v, want INVALID_STATE", err)
	}
	// The owner is not a promotion target.
	if err := h.facet.SetAdminStatus("alice", "acme", g.ID, "alice", true); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("promote owner: got %v, want INVALID_STATE", err)
	}

	if err := h.facet.SetAdminStatus("alice", "acme", g.ID, "carol", false); err != nil {
		t.Fatalf("demote carol: %v", err)
	}
	if status := h.facet.MemberStatus("acme", g.ID, "carol"); status != StatusMember {
		t.Fatalf("carol status = %s, want MEMBER", status)
	}
}

func TestTransferOwnershipKeepsSingleOwner(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")

	if err := h.facet.TransferGuildOwnership("bob", "acme", g.ID, "bob"); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("transfer by non-owner: got %v, want UNAUTHORIZED", err)
	}
	if err := h.facet.TransferGuildOwnership("alice", "acme", g.ID, "ghost"); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("transfer to stranger: got %v, want INVALID_STATE", err)
	}

	if err := h.facet.TransferGuildOwnership("alice", "acme", g.ID, "bob"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	g2, _ := h.facet.GetGuild("acme", g.ID)
	if g2.Owner != "bob" {
		t.Fatalf("owner = %s, want bob", g2.Owner)
	}
	if status := h.facet.MemberStatus("acme", g.ID, "alice"); status != StatusAdmin {
		t.Fatalf("previous owner status = %s, want ADMIN", status)
	}

	members, err := h.facet.GetGuildMembers("acme", g.ID)
	if err != nil {
		t.Fatalf("GetGuildMembers: %v", err)
	}
	owners := 0
	for _, member := range members {
		if member.Status == StatusOwner {
			owners++
		}
	}
	if owners != 1 {
		t.Fatalf("owner count = %d, want exactly 1", owners)
	}
}

func TestSetMemberLevel(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")

	if err := h.facet.SetMemberLevel("alice", "acme", g.ID, "bob", 0); !apperrors.IsKind(err, apperrors.KindInvalidArgument) {
		t.Fatalf("level 0: got %v, want INVALID_ARGUMENT", err)
	}
	if err := h.facet.SetMemberLevel("alice", "acme", g.ID, "bob", 6); !apperrors.IsKind(err, apperrors.KindInvalidArgument) {
		t.Fatalf("level 6: got %v, want INVALID_ARGUMENT", err)
	}
	if err := h.facet.SetMemberLevel("bob", "acme", g.ID, "alice", 3); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("level set by member: got %v, want UNAUTHORIZED", err)
	}
	if err := h.facet.SetMemberLevel("alice", "acme", g.ID, "ghost", 3); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("level on stranger: got %v, want INVALID_STATE", err)
	}

	if err := h.facet.SetMemberLevel("alice", "acme", g.ID, "bob", 5); err != nil {
		t.Fatalf("SetMemberLevel: %v", err)
	}
	members, _ := h.facet.GetGuildMembers("acme", g.ID)
	for _, member := range members {
		if member.User == "bob" && member.MemberLevel != 5 {
			t.Fatalf("bob level = %d, want 5", member.MemberLevel)
		}
	}
}

func TestTerminateGuild(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")

	// The guild owner does not hold the terminator role.
	if err := h.facet.TerminateGuild("alice", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("terminate by guild owner: got %v, want UNAUTHORIZED", err)
	}

	// The org admin was granted the role at creation.
	if err := h.facet.TerminateGuild("root", "acme", g.ID); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	g2, _ := h.facet.GetGuild("acme", g.ID)
	if g2.Status != GuildTerminated {
		t.Fatalf("status = %s, want TERMINATED", g2.Status)
	}

	// Termination is one-way and freezes every transition.
	if err := h.facet.TerminateGuild("root", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindGuildNotActive) {
		t.Fatalf("double terminate: got %v, want GUILD_NOT_ACTIVE", err)
	}
	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "carol"); !apperrors.IsKind(err, apperrors.KindGuildNotActive) {
		t.Fatalf("invite after termination: got %v, want GUILD_NOT_ACTIVE", err)
	}
	if err := h.facet.LeaveGuild("bob", "acme", g.ID); !apperrors.IsKind(err, apperrors.KindGuildNotActive) {
		t.Fatalf("leave after termination: got %v, want GUILD_NOT_ACTIVE", err)
	}

	// Membership receipts survive as history.
	if balance := h.token.BalanceOf("bob", g.ID); balance != 1 {
		t.Fatalf("balance after termination = %d, want 1", balance)
	}
}

func TestMembershipCountMatchesEnumeration(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())
	g := h.mustCreate(t, "alice")
	h.mustJoin(t, g, "alice", "bob")
	h.mustJoin(t, g, "alice", "carol")
	if err := h.facet.InviteToGuild("alice", "acme", g.ID, "dave"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if err := h.facet.LeaveGuild("carol", "acme", g.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}

	g2, _ := h.facet.GetGuild("acme", g.ID)
	members, _ := h.facet.GetGuildMembers("acme", g.ID)
	seated := 0
	for _, member := range members {
		if isInGuild(member.Status) {
			seated++
		}
	}
	if g2.UsersInGuild != seated {
		t.Fatalf("UsersInGuild = %d, enumerated = %d", g2.UsersInGuild, seated)
	}
}

func TestGuildNotFound(t *testing.T) {
	h := newHarness(t, defaultOrgConfig())
	if _, err := h.facet.GetGuild("acme", 99); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("unknown guild: got %v, want NOT_FOUND", err)
	}
	if _, err := h.facet.CreateGuild("alice", "ghost", "Raiders", "", ""); !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("unknown org: got %v, want NOT_FOUND", err)
	}
}
