// Package guild implements the per-tenant guild lifecycle and its
// membership state machine.
//
// Termination is one-way and does not touch membership-proof tokens:
// balances minted to members of a terminated guild remain queryable as
// a historical receipt. Every mutating operation is gated on the guild
// being ACTIVE, so a stale receipt confers nothing.
package guild

import (
	"fmt"
	"strconv"
	"time"

	"guildhall-backend/facets/organization"
	"guildhall-backend/shared/accesscontrol"
	"guildhall-backend/shared/apperrors"
	"guildhall-backend/shared/events"
	"guildhall-backend/shared/storage"
	"guildhall-backend/shared/utils/policy"
)

// RegionName is the namespaced storage region holding guild state.
const RegionName = "guildhall.guild.manager"

// TerminatorRoleTag derives the per-guild role allowed to terminate.
const TerminatorRoleTag = "guildhall.role.guild.terminator"

// AbsoluteMaxGuildCapacity clamps capacities reported by untrusted
// custom policy endpoints.
const AbsoluteMaxGuildCapacity = 100000

// Membership statuses.
const (
	StatusNotAssociated = "NOT_ASSOCIATED"
	StatusInvited       = "INVITED"
	StatusMember        = "MEMBER"
	StatusAdmin         = "ADMIN"
	StatusOwner         = "OWNER"
)

// Guild statuses.
const (
	GuildActive     = "ACTIVE"
	GuildTerminated = "TERMINATED"
)

// Member levels.
const (
	MinMemberLevel = 1
	MaxMemberLevel = 5
)

// Guild is one named group of users within an organization.
type Guild struct {
	ID             uint64    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Symbol         string    `json:"symbol"`
	Owner          string    `json:"owner"`
	UsersInGuild   int       `json:"users_in_guild"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Membership is one user's standing in one guild.
type Membership struct {
	Status      string `json:"status"`
	JoinTime    int64  `json:"join_time"`
	MemberLevel int    `json:"member_level"`
}

// UserRecord is a user's organization-scoped membership list and the
// timestamp of their last departure, for cooldown enforcement.
type UserRecord struct {
	GuildIDs   []uint64 `json:"guild_ids"`
	LastLeftAt int64    `json:"last_left_at"`
}

// State is the region-resident guild table.
type State struct {
	Guilds      map[string]map[string]*Guild                 `json:"guilds"`       // org -> guild id -> guild
	NextGuildID map[string]uint64                            `json:"next_guild_id"`
	Memberships map[string]map[string]map[string]*Membership `json:"memberships"` // org -> guild id -> user
	Users       map[string]map[string]*UserRecord            `json:"users"`       // org -> user
}

// MembershipToken is the narrow capability the guild manager holds on
// the membership-proof token facet.
type MembershipToken interface {
	AdminMint(to string, id uint64, amount uint64) error
	AdminBurn(from string, id uint64, amount uint64) error
}

// PolicyFactory builds a policy client for an organization's
// configured policy URL.
type PolicyFactory func(baseURL string) policy.GuildPolicy

// TagFactory builds a tag credential client for an organization's
// configured tag requirement URL.
type TagFactory func(baseURL string) policy.TagCredential

// GuildFacet implements the guild manager.
type GuildFacet struct {
	state         *State
	orgs          *organization.OrganizationFacet
	registry      *accesscontrol.Registry
	token         MembershipToken
	policyFactory PolicyFactory
	tagFactory    TagFactory
	bus           *events.Bus
	clock         func() time.Time
}

// New roots the facet in its storage region.
func New(
	store *storage.Store,
	orgs *organization.OrganizationFacet,
	registry *accesscontrol.Registry,
	token MembershipToken,
	policyFactory PolicyFactory,
	tagFactory TagFactory,
	bus *events.Bus,
) (*GuildFacet, error) {
	state, err := storage.Region[State](store, RegionName)
	if err != nil {
		return nil, err
	}
	if state.Guilds == nil {
		state.Guilds = make(map[string]map[string]*Guild)
		state.NextGuildID = make(map[string]uint64)
		state.Memberships = make(map[string]map[string]map[string]*Membership)
		state.Users = make(map[string]map[string]*UserRecord)
	}
	return &GuildFacet{
		state:         state,
		orgs:          orgs,
		registry:      registry,
		token:         token,
		policyFactory: policyFactory,
		tagFactory:    tagFactory,
		bus:           bus,
		clock:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock replaces the time source; used by tests.
func (f *GuildFacet) WithClock(clock func() time.Time) *GuildFacet {
	f.clock = clock
	return f
}

// TerminatorRole is the derived per-guild role allowed to terminate.
func TerminatorRole(orgID string, guildID uint64) accesscontrol.RoleID {
	return accesscontrol.DerivedRole(TerminatorRoleTag, orgID, strconv.FormatUint(guildID, 10))
}

func guildKey(guildID uint64) string {
	return strconv.FormatUint(guildID, 10)
}

func isInGuild(status string) bool {
	return status == StatusMember || status == StatusAdmin || status == StatusOwner
}

// guild returns the guild record, active or not.
func (f *GuildFacet) guild(orgID string, guildID uint64) (*Guild, error) {
	g, exists := f.state.Guilds[orgID][guildKey(guildID)]
	if !exists {
		return nil, apperrors.New(apperrors.KindNotFound, "guild does not exist",
			"organization", orgID, "guild", guildKey(guildID))
	}
	return g, nil
}

// activeGuild returns the guild and fails when it is TERMINATED. Every
// status-changing transition goes through this gate.
func (f *GuildFacet) activeGuild(orgID string, guildID uint64) (*Guild, error) {
	g, err := f.guild(orgID, guildID)
	if err != nil {
		return nil, err
	}
	if g.Status != GuildActive {
		return nil, apperrors.New(apperrors.KindGuildNotActive, "guild is not active",
			"organization", orgID, "guild", guildKey(guildID))
	}
	return g, nil
}

func (f *GuildFacet) membership(orgID string, guildID uint64, user string) *Membership {
	return f.state.Memberships[orgID][guildKey(guildID)][user]
}

// MemberStatus returns the user's status for the guild.
func (f *GuildFacet) MemberStatus(orgID string, guildID uint64, user string) string {
	m := f.membership(orgID, guildID, user)
	if m == nil {
		return StatusNotAssociated
	}
	return m.Status
}

func (f *GuildFacet) setMembership(orgID string, guildID uint64, user string, m *Membership) {
	if f.state.Memberships[orgID] == nil {
		f.state.Memberships[orgID] = make(map[string]map[string]*Membership)
	}
	if f.state.Memberships[orgID][guildKey(guildID)] == nil {
		f.state.Memberships[orgID][guildKey(guildID)] = make(map[string]*Membership)
	}
	f.state.Memberships[orgID][guildKey(guildID)][user] = m
}

func (f *GuildFacet) clearMembership(orgID string, guildID uint64, user string) {
	delete(f.state.Memberships[orgID][guildKey(guildID)], user)
}

func (f *GuildFacet) userRecord(orgID, user string) *UserRecord {
	if f.state.Users[orgID] == nil {
		f.state.Users[orgID] = make(map[string]*UserRecord)
	}
	rec, exists := f.state.Users[orgID][user]
	if !exists {
		rec = &UserRecord{}
		f.state.Users[orgID][user] = rec
	}
	return rec
}

func (f *GuildFacet) requireGuildOwnerOrAdmin(sender string, orgID string, guildID uint64) error {
	status := f.MemberStatus(orgID, guildID, sender)
	if status != StatusOwner && status != StatusAdmin {
		return apperrors.New(apperrors.KindUnauthorized, "sender is not a guild owner or admin",
			"account", sender, "organization", orgID, "guild", guildKey(guildID))
	}
	return nil
}

// checkTagRequirement enforces the organization's external credential
// requirement, when configured: a balance of at least one unit.
func (f *GuildFacet) checkTagRequirement(org *organization.Organization, user string) error {
	if org.Config.TagRequirementURL == "" {
		return nil
	}
	tag := f.tagFactory(org.Config.TagRequirementURL)
	balance, err := tag.BalanceOf(user)
	if err != nil {
		return apperrors.New(apperrors.KindPolicy, "tag credential query failed: "+err.Error(),
			"organization", org.ID, "user", user)
	}
	if balance < 1 {
		return apperrors.New(apperrors.KindUnauthorized, "user does not hold the required tag credential",
			"organization", org.ID, "account", user)
	}
	return nil
}

// resolveCapacity returns the guild's member capacity: the organization
// constant, or the untrusted custom policy result bounds-checked.
func (f *GuildFacet) resolveCapacity(org *organization.Organization, guildID uint64) (int, error) {
	if !org.Config.CustomCapacityRule {
		return org.Config.DefaultGuildCapacity, nil
	}
	pc := f.policyFactory(org.Config.PolicyURL)
	capacity, err := pc.MaxUsersForGuild(org.ID, guildID)
	if err != nil {
		return 0, apperrors.New(apperrors.KindPolicy, "capacity policy query failed: "+err.Error(),
			"organization", org.ID, "guild", guildKey(guildID))
	}
	if capacity < 1 {
		return 0, apperrors.New(apperrors.KindPolicy, "capacity policy returned an out-of-bounds value",
			"organization", org.ID, "guild", guildKey(guildID))
	}
	if capacity > AbsoluteMaxGuildCapacity {
		capacity = AbsoluteMaxGuildCapacity
	}
	return capacity, nil
}

// join moves a user into an in-guild status. Order matters: all
// internal state is flipped to its new consistent value before the
// external mint call, so a malicious callback cannot observe a
// half-updated transition.
func (f *GuildFacet) join(org *organization.Organization, g *Guild, user, status string) error {
	now := f.clock().Unix()
	rec := f.userRecord(org.ID, user)

	timeout := org.Config.TimeoutAfterLeavingGuild
	if rec.LastLeftAt > 0 && timeout > 0 && now < rec.LastLeftAt+timeout {
		return apperrors.New(apperrors.KindCooldownActive, "cooldown after leaving a guild has not elapsed",
			"organization", org.ID, "guild", guildKey(g.ID), "user", user)
	}
	if len(rec.GuildIDs)+1 > org.Config.MaxGuildsPerUser {
		return apperrors.New(apperrors.KindTooManyGuilds, "user is already in the maximum number of guilds",
			"organization", org.ID, "guild", guildKey(g.ID), "user", user)
	}
	capacity, err := f.resolveCapacity(org, g.ID)
	if err != nil {
		return err
	}
	if g.UsersInGuild+1 > capacity {
		return apperrors.New(apperrors.KindCapacityExceeded, "guild is at capacity",
			"organization", org.ID, "guild", guildKey(g.ID), "user", user)
	}

	f.setMembership(org.ID, g.ID, user, &Membership{
		Status:      status,
		JoinTime:    now,
		MemberLevel: MinMemberLevel,
	})
	rec.GuildIDs = append(rec.GuildIDs, g.ID)
	g.UsersInGuild++

	if err := f.token.AdminMint(user, g.ID, 1); err != nil {
		return err
	}
	f.bus.Publish(events.TypeUserJoined, map[string]string{
		"organization": org.ID,
		"guild":        guildKey(g.ID),
		"user":         user,
		"status":       status,
	})
	return nil
}

// exit performs the exact inverse of join and stamps the departure
// time for cooldown enforcement. State is flipped before the burn.
func (f *GuildFacet) exit(org *organization.Organization, g *Guild, user, reason string) error {
	f.clearMembership(org.ID, g.ID, user)

	rec := f.userRecord(org.ID, user)
	for i, id := range rec.GuildIDs {
		if id == g.ID {
			// swap-and-pop; list order is not preserved
			rec.GuildIDs[i] = rec.GuildIDs[len(rec.GuildIDs)-1]
			rec.GuildIDs = rec.GuildIDs[:len(rec.GuildIDs)-1]
			break
		}
	}
	rec.LastLeftAt = f.clock().Unix()
	g.UsersInGuild--

	if err := f.token.AdminBurn(user, g.ID, 1); err != nil {
		return err
	}
	f.bus.Publish(events.TypeUserLeft, map[string]string{
		"organization": org.ID,
		"guild":        guildKey(g.ID),
		"user":         user,
		"reason":       reason,
	})
	return nil
}

// CreateGuild creates a guild under the organization's creation rule
// and seats the creator as its single OWNER.
func (f *GuildFacet) CreateGuild(sender, orgID, name, description, symbol string) (*Guild, error) {
	org, err := f.orgs.Get(orgID)
	if err != nil {
		return nil, err
	}

	switch org.Config.CreationRule {
	case organization.CreationRuleAnyone:
	case organization.CreationRuleAdminOnly:
		if sender != org.Admin {
			return nil, apperrors.New(apperrors.KindUnauthorized, "only the organization administrator may create guilds",
				"account", sender, "organization", orgID)
		}
	case organization.CreationRuleCustom:
		pc := f.policyFactory(org.Config.PolicyURL)
		allowed, err := pc.CanCreateGuild(sender, orgID)
		if err != nil {
			return nil, apperrors.New(apperrors.KindPolicy, "creation policy query failed: "+err.Error(),
				"organization", orgID, "user", sender)
		}
		if !allowed {
			return nil, apperrors.New(apperrors.KindUnauthorized, "creation policy rejected the user",
				"account", sender, "organization", orgID)
		}
	}

	if err := f.checkTagRequirement(org, sender); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "guild name must not be empty", "organization", orgID)
	}

	id := f.state.NextGuildID[orgID] + 1

	g := &Guild{
		ID:             id,
		OrganizationID: orgID,
		Name:           name,
		Description:    description,
		Symbol:         symbol,
		Owner:          sender,
		Status:         GuildActive,
		CreatedAt:      f.clock(),
	}

	// The record and the id are committed only after the creator's
	// join checks pass; a rejected creator consumes nothing.
	if err := f.join(org, g, sender, StatusOwner); err != nil {
		return nil, err
	}
	f.state.NextGuildID[orgID] = id
	if f.state.Guilds[orgID] == nil {
		f.state.Guilds[orgID] = make(map[string]*Guild)
	}
	f.state.Guilds[orgID][guildKey(id)] = g

	// The organization administrator can terminate any of its guilds.
	f.registry.Bootstrap(TerminatorRole(orgID, id), org.Admin)

	f.bus.Publish(events.TypeGuildCreated, map[string]string{
		"organization": orgID,
		"guild":        guildKey(id),
		"owner":        sender,
	})

	if org.Config.CreationRule == organization.CreationRuleCustom {
		pc := f.policyFactory(org.Config.PolicyURL)
		if err := pc.OnGuildCreation(sender, orgID, id); err != nil {
			return nil, apperrors.New(apperrors.KindPolicy, "creation policy callback failed: "+err.Error(),
				"organization", orgID, "guild", guildKey(id))
		}
	}
	return g, nil
}

// InviteToGuild moves a non-associated user to INVITED.
func (f *GuildFacet) InviteToGuild(sender, orgID string, guildID uint64, user string) error {
	g, err := f.activeGuild(orgID, guildID)
	if err != nil {
		return err
	}
	if err := f.requireGuildOwnerOrAdmin(sender, orgID, guildID); err != nil {
		return err
	}
	if status := f.MemberStatus(orgID, guildID, user); status != StatusNotAssociated {
		return apperrors.New(apperrors.KindInvalidState, "user is already associated with the guild",
			"organization", orgID, "guild", guildKey(guildID), "user", user, "status", status)
	}
	f.setMembership(orgID, guildID, user, &Membership{Status: StatusInvited})
	f.bus.Publish(events.TypeUserInvited, map[string]string{
		"organization": orgID,
		"guild":        guildKey(g.ID),
		"user":         user,
		"inviter":      sender,
	})
	return nil
}

// AcceptInvitation moves the caller from INVITED to MEMBER.
func (f *GuildFacet) AcceptInvitation(sender, orgID string, guildID uint64) error {
	g, err := f.activeGuild(orgID, guildID)
	if err != nil {
		return err
	}
	if status := f.MemberStatus(orgID, guildID, sender); status != StatusInvited {
		return apperrors.New(apperrors.KindInvalidState, "user has no pending invitation",
			"organization", orgID, "guild", guildKey(guildID), "user", sender, "status", status)
	}
	org, err := f.orgs.Get(orgID)
	if err != nil {
		return err
	}
	if err := f.checkTagRequirement(org, sender); err != nil {
		return err
	}
	// join overwrites the INVITED record on success; a failed join
	// leaves the invitation intact.
	return f.join(org, g, sender, StatusMember)
}

// KickFromGuild removes an INVITED or MEMBER user. Admins must be
// demoted before they can be kicked; the owner cannot be kicked.
func (f *GuildFacet) KickFromGuild(sender, orgID string, guildID uint64, user string) error {
	g, err := f.activeGuild(orgID, guildID)
	if err != nil {
		return err
	}
	if err := f.requireGuildOwnerOrAdmin(sender, orgID, guildID); err != nil {
		return err
	}
	switch f.MemberStatus(orgID, guildID, user) {
	case StatusInvited:
		f.clearMembership(orgID, guildID, user)
		f.bus.Publish(events.TypeUserLeft, map[string]string{
			"organization": orgID,
			"guild":        guildKey(g.ID),
			"user":         user,
			"reason":       "invitation_revoked",
		})
		return nil
	case StatusMember:
		org, err := f.orgs.Get(orgID)
		if err != nil {
			return err
		}
		return f.exit(org, g, user, "kick")
	default:
		return apperrors.New(apperrors.KindInvalidState, "user cannot be kicked from their current status",
			"organization", orgID, "guild", guildKey(guildID), "user", user,
			"status", f.MemberStatus(orgID, guildID, user))
	}
}

// LeaveGuild removes the caller. The owner cannot leave directly and
// must transfer ownership first.
func (f *GuildFacet) LeaveGuild(sender, orgID string, guildID uint64) error {
	g, err := f.activeGuild(orgID, guildID)
	if err != nil {
		return err
	}
	status := f.MemberStatus(orgID, guildID, sender)
	if status == StatusOwner {
		return apperrors.New(apperrors.KindInvalidState, "guild owner must transfer ownership before leaving",
			"organization", orgID, "guild", guildKey(guildID), "user", sender)
	}
	if status != StatusMember && status != StatusAdmin {
		return apperrors.New(apperrors.KindInvalidState, "user is not a guild member",
			"organization", orgID, "guild", guildKey(guildID), "user", sender, "status", status)
	}
	org, err := f.orgs.Get(orgID)
	if err != nil {
		return err
	}
	return f.exit(org, g, sender, "leave")
}

// SetAdminStatus promotes a MEMBER to ADMIN or demotes an ADMIN to
// MEMBER. Only the guild owner may change the flag; assigning the
// status a user already holds fails.
func (f *GuildFacet) SetAdminStatus(sender, orgID string, guildID uint64, user string, isAdmin bool) error {
	g, err := f.activeGuild(orgID, guildID)
	if err != nil {
		return err
	}
	if sender != g.Owner {
		return apperrors.New(apperrors.KindUnauthorized, "only the guild owner may change admin status",
			"account", sender, "organization", orgID, "guild", guildKey(guildID))
	}
	m := f.membership(orgID, guildID, user)
	status := StatusNotAssociated
	if m != nil {
		status = m.Status
	}
	if isAdmin && status != StatusMember {
		return apperrors.New(apperrors.KindInvalidState, "only a member can be promoted to admin",
			"organization", orgID, "guild", guildKey(guildID), "user", user, "status", status)
	}
	if !isAdmin && status != StatusAdmin {
		return apperrors.New(apperrors.KindInvalidState, "only an admin can be demoted to member",
			"organization", orgID, "guild", guildKey(guildID), "user", user, "status", status)
	}
	if isAdmin {
		m.Status = StatusAdmin
	} else {
		m.Status = StatusMember
	}
	f.bus.Publish(events.TypeAdminStatusChanged, map[string]string{
		"organization": orgID,
		"guild":        guildKey(g.ID),
		"user":         user,
		"status":       m.Status,
	})
	return nil
}

// TransferGuildOwnership hands the single OWNER status to a current
// MEMBER or ADMIN; the previous owner becomes an ADMIN.
func (f *GuildFacet) TransferGuildOwnership(sender, orgID string, guildID uint64, newOwner string) error {
	g, err := f.activeGuild(orgID, guildID)
	if err != nil {
		return err
	}
	if sender != g.Owner {
		return apperrors.New(apperrors.KindUnauthorized, "only the guild owner may transfer ownership",
			"account", sender, "organization", orgID, "guild", guildKey(guildID))
	}
	target := f.membership(orgID, guildID, newOwner)
	if target == nil || (target.Status != StatusMember && target.Status != StatusAdmin) {
		return apperrors.New(apperrors.KindInvalidState, "new owner must be a current member or admin",
			"organization", orgID, "guild", guildKey(guildID), "user", newOwner)
	}
	previous := f.membership(orgID, guildID, sender)
	previous.Status = StatusAdmin
	target.Status = StatusOwner
	g.Owner = newOwner
	f.bus.Publish(events.TypeOwnershipChanged, map[string]string{
		"organization":   orgID,
		"guild":          guildKey(g.ID),
		"previous_owner": sender,
		"new_owner":      newOwner,
	})
	return nil
}

// SetMemberLevel sets an in-guild user's level (1..5).
func (f *GuildFacet) SetMemberLevel(sender, orgID string, guildID uint64, user string, level int) error {
	g, err := f.activeGuild(orgID, guildID)
	if err != nil {
		return err
	}
	if err := f.requireGuildOwnerOrAdmin(sender, orgID, guildID); err != nil {
		return err
	}
	if level < MinMemberLevel || level > MaxMemberLevel {
		return apperrors.New(apperrors.KindInvalidArgument, "member level must be between 1 and 5",
			"organization", orgID, "guild", guildKey(guildID), "user", user)
	}
	m := f.membership(orgID, guildID, user)
	if m == nil || !isInGuild(m.Status) {
		return apperrors.New(apperrors.KindInvalidState, "user is not in the guild",
			"organization", orgID, "guild", guildKey(guildID), "user", user)
	}
	m.MemberLevel = level
	f.bus.Publish(events.TypeMemberLevelChanged, map[string]string{
		"organization": orgID,
		"guild":        guildKey(g.ID),
		"user":         user,
		"level":        fmt.Sprintf("%d", level),
	})
	return nil
}

// UpdateGuildInfo updates the guild's descriptive fields.
func (f *GuildFacet) UpdateGuildInfo(sender, orgID string, guildID uint64, name, description, symbol string) error {
	g, err := f.activeGuild(orgID, guildID)
	if err != nil {
		return err
	}
	if sender != g.Owner {
		return apperrors.New(apperrors.KindUnauthorized, "only the guild owner may update guild info",
			"account", sender, "organization", orgID, "guild", guildKey(guildID))
	}
	if name != "" {
		g.Name = name
	}
	if description != "" {
		g.Description = description
	}
	if symbol != "" {
		g.Symbol = symbol
	}
	f.bus.Publish(events.TypeGuildUpdated, map[string]string{
		"organization": orgID,
		"guild":        guildKey(g.ID),
	})
	return nil
}

// TerminateGuild is the one-way ACTIVE -> TERMINATED transition,
// gated on the per-guild terminator role. Member statuses are not
// cleared; they become unusable against the inactive guild.
func (f *GuildFacet) TerminateGuild(sender, orgID string, guildID uint64) error {
	g, err := f.activeGuild(orgID, guildID)
	if err != nil {
		return err
	}
	role := TerminatorRole(orgID, guildID)
	if !f.registry.HasRole(role, sender) {
		return apperrors.New(apperrors.KindUnauthorized, "sender does not hold the guild terminator role",
			"account", sender, "organization", orgID, "guild", guildKey(guildID), "required_role", role.String())
	}
	g.Status = GuildTerminated
	f.bus.Publish(events.TypeGuildTerminated, map[string]string{
		"organization": orgID,
		"guild":        guildKey(g.ID),
	})
	return nil
}

// GetGuild returns a snapshot of the guild record.
func (f *GuildFacet) GetGuild(orgID string, guildID uint64) (*Guild, error) {
	g, err := f.guild(orgID, guildID)
	if err != nil {
		return nil, err
	}
	snapshot := *g
	return &snapshot, nil
}

// GuildMember is one enumeration entry.
type GuildMember struct {
	User        string `json:"user"`
	Status      string `json:"status"`
	JoinTime    int64  `json:"join_time"`
	MemberLevel int    `json:"member_level"`
}

// GetGuildMembers enumerates every user associated with the guild,
// invitations included; order unspecified.
func (f *GuildFacet) GetGuildMembers(orgID string, guildID uint64) ([]GuildMember, error) {
	if _, err := f.guild(orgID, guildID); err != nil {
		return nil, err
	}
	memberships := f.state.Memberships[orgID][guildKey(guildID)]
	members := make([]GuildMember, 0, len(memberships))
	for user, m := range memberships {
		members = append(members, GuildMember{
			User:        user,
			Status:      m.Status,
			JoinTime:    m.JoinTime,
			MemberLevel: m.MemberLevel,
		})
	}
	return members, nil
}

// GuildsOfUser returns the guild ids the user currently belongs to in
// the organization, and their last departure timestamp.
func (f *GuildFacet) GuildsOfUser(orgID, user string) ([]uint64, int64) {
	rec, exists := f.state.Users[orgID][user]
	if !exists {
		return nil, 0
	}
	ids := make([]uint64, len(rec.GuildIDs))
	copy(ids, rec.GuildIDs)
	return ids, rec.LastLeftAt
}
