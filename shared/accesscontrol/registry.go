package accesscontrol

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"guildhall-backend/shared/apperrors"
	"guildhall-backend/shared/events"
	"guildhall-backend/shared/storage"
)

// RegionName is the namespaced storage region holding role state.
const RegionName = "guildhall.access.control"

// RoleID is a fixed-size opaque handle naming a permission grant.
type RoleID [32]byte

// DefaultAdminRole is the root role: it administers itself and every
// role whose admin was never changed.
var DefaultAdminRole = RoleID{}

func (r RoleID) String() string {
	return hex.EncodeToString(r[:])
}

// ParseRoleID decodes a hex-encoded role identifier.
func ParseRoleID(s string) (RoleID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return RoleID{}, apperrors.New(apperrors.KindInvalidArgument, "invalid role id", "role", s)
	}
	var role RoleID
	copy(role[:], raw)
	return role, nil
}

// DerivedRole computes a per-entity role deterministically from a
// role-class tag plus the entity's composite key, so no registration
// step is needed before the first grant.
func DerivedRole(tag string, keys ...string) RoleID {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(tag))
	for _, key := range keys {
		h.Write([]byte{0})
		h.Write([]byte(key))
	}
	var role RoleID
	copy(role[:], h.Sum(nil))
	return role
}

// roleData tracks one role's membership and its admin-role pointer.
// Members and MemberList are kept in sync on every grant/revoke.
type roleData struct {
	Members    map[string]bool `json:"members"`
	MemberList []string        `json:"member_list"`
	AdminRole  string          `json:"admin_role"`
}

// State is the region-resident role table. Roles exist implicitly from
// the first grant and are never destroyed, only emptied.
type State struct {
	Roles map[string]*roleData `json:"roles"`
}

// Registry implements grant/revoke/renounce with per-role admin-role
// indirection and member enumeration.
type Registry struct {
	state *State
	bus   *events.Bus
}

// NewRegistry roots the registry in its storage region.
func NewRegistry(store *storage.Store, bus *events.Bus) (*Registry, error) {
	state, err := storage.Region[State](store, RegionName)
	if err != nil {
		return nil, err
	}
	if state.Roles == nil {
		state.Roles = make(map[string]*roleData)
	}
	return &Registry{state: state, bus: bus}, nil
}

func (r *Registry) role(role RoleID) *roleData {
	key := role.String()
	data, exists := r.state.Roles[key]
	if !exists {
		data = &roleData{
			Members:   make(map[string]bool),
			AdminRole: DefaultAdminRole.String(),
		}
		r.state.Roles[key] = data
	}
	return data
}

// HasRole reports whether account holds role.
func (r *Registry) HasRole(role RoleID, account string) bool {
	data, exists := r.state.Roles[role.String()]
	return exists && data.Members[account]
}

// RoleAdmin returns the role that administers role.
func (r *Registry) RoleAdmin(role RoleID) RoleID {
	data, exists := r.state.Roles[role.String()]
	if !exists {
		return DefaultAdminRole
	}
	admin, err := ParseRoleID(data.AdminRole)
	if err != nil {
		return DefaultAdminRole
	}
	return admin
}

// RoleMemberCount returns the number of current holders of role.
func (r *Registry) RoleMemberCount(role RoleID) int {
	data, exists := r.state.Roles[role.String()]
	if !exists {
		return 0
	}
	return len(data.MemberList)
}

// RoleMembers returns the current holders of role; order unspecified.
func (r *Registry) RoleMembers(role RoleID) []string {
	data, exists := r.state.Roles[role.String()]
	if !exists {
		return nil
	}
	members := make([]string, len(data.MemberList))
	copy(members, data.MemberList)
	return members
}

func (r *Registry) requireRoleAdmin(sender string, role RoleID) error {
	adminRole := r.RoleAdmin(role)
	if !r.HasRole(adminRole, sender) {
		return apperrors.New(apperrors.KindUnauthorized, "sender does not hold the admin role",
			"account", sender, "role", role.String(), "required_role", adminRole.String())
	}
	return nil
}

// GrantRole grants role to account. Only a bearer of the role's admin
// role may grant. Granting an already-held role is a silent no-op.
func (r *Registry) GrantRole(sender string, role RoleID, account string) error {
	if err := r.requireRoleAdmin(sender, role); err != nil {
		return err
	}
	r.grant(role, account)
	return nil
}

// Bootstrap grants role to account with no sender check. Used once at
// assembly time to seat the initial holder of the root role.
func (r *Registry) Bootstrap(role RoleID, account string) {
	r.grant(role, account)
}

func (r *Registry) grant(role RoleID, account string) {
	data := r.role(role)
	if data.Members[account] {
		return
	}
	data.Members[account] = true
	data.MemberList = append(data.MemberList, account)
	r.bus.Publish(events.TypeRoleGranted, map[string]string{
		"role":    role.String(),
		"account": account,
	})
}

// RevokeRole removes role from account. Only a bearer of the role's
// admin role may revoke. Revoking an unheld role is a silent no-op.
func (r *Registry) RevokeRole(sender string, role RoleID, account string) error {
	if err := r.requireRoleAdmin(sender, role); err != nil {
		return err
	}
	r.revoke(role, account)
	return nil
}

// RenounceRole removes role from account; only account itself may call.
func (r *Registry) RenounceRole(sender string, role RoleID, account string) error {
	if sender != account {
		return apperrors.New(apperrors.KindUnauthorized, "can only renounce roles for self",
			"account", sender, "role", role.String())
	}
	r.revoke(role, account)
	return nil
}

func (r *Registry) revoke(role RoleID, account string) {
	data, exists := r.state.Roles[role.String()]
	if !exists || !data.Members[account] {
		return
	}
	delete(data.Members, account)
	for i, member := range data.MemberList {
		if member == account {
			// swap-and-pop; member order is unspecified
			data.MemberList[i] = data.MemberList[len(data.MemberList)-1]
			data.MemberList = data.MemberList[:len(data.MemberList)-1]
			break
		}
	}
	r.bus.Publish(events.TypeRoleRevoked, map[string]string{
		"role":    role.String(),
		"account": account,
	})
}

// SetRoleAdmin changes the admin role of role. Only a bearer of the
// current admin role may change it.
func (r *Registry) SetRoleAdmin(sender string, role RoleID, adminRole RoleID) error {
	if err := r.requireRoleAdmin(sender, role); err != nil {
		return err
	}
	data := r.role(role)
	previous := data.AdminRole
	data.AdminRole = adminRole.String()
	r.bus.Publish(events.TypeRoleAdminChanged, map[string]string{
		"role":           role.String(),
		"previous_admin": previous,
		"new_admin":      adminRole.String(),
	})
	return nil
}
