package accesscontrol

import (
	"encoding/json"

	"guildhall-backend/diamond"
	"guildhall-backend/shared/apperrors"
)

// Canonical signatures.
const (
	SigHasRole            = "hasRole(bytes32,address)"
	SigGetRoleAdmin       = "getRoleAdmin(bytes32)"
	SigGetRoleMemberCount = "getRoleMemberCount(bytes32)"
	SigGetRoleMembers     = "getRoleMembers(bytes32)"
	SigGrantRole          = "grantRole(bytes32,address)"
	SigRevokeRole         = "revokeRole(bytes32,address)"
	SigRenounceRole       = "renounceRole(bytes32,address)"
	SigSetRoleAdmin       = "setRoleAdmin(bytes32,bytes32)"
)

type roleRequest struct {
	Role string `json:"role"`
}

type roleAccountRequest struct {
	Role    string `json:"role"`
	Account string `json:"account"`
}

type setRoleAdminRequest struct {
	Role      string `json:"role"`
	AdminRole string `json:"admin_role"`
}

func parseRole(s string) (RoleID, error) {
	role, err := ParseRoleID(s)
	if err != nil {
		return RoleID{}, apperrors.New(apperrors.KindInvalidArgument, "invalid role id", "role", s)
	}
	return role, nil
}

// Operations implements diamond.Facet, exposing the registry through
// routed selectors. Mutations are gated by each role's admin role, not
// by the pause flag: role administration stays possible while paused.
func (r *Registry) Operations() map[string]diamond.Handler {
	return map[string]diamond.Handler{
		SigHasRole:            r.handleHasRole,
		SigGetRoleAdmin:       r.handleGetRoleAdmin,
		SigGetRoleMemberCount: r.handleGetRoleMemberCount,
		SigGetRoleMembers:     r.handleGetRoleMembers,
		SigGrantRole:          r.handleGrantRole,
		SigRevokeRole:         r.handleRevokeRole,
		SigRenounceRole:       r.handleRenounceRole,
		SigSetRoleAdmin:       r.handleSetRoleAdmin,
	}
}

func (r *Registry) handleHasRole(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req roleAccountRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid hasRole payload")
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"has_role": r.HasRole(role, req.Account)}, nil
}

func (r *Registry) handleGetRoleAdmin(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req roleRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid getRoleAdmin payload")
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	return map[string]string{"admin_role": r.RoleAdmin(role).String()}, nil
}

func (r *Registry) handleGetRoleMemberCount(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req roleRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid getRoleMemberCount payload")
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	return map[string]int{"count": r.RoleMemberCount(role)}, nil
}

func (r *Registry) handleGetRoleMembers(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req roleRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid getRoleMembers payload")
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	return r.RoleMembers(role), nil
}

func (r *Registry) handleGrantRole(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req roleAccountRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid grantRole payload")
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if err := r.GrantRole(ctx.Sender, role, req.Account); err != nil {
		return nil, err
	}
	return map[string]bool{"has_role": true}, nil
}

func (r *Registry) handleRevokeRole(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req roleAccountRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid revokeRole payload")
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if err := r.RevokeRole(ctx.Sender, role, req.Account); err != nil {
		return nil, err
	}
	return map[string]bool{"has_role": false}, nil
}

func (r *Registry) handleRenounceRole(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req roleAccountRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid renounceRole payload")
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if err := r.RenounceRole(ctx.Sender, role, req.Account); err != nil {
		return nil, err
	}
	return map[string]bool{"has_role": false}, nil
}

func (r *Registry) handleSetRoleAdmin(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req setRoleAdminRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid setRoleAdmin payload")
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	adminRole, err := parseRole(req.AdminRole)
	if err != nil {
		return nil, err
	}
	if err := r.SetRoleAdmin(ctx.Sender, role, adminRole); err != nil {
		return nil, err
	}
	return map[string]string{"admin_role": adminRole.String()}, nil
}
