package guild

import (
	"encoding/json"

	"guildhall-backend/diamond"
	"guildhall-backend/shared/apperrors"
)

// Canonical signatures.
const (
	SigCreateGuild            = "createGuild(string,string,string,string)"
	SigInviteToGuild          = "inviteToGuild(string,uint256,address)"
	SigAcceptInvitation       = "acceptInvitation(string,uint256)"
	SigKickFromGuild          = "kickFromGuild(string,uint256,address)"
	SigLeaveGuild             = "leaveGuild(string,uint256)"
	SigSetAdminStatus         = "setAdminStatus(string,uint256,address,bool)"
	SigTransferGuildOwnership = "transferGuildOwnership(string,uint256,address)"
	SigSetMemberLevel         = "setMemberLevel(string,uint256,address,uint8)"
	SigUpdateGuildInfo        = "updateGuildInfo(string,uint256,string,string,string)"
	SigTerminateGuild         = "terminateGuild(string,uint256)"
	SigGetGuild               = "getGuild(string,uint256)"
	SigGetGuildMembers        = "getGuildMembers(string,uint256)"
	SigGetMemberStatus        = "getMemberStatus(string,uint256,address)"
	SigGetGuildsOfUser        = "getGuildsOfUser(string,address)"
)

type createGuildRequest struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Symbol         string `json:"symbol"`
}

type guildRequest struct {
	OrganizationID string `json:"organization_id"`
	GuildID        uint64 `json:"guild_id"`
}

type guildUserRequest struct {
	OrganizationID string `json:"organization_id"`
	GuildID        uint64 `json:"guild_id"`
	User           string `json:"user"`
}

type setAdminStatusRequest struct {
	OrganizationID string `json:"organization_id"`
	GuildID        uint64 `json:"guild_id"`
	User           string `json:"user"`
	IsAdmin        bool   `json:"is_admin"`
}

type setMemberLevelRequest struct {
	OrganizationID string `json:"organization_id"`
	GuildID        uint64 `json:"guild_id"`
	User           string `json:"user"`
	Level          int    `json:"level"`
}

type updateGuildInfoRequest struct {
	OrganizationID string `json:"organization_id"`
	GuildID        uint64 `json:"guild_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Symbol         string `json:"symbol"`
}

type userRequest struct {
	OrganizationID string `json:"organization_id"`
	User           string `json:"user"`
}

// Operations implements diamond.Facet.
func (f *GuildFacet) Operations() map[string]diamond.Handler {
	return map[string]diamond.Handler{
		SigCreateGuild:            f.handleCreateGuild,
		SigInviteToGuild:          f.handleInviteToGuild,
		SigAcceptInvitation:       f.handleAcceptInvitation,
		SigKickFromGuild:          f.handleKickFromGuild,
		SigLeaveGuild:             f.handleLeaveGuild,
		SigSetAdminStatus:         f.handleSetAdminStatus,
		SigTransferGuildOwnership: f.handleTransferGuildOwnership,
		SigSetMemberLevel:         f.handleSetMemberLevel,
		SigUpdateGuildInfo:        f.handleUpdateGuildInfo,
		SigTerminateGuild:         f.handleTerminateGuild,
		SigGetGuild:               f.handleGetGuild,
		SigGetGuildMembers:        f.handleGetGuildMembers,
		SigGetMemberStatus:        f.handleGetMemberStatus,
		SigGetGuildsOfUser:        f.handleGetGuildsOfUser,
	}
}

// gate applies the shared preconditions of every mutating guild
// operation: a pending relay session must match the target
// organization, and the diamond must not be paused.
func gate(ctx *diamond.CallContext, orgID string) error {
	if err := ctx.ConsumeSession(orgID); err != nil {
		return err
	}
	return ctx.RequireNotPaused()
}

func (f *GuildFacet) handleCreateGuild(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req createGuildRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid createGuild payload")
	}
	if err := gate(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	return f.CreateGuild(ctx.Sender, req.OrganizationID, req.Name, req.Description, req.Symbol)
}

func (f *GuildFacet) handleInviteToGuild(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req guildUserRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid inviteToGuild payload")
	}
	if err := gate(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := f.InviteToGuild(ctx.Sender, req.OrganizationID, req.GuildID, req.User); err != nil {
		return nil, err
	}
	return map[string]string{"status": StatusInvited}, nil
}

func (f *GuildFacet) handleAcceptInvitation(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req guildRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid acceptInvitation payload")
	}
	if err := gate(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := f.AcceptInvitation(ctx.Sender, req.OrganizationID, req.GuildID); err != nil {
		return nil, err
	}
	return map[string]string{"status": StatusMember}, nil
}

func (f *GuildFacet) handleKickFromGuild(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req guildUserRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid kickFromGuild payload")
	}
	if err := gate(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := f.KickFromGuild(ctx.Sender, req.OrganizationID, req.GuildID, req.User); err != nil {
		return nil, err
	}
	return map[string]string{"status": StatusNotAssociated}, nil
}

func (f *GuildFacet) handleLeaveGuild(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req guildRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid leaveGuild payload")
	}
	if err := gate(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := f.LeaveGuild(ctx.Sender, req.OrganizationID, req.GuildID); err != nil {
		return nil, err
	}
	return map[string]string{"status": StatusNotAssociated}, nil
}

func (f *GuildFacet) handleSetAdminStatus(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req setAdminStatusRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid setAdminStatus payload")
	}
	if err := gate(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := f.SetAdminStatus(ctx.Sender, req.OrganizationID, req.GuildID, req.User, req.IsAdmin); err != nil {
		return nil, err
	}
	return map[string]string{"status": f.MemberStatus(req.OrganizationID, req.GuildID, req.User)}, nil
}

func (f *GuildFacet) handleTransferGuildOwnership(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req guildUserRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid transferGuildOwnership payload")
	}
	if err := gate(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := f.TransferGuildOwnership(ctx.Sender, req.OrganizationID, req.GuildID, req.User); err != nil {
		return nil, err
	}
	return f.GetGuild(req.OrganizationID, req.GuildID)
}

func (f *GuildFacet) handleSetMemberLevel(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req setMemberLevelRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid setMemberLevel payload")
	}
	if err := gate(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := f.SetMemberLevel(ctx.Sender, req.OrganizationID, req.GuildID, req.User, req.Level); err != nil {
		return nil, err
	}
	return map[string]int{"level": req.Level}, nil
}

func (f *GuildFacet) handleUpdateGuildInfo(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req updateGuildInfoRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid updateGuildInfo payload")
	}
	if err := gate(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := f.UpdateGuildInfo(ctx.Sender, req.OrganizationID, req.GuildID, req.Name, req.Description, req.Symbol); err != nil {
		return nil, err
	}
	return f.GetGuild(req.OrganizationID, req.GuildID)
}

func (f *GuildFacet) handleTerminateGuild(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req guildRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid terminateGuild payload")
	}
	if err := gate(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	if err := f.TerminateGuild(ctx.Sender, req.OrganizationID, req.GuildID); err != nil {
		return nil, err
	}
	return f.GetGuild(req.OrganizationID, req.GuildID)
}

func (f *GuildFacet) handleGetGuild(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req guildRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid getGuild payload")
	}
	return f.GetGuild(req.OrganizationID, req.GuildID)
}

func (f *GuildFacet) handleGetGuildMembers(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req guildRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid getGuildMembers payload")
	}
	return f.GetGuildMembers(req.OrganizationID, req.GuildID)
}

func (f *GuildFacet) handleGetMemberStatus(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req guildUserRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid getMemberStatus payload")
	}
	return map[string]string{"status": f.MemberStatus(req.OrganizationID, req.GuildID, req.User)}, nil
}

func (f *GuildFacet) handleGetGuildsOfUser(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req userRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid getGuildsOfUser payload")
	}
	ids, lastLeftAt := f.GuildsOfUser(req.OrganizationID, req.User)
	return map[string]interface{}{"guild_ids": ids, "last_left_at": lastLeftAt}, nil
}
