package membershiptoken

import (
	"encoding/json"
	"fmt"

	"guildhall-backend/diamond"
	"guildhall-backend/shared/accesscontrol"
	"guildhall-backend/shared/apperrors"
	"guildhall-backend/shared/events"
	"guildhall-backend/shared/storage"
)

// RegionName is the namespaced storage region holding token balances.
const RegionName = "guildhall.token.membership"

// MinterRoleTag derives the role allowed to mint and burn through the
// routed admin entry points.
const MinterRoleTag = "guildhall.role.token.minter"

// Canonical signatures.
const (
	SigBalanceOf = "balanceOf(address,uint256)"
	SigAdminMint = "adminMint(address,uint256,uint256)"
	SigAdminBurn = "adminBurn(address,uint256,uint256)"
)

// State holds unit balances: account -> token id -> amount. The guild
// id is the token id, so a balance of one is a membership receipt.
type State struct {
	Balances map[string]map[string]uint64 `json:"balances"`
}

// TokenFacet is the membership-proof token: a multi-token with unit
// balances minted on joining a guild and burned on leaving.
type TokenFacet struct {
	state    *State
	registry *accesscontrol.Registry
	bus      *events.Bus
}

// New roots the facet in its storage region.
func New(store *storage.Store, registry *accesscontrol.Registry, bus *events.Bus) (*TokenFacet, error) {
	state, err := storage.Region[State](store, RegionName)
	if err != nil {
		return nil, err
	}
	if state.Balances == nil {
		state.Balances = make(map[string]map[string]uint64)
	}
	return &TokenFacet{state: state, registry: registry, bus: bus}, nil
}

// MinterRole is the derived role gating the routed mint/burn selectors.
func MinterRole() accesscontrol.RoleID {
	return accesscontrol.DerivedRole(MinterRoleTag)
}

func tokenKey(id uint64) string {
	return fmt.Sprintf("%d", id)
}

// BalanceOf returns account's balance of token id.
func (t *TokenFacet) BalanceOf(account string, id uint64) uint64 {
	balances, exists := t.state.Balances[account]
	if !exists {
		return 0
	}
	return balances[tokenKey(id)]
}

// AdminMint credits amount of token id to account. The guild facet
// holds this capability directly; the routed selector is role-gated.
func (t *TokenFacet) AdminMint(to string, id uint64, amount uint64) error {
	if to == "" {
		return apperrors.New(apperrors.KindInvalidArgument, "cannot mint to the null address")
	}
	balances, exists := t.state.Balances[to]
	if !exists {
		balances = make(map[string]uint64)
		t.state.Balances[to] = balances
	}
	balances[tokenKey(id)] += amount
	t.bus.Publish(events.TypeTokenMinted, map[string]string{
		"account":  to,
		"token_id": tokenKey(id),
		"amount":   fmt.Sprintf("%d", amount),
	})
	return nil
}

// AdminBurn debits amount of token id from account.
func (t *TokenFacet) AdminBurn(from string, id uint64, amount uint64) error {
	balances, exists := t.state.Balances[from]
	if !exists || balances[tokenKey(id)] < amount {
		return apperrors.New(apperrors.KindInvalidState, "insufficient token balance to burn",
			"account", from, "token_id", tokenKey(id))
	}
	balances[tokenKey(id)] -= amount
	if balances[tokenKey(id)] == 0 {
		delete(balances, tokenKey(id))
	}
	if len(balances) == 0 {
		delete(t.state.Balances, from)
	}
	t.bus.Publish(events.TypeTokenBurned, map[string]string{
		"account":  from,
		"token_id": tokenKey(id),
		"amount":   fmt.Sprintf("%d", amount),
	})
	return nil
}

type balanceOfRequest struct {
	Account string `json:"account"`
	TokenID uint64 `json:"token_id"`
}

type mintBurnRequest struct {
	Account string `json:"account"`
	TokenID uint64 `json:"token_id"`
	Amount  uint64 `json:"amount"`
}

// Operations implements diamond.Facet.
func (t *TokenFacet) Operations() map[string]diamond.Handler {
	return map[string]diamond.Handler{
		SigBalanceOf: t.handleBalanceOf,
		SigAdminMint: t.handleAdminMint,
		SigAdminBurn: t.handleAdminBurn,
	}
}

func (t *TokenFacet) handleBalanceOf(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req balanceOfRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid balanceOf payload")
	}
	return map[string]uint64{"balance": t.BalanceOf(req.Account, req.TokenID)}, nil
}

func (t *TokenFacet) requireMinter(ctx *diamond.CallContext) error {
	if !t.registry.HasRole(MinterRole(), ctx.Sender) {
		return apperrors.New(apperrors.KindUnauthorized, "sender does not hold the minter role",
			"account", ctx.Sender, "required_role", MinterRole().String())
	}
	return nil
}

func (t *TokenFacet) handleAdminMint(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req mintBurnRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid adminMint payload")
	}
	if err := ctx.RequireNotPaused(); err != nil {
		return nil, err
	}
	if err := t.requireMinter(ctx); err != nil {
		return nil, err
	}
	if err := t.AdminMint(req.Account, req.TokenID, req.Amount); err != nil {
		return nil, err
	}
	return map[string]uint64{"balance": t.BalanceOf(req.Account, req.TokenID)}, nil
}

func (t *TokenFacet) handleAdminBurn(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req mintBurnRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid adminBurn payload")
	}
	if err := ctx.RequireNotPaused(); err != nil {
		return nil, err
	}
	if err := t.requireMinter(ctx); err != nil {
		return nil, err
	}
	if err := t.AdminBurn(req.Account, req.TokenID, req.Amount); err != nil {
		return nil, err
	}
	return map[string]uint64{"balance": t.BalanceOf(req.Account, req.TokenID)}, nil
}
