// Package metatx implements the relayed-call entry point: a relayer
// submits a signed session token plus an inner operation, and the
// inner operation executes as the token's subject, bound to exactly
// one organization.
package metatx

import (
	"encoding/json"

	"guildhall-backend/diamond"
	"guildhall-backend/shared/apperrors"
	"guildhall-backend/shared/utils/session"
)

// SigExecuteRelayedCall is the canonical relay signature.
const SigExecuteRelayedCall = "executeRelayedCall(bytes,bytes4,bytes)"

// Validator verifies a session token and returns its claims.
type Validator func(token string) (*session.Claims, error)

// MetaTxFacet dispatches relayed calls through the diamond.
type MetaTxFacet struct {
	dispatcher diamond.Dispatcher
	validate   Validator
}

// New wires the relay facet to its dispatcher. A nil validator uses
// the configured session secret.
func New(dispatcher diamond.Dispatcher, validate Validator) *MetaTxFacet {
	if validate == nil {
		validate = session.ValidateSessionToken
	}
	return &MetaTxFacet{dispatcher: dispatcher, validate: validate}
}

type relayedCallRequest struct {
	SessionToken string          `json:"session_token"`
	Selector     string          `json:"selector"`
	Payload      json.RawMessage `json:"payload"`
}

// Operations implements diamond.Facet.
func (m *MetaTxFacet) Operations() map[string]diamond.Handler {
	return map[string]diamond.Handler{
		SigExecuteRelayedCall: m.handleExecuteRelayedCall,
	}
}

// handleExecuteRelayedCall validates the session token, swaps the call
// identity to the token's subject, binds the session to the token's
// organization, and re-dispatches the inner operation. The inner
// operation must consume the session; a completed call with the
// session still pending means the operation never checked its tenant
// and is rejected rather than trusted.
func (m *MetaTxFacet) handleExecuteRelayedCall(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req relayedCallRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid executeRelayedCall payload")
	}
	if err := ctx.RequireNotPaused(); err != nil {
		return nil, err
	}
	if err := ctx.EnterRelay(); err != nil {
		return nil, err
	}

	claims, err := m.validate(req.SessionToken)
	if err != nil {
		return nil, apperrors.New(apperrors.KindUnauthorized, "invalid session token: "+err.Error(),
			"relayer", ctx.Sender)
	}

	selector, err := diamond.ParseSelector(req.Selector)
	if err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid relayed selector",
			"selector", req.Selector)
	}

	relayer := ctx.Sender
	ctx.Sender = claims.Sender
	ctx.BindSession(claims.OrganizationID)

	result, err := m.dispatcher.Invoke(ctx, selector, req.Payload)
	ctx.Sender = relayer
	if err != nil {
		return nil, err
	}
	if ctx.HasPendingSession() {
		return nil, apperrors.New(apperrors.KindSessionMismatch, "relayed operation did not consume its session",
			"selector", req.Selector, "organization", claims.OrganizationID)
	}
	return result, nil
}
