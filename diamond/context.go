package diamond

import (
	"guildhall-backend/shared/apperrors"
)

// CallContext carries the original caller identity and the per-call
// relay state through the dispatch to the facet handler.
type CallContext struct {
	// Sender is the verified identity the operation executes as. For a
	// relayed call this is the session token's subject, not the relayer.
	Sender string

	// Paused mirrors the diamond's global pause gate at dispatch time.
	Paused bool

	sessionOrg     string
	sessionPending bool
	relayDepth     int
}

// BindSession binds this call to exactly one tenant. Only the relay
// facet sets it, after validating the session token.
func (c *CallContext) BindSession(orgID string) {
	c.sessionOrg = orgID
	c.sessionPending = true
}

// HasPendingSession reports whether a bound tenant is awaiting
// consumption.
func (c *CallContext) HasPendingSession() bool {
	return c.sessionPending
}

// ConsumeSession is called by every tenant-scoped operation before its
// body runs. With no pending session the call proceeds as a direct
// call. A pending session is cleared first and must then match the
// operation's tenant argument; clearing before the comparison keeps a
// mismatch from poisoning later calls in the same context.
func (c *CallContext) ConsumeSession(orgID string) error {
	if !c.sessionPending {
		return nil
	}
	bound := c.sessionOrg
	c.sessionPending = false
	c.sessionOrg = ""
	if bound != orgID {
		return apperrors.New(apperrors.KindSessionMismatch, "session is bound to a different organization",
			"session_organization", bound, "organization", orgID, "account", c.Sender)
	}
	return nil
}

// EnterRelay marks the context as executing a relayed call. Nested
// relay entry is rejected.
func (c *CallContext) EnterRelay() error {
	if c.relayDepth > 0 {
		return apperrors.New(apperrors.KindSessionMismatch, "nested relayed calls are not allowed",
			"account", c.Sender)
	}
	c.relayDepth++
	return nil
}

// RequireNotPaused gates tenant-mutating operations behind the global
// pause flag.
func (c *CallContext) RequireNotPaused() error {
	if c.Paused {
		return apperrors.New(apperrors.KindInvalidState, "contract is paused")
	}
	return nil
}
