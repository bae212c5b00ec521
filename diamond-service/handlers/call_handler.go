package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"guildhall-backend/diamond"
	"guildhall-backend/facets/metatx"
	"guildhall-backend/shared/database"
	"guildhall-backend/shared/storage"
	"guildhall-backend/shared/utils/session"
)

var (
	dm           *diamond.Diamond
	regionStore  *storage.Store
	persistState bool
)

// Init wires the handlers to the running diamond. persist enables
// saving a region snapshot to the database after mutating calls.
func Init(d *diamond.Diamond, store *storage.Store, persist bool) {
	dm = d
	regionStore = store
	persistState = persist
}

func senderFrom(ctx *gin.Context) (string, bool) {
	sender := ctx.GetHeader("X-Sender")
	if sender == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_ARGUMENT",
			"message": "X-Sender header required",
		})
		return "", false
	}
	return sender, true
}

// persistSnapshot saves region state after a successful mutation.
func persistSnapshot() {
	if !persistState {
		return
	}
	if err := database.SaveSnapshot(regionStore); err != nil {
		log.Printf("❌ Failed to persist state snapshot: %v", err)
	}
}

// CallRequest is a generic operation invocation: a canonical signature
// or a hex selector, plus the operation payload.
type CallRequest struct {
	Signature string          `json:"signature"`
	Selector  string          `json:"selector"`
	Payload   json.RawMessage `json:"payload"`
}

func resolveSelector(req CallRequest) (diamond.Selector, error) {
	if req.Signature != "" {
		return diamond.ComputeSelector(req.Signature), nil
	}
	return diamond.ParseSelector(req.Selector)
}

// CallOperation dispatches an operation through the selector table
// @Summary Invoke a routed operation
// @Description Dispatch an operation by canonical signature or hex selector
// @Tags diamond
// @Accept json
// @Produce json
// @Param X-Sender header string true "Caller identity"
// @Param request body handlers.CallRequest true "Operation to invoke"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "No route for selector"
// @Router /call [post]
func CallOperation(ctx *gin.Context) {
	sender, ok := senderFrom(ctx)
	if !ok {
		return
	}

	var req CallRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_ARGUMENT",
			"message": "Invalid request body",
		})
		return
	}

	selector, err := resolveSelector(req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	result, err := dm.Call(sender, selector, req.Payload)
	if err != nil {
		respondError(ctx, err)
		return
	}

	persistSnapshot()
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// SessionRequest asks for a relayable session token.
type SessionRequest struct {
	Sender         string `json:"sender" binding:"required"`
	OrganizationID string `json:"organization_id" binding:"required"`
}

// IssueSessionToken issues a session token for relayed calls
// @Summary Issue a session token
// @Description Issue a token binding a sender to one organization for relayed execution
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body handlers.SessionRequest true "Session subject and organization"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /session [post]
func IssueSessionToken(ctx *gin.Context) {
	var req SessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_ARGUMENT",
			"message": "sender and organization_id are required",
		})
		return
	}

	token, err := session.GenerateSessionToken(req.Sender, req.OrganizationID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "INTERNAL",
			"message": "Failed to generate session token",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"session_token": token,
			"expires_in":    int(session.GetSessionTTL().Seconds()),
		},
	})
}

// RelayRequest is a relayed operation: a session token plus the inner
// operation to execute as the token's subject.
type RelayRequest struct {
	SessionToken string          `json:"session_token" binding:"required"`
	Signature    string          `json:"signature"`
	Selector     string          `json:"selector"`
	Payload      json.RawMessage `json:"payload"`
}

// RelayCall executes an operation on behalf of a session token subject
// @Summary Execute a relayed call
// @Description Execute an inner operation as the session token's subject, bound to its organization
// @Tags sessions
// @Accept json
// @Produce json
// @Param X-Sender header string true "Relayer identity"
// @Param request body handlers.RelayRequest true "Session token and inner operation"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Invalid session"
// @Router /relay [post]
func RelayCall(ctx *gin.Context) {
	relayer, ok := senderFrom(ctx)
	if !ok {
		return
	}

	var req RelayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_ARGUMENT",
			"message": "Invalid request body",
		})
		return
	}

	selector, err := resolveSelector(CallRequest{Signature: req.Signature, Selector: req.Selector})
	if err != nil {
		respondError(ctx, err)
		return
	}

	inner, err := json.Marshal(gin.H{
		"session_token": req.SessionToken,
		"selector":      selector.String(),
		"payload":       req.Payload,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "INTERNAL",
			"message": "Failed to build relay payload",
		})
		return
	}

	result, err := dm.Call(relayer, diamond.ComputeSelector(metatx.SigExecuteRelayedCall), inner)
	if err != nil {
		respondError(ctx, err)
		return
	}

	persistSnapshot()
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
