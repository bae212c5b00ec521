package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guildhall-backend/diamond"
)

// GetFacets lists the current routing table
// @Summary List facets
// @Description List every facet address and the selectors routed to it
// @Tags diamond
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /diamond/facets [get]
func GetFacets(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dm.Facets(),
	})
}

// GetDiamondStatus reports owner and pause state
// @Summary Diamond status
// @Description Report the contract owner and the global pause flag
// @Tags diamond
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /diamond/status [get]
func GetDiamondStatus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"owner":  dm.Owner(),
			"paused": dm.Paused(),
		},
	})
}

// CutDiamond applies routing changes
// @Summary Apply a diamond cut
// @Description Add, replace, or remove selector routes, with an optional init call
// @Tags diamond
// @Accept json
// @Produce json
// @Param X-Sender header string true "Caller identity (must be owner)"
// @Param request body diamond.CutRequest true "Routing changes"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not the owner"
// @Router /diamond/cut [post]
func CutDiamond(ctx *gin.Context) {
	sender, ok := senderFrom(ctx)
	if !ok {
		return
	}

	var req diamond.CutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_ARGUMENT",
			"message": "Invalid request body",
		})
		return
	}

	if err := dm.Cut(sender, req); err != nil {
		respondError(ctx, err)
		return
	}

	persistSnapshot()
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dm.Facets(),
	})
}

func callOwn(ctx *gin.Context, signature string) {
	sender, ok := senderFrom(ctx)
	if !ok {
		return
	}

	payload := []byte("{}")
	if ctx.Request.ContentLength > 0 {
		raw, err := ctx.GetRawData()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error":   "INVALID_ARGUMENT",
				"message": "Failed to read request body",
			})
			return
		}
		payload = raw
	}

	result, err := dm.Call(sender, diamond.ComputeSelector(signature), payload)
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

// PauseDiamond sets the global pause flag
// @Summary Pause
// @Description Halt tenant-mutating operations
// @Tags diamond
// @Produce json
// @Param X-Sender header string true "Caller identity (must be owner)"
// @Success 200 {object} map[string]interface{}
// @Router /diamond/pause [post]
func PauseDiamond(ctx *gin.Context) {
	callOwn(ctx, diamond.SigPause)
}

// UnpauseDiamond clears the global pause flag
// @Summary Unpause
// @Description Resume tenant-mutating operations
// @Tags diamond
// @Produce json
// @Param X-Sender header string true "Caller identity (must be owner)"
// @Success 200 {object} map[string]interface{}
// @Router /diamond/unpause [post]
func UnpauseDiamond(ctx *gin.Context) {
	callOwn(ctx, diamond.SigUnpause)
}

// TransferDiamondOwnership hands the contract to a new owner
// @Summary Transfer ownership
// @Description Transfer the contract owner identity
// @Tags diamond
// @Accept json
// @Produce json
// @Param X-Sender header string true "Caller identity (must be owner)"
// @Success 200 {object} map[string]interface{}
// @Router /diamond/transfer-ownership [post]
func TransferDiamondOwnership(ctx *gin.Context) {
	callOwn(ctx, diamond.SigTransferOwnership)
}
