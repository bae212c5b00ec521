package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"guildhall-backend/diamond"
	"guildhall-backend/diamond-service/services"
	"guildhall-backend/facets/guild"
)

var symbolService *services.SymbolService

// InitSymbolService wires the symbol storage backend.
func InitSymbolService(s *services.SymbolService) {
	symbolService = s
}

func guildParams(ctx *gin.Context) (string, uint64, bool) {
	orgID := ctx.Param("org_id")
	guildID, err := strconv.ParseUint(ctx.Param("guild_id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_ARGUMENT",
			"message": "Invalid guild id",
		})
		return "", 0, false
	}
	return orgID, guildID, true
}

// lookupGuild resolves the guild through the routed query selector so
// the HTTP layer never reads facet state directly.
func lookupGuild(sender, orgID string, guildID uint64) (*guild.Guild, error) {
	payload, err := json.Marshal(gin.H{"organization_id": orgID, "guild_id": guildID})
	if err != nil {
		return nil, err
	}
	result, err := dm.Call(sender, diamond.ComputeSelector(guild.SigGetGuild), payload)
	if err != nil {
		return nil, err
	}
	return result.(*guild.Guild), nil
}

// UploadGuildSymbol stores a guild's symbol image
// @Summary Upload guild symbol
// @Description Store a symbol image for the guild; only the guild owner may upload
// @Tags guilds
// @Accept multipart/form-data
// @Produce json
// @Param X-Sender header string true "Caller identity"
// @Param org_id path string true "Organization ID"
// @Param guild_id path int true "Guild ID"
// @Param file formData file true "Symbol image"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not the guild owner"
// @Router /organizations/{org_id}/guilds/{guild_id}/symbol [post]
func UploadGuildSymbol(ctx *gin.Context) {
	if symbolService == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "UNAVAILABLE",
			"message": "Symbol storage is not configured",
		})
		return
	}

	sender, ok := senderFrom(ctx)
	if !ok {
		return
	}
	orgID, guildID, ok := guildParams(ctx)
	if !ok {
		return
	}

	g, err := lookupGuild(sender, orgID, guildID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if g.Owner != sender {
		ctx.JSON(http.StatusForbidden, gin.H{
			"error":   "UNAUTHORIZED",
			"message": "Only the guild owner may upload a symbol",
		})
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_ARGUMENT",
			"message": "file is required",
		})
		return
	}
	defer file.Close()

	objectKey, err := symbolService.UploadSymbol(
		ctx.Request.Context(),
		orgID, guildID,
		header.Filename,
		file, header.Size,
		header.Header.Get("Content-Type"),
	)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "INTERNAL",
			"message": "Failed to store symbol",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"object_key": objectKey},
	})
}

// DownloadGuildSymbol streams a guild's symbol image
// @Summary Download guild symbol
// @Description Stream the guild's stored symbol image
// @Tags guilds
// @Produce octet-stream
// @Param org_id path string true "Organization ID"
// @Param guild_id path int true "Guild ID"
// @Param file_name path string true "Stored file name"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string "Not found"
// @Router /organizations/{org_id}/guilds/{guild_id}/symbol/{file_name} [get]
func DownloadGuildSymbol(ctx *gin.Context) {
	if symbolService == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "UNAVAILABLE",
			"message": "Symbol storage is not configured",
		})
		return
	}

	orgID, guildID, ok := guildParams(ctx)
	if !ok {
		return
	}
	fileName := ctx.Param("file_name")

	object, err := symbolService.DownloadSymbol(ctx.Request.Context(), orgID, guildID, fileName)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{
			"error":   "NOT_FOUND",
			"message": "Symbol not found",
		})
		return
	}
	defer object.Close()

	ctx.Header("Content-Disposition", "attachment; filename="+fileName)
	ctx.Header("Content-Type", "application/octet-stream")
	if _, err := io.Copy(ctx.Writer, object); err != nil {
		return
	}
}
