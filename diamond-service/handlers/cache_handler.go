package handlers

import (
	"net/http"

	"guildhall-backend/shared/utils/cache"

	"github.com/gin-gonic/gin"
)

// GetCacheStats returns cache statistics
// @Summary Get cache statistics
// @Description Get statistics about the role and route caches
// @Tags cache
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Cache statistics"
// @Failure 503 {object} map[string]string "Cache manager not available"
// @Failure 500 {object} map[string]interface{} "Failed to get cache stats"
// @Router /diamond/cache/stats [get]
func GetCacheStats(c *gin.Context) {
	cacheManager := cache.GetCacheManager()
	if cacheManager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Cache manager not available",
		})
		return
	}

	stats, err := cacheManager.GetCacheStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get cache stats",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cache_stats": stats,
		"service":     "diamond",
	})
}

// InvalidateAccountRoles invalidates cached role checks for one account
// @Summary Invalidate account role cache
// @Description Invalidate all cached role checks for a specific account
// @Tags cache
// @Accept json
// @Produce json
// @Param account path string true "Account address"
// @Success 200 {object} map[string]interface{} "Success message"
// @Failure 500 {object} map[string]interface{} "Failed to invalidate cache"
// @Failure 503 {object} map[string]string "Cache manager not available"
// @Router /diamond/cache/invalidate/account/{account} [post]
func InvalidateAccountRoles(c *gin.Context) {
	account := c.Param("account")
	cacheManager := cache.GetCacheManager()
	if cacheManager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Cache manager not available",
		})
		return
	}

	if err := cacheManager.InvalidateAccountRoles(account); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to invalidate account roles",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Account role cache invalidated successfully",
		"account": account,
	})
}

// InvalidateAllCaches invalidates every role and route cache entry
// @Summary Invalidate all caches
// @Description Invalidate all cached role checks and selector resolutions
// @Tags cache
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Success message"
// @Failure 500 {object} map[string]interface{} "Failed to invalidate cache"
// @Failure 503 {object} map[string]string "Cache manager not available"
// @Router /diamond/cache/invalidate/all [post]
func InvalidateAllCaches(c *gin.Context) {
	cacheManager := cache.GetCacheManager()
	if cacheManager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Cache manager not available",
		})
		return
	}

	if err := cacheManager.InvalidateAllRoles(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to invalidate role cache",
			"details": err.Error(),
		})
		return
	}
	if err := cacheManager.InvalidateAllRoutes(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to invalidate route cache",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All caches invalidated successfully",
	})
}
