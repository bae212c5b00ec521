package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"guildhall-backend/diamond"
	"guildhall-backend/diamond-service/handlers"
	"guildhall-backend/diamond-service/services"
	"guildhall-backend/facets/guild"
	"guildhall-backend/facets/membershiptoken"
	"guildhall-backend/facets/metatx"
	"guildhall-backend/facets/organization"
	"guildhall-backend/shared/accesscontrol"
	"guildhall-backend/shared/config"
	"guildhall-backend/shared/database"
	"guildhall-backend/shared/events"
	"guildhall-backend/shared/storage"
	"guildhall-backend/shared/utils/cache"
	"guildhall-backend/shared/utils/policy"

	_ "guildhall-backend/docs"
)

// Facet addresses in the routing table.
const (
	AddrAccessControl   = "access_control_facet"
	AddrOrganization    = "organization_facet"
	AddrGuild           = "guild_facet"
	AddrMembershipToken = "membership_token_facet"
	AddrMetaTx          = "metatx_facet"
)

// @title Guildhall API
// @version 1.0
// @description Selector-routed organization and guild management service

// @host localhost:8000
// @BasePath /api
// @schemes http https

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.GetConfig()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	store := storage.NewStore()
	bus := events.NewBus()

	// Cache is optional: invalidation is wired when Redis is reachable
	if err := cache.InitCacheManager(); err != nil {
		log.Printf("⚠️ Cache manager unavailable: %v", err)
	} else {
		cache.GetCacheManager().SubscribeInvalidation(bus)
	}

	// WebSocket event stream
	wsManager := events.GetWebSocketManager()
	wsManager.SubscribeTo(bus)

	d, facets, err := buildDiamond(store, bus, cfg.DiamondOwner)
	if err != nil {
		log.Fatalf("Failed to build diamond: %v", err)
	}

	// Restore persisted region state before routing new selectors
	if err := database.LoadSnapshot(store); err != nil {
		log.Fatalf("Failed to load state snapshot: %v", err)
	}
	if err := routeFacets(d, cfg.DiamondOwner, facets); err != nil {
		log.Fatalf("Failed to route facets: %v", err)
	}

	handlers.Init(d, store, true)

	// Symbol storage is optional
	if symbolService, err := services.NewSymbolService(); err != nil {
		log.Printf("⚠️ Symbol storage unavailable: %v", err)
	} else {
		handlers.InitSymbolService(symbolService)
	}

	router := gin.Default()

	// Add CORS middleware
	router.Use(cors.Default())

	// Operation dispatch
	router.POST("/api/call", handlers.CallOperation)

	// Session layer
	router.POST("/api/session", handlers.IssueSessionToken)
	router.POST("/api/relay", handlers.RelayCall)

	// Diamond administration
	router.GET("/api/diamond/facets", handlers.GetFacets)
	router.GET("/api/diamond/status", handlers.GetDiamondStatus)
	router.POST("/api/diamond/cut", handlers.CutDiamond)
	router.POST("/api/diamond/pause", handlers.PauseDiamond)
	router.POST("/api/diamond/unpause", handlers.UnpauseDiamond)
	router.POST("/api/diamond/transfer-ownership", handlers.TransferDiamondOwnership)

	// Cache administration
	router.GET("/api/diamond/cache/stats", handlers.GetCacheStats)
	router.POST("/api/diamond/cache/invalidate/account/:account", handlers.InvalidateAccountRoles)
	router.POST("/api/diamond/cache/invalidate/all", handlers.InvalidateAllCaches)

	// Guild symbol storage
	router.POST("/api/organizations/:org_id/guilds/:guild_id/symbol", handlers.UploadGuildSymbol)
	router.GET("/api/organizations/:org_id/guilds/:guild_id/symbol/:file_name", handlers.DownloadGuildSymbol)

	// Event stream
	router.GET("/ws/:client_id", wsManager.HandleWebSocketConnection)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "diamond",
		})
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Parse port from config URL
	port := strings.Split(cfg.DiamondServiceURL, ":")[2]
	log.Printf("Diamond Service starting on port %s...", port)
	router.Run(":" + port)
}

// buildDiamond constructs the diamond and every facet against the
// shared region store, and grants the owner the default admin role.
func buildDiamond(store *storage.Store, bus *events.Bus, owner string) (*diamond.Diamond, map[string]diamond.Facet, error) {
	registry, err := accesscontrol.NewRegistry(store, bus)
	if err != nil {
		return nil, nil, err
	}

	d, err := diamond.New(store, bus, owner)
	if err != nil {
		return nil, nil, err
	}

	tokenFacet, err := membershiptoken.New(store, registry, bus)
	if err != nil {
		return nil, nil, err
	}
	orgFacet, err := organization.New(store, registry, bus)
	if err != nil {
		return nil, nil, err
	}
	guildFacet, err := guild.New(
		store, orgFacet, registry, tokenFacet,
		func(baseURL string) policy.GuildPolicy { return policy.NewHTTPGuildPolicy(baseURL) },
		func(baseURL string) policy.TagCredential { return policy.NewHTTPTagCredential(baseURL) },
		bus,
	)
	if err != nil {
		return nil, nil, err
	}
	metaTxFacet := metatx.New(d, nil)

	facets := map[string]diamond.Facet{
		AddrAccessControl:   registry,
		AddrOrganization:    orgFacet,
		AddrGuild:           guildFacet,
		AddrMembershipToken: tokenFacet,
		AddrMetaTx:          metaTxFacet,
	}
	for address, facet := range facets {
		if err := d.RegisterFacet(address, facet); err != nil {
			return nil, nil, err
		}
	}

	registry.Bootstrap(accesscontrol.DefaultAdminRole, owner)
	return d, facets, nil
}

// routeFacets adds routes for any facet selector not yet in the
// routing table. Selectors already routed from a restored snapshot are
// left untouched.
func routeFacets(d *diamond.Diamond, owner string, facets map[string]diamond.Facet) error {
	var changes []diamond.Change
	for address, facet := range facets {
		var selectors []string
		for signature := range facet.Operations() {
			selector := diamond.ComputeSelector(signature)
			if _, err := d.Resolve(selector); err == nil {
				continue
			}
			selectors = append(selectors, selector.String())
		}
		if len(selectors) > 0 {
			changes = append(changes, diamond.Change{
				FacetAddress: address,
				Action:       diamond.ActionAdd,
				Selectors:    selectors,
			})
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return d.Cut(owner, diamond.CutRequest{Changes: changes})
}
