package main

import (
	"encoding/json"
	"log"

	"guildhall-backend/diamond"
	"guildhall-backend/facets/guild"
	"guildhall-backend/facets/membershiptoken"
	"guildhall-backend/facets/organization"
	"guildhall-backend/shared/accesscontrol"
	"guildhall-backend/shared/config"
	"guildhall-backend/shared/database"
	"guildhall-backend/shared/events"
	"guildhall-backend/shared/storage"
	"guildhall-backend/shared/utils/policy"
)

// Seeds a demo organization and guild through the routed operations,
// then persists the region snapshot.
func main() {
	log.Println("🌱 Starting state seeding...")

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

	registry, err := accesscontrol.NewRegistry(store, bus)
	if err != nil {
		log.Fatalf("Failed to create access control registry: %v", err)
	}
	d, err := diamond.New(store, bus, cfg.DiamondOwner)
	if err != nil {
		log.Fatalf("Failed to create diamond: %v", err)
	}
	tokenFacet, err := membershiptoken.New(store, registry, bus)
	if err != nil {
		log.Fatalf("Failed to create token facet: %v", err)
	}
	orgFacet, err := organization.New(store, registry, bus)
	if err != nil {
		log.Fatalf("Failed to create organization facet: %v", err)
	}
	guildFacet, err := guild.New(
		store, orgFacet, registry, tokenFacet,
		func(baseURL string) policy.GuildPolicy { return policy.NewHTTPGuildPolicy(baseURL) },
		func(baseURL string) policy.TagCredential { return policy.NewHTTPTagCredential(baseURL) },
		bus,
	)
	if err != nil {
		log.Fatalf("Failed to create guild facet: %v", err)
	}

	facets := map[string]diamond.Facet{
		"access_control_facet":   registry,
		"organization_facet":     orgFacet,
		"guild_facet":            guildFacet,
		"membership_token_facet": tokenFacet,
	}
	var changes []diamond.Change
	for address, facet := range facets {
		if err := d.RegisterFacet(address, facet); err != nil {
			log.Fatalf("Failed to register facet %s: %v", address, err)
		}
		var selectors []string
		for signature := range facet.Operations() {
			selectors = append(selectors, diamond.ComputeSelector(signature).String())
		}
		changes = append(changes, diamond.Change{
			FacetAddress: address,
			Action:       diamond.ActionAdd,
			Selectors:    selectors,
		})
	}
	registry.Bootstrap(accesscontrol.DefaultAdminRole, cfg.DiamondOwner)
	if err := d.Cut(cfg.DiamondOwner, diamond.CutRequest{Changes: changes}); err != nil {
		log.Fatalf("Failed to route facets: %v", err)
	}

	call := func(signature string, payload interface{}) {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Fatalf("Failed to marshal %s payload: %v", signature, err)
		}
		if _, err := d.Call(cfg.DiamondOwner, diamond.ComputeSelector(signature), raw); err != nil {
			log.Fatalf("Failed to execute %s: %v", signature, err)
		}
	}

	call(organization.SigCreateOrganization, map[string]interface{}{
		"id":          "demo",
		"name":        "Demo Organization",
		"description": "Seeded demo tenant",
		"config": organization.Config{
			MaxGuildsPerUser:         3,
			TimeoutAfterLeavingGuild: 0,
			DefaultGuildCapacity:     50,
			CreationRule:             organization.CreationRuleAnyone,
		},
	})
	log.Println("✅ Seeded organization 'demo'")

	call(guild.SigCreateGuild, map[string]interface{}{
		"organization_id": "demo",
		"name":            "Founders",
		"description":     "Seeded demo guild",
		"symbol":          "FND",
	})
	log.Println("✅ Seeded guild 'Founders'")

	if err := database.SaveSnapshot(store); err != nil {
		log.Fatalf("Failed to persist snapshot: %v", err)
	}

	log.Println("✅ State seeding completed successfully!")
}
