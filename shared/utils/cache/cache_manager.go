package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"guildhall-backend/shared/config"
	"guildhall-backend/shared/events"
)

type CacheManager struct {
	client *redis.Client
	ctx    context.Context
}

// RoleCacheData is a cached role-membership check.
type RoleCacheData struct {
	HasRole  bool      `json:"has_role"`
	Role     string    `json:"role"`
	Account  string    `json:"account"`
	CachedAt time.Time `json:"cached_at"`
}

// RouteCacheData is a cached selector resolution.
type RouteCacheData struct {
	Selector     string    `json:"selector"`
	FacetAddress string    `json:"facet_address"`
	CachedAt     time.Time `json:"cached_at"`
}

var (
	globalCacheManager *CacheManager
	RoleTTL            = 15 * time.Minute
	RouteTTL           = 1 * time.Hour
)

// InitCacheManager initializes the global cache manager
func InitCacheManager() error {
	cfg := config.GetConfig()

	redisDB, err := strconv.Atoi(cfg.RedisDB)
	if err != nil {
		log.Printf("❌ Invalid Redis DB number: %s, using default 0", cfg.RedisDB)
		redisDB = 0
	}

	// Create Redis client
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       redisDB,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	globalCacheManager = &CacheManager{
		client: client,
		ctx:    ctx,
	}

	log.Printf("✅ Redis Cache Manager initialized successfully - %s:%s DB:%d",
		cfg.RedisHost, cfg.RedisPort, redisDB)

	return nil
}

// GetCacheManager returns the global cache manager instance
func GetCacheManager() *CacheManager {
	if globalCacheManager == nil {
		if err := InitCacheManager(); err != nil {
			log.Printf("❌ Failed to initialize cache manager: %v", err)
			return nil
		}
	}
	return globalCacheManager
}

// GenerateRoleKey generates a cache key for a role-membership check
func GenerateRoleKey(role, account string) string {
	return fmt.Sprintf("role:%s:acct:%s", role, account)
}

// GenerateRouteKey generates a cache key for a selector resolution
func GenerateRouteKey(selector string) string {
	return fmt.Sprintf("route:sel:%s", selector)
}

// SetRoleCache caches a role-membership check result
func (cm *CacheManager) SetRoleCache(role, account string, hasRole bool) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}

	data := &RoleCacheData{
		HasRole:  hasRole,
		Role:     role,
		Account:  account,
		CachedAt: time.Now(),
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %v", err)
	}

	key := GenerateRoleKey(role, account)
	if err := cm.client.Set(cm.ctx, key, jsonData, RoleTTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %v", err)
	}

	log.Printf("🔄 Role check cached: %s (TTL: %v)", key, RoleTTL)
	return nil
}

// GetRoleCache retrieves a cached role-membership check result
func (cm *CacheManager) GetRoleCache(role, account string) (*RoleCacheData, bool) {
	if cm == nil || cm.client == nil {
		return nil, false
	}

	key := GenerateRoleKey(role, account)
	result, err := cm.client.Get(cm.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false
		}
		log.Printf("❌ Cache error: %v", err)
		return nil, false
	}

	var data RoleCacheData
	if err := json.Unmarshal([]byte(result), &data); err != nil {
		log.Printf("❌ Failed to unmarshal cache data: %v", err)
		return nil, false
	}
	return &data, true
}

// SetRouteCache caches a selector resolution
func (cm *CacheManager) SetRouteCache(selector, facetAddress string) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}

	data := &RouteCacheData{
		Selector:     selector,
		FacetAddress: facetAddress,
		CachedAt:     time.Now(),
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %v", err)
	}

	key := GenerateRouteKey(selector)
	if err := cm.client.Set(cm.ctx, key, jsonData, RouteTTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %v", err)
	}
	return nil
}

// GetRouteCache retrieves a cached selector resolution
func (cm *CacheManager) GetRouteCache(selector string) (*RouteCacheData, bool) {
	if cm == nil || cm.client == nil {
		return nil, false
	}

	result, err := cm.client.Get(cm.ctx, GenerateRouteKey(selector)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false
		}
		log.Printf("❌ Cache error: %v", err)
		return nil, false
	}

	var data RouteCacheData
	if err := json.Unmarshal([]byte(result), &data); err != nil {
		log.Printf("❌ Failed to unmarshal cache data: %v", err)
		return nil, false
	}
	return &data, true
}

// InvalidateAccountRoles invalidates all role checks for an account
func (cm *CacheManager) InvalidateAccountRoles(account string) error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}
	return cm.invalidateByPattern(fmt.Sprintf("role:*:acct:%s", account))
}

// InvalidateAllRoles invalidates every cached role check
func (cm *CacheManager) InvalidateAllRoles() error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}
	return cm.invalidateByPattern("role:*")
}

// InvalidateAllRoutes invalidates every cached selector resolution
func (cm *CacheManager) InvalidateAllRoutes() error {
	if cm == nil || cm.client == nil {
		return fmt.Errorf("cache manager not initialized")
	}
	return cm.invalidateByPattern("route:*")
}

// invalidateByPattern invalidates cache entries matching a pattern
func (cm *CacheManager) invalidateByPattern(pattern string) error {
	iter := cm.client.Scan(cm.ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(cm.ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %v", err)
	}

	if len(keys) > 0 {
		err := cm.client.Del(cm.ctx, keys...).Err()
		if err != nil {
			return fmt.Errorf("failed to delete keys: %v", err)
		}
		log.Printf("🗑️  Cache invalidated: %d keys matching pattern '%s'", len(keys), pattern)
	}

	return nil
}

// SubscribeInvalidation wires cache invalidation to the event bus:
// routing changes flush cached resolutions, role changes flush the
// affected account's checks.
func (cm *CacheManager) SubscribeInvalidation(bus *events.Bus) {
	bus.Subscribe(func(event events.Event) {
		switch event.Type {
		case events.TypeDiamondCut:
			if err := cm.InvalidateAllRoutes(); err != nil {
				log.Printf("❌ Failed to invalidate route cache: %v", err)
			}
		case events.TypeRoleGranted, events.TypeRoleRevoked:
			account := event.Fields["account"]
			if err := cm.InvalidateAccountRoles(account); err != nil {
				log.Printf("❌ Failed to invalidate role cache for %s: %v", account, err)
			}
		case events.TypeRoleAdminChanged:
			if err := cm.InvalidateAllRoles(); err != nil {
				log.Printf("❌ Failed to invalidate role cache: %v", err)
			}
		}
	})
}

// GetCacheStats returns cache statistics
func (cm *CacheManager) GetCacheStats() (map[string]interface{}, error) {
	if cm == nil || cm.client == nil {
		return nil, fmt.Errorf("cache manager not initialized")
	}

	info, err := cm.client.Info(cm.ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %v", err)
	}

	countPattern := func(pattern string) int {
		iter := cm.client.Scan(cm.ctx, 0, pattern, 0).Iterator()
		count := 0
		for iter.Next(cm.ctx) {
			count++
		}
		return count
	}

	stats := map[string]interface{}{
		"total_role_keys":      countPattern("role:*"),
		"total_route_keys":     countPattern("route:*"),
		"redis_info":           info,
		"cache_manager_active": true,
	}

	return stats, nil
}

// Close closes the cache manager connection
func (cm *CacheManager) Close() error {
	if cm != nil && cm.client != nil {
		return cm.client.Close()
	}
	return nil
}
