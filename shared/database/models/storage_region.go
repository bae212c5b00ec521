package models

import (
	"time"

	"github.com/google/uuid"
)

// StorageRegion persists one namespaced storage region as a JSON
// payload, keyed by the region's derived key.
type StorageRegion struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RegionKey string    `json:"region_key" gorm:"size:64;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Payload   []byte    `json:"payload" gorm:"type:jsonb;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
