package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types published by the diamond and its facets.
const (
	TypeDiamondCut           = "diamond.cut"
	TypeOwnershipTransferred = "diamond.ownership_transferred"
	TypePaused               = "diamond.paused"
	TypeUnpaused             = "diamond.unpaused"
	TypeRoleGranted          = "access.role_granted"
	TypeRoleRevoked          = "access.role_revoked"
	TypeRoleAdminChanged     = "access.role_admin_changed"
	TypeOrganizationCreated  = "organization.created"
	TypeOrganizationUpdated  = "organization.updated"
	TypeOrganizationAdminSet = "organization.admin_set"
	TypeGuildCreated         = "guild.created"
	TypeGuildUpdated         = "guild.updated"
	TypeGuildTerminated      = "guild.terminated"
	TypeUserInvited          = "guild.user_invited"
	TypeUserJoined           = "guild.user_joined"
	TypeUserLeft             = "guild.user_left"
	TypeAdminStatusChanged   = "guild.admin_status_changed"
	TypeOwnershipChanged     = "guild.ownership_changed"
	TypeMemberLevelChanged   = "guild.member_level_changed"
	TypeTokenMinted          = "token.minted"
	TypeTokenBurned          = "token.burned"
)

// Event is one structural or domain occurrence published on the bus.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Handler receives published events.
type Handler func(Event)

// Bus is a synchronous in-process publish/subscribe fanout. Handlers
// run on the publisher's goroutine, in subscription order.
//
// The transactional dispatcher stages the bus for the duration of a
// call: staged publishes are held back and delivered only when the
// call commits, so a rolled-back call emits no events.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	staging  bool
	staged   []Event
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish delivers an event to every subscriber. A nil bus is a no-op
// so domain code can run without wiring.
func (b *Bus) Publish(eventType string, fields map[string]string) {
	if b == nil {
		return
	}

	event := Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Fields:    fields,
	}

	b.mu.Lock()
	if b.staging {
		b.staged = append(b.staged, event)
		b.mu.Unlock()
		return
	}
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// Stage begins holding back publishes until Flush or Discard.
func (b *Bus) Stage() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.staging = true
}

// Flush delivers every staged event in publish order and ends staging.
func (b *Bus) Flush() {
	if b == nil {
		return
	}
	b.mu.Lock()
	staged := b.staged
	b.staged = nil
	b.staging = false
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, event := range staged {
		for _, handler := range handlers {
			handler(event)
		}
	}
}

// Discard drops every staged event and ends staging.
func (b *Bus) Discard() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.staged = nil
	b.staging = false
}
