package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"golang.org/x/crypto/sha3"
)

// RegionKey addresses a storage region. It is derived from the region's
// human-readable name, not from declaration order, so independently
// built facets can share one store without colliding.
type RegionKey [32]byte

func (k RegionKey) String() string {
	return hex.EncodeToString(k[:])
}

// DeriveKey computes the region key as the Keccak-256 hash of the
// region's stable name (e.g. "guildhall.guild.manager").
func DeriveKey(name string) RegionKey {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	var key RegionKey
	copy(key[:], h.Sum(nil))
	return key
}

type regionEntry struct {
	name  string
	value interface{}
}

// Store holds every component's persistent state, one region per
// component, addressed by derived key.
type Store struct {
	mu      sync.RWMutex
	regions map[RegionKey]*regionEntry
}

// NewStore creates an empty region store.
func NewStore() *Store {
	return &Store{
		regions: make(map[RegionKey]*regionEntry),
	}
}

// Region returns the typed region rooted at the key derived from name,
// creating a zero-valued one on first access. Two distinct names
// hashing to the same key, or re-registering a name with a different
// value type, is a collision error.
func Region[T any](s *Store, name string) (*T, error) {
	key := DeriveKey(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, exists := s.regions[key]; exists {
		if entry.name != name {
			return nil, fmt.Errorf("storage region key collision: %q and %q both derive %s", entry.name, name, key)
		}
		typed, ok := entry.value.(*T)
		if !ok {
			return nil, fmt.Errorf("storage region %q already registered with a different type (%T)", name, entry.value)
		}
		return typed, nil
	}

	value := new(T)
	s.regions[key] = &regionEntry{name: name, value: value}
	return value, nil
}

// MustRegion is Region for wiring paths where a collision means the
// process is misassembled and cannot start.
func MustRegion[T any](s *Store, name string) *T {
	region, err := Region[T](s, name)
	if err != nil {
		panic(err)
	}
	return region
}

// RegionNames returns the names of all registered regions, sorted.
func (s *Store) RegionNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.regions))
	for _, entry := range s.regions {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// RegionSnapshot is one region serialized for persistence.
type RegionSnapshot struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Payload []byte `json:"payload"`
}

// Snapshot serializes every registered region to JSON payloads.
func (s *Store) Snapshot() ([]RegionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots := make([]RegionSnapshot, 0, len(s.regions))
	for key, entry := range s.regions {
		payload, err := json.Marshal(entry.value)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize region %q: %w", entry.name, err)
		}
		snapshots = append(snapshots, RegionSnapshot{
			Key:     key.String(),
			Name:    entry.name,
			Payload: payload,
		})
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Name < snapshots[j].Name })
	return snapshots, nil
}

// Restore loads serialized payloads into already-registered regions.
// Snapshots for unregistered regions are skipped: a facet that was
// removed from the build keeps its persisted state untouched on disk.
func (s *Store) Restore(snapshots []RegionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snapshot := range snapshots {
		key := DeriveKey(snapshot.Name)
		entry, exists := s.regions[key]
		if !exists {
			continue
		}
		// Zero the region first: unmarshalling into a live map merges
		// keys, which would leak writes from a rolled-back call.
		target := reflect.ValueOf(entry.value).Elem()
		target.Set(reflect.Zero(target.Type()))
		if err := json.Unmarshal(snapshot.Payload, entry.value); err != nil {
			return fmt.Errorf("failed to restore region %q: %w", snapshot.Name, err)
		}
	}
	return nil
}
