package diamond

import (
	"encoding/json"
	"sync"

	"guildhall-backend/shared/apperrors"
	"guildhall-backend/shared/events"
	"guildhall-backend/shared/storage"
)

// RegionName is the namespaced storage region holding the routing
// table, owner and pause flag.
const RegionName = "guildhall.diamond.routes"

// DiamondAddress is the diamond's own facet address. Selectors routed
// to it are the immutable entry points: they can never be removed or
// replaced by a cut.
const DiamondAddress = "diamond"

// Cut actions.
const (
	ActionAdd     = "ADD"
	ActionReplace = "REPLACE"
	ActionRemove  = "REMOVE"
)

// Handler executes one operation against its facet.
type Handler func(ctx *CallContext, payload json.RawMessage) (interface{}, error)

// Facet is an independently built implementation unit. Operations maps
// canonical signatures ("name(argType,...)") to handlers.
type Facet interface {
	Operations() map[string]Handler
}

// Change is one entry of an ordered cut batch.
type Change struct {
	FacetAddress string   `json:"facet_address"`
	Action       string   `json:"action"`
	Selectors    []string `json:"selectors"`
}

// FacetInfo is one loupe result: a facet address and the selectors
// currently routed to it.
type FacetInfo struct {
	FacetAddress string   `json:"facet_address"`
	Selectors    []string `json:"selectors"`
}

// State is the region-resident routing table.
type State struct {
	Owner          string              `json:"owner"`
	Paused         bool                `json:"paused"`
	Routes         map[string]string   `json:"routes"`          // selector -> facet address
	FacetSelectors map[string][]string `json:"facet_selectors"` // facet address -> selectors
	FacetAddresses []string            `json:"facet_addresses"`
}

// Diamond is the selector routing table: a single logical address
// whose externally callable operations are resolved per-selector to
// registered facet implementations. All entry points are transactional:
// any failure rolls every region write back.
type Diamond struct {
	mu    sync.Mutex
	store *storage.Store
	state *State
	bus   *events.Bus

	impls      map[string]map[string]Handler // facet address -> selector -> handler
	signatures map[string]string             // selector -> canonical signature
}

// New roots the diamond in its storage region and routes its own
// immutable entry points. The owner argument seats the initial owner
// only when the region is fresh; restored state keeps its owner.
func New(store *storage.Store, bus *events.Bus, owner string) (*Diamond, error) {
	state, err := storage.Region[State](store, RegionName)
	if err != nil {
		return nil, err
	}

	d := &Diamond{
		store:      store,
		state:      state,
		bus:        bus,
		impls:      make(map[string]map[string]Handler),
		signatures: make(map[string]string),
	}

	if state.Routes == nil {
		state.Routes = make(map[string]string)
		state.FacetSelectors = make(map[string][]string)
	}
	if state.Owner == "" {
		state.Owner = owner
	}

	if err := d.RegisterFacet(DiamondAddress, d.ownFacet()); err != nil {
		return nil, err
	}
	d.routeOwnSelectors()
	return d, nil
}

// RegisterFacet installs a facet implementation at an address. This is
// the "deploy" step: selectors only become callable once a cut routes
// them to the address.
func (d *Diamond) RegisterFacet(address string, facet Facet) error {
	if address == "" {
		return apperrors.New(apperrors.KindRouting, "facet address must not be empty")
	}
	handlers := make(map[string]Handler)
	for signature, handler := range facet.Operations() {
		selector := ComputeSelector(signature).String()
		if existing, taken := d.signatures[selector]; taken && existing != signature {
			return apperrors.New(apperrors.KindRouting, "selector collision between signatures",
				"selector", selector, "signature", signature, "existing", existing)
		}
		handlers[selector] = handler
		d.signatures[selector] = signature
	}
	d.impls[address] = handlers
	return nil
}

// routeOwnSelectors routes the diamond's immutable entry points on a
// fresh region. Restored state already carries them.
func (d *Diamond) routeOwnSelectors() {
	for selector := range d.impls[DiamondAddress] {
		if _, routed := d.state.Routes[selector]; routed {
			continue
		}
		d.state.Routes[selector] = DiamondAddress
		d.state.FacetSelectors[DiamondAddress] = append(d.state.FacetSelectors[DiamondAddress], selector)
	}
	if !contains(d.state.FacetAddresses, DiamondAddress) {
		d.state.FacetAddresses = append(d.state.FacetAddresses, DiamondAddress)
	}
}

// Signature returns the canonical signature registered for a selector.
func (d *Diamond) Signature(selector Selector) string {
	return d.signatures[selector.String()]
}

// Owner returns the current contract owner.
func (d *Diamond) Owner() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Owner
}

// Paused reports the global pause gate.
func (d *Diamond) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Paused
}

// Resolve returns the facet address routed for selector.
func (d *Diamond) Resolve(selector Selector) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resolve(selector.String())
}

func (d *Diamond) resolve(selector string) (string, error) {
	address, routed := d.state.Routes[selector]
	if !routed {
		return "", apperrors.New(apperrors.KindRouting, "no facet routed for selector", "selector", selector)
	}
	return address, nil
}

// Call is the transactional dispatch entry point: it resolves the
// selector, runs the facet handler with a fresh call context, and rolls
// back every region write if the handler fails. Events published during
// the call are staged and delivered only on commit, so a rolled-back
// call broadcasts nothing.
func (d *Diamond) Call(sender string, selector Selector, payload json.RawMessage) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	snapshot, err := d.store.Snapshot()
	if err != nil {
		return nil, err
	}

	d.bus.Stage()
	ctx := &CallContext{Sender: sender, Paused: d.state.Paused}
	result, err := d.invoke(ctx, selector.String(), payload)
	if err != nil {
		d.bus.Discard()
		if restoreErr := d.store.Restore(snapshot); restoreErr != nil {
			return nil, restoreErr
		}
		return nil, err
	}
	d.bus.Flush()
	return result, nil
}

// invoke dispatches with the lock held. The relay facet re-enters it
// through the Dispatcher interface for the inner call.
func (d *Diamond) invoke(ctx *CallContext, selector string, payload json.RawMessage) (interface{}, error) {
	address, err := d.resolve(selector)
	if err != nil {
		return nil, err
	}
	handlers, deployed := d.impls[address]
	if !deployed {
		return nil, apperrors.New(apperrors.KindRouting, "routed facet has no code",
			"selector", selector, "facet_address", address)
	}
	handler, exists := handlers[selector]
	if !exists {
		return nil, apperrors.New(apperrors.KindRouting, "facet does not implement selector",
			"selector", selector, "facet_address", address)
	}
	return handler(ctx, payload)
}

// Invoke implements Dispatcher for in-call re-dispatch (relay facet).
func (d *Diamond) Invoke(ctx *CallContext, selector Selector, payload json.RawMessage) (interface{}, error) {
	return d.invoke(ctx, selector.String(), payload)
}

// Dispatcher re-dispatches an operation inside an already-running
// call, preserving the call context.
type Dispatcher interface {
	Invoke(ctx *CallContext, selector Selector, payload json.RawMessage) (interface{}, error)
}

func (d *Diamond) requireOwner(sender string) error {
	if sender != d.state.Owner {
		return apperrors.New(apperrors.KindUnauthorized, "caller is not the contract owner",
			"account", sender, "owner", d.state.Owner)
	}
	return nil
}

// cut applies an ordered batch of routing changes, then optionally
// re-dispatches one initialization call. Any failure aborts the whole
// batch; the surrounding transactional dispatch rolls the table back.
func (d *Diamond) cut(ctx *CallContext, changes []Change, initSelector string, initPayload json.RawMessage) error {
	if err := d.requireOwner(ctx.Sender); err != nil {
		return err
	}

	for _, change := range changes {
		if len(change.Selectors) == 0 {
			return apperrors.New(apperrors.KindRouting, "cut change has no selectors",
				"facet_address", change.FacetAddress, "action", change.Action)
		}
		switch change.Action {
		case ActionAdd:
			if err := d.cutAdd(change); err != nil {
				return err
			}
		case ActionReplace:
			if err := d.cutReplace(change); err != nil {
				return err
			}
		case ActionRemove:
			if err := d.cutRemove(change); err != nil {
				return err
			}
		default:
			return apperrors.New(apperrors.KindRouting, "unknown cut action", "action", change.Action)
		}
	}

	if initSelector != "" {
		if _, err := d.invoke(ctx, initSelector, initPayload); err != nil {
			return apperrors.New(apperrors.KindRouting, "cut initialization call failed: "+err.Error(),
				"init_selector", initSelector)
		}
	}

	summary, _ := json.Marshal(changes)
	d.bus.Publish(events.TypeDiamondCut, map[string]string{
		"changes":       string(summary),
		"init_selector": initSelector,
	})
	return nil
}

func (d *Diamond) requireCode(address string) error {
	if address == "" {
		return apperrors.New(apperrors.KindRouting, "facet address must not be empty")
	}
	if handlers, deployed := d.impls[address]; !deployed || len(handlers) == 0 {
		return apperrors.New(apperrors.KindRouting, "facet address has no code", "facet_address", address)
	}
	return nil
}

func (d *Diamond) cutAdd(change Change) error {
	if err := d.requireCode(change.FacetAddress); err != nil {
		return err
	}
	for _, selector := range change.Selectors {
		if existing, routed := d.state.Routes[selector]; routed {
			return apperrors.New(apperrors.KindRouting, "selector already routed",
				"selector", selector, "facet_address", existing)
		}
		d.state.Routes[selector] = change.FacetAddress
		d.attachSelector(change.FacetAddress, selector)
	}
	return nil
}

func (d *Diamond) cutReplace(change Change) error {
	if err := d.requireCode(change.FacetAddress); err != nil {
		return err
	}
	for _, selector := range change.Selectors {
		existing, routed := d.state.Routes[selector]
		if !routed {
			return apperrors.New(apperrors.KindRouting, "cannot replace unrouted selector", "selector", selector)
		}
		if existing == DiamondAddress {
			return apperrors.New(apperrors.KindRouting, "cannot replace immutable entry point", "selector", selector)
		}
		if existing == change.FacetAddress {
			return apperrors.New(apperrors.KindRouting, "replacement routes to the same facet",
				"selector", selector, "facet_address", existing)
		}
		d.detachSelector(existing, selector)
		d.state.Routes[selector] = change.FacetAddress
		d.attachSelector(change.FacetAddress, selector)
	}
	return nil
}

func (d *Diamond) cutRemove(change Change) error {
	if change.FacetAddress != "" {
		return apperrors.New(apperrors.KindRouting, "remove requires a null facet address",
			"facet_address", change.FacetAddress)
	}
	for _, selector := range change.Selectors {
		existing, routed := d.state.Routes[selector]
		if !routed {
			continue
		}
		if existing == DiamondAddress {
			return apperrors.New(apperrors.KindRouting, "cannot remove immutable entry point", "selector", selector)
		}
		delete(d.state.Routes, selector)
		d.detachSelector(existing, selector)
	}
	return nil
}

func (d *Diamond) attachSelector(address, selector string) {
	if len(d.state.FacetSelectors[address]) == 0 && !contains(d.state.FacetAddresses, address) {
		d.state.FacetAddresses = append(d.state.FacetAddresses, address)
	}
	d.state.FacetSelectors[address] = append(d.state.FacetSelectors[address], selector)
}

func (d *Diamond) detachSelector(address, selector string) {
	selectors := d.state.FacetSelectors[address]
	for i, s := range selectors {
		if s == selector {
			selectors[i] = selectors[len(selectors)-1]
			selectors = selectors[:len(selectors)-1]
			break
		}
	}
	if len(selectors) == 0 {
		delete(d.state.FacetSelectors, address)
		for i, a := range d.state.FacetAddresses {
			if a == address {
				d.state.FacetAddresses = append(d.state.FacetAddresses[:i], d.state.FacetAddresses[i+1:]...)
				break
			}
		}
		return
	}
	d.state.FacetSelectors[address] = selectors
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
