package diamond_test

import (
	"encoding/json"
	"testing"

	"guildhall-backend/diamond"
	"guildhall-backend/shared/apperrors"
	"guildhall-backend/shared/events"
	"guildhall-backend/shared/storage"
)

const (
	sigIncrement     = "increment()"
	sigIncrementFail = "incrementThenFail()"
	sigCount         = "count()"
	sigInitMark      = "markInitialized()"
)

type counterState struct {
	Count       int  `json:"count"`
	Initialized bool `json:"initialized"`
}

// counterFacet exercises dispatch and rollback against a real region.
type counterFacet struct {
	state *counterState
}

func newCounterFacet(t *testing.T, store *storage.Store) *counterFacet {
	t.Helper()
	state, err := storage.Region[counterState](store, "test.counter")
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	return &counterFacet{state: state}
}

func (f *counterFacet) Operations() map[string]diamond.Handler {
	return map[string]diamond.Handler{
		sigIncrement: func(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
			if err := ctx.RequireNotPaused(); err != nil {
				return nil, err
			}
			f.state.Count++
			return f.state.Count, nil
		},
		sigIncrementFail: func(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
			f.state.Count++
			return nil, apperrors.New(apperrors.KindInvalidState, "deliberate failure")
		},
		sigCount: func(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
			return f.state.Count, nil
		},
		sigInitMark: func(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
			f.state.Initialized = true
			return true, nil
		},
	}
}

func selectors(signatures ...string) []string {
	out := make([]string, len(signatures))
	for i, signature := range signatures {
		out[i] = diamond.ComputeSelector(signature).String()
	}
	return out
}

func newTestDiamond(t *testing.T) (*diamond.Diamond, *counterFacet) {
	t.Helper()
	store := storage.NewStore()
	d, err := diamond.New(store, events.NewBus(), "owner")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	facet := newCounterFacet(t, store)
	if err := d.RegisterFacet("counter", facet); err != nil {
		t.Fatalf("RegisterFacet: %v", err)
	}
	return d, facet
}

func routeCounter(t *testing.T, d *diamond.Diamond) {
	t.Helper()
	err := d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "counter",
		Action:       diamond.ActionAdd,
		Selectors:    selectors(sigIncrement, sigIncrementFail, sigCount, sigInitMark),
	}}})
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
}

func call(t *testing.T, d *diamond.Diamond, sender, signature string) (interface{}, error) {
	t.Helper()
	return d.Call(sender, diamond.ComputeSelector(signature), nil)
}

func TestOwnSelectorsRoutedOnFreshDiamond(t *testing.T) {
	d, _ := newTestDiamond(t)

	result, err := call(t, d, "anyone", diamond.SigOwner)
	if err != nil {
		t.Fatalf("owner(): %v", err)
	}
	owner, ok := result.(map[string]string)
	if !ok || owner["owner"] != "owner" {
		t.Fatalf("owner() = %v, want owner", result)
	}
}

func TestUnroutedSelectorFails(t *testing.T) {
	d, _ := newTestDiamond(t)

	if _, err := call(t, d, "anyone", sigIncrement); !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("unrouted call: got %v, want ROUTING_ERROR", err)
	}
}

func TestCutAddRoutesSelector(t *testing.T) {
	d, _ := newTestDiamond(t)
	routeCounter(t, d)

	result, err := call(t, d, "anyone", sigIncrement)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if result.(int) != 1 {
		t.Fatalf("count = %v, want 1", result)
	}
}

func TestCutRequiresOwner(t *testing.T) {
	d, _ := newTestDiamond(t)

	err := d.Cut("intruder", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "counter",
		Action:       diamond.ActionAdd,
		Selectors:    selectors(sigIncrement),
	}}})
	if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("cut by non-owner: got %v, want UNAUTHORIZED", err)
	}
}

func TestCutAddRejectsRoutedSelector(t *testing.T) {
	d, _ := newTestDiamond(t)
	routeCounter(t, d)

	err := d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "counter",
		Action:       diamond.ActionAdd,
		Selectors:    selectors(sigIncrement),
	}}})
	if !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("re-add: got %v, want ROUTING_ERROR", err)
	}
}

func TestCutRejectsEmptySelectorList(t *testing.T) {
	d, _ := newTestDiamond(t)

	err := d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "counter",
		Action:       diamond.ActionAdd,
	}}})
	if !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("empty selector list: got %v, want ROUTING_ERROR", err)
	}
}

func TestCutAddRequiresCode(t *testing.T) {
	d, _ := newTestDiamond(t)

	err := d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "ghost",
		Action:       diamond.ActionAdd,
		Selectors:    selectors(sigIncrement),
	}}})
	if !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("add to unregistered facet: got %v, want ROUTING_ERROR", err)
	}
}

func TestCutRemove(t *testing.T) {
	d, _ := newTestDiamond(t)
	routeCounter(t, d)

	// Remove requires a null facet address.
	err := d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "counter",
		Action:       diamond.ActionRemove,
		Selectors:    selectors(sigIncrement),
	}}})
	if !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("remove with facet address: got %v, want ROUTING_ERROR", err)
	}

	err = d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		Action:    diamond.ActionRemove,
		Selectors: selectors(sigIncrement),
	}}})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := call(t, d, "anyone", sigIncrement); !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("removed selector still callable: %v", err)
	}

	// Removing an unrouted selector is a silent no-op.
	err = d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		Action:    diamond.ActionRemove,
		Selectors: selectors(sigIncrement),
	}}})
	if err != nil {
		t.Fatalf("remove of unrouted selector: %v", err)
	}
}

func TestImmutableEntryPointsProtected(t *testing.T) {
	d, _ := newTestDiamond(t)

	err := d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		Action:    diamond.ActionRemove,
		Selectors: selectors(diamond.SigDiamondCut),
	}}})
	if !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("remove of immutable selector: got %v, want ROUTING_ERROR", err)
	}

	err = d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "counter",
		Action:       diamond.ActionReplace,
		Selectors:    selectors(diamond.SigOwner),
	}}})
	if !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("replace of immutable selector: got %v, want ROUTING_ERROR", err)
	}
}

func TestCutReplace(t *testing.T) {
	store := storage.NewStore()
	d, err := diamond.New(store, events.NewBus(), "owner")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	facet := newCounterFacet(t, store)
	if err := d.RegisterFacet("counter", facet); err != nil {
		t.Fatalf("RegisterFacet: %v", err)
	}
	if err := d.RegisterFacet("counter_v2", facet); err != nil {
		t.Fatalf("RegisterFacet v2: %v", err)
	}
	routeCounter(t, d)

	// Replace to the same facet is rejected.
	err = d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "counter",
		Action:       diamond.ActionReplace,
		Selectors:    selectors(sigIncrement),
	}}})
	if !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("replace to same facet: got %v, want ROUTING_ERROR", err)
	}

	err = d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "counter_v2",
		Action:       diamond.ActionReplace,
		Selectors:    selectors(sigIncrement),
	}}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if address, err := d.Resolve(diamond.ComputeSelector(sigIncrement)); err != nil || address != "counter_v2" {
		t.Fatalf("Resolve = %s, %v; want counter_v2", address, err)
	}
}

func TestAddRemoveLeavesTableUnchanged(t *testing.T) {
	d, _ := newTestDiamond(t)
	before := d.Facets()

	err := d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{
		{
			FacetAddress: "counter",
			Action:       diamond.ActionAdd,
			Selectors:    selectors(sigIncrement),
		},
		{
			Action:    diamond.ActionRemove,
			Selectors: selectors(sigIncrement),
		},
	}})
	if err != nil {
		t.Fatalf("add+remove cut: %v", err)
	}

	after := d.Facets()
	if len(after) != len(before) {
		t.Fatalf("facet count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].FacetAddress != after[i].FacetAddress ||
			len(before[i].Selectors) != len(after[i].Selectors) {
			t.Fatalf("routing table changed: %v -> %v", before[i], after[i])
		}
	}
}

func TestFailedCallRollsBackRegionWrites(t *testing.T) {
	d, facet := newTestDiamond(t)
	routeCounter(t, d)

	if _, err := call(t, d, "anyone", sigIncrement); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if _, err := call(t, d, "anyone", sigIncrementFail); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("incrementThenFail: got %v, want INVALID_STATE", err)
	}
	if facet.state.Count != 1 {
		t.Fatalf("count = %d after failed call, want 1", facet.state.Count)
	}
}

func TestCutInitDispatch(t *testing.T) {
	d, facet := newTestDiamond(t)

	err := d.Cut("owner", diamond.CutRequest{
		Changes: []diamond.Change{{
			FacetAddress: "counter",
			Action:       diamond.ActionAdd,
			Selectors:    selectors(sigIncrement, sigIncrementFail, sigCount, sigInitMark),
		}},
		InitSelector: diamond.ComputeSelector(sigInitMark).String(),
	})
	if err != nil {
		t.Fatalf("cut with init: %v", err)
	}
	if !facet.state.Initialized {
		t.Fatal("init selector was not dispatched")
	}
}

func TestFailedInitAbortsCut(t *testing.T) {
	d, facet := newTestDiamond(t)

	err := d.Cut("owner", diamond.CutRequest{
		Changes: []diamond.Change{{
			FacetAddress: "counter",
			Action:       diamond.ActionAdd,
			Selectors:    selectors(sigIncrement, sigIncrementFail, sigCount, sigInitMark),
		}},
		InitSelector: diamond.ComputeSelector(sigIncrementFail).String(),
	})
	if !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("cut with failing init: got %v, want ROUTING_ERROR", err)
	}
	// The whole cut rolled back: nothing routed, no state leaked.
	if _, err := call(t, d, "anyone", sigIncrement); !apperrors.IsKind(err, apperrors.KindRouting) {
		t.Fatalf("selector routed despite aborted cut: %v", err)
	}
	if facet.state.Count != 0 {
		t.Fatalf("count = %d after aborted cut, want 0", facet.state.Count)
	}
}

func TestPauseGatesHandlers(t *testing.T) {
	d, _ := newTestDiamond(t)
	routeCounter(t, d)

	if _, err := call(t, d, "intruder", diamond.SigPause); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("pause by non-owner: got %v, want UNAUTHORIZED", err)
	}
	if _, err := call(t, d, "owner", diamond.SigPause); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := call(t, d, "owner", diamond.SigPause); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("double pause: got %v, want INVALID_STATE", err)
	}

	if _, err := call(t, d, "anyone", sigIncrement); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("paused increment: got %v, want INVALID_STATE", err)
	}
	// Queries stay available while paused.
	if _, err := call(t, d, "anyone", sigCount); err != nil {
		t.Fatalf("paused count: %v", err)
	}

	if _, err := call(t, d, "owner", diamond.SigUnpause); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := call(t, d, "anyone", sigIncrement); err != nil {
		t.Fatalf("increment after unpause: %v", err)
	}
}

func TestTransferOwnership(t *testing.T) {
	d, _ := newTestDiamond(t)

	payload, _ := json.Marshal(map[string]string{"new_owner": "successor"})
	if _, err := d.Call("owner", diamond.ComputeSelector(diamond.SigTransferOwnership), payload); err != nil {
		t.Fatalf("transferOwnership: %v", err)
	}
	if d.Owner() != "successor" {
		t.Fatalf("owner = %s, want successor", d.Owner())
	}

	// The previous owner lost cut authority.
	err := d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "counter",
		Action:       diamond.ActionAdd,
		Selectors:    selectors(sigIncrement),
	}}})
	if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("cut by previous owner: got %v, want UNAUTHORIZED", err)
	}
}

const (
	sigNotify     = "notify()"
	sigNotifyFail = "notifyThenFail()"
)

// notifyFacet publishes an event from inside a dispatched call.
type notifyFacet struct {
	bus *events.Bus
}

func (f *notifyFacet) Operations() map[string]diamond.Handler {
	return map[string]diamond.Handler{
		sigNotify: func(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
			f.bus.Publish("test.notified", nil)
			return "ok", nil
		},
		sigNotifyFail: func(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
			f.bus.Publish("test.notified", nil)
			return nil, apperrors.New(apperrors.KindInvalidState, "deliberate failure")
		},
	}
}

func TestFailedCallEmitsNoEvents(t *testing.T) {
	store := storage.NewStore()
	bus := events.NewBus()
	var seen []string
	bus.Subscribe(func(event events.Event) { seen = append(seen, event.Type) })

	d, err := diamond.New(store, bus, "owner")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.RegisterFacet("notify", &notifyFacet{bus: bus}); err != nil {
		t.Fatalf("RegisterFacet: %v", err)
	}
	err = d.Cut("owner", diamond.CutRequest{Changes: []diamond.Change{{
		FacetAddress: "notify",
		Action:       diamond.ActionAdd,
		Selectors:    selectors(sigNotify, sigNotifyFail),
	}}})
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
	seen = nil

	// A rolled-back call must not broadcast the events it published.
	if _, err := call(t, d, "anyone", sigNotifyFail); !apperrors.IsKind(err, apperrors.KindInvalidState) {
		t.Fatalf("failing call: got %v, want INVALID_STATE", err)
	}
	if len(seen) != 0 {
		t.Fatalf("failed call published events: %v", seen)
	}

	if _, err := call(t, d, "anyone", sigNotify); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(seen) != 1 || seen[0] != "test.notified" {
		t.Fatalf("events after committed call = %v, want [test.notified]", seen)
	}
}
