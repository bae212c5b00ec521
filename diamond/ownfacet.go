package diamond

import (
	"encoding/json"
	"sort"

	"guildhall-backend/shared/apperrors"
	"guildhall-backend/shared/events"
)

// Canonical signatures of the diamond's immutable entry points.
const (
	SigDiamondCut             = "diamondCut(FacetCut[],address,bytes)"
	SigFacets                 = "facets()"
	SigFacetFunctionSelectors = "facetFunctionSelectors(address)"
	SigFacetAddresses         = "facetAddresses()"
	SigFacetAddress           = "facetAddress(bytes4)"
	SigOwner                  = "owner()"
	SigTransferOwnership      = "transferOwnership(address)"
	SigPaused                 = "paused()"
	SigPause                  = "pause()"
	SigUnpause                = "unpause()"
)

// CutRequest is the diamondCut payload.
type CutRequest struct {
	Changes      []Change        `json:"changes"`
	InitSelector string          `json:"init_selector,omitempty"`
	InitPayload  json.RawMessage `json:"init_payload,omitempty"`
}

type transferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

type facetSelectorsRequest struct {
	FacetAddress string `json:"facet_address"`
}

type facetAddressRequest struct {
	Selector string `json:"selector"`
}

type ownFacet struct {
	d *Diamond
}

func (d *Diamond) ownFacet() Facet {
	return &ownFacet{d: d}
}

func (f *ownFacet) Operations() map[string]Handler {
	return map[string]Handler{
		SigDiamondCut:             f.diamondCut,
		SigFacets:                 f.facets,
		SigFacetFunctionSelectors: f.facetFunctionSelectors,
		SigFacetAddresses:         f.facetAddresses,
		SigFacetAddress:           f.facetAddress,
		SigOwner:                  f.owner,
		SigTransferOwnership:      f.transferOwnership,
		SigPaused:                 f.paused,
		SigPause:                  f.pause,
		SigUnpause:                f.unpause,
	}
}

func (f *ownFacet) diamondCut(ctx *CallContext, payload json.RawMessage) (interface{}, error) {
	var req CutRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid diamondCut payload")
	}
	if err := f.d.cut(ctx, req.Changes, req.InitSelector, req.InitPayload); err != nil {
		return nil, err
	}
	return map[string]interface{}{"applied": len(req.Changes)}, nil
}

func (f *ownFacet) facets(ctx *CallContext, payload json.RawMessage) (interface{}, error) {
	return f.d.loupeFacets(), nil
}

func (f *ownFacet) facetFunctionSelectors(ctx *CallContext, payload json.RawMessage) (interface{}, error) {
	var req facetSelectorsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid facetFunctionSelectors payload")
	}
	selectors := append([]string(nil), f.d.state.FacetSelectors[req.FacetAddress]...)
	sort.Strings(selectors)
	return selectors, nil
}

func (f *ownFacet) facetAddresses(ctx *CallContext, payload json.RawMessage) (interface{}, error) {
	addresses := append([]string(nil), f.d.state.FacetAddresses...)
	sort.Strings(addresses)
	return addresses, nil
}

func (f *ownFacet) facetAddress(ctx *CallContext, payload json.RawMessage) (interface{}, error) {
	var req facetAddressRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid facetAddress payload")
	}
	address, err := f.d.resolve(req.Selector)
	if err != nil {
		return nil, err
	}
	return map[string]string{"facet_address": address}, nil
}

func (f *ownFacet) owner(ctx *CallContext, payload json.RawMessage) (interface{}, error) {
	return map[string]string{"owner": f.d.state.Owner}, nil
}

func (f *ownFacet) transferOwnership(ctx *CallContext, payload json.RawMessage) (interface{}, error) {
	var req transferOwnershipRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid transferOwnership payload")
	}
	if err := f.d.requireOwner(ctx.Sender); err != nil {
		return nil, err
	}
	if req.NewOwner == "" {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "new owner must not be empty")
	}
	previous := f.d.state.Owner
	f.d.state.Owner = req.NewOwner
	f.d.bus.Publish(events.TypeOwnershipTransferred, map[string]string{
		"previous_owner": previous,
		"new_owner":      req.NewOwner,
	})
	return map[string]string{"owner": req.NewOwner}, nil
}

func (f *ownFacet) paused(ctx *CallContext, payload json.RawMessage) (interface{}, error) {
	return map[string]bool{"paused": f.d.state.Paused}, nil
}

func (f *ownFacet) pause(ctx *CallContext, payload json.RawMessage) (interface{}, error) {
	if err := f.d.requireOwner(ctx.Sender); err != nil {
		return nil, err
	}
	if f.d.state.Paused {
		return nil, apperrors.New(apperrors.KindInvalidState, "contract is already paused")
	}
	f.d.state.Paused = true
	f.d.bus.Publish(events.TypePaused, map[string]string{"account": ctx.Sender})
	return map[string]bool{"paused": true}, nil
}

func (f *ownFacet) unpause(ctx *CallContext, payload json.RawMessage) (interface{}, error) {
	if err := f.d.requireOwner(ctx.Sender); err != nil {
		return nil, err
	}
	if !f.d.state.Paused {
		return nil, apperrors.New(apperrors.KindInvalidState, "contract is not paused")
	}
	f.d.state.Paused = false
	f.d.bus.Publish(events.TypeUnpaused, map[string]string{"account": ctx.Sender})
	return map[string]bool{"paused": false}, nil
}

// loupeFacets returns every facet address with its routed selectors.
func (d *Diamond) loupeFacets() []FacetInfo {
	infos := make([]FacetInfo, 0, len(d.state.FacetAddresses))
	for _, address := range d.state.FacetAddresses {
		selectors := append([]string(nil), d.state.FacetSelectors[address]...)
		sort.Strings(selectors)
		infos = append(infos, FacetInfo{FacetAddress: address, Selectors: selectors})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].FacetAddress < infos[j].FacetAddress })
	return infos
}

// Cut is a convenience wrapper dispatching a diamondCut through the
// transactional entry point.
func (d *Diamond) Cut(sender string, req CutRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = d.Call(sender, ComputeSelector(SigDiamondCut), payload)
	return err
}

// Facets is the loupe query outside a dispatch.
func (d *Diamond) Facets() []FacetInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loupeFacets()
}
