package organization

import (
	"encoding/json"
	"time"

	"guildhall-backend/diamond"
	"guildhall-backend/shared/accesscontrol"
	"guildhall-backend/shared/apperrors"
	"guildhall-backend/shared/events"
	"guildhall-backend/shared/storage"
)

// RegionName is the namespaced storage region holding tenant records.
const RegionName = "guildhall.organization.registry"

// CreatorRoleTag derives the role allowed to create organizations.
const CreatorRoleTag = "guildhall.role.organization.creator"

// Guild creation rules.
const (
	CreationRuleAnyone    = "ANYONE"
	CreationRuleAdminOnly = "ADMIN_ONLY"
	CreationRuleCustom    = "CUSTOM_RULE"
)

// Canonical signatures.
const (
	SigCreateOrganization      = "createOrganization(string,string,string,OrgConfig)"
	SigSetOrganizationNameDesc = "setOrganizationNameAndDescription(string,string,string)"
	SigSetOrganizationAdmin    = "setOrganizationAdmin(string,address)"
	SigSetOrganizationConfig   = "setOrganizationConfig(string,OrgConfig)"
	SigGetOrganization         = "getOrganization(string)"
	SigGetOrganizationIDs      = "getOrganizationIds()"
)

// Config is the per-tenant guild policy.
type Config struct {
	MaxGuildsPerUser         int    `json:"max_guilds_per_user"`
	TimeoutAfterLeavingGuild int64  `json:"timeout_after_leaving_guild"` // seconds
	DefaultGuildCapacity     int    `json:"default_guild_capacity"`
	CreationRule             string `json:"creation_rule"`
	CustomCapacityRule       bool   `json:"custom_capacity_rule"`
	PolicyURL                string `json:"policy_url,omitempty"`
	TagRequirementURL        string `json:"tag_requirement_url,omitempty"`
}

// Organization is one tenant record. Organizations are never deleted;
// an id with a non-empty admin can never be recreated.
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Admin       string    `json:"admin"`
	Config      Config    `json:"config"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// State is the region-resident tenant table.
type State struct {
	Organizations map[string]*Organization `json:"organizations"`
	IDs           []string                 `json:"ids"`
}

// OrganizationFacet implements the tenant registry.
type OrganizationFacet struct {
	state    *State
	registry *accesscontrol.Registry
	bus      *events.Bus
	clock    func() time.Time
}

// New roots the facet in its storage region.
func New(store *storage.Store, registry *accesscontrol.Registry, bus *events.Bus) (*OrganizationFacet, error) {
	state, err := storage.Region[State](store, RegionName)
	if err != nil {
		return nil, err
	}
	if state.Organizations == nil {
		state.Organizations = make(map[string]*Organization)
	}
	return &OrganizationFacet{
		state:    state,
		registry: registry,
		bus:      bus,
		clock:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock replaces the time source; used by tests.
func (f *OrganizationFacet) WithClock(clock func() time.Time) *OrganizationFacet {
	f.clock = clock
	return f
}

// CreatorRole is the derived role gating organization creation.
func CreatorRole() accesscontrol.RoleID {
	return accesscontrol.DerivedRole(CreatorRoleTag)
}

// Get returns the tenant record, or a not-found error.
func (f *OrganizationFacet) Get(orgID string) (*Organization, error) {
	org, exists := f.state.Organizations[orgID]
	if !exists {
		return nil, apperrors.New(apperrors.KindNotFound, "organization does not exist", "organization", orgID)
	}
	return org, nil
}

func validateConfig(cfg Config) error {
	if cfg.MaxGuildsPerUser < 1 {
		return apperrors.New(apperrors.KindInvalidArgument, "max guilds per user must be at least 1")
	}
	if cfg.DefaultGuildCapacity < 1 {
		return apperrors.New(apperrors.KindInvalidArgument, "default guild capacity must be at least 1")
	}
	if cfg.TimeoutAfterLeavingGuild < 0 {
		return apperrors.New(apperrors.KindInvalidArgument, "leave timeout must not be negative")
	}
	switch cfg.CreationRule {
	case CreationRuleAnyone, CreationRuleAdminOnly:
	case CreationRuleCustom:
		if cfg.PolicyURL == "" {
			return apperrors.New(apperrors.KindInvalidArgument, "custom creation rule requires a policy url")
		}
	default:
		return apperrors.New(apperrors.KindInvalidArgument, "unknown creation rule", "creation_rule", cfg.CreationRule)
	}
	if cfg.CustomCapacityRule && cfg.PolicyURL == "" {
		return apperrors.New(apperrors.KindInvalidArgument, "custom capacity rule requires a policy url")
	}
	return nil
}

// Create registers a new tenant with the caller as administrator.
func (f *OrganizationFacet) Create(sender, orgID, name, description string, cfg Config) (*Organization, error) {
	if !f.registry.HasRole(CreatorRole(), sender) && !f.registry.HasRole(accesscontrol.DefaultAdminRole, sender) {
		return nil, apperrors.New(apperrors.KindUnauthorized, "sender may not create organizations",
			"account", sender, "required_role", CreatorRole().String())
	}
	if orgID == "" {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "organization id must not be empty")
	}
	if existing, exists := f.state.Organizations[orgID]; exists && existing.Admin != "" {
		return nil, apperrors.New(apperrors.KindAlreadyExists, "organization already exists", "organization", orgID)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	now := f.clock()
	org := &Organization{
		ID:          orgID,
		Name:        name,
		Description: description,
		Admin:       sender,
		Config:      cfg,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.state.Organizations[orgID] = org
	f.state.IDs = append(f.state.IDs, orgID)

	f.bus.Publish(events.TypeOrganizationCreated, map[string]string{
		"organization": orgID,
		"admin":        sender,
	})
	return org, nil
}

func (f *OrganizationFacet) requireAdmin(sender string, org *Organization) error {
	if sender != org.Admin {
		return apperrors.New(apperrors.KindUnauthorized, "sender is not the organization administrator",
			"account", sender, "organization", org.ID, "admin", org.Admin)
	}
	return nil
}

// SetNameAndDescription updates the tenant's descriptive fields.
func (f *OrganizationFacet) SetNameAndDescription(sender, orgID, name, description string) error {
	org, err := f.Get(orgID)
	if err != nil {
		return err
	}
	if err := f.requireAdmin(sender, org); err != nil {
		return err
	}
	org.Name = name
	org.Description = description
	org.UpdatedAt = f.clock()
	f.bus.Publish(events.TypeOrganizationUpdated, map[string]string{"organization": orgID})
	return nil
}

// SetAdmin hands the tenant to a new administrator.
func (f *OrganizationFacet) SetAdmin(sender, orgID, newAdmin string) error {
	org, err := f.Get(orgID)
	if err != nil {
		return err
	}
	if err := f.requireAdmin(sender, org); err != nil {
		return err
	}
	if newAdmin == "" {
		return apperrors.New(apperrors.KindInvalidArgument, "new administrator must not be the null address",
			"organization", orgID)
	}
	if newAdmin == org.Admin {
		return apperrors.New(apperrors.KindInvalidArgument, "new administrator is already the administrator",
			"organization", orgID, "account", newAdmin)
	}
	org.Admin = newAdmin
	org.UpdatedAt = f.clock()
	f.bus.Publish(events.TypeOrganizationAdminSet, map[string]string{
		"organization": orgID,
		"admin":        newAdmin,
	})
	return nil
}

// SetConfig replaces the tenant's guild policy configuration.
func (f *OrganizationFacet) SetConfig(sender, orgID string, cfg Config) error {
	org, err := f.Get(orgID)
	if err != nil {
		return err
	}
	if err := f.requireAdmin(sender, org); err != nil {
		return err
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	org.Config = cfg
	org.UpdatedAt = f.clock()
	f.bus.Publish(events.TypeOrganizationUpdated, map[string]string{"organization": orgID})
	return nil
}

type createOrganizationRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Config      Config `json:"config"`
}

type setNameDescRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type setAdminRequest struct {
	ID       string `json:"id"`
	NewAdmin string `json:"new_admin"`
}

type setConfigRequest struct {
	ID     string `json:"id"`
	Config Config `json:"config"`
}

type getOrganizationRequest struct {
	ID string `json:"id"`
}

// Operations implements diamond.Facet.
func (f *OrganizationFacet) Operations() map[string]diamond.Handler {
	return map[string]diamond.Handler{
		SigCreateOrganization:      f.handleCreate,
		SigSetOrganizationNameDesc: f.handleSetNameDesc,
		SigSetOrganizationAdmin:    f.handleSetAdmin,
		SigSetOrganizationConfig:   f.handleSetConfig,
		SigGetOrganization:         f.handleGet,
		SigGetOrganizationIDs:      f.handleGetIDs,
	}
}

func (f *OrganizationFacet) handleCreate(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req createOrganizationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid createOrganization payload")
	}
	if err := ctx.ConsumeSession(req.ID); err != nil {
		return nil, err
	}
	if err := ctx.RequireNotPaused(); err != nil {
		return nil, err
	}
	return f.Create(ctx.Sender, req.ID, req.Name, req.Description, req.Config)
}

func (f *OrganizationFacet) handleSetNameDesc(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req setNameDescRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid setOrganizationNameAndDescription payload")
	}
	if err := ctx.ConsumeSession(req.ID); err != nil {
		return nil, err
	}
	if err := ctx.RequireNotPaused(); err != nil {
		return nil, err
	}
	if err := f.SetNameAndDescription(ctx.Sender, req.ID, req.Name, req.Description); err != nil {
		return nil, err
	}
	return f.Get(req.ID)
}

func (f *OrganizationFacet) handleSetAdmin(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req setAdminRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid setOrganizationAdmin payload")
	}
	if err := ctx.ConsumeSession(req.ID); err != nil {
		return nil, err
	}
	if err := ctx.RequireNotPaused(); err != nil {
		return nil, err
	}
	if err := f.SetAdmin(ctx.Sender, req.ID, req.NewAdmin); err != nil {
		return nil, err
	}
	return f.Get(req.ID)
}

func (f *OrganizationFacet) handleSetConfig(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req setConfigRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid setOrganizationConfig payload")
	}
	if err := ctx.ConsumeSession(req.ID); err != nil {
		return nil, err
	}
	if err := ctx.RequireNotPaused(); err != nil {
		return nil, err
	}
	if err := f.SetConfig(ctx.Sender, req.ID, req.Config); err != nil {
		return nil, err
	}
	return f.Get(req.ID)
}

func (f *OrganizationFacet) handleGet(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	var req getOrganizationRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidArgument, "invalid getOrganization payload")
	}
	org, err := f.Get(req.ID)
	if err != nil {
		return nil, err
	}
	snapshot := *org
	return &snapshot, nil
}

func (f *OrganizationFacet) handleGetIDs(ctx *diamond.CallContext, payload json.RawMessage) (interface{}, error) {
	ids := append([]string(nil), f.state.IDs...)
	return ids, nil
}
