package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"guildhall-backend/shared/config"
)

// GuildPolicy is the capability interface for an organization's custom
// rule contract. Every call crosses a trust boundary: results must be
// bounds-checked and failures surfaced, never assumed side-effect-free.
type GuildPolicy interface {
	CanCreateGuild(user, orgID string) (bool, error)
	OnGuildCreation(owner, orgID string, guildID uint64) error
	MaxUsersForGuild(orgID string, guildID uint64) (int, error)
}

// TagCredential answers balance queries against an external credential
// source. Holding at least one unit satisfies a tag requirement.
type TagCredential interface {
	BalanceOf(account string) (int64, error)
}

// HTTPGuildPolicy talks to a custom-rule endpoint over HTTP.
type HTTPGuildPolicy struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGuildPolicy creates a policy client for an organization's
// configured policy URL.
func NewHTTPGuildPolicy(baseURL string) *HTTPGuildPolicy {
	cfg := config.GetConfig()
	return &HTTPGuildPolicy{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.GetPolicyClientTimeoutSeconds()) * time.Second,
		},
	}
}

type canCreateGuildRequest struct {
	User           string `json:"user"`
	OrganizationID string `json:"organization_id"`
}

type canCreateGuildResponse struct {
	Allowed bool `json:"allowed"`
}

type guildCreationNotice struct {
	Owner          string `json:"owner"`
	OrganizationID string `json:"organization_id"`
	GuildID        uint64 `json:"guild_id"`
}

type maxUsersRequest struct {
	OrganizationID string `json:"organization_id"`
	GuildID        uint64 `json:"guild_id"`
}

type maxUsersResponse struct {
	MaxUsers int `json:"max_users"`
}

func (pc *HTTPGuildPolicy) post(path string, request, response interface{}) error {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %v", err)
	}

	resp, err := pc.httpClient.Post(
		fmt.Sprintf("%s%s", pc.baseURL, path),
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return fmt.Errorf("failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("policy endpoint returned status: %d", resp.StatusCode)
	}

	if response == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}

// CanCreateGuild asks the policy endpoint whether user may create a
// guild in the organization.
func (pc *HTTPGuildPolicy) CanCreateGuild(user, orgID string) (bool, error) {
	var result canCreateGuildResponse
	err := pc.post("/policy/can-create-guild", canCreateGuildRequest{
		User:           user,
		OrganizationID: orgID,
	}, &result)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// OnGuildCreation notifies the policy endpoint of a created guild.
func (pc *HTTPGuildPolicy) OnGuildCreation(owner, orgID string, guildID uint64) error {
	return pc.post("/policy/on-guild-creation", guildCreationNotice{
		Owner:          owner,
		OrganizationID: orgID,
		GuildID:        guildID,
	}, nil)
}

// MaxUsersForGuild asks the policy endpoint for the guild's capacity.
// The caller bounds-checks the result; this client only transports it.
func (pc *HTTPGuildPolicy) MaxUsersForGuild(orgID string, guildID uint64) (int, error) {
	var result maxUsersResponse
	err := pc.post("/policy/max-users-for-guild", maxUsersRequest{
		OrganizationID: orgID,
		GuildID:        guildID,
	}, &result)
	if err != nil {
		return 0, err
	}
	return result.MaxUsers, nil
}

// HTTPTagCredential queries an external credential endpoint for a
// plain non-negative balance.
type HTTPTagCredential struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPTagCredential creates a tag credential client for an
// organization's configured tag requirement URL.
func NewHTTPTagCredential(baseURL string) *HTTPTagCredential {
	cfg := config.GetConfig()
	return &HTTPTagCredential{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.GetPolicyClientTimeoutSeconds()) * time.Second,
		},
	}
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

// BalanceOf returns the account's credential balance.
func (tc *HTTPTagCredential) BalanceOf(account string) (int64, error) {
	resp, err := tc.httpClient.Get(fmt.Sprintf("%s/balance/%s", tc.baseURL, account))
	if err != nil {
		return 0, fmt.Errorf("failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("tag endpoint returned status: %d", resp.StatusCode)
	}

	var result balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %v", err)
	}
	if result.Balance < 0 {
		return 0, fmt.Errorf("tag endpoint returned negative balance: %d", result.Balance)
	}
	return result.Balance, nil
}
