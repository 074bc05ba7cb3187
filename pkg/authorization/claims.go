// Package authorization implements the three-level authorization model: a
// claim set bundles resource claims, each resource claim grants actions,
// and each action names the runtime strategies that must authorize the
// request against the document's extracted security elements.
package authorization

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ClientAuthorizations is the caller's authorization context, resolved
// from its token before the pipeline runs.
type ClientAuthorizations struct {
	TokenID                  string
	ClaimSetName             string
	NamespacePrefixes        []string
	EducationOrganizationIDs []int64
	ApplicationID            string
}

// Actions grantable on a resource claim.
const (
	ActionCreate = "Create"
	ActionRead   = "Read"
	ActionUpdate = "Update"
	ActionDelete = "Delete"
)

// ActionForMethod maps an HTTP method onto the action it requires.
func ActionForMethod(method string) (string, bool) {
	switch method {
	case "POST":
		return ActionCreate, true
	case "GET":
		return ActionRead, true
	case "PUT":
		return ActionUpdate, true
	case "DELETE":
		return ActionDelete, true
	default:
		return "", false
	}
}

// ResourceAction grants one action, guarded by zero or more strategies.
type ResourceAction struct {
	Name                    string
	AuthorizationStrategies []string
}

// ResourceClaim grants actions on one resource.
type ResourceClaim struct {
	ResourceName string
	Actions      []ResourceAction
}

// ClaimSet is a named bundle of resource claims assigned to API clients.
type ClaimSet struct {
	Name           string
	ResourceClaims []ResourceClaim
}

// ClaimFor returns the claim set's claim on a resource, if any.
func (c ClaimSet) ClaimFor(resourceName string) (ResourceClaim, bool) {
	for _, claim := range c.ResourceClaims {
		if strings.EqualFold(claim.ResourceName, resourceName) {
			return claim, true
		}
	}
	return ResourceClaim{}, false
}

// ActionNames lists the actions a resource claim grants.
func (r ResourceClaim) ActionNames() []string {
	names := make([]string, 0, len(r.Actions))
	for _, a := range r.Actions {
		names = append(names, a.Name)
	}
	return names
}

// Grant returns the granted action by name, if present.
func (r ResourceClaim) Grant(action string) (ResourceAction, bool) {
	for _, a := range r.Actions {
		if strings.EqualFold(a.Name, action) {
			return a, true
		}
	}
	return ResourceAction{}, false
}

// ClaimSetProvider supplies claim sets. The configuration service client
// implements this; StaticClaimSetProvider serves loaded definitions.
type ClaimSetProvider interface {
	GetClaimSets(ctx context.Context) ([]ClaimSet, error)
}

// StaticClaimSetProvider is a ClaimSetProvider over an in-memory list.
type StaticClaimSetProvider struct {
	claimSets []ClaimSet
}

// NewStaticClaimSetProvider wraps the given claim sets.
func NewStaticClaimSetProvider(claimSets []ClaimSet) *StaticClaimSetProvider {
	return &StaticClaimSetProvider{claimSets: claimSets}
}

// GetClaimSets implements ClaimSetProvider.
func (p *StaticClaimSetProvider) GetClaimSets(context.Context) ([]ClaimSet, error) {
	return p.claimSets, nil
}

// Definition-file DTOs.

type claimSetFile struct {
	ClaimSets []claimSetDefinition `mapstructure:"claimSets"`
}

type claimSetDefinition struct {
	Name           string                    `mapstructure:"name"`
	ResourceClaims []resourceClaimDefinition `mapstructure:"resourceClaims"`
}

type resourceClaimDefinition struct {
	ResourceName string             `mapstructure:"resourceName"`
	Actions      []actionDefinition `mapstructure:"actions"`
}

type actionDefinition struct {
	Name                    string   `mapstructure:"name"`
	AuthorizationStrategies []string `mapstructure:"authorizationStrategies"`
}

func (d claimSetDefinition) validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required),
	)
}

func (d actionDefinition) validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required,
			validation.In(ActionCreate, ActionRead, ActionUpdate, ActionDelete)),
	)
}

// LoadClaimSets reads claim-set definitions from a YAML file.
func LoadClaimSets(fs afero.Fs, path string) ([]ClaimSet, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read claim set definitions: %w", err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse claim set definitions: %w", err)
	}

	var file claimSetFile
	if err := mapstructure.Decode(tree, &file); err != nil {
		return nil, fmt.Errorf("failed to decode claim set definitions: %w", err)
	}

	claimSets := make([]ClaimSet, 0, len(file.ClaimSets))
	for _, def := range file.ClaimSets {
		if err := def.validate(); err != nil {
			return nil, fmt.Errorf("invalid claim set definition: %w", err)
		}

		claims := make([]ResourceClaim, 0, len(def.ResourceClaims))
		for _, rc := range def.ResourceClaims {
			actions := make([]ResourceAction, 0, len(rc.Actions))
			for _, a := range rc.Actions {
				if err := a.validate(); err != nil {
					return nil, fmt.Errorf("claim set %q resource %q: %w", def.Name, rc.ResourceName, err)
				}
				actions = append(actions, ResourceAction{
					Name:                    a.Name,
					AuthorizationStrategies: a.AuthorizationStrategies,
				})
			}
			claims = append(claims, ResourceClaim{ResourceName: rc.ResourceName, Actions: actions})
		}
		claimSets = append(claimSets, ClaimSet{Name: def.Name, ResourceClaims: claims})
	}
	return claimSets, nil
}
