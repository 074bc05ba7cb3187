package authorization

import (
	"context"
	"fmt"
	"strings"

	"github.com/edforge/trellis/pkg/models"
)

// Decision is a strategy validator's verdict.
type Decision struct {
	Authorized bool
	Reason     string
}

// Authorized is the approving decision.
func Authorized() Decision { return Decision{Authorized: true} }

// NotAuthorized denies with a diagnostic reason.
func NotAuthorized(reason string) Decision {
	return Decision{Authorized: false, Reason: reason}
}

// StrategyValidator authorizes one request against the document's security
// elements and the caller's authorizations.
type StrategyValidator interface {
	// ValidateAuthorization returns the strategy's verdict. An error is a
	// fault (e.g. a failed collaborator call), not a denial.
	ValidateAuthorization(
		ctx context.Context,
		securityElements models.DocumentSecurityElements,
		client ClientAuthorizations,
	) (Decision, error)
}

// StrategyRegistry resolves strategy validators by name. Names are
// case-insensitive.
type StrategyRegistry struct {
	validators map[string]StrategyValidator
}

// NewStrategyRegistry returns a registry preloaded with the built-in
// strategies.
func NewStrategyRegistry() *StrategyRegistry {
	r := &StrategyRegistry{validators: make(map[string]StrategyValidator)}
	r.Register("NoFurtherAuthorizationRequired", noFurtherAuthorization{})
	r.Register("NamespaceBased", namespaceBased{})
	r.Register("RelationshipsWithEdOrgsOnly", relationshipsWithEdOrgs{})
	return r
}

// Register adds or replaces a named strategy validator.
func (r *StrategyRegistry) Register(name string, validator StrategyValidator) {
	r.validators[strings.ToLower(name)] = validator
}

// Resolve returns the validator for a strategy name.
func (r *StrategyRegistry) Resolve(name string) (StrategyValidator, bool) {
	v, ok := r.validators[strings.ToLower(name)]
	return v, ok
}

// noFurtherAuthorization authorizes unconditionally; the claim-set grant
// itself is the authorization.
type noFurtherAuthorization struct{}

func (noFurtherAuthorization) ValidateAuthorization(
	context.Context, models.DocumentSecurityElements, ClientAuthorizations,
) (Decision, error) {
	return Authorized(), nil
}

// namespaceBased requires every namespace on the document to match one of
// the client's namespace prefixes.
type namespaceBased struct{}

func (namespaceBased) ValidateAuthorization(
	_ context.Context,
	securityElements models.DocumentSecurityElements,
	client ClientAuthorizations,
) (Decision, error) {
	if len(securityElements.Namespaces) == 0 {
		return NotAuthorized(
			"No 'Namespace' value was found on the document, so the request can not be authorized. " +
				"Verify that the document contains a 'Namespace' value."), nil
	}
	for _, namespace := range securityElements.Namespaces {
		if !hasMatchingPrefix(namespace, client.NamespacePrefixes) {
			return NotAuthorized(fmt.Sprintf(
				"The caller's namespace prefixes do not cover the namespace '%s'.", namespace)), nil
		}
	}
	return Authorized(), nil
}

func hasMatchingPrefix(namespace string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(namespace, prefix) {
			return true
		}
	}
	return false
}

// relationshipsWithEdOrgs requires every education organization on the
// document to be in the client's education organization list.
type relationshipsWithEdOrgs struct{}

func (relationshipsWithEdOrgs) ValidateAuthorization(
	_ context.Context,
	securityElements models.DocumentSecurityElements,
	client ClientAuthorizations,
) (Decision, error) {
	if len(securityElements.EducationOrganizations) == 0 {
		return NotAuthorized(
			"No education organization value was found on the document, so the request can not be authorized."), nil
	}
	allowed := make(map[int64]struct{}, len(client.EducationOrganizationIDs))
	for _, id := range client.EducationOrganizationIDs {
		allowed[id] = struct{}{}
	}
	for _, edOrg := range securityElements.EducationOrganizations {
		if _, ok := allowed[edOrg.ID]; !ok {
			return NotAuthorized(fmt.Sprintf(
				"No relationships have been established between the caller's education organizations and the resource's %s id '%d'.",
				edOrg.ResourceName, edOrg.ID)), nil
		}
	}
	return Authorized(), nil
}
