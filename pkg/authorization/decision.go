package authorization

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/models"
)

// Verdict is the outcome of the full claim-set / action / strategy chain.
type Verdict struct {
	Authorized bool

	// Errors carries the denial diagnostics for the 403 body.
	Errors []string

	// Strategies are the strategy names that were evaluated.
	Strategies []string
}

// Decider evaluates the resource/action/strategy authorization chain for a
// request.
type Decider struct {
	claimSets  ClaimSetProvider
	strategies *StrategyRegistry
	logger     hclog.Logger
}

// NewDecider creates an authorization decider.
func NewDecider(claimSets ClaimSetProvider, strategies *StrategyRegistry, logger hclog.Logger) *Decider {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Decider{
		claimSets:  claimSets,
		strategies: strategies,
		logger:     logger.Named("authorization-decider"),
	}
}

// Authorize decides whether the caller may perform the method on the named
// resource, given the document's extracted security elements. A denied
// Verdict is a normal outcome; an error is a fault.
func (d *Decider) Authorize(
	ctx context.Context,
	client ClientAuthorizations,
	resourceName string,
	method string,
	securityElements models.DocumentSecurityElements,
) (Verdict, error) {
	action, ok := ActionForMethod(method)
	if !ok {
		return deny(fmt.Sprintf("The method '%s' maps to no authorizable action.", method)), nil
	}

	claimSets, err := d.claimSets.GetClaimSets(ctx)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to get claim sets: %w", err)
	}

	claimSet, found := findClaimSet(claimSets, client.ClaimSetName)
	if !found {
		return deny(fmt.Sprintf("The caller's claim set '%s' is unknown.", client.ClaimSetName)), nil
	}

	claim, found := claimSet.ClaimFor(resourceName)
	if !found {
		return deny(fmt.Sprintf(
			"The API client's assigned claim set '%s' includes no claim on the '%s' resource.",
			claimSet.Name, resourceName)), nil
	}

	grant, found := claim.Grant(action)
	if !found {
		return deny(fmt.Sprintf(
			"The API client's assigned claim set '%s' does not grant the '%s' action on the '%s' resource. Granted actions: %s.",
			claimSet.Name, action, resourceName, strings.Join(claim.ActionNames(), ", "))), nil
	}

	if len(grant.AuthorizationStrategies) == 0 {
		return deny(fmt.Sprintf(
			"No authorization strategies were defined for the requested action '%s' against resource '%s'.",
			action, resourceName)), nil
	}

	verdict := Verdict{Authorized: true, Strategies: grant.AuthorizationStrategies}
	for _, name := range grant.AuthorizationStrategies {
		validator, ok := d.strategies.Resolve(name)
		if !ok {
			return Verdict{
				Authorized: false,
				Strategies: grant.AuthorizationStrategies,
				Errors: []string{fmt.Sprintf(
					"Could not find an authorization strategy implementation for the strategy '%s'.", name)},
			}, nil
		}

		decision, err := validator.ValidateAuthorization(ctx, securityElements, client)
		if err != nil {
			return Verdict{}, fmt.Errorf("authorization strategy %s faulted: %w", name, err)
		}
		if !decision.Authorized {
			d.logger.Debug("authorization denied",
				"claim_set", claimSet.Name,
				"resource", resourceName,
				"action", action,
				"strategy", name,
			)
			return Verdict{
				Authorized: false,
				Strategies: grant.AuthorizationStrategies,
				Errors:     []string{decision.Reason},
			}, nil
		}
	}

	return verdict, nil
}

func findClaimSet(claimSets []ClaimSet, name string) (ClaimSet, bool) {
	for _, cs := range claimSets {
		if strings.EqualFold(cs.Name, name) {
			return cs, true
		}
	}
	return ClaimSet{}, false
}

func deny(reason string) Verdict {
	return Verdict{Authorized: false, Errors: []string{reason}}
}
