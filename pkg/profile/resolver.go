package profile

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// OutcomeKind classifies a profile resolution result.
type OutcomeKind int

const (
	// ProfileApplies means a profile was resolved and must filter the
	// request or response.
	ProfileApplies OutcomeKind = iota
	// NoProfileApplies means the request carries no profile content type;
	// the pipeline proceeds unfiltered.
	NoProfileApplies
	// ResolutionFailure means a profile content type was presented but
	// could not be honored (unknown profile, wrong resource, wrong usage).
	ResolutionFailure
)

// Outcome is the result of resolving a request's profile content type.
type Outcome struct {
	Kind           OutcomeKind
	Context        *Context
	FailureMessage string
}

// ResolveRequest carries the inputs to profile resolution.
type ResolveRequest struct {
	// ContentTypeHeader is the Content-Type (write) or Accept (read)
	// header value.
	ContentTypeHeader string
	Method            string
	ResourceName      string
	ApplicationID     string
}

// Resolver resolves a request's profile context. Implementations beyond
// the static registry (e.g. a configuration service client) satisfy the
// same interface.
type Resolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (Outcome, error)
}

// Profile content types look like
// "application/vnd.trellis.assessment.nutrition.readable+json".
var profileContentTypeRe = regexp.MustCompile(
	`^application/vnd\.trellis\.([^.]+)\.([^.]+)\.(readable|writable)\+json$`,
)

// Registry is a static Resolver over loaded profile definitions, keyed by
// lowercased profile name then lowercased resource name.
type Registry struct {
	profiles map[string]map[string]*ResourceProfile
	logger   hclog.Logger
}

// NewRegistry creates a resolver over the given profiles.
func NewRegistry(profiles map[string]map[string]*ResourceProfile, logger hclog.Logger) *Registry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Registry{
		profiles: profiles,
		logger:   logger.Named("profile-registry"),
	}
}

// Resolve implements Resolver against the static registry.
func (r *Registry) Resolve(_ context.Context, req ResolveRequest) (Outcome, error) {
	match := profileContentTypeRe.FindStringSubmatch(strings.ToLower(req.ContentTypeHeader))
	if match == nil {
		return Outcome{Kind: NoProfileApplies}, nil
	}
	resourceName, profileName, usageText := match[1], match[2], match[3]

	usage := Readable
	if usageText == "writable" {
		usage = Writable
	}

	resources, ok := r.profiles[profileName]
	if !ok {
		return Outcome{
			Kind:           ResolutionFailure,
			FailureMessage: fmt.Sprintf("The profile '%s' is not supported.", profileName),
		}, nil
	}
	resourceProfile, ok := resources[resourceName]
	if !ok || !strings.EqualFold(resourceProfile.ResourceName, req.ResourceName) {
		return Outcome{
			Kind: ResolutionFailure,
			FailureMessage: fmt.Sprintf(
				"The profile '%s' does not apply to the '%s' resource.",
				profileName, req.ResourceName),
		}, nil
	}

	r.logger.Debug("profile resolved",
		"profile", profileName,
		"resource", req.ResourceName,
		"usage", string(usage),
	)

	return Outcome{
		Kind: ProfileApplies,
		Context: &Context{
			ProfileName: profileName,
			Usage:       usage,
			Profile:     resourceProfile,
		},
	}, nil
}
