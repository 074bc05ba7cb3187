package middleware

import (
	"context"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/authentication"
	"github.com/edforge/trellis/pkg/pipeline"
	"github.com/edforge/trellis/pkg/response"
)

// Authenticate validates the bearer token and attaches the caller's
// authorization context to the request. A missing or invalid token is a
// 401 with a WWW-Authenticate challenge; a validator fault propagates.
type Authenticate struct {
	validator authentication.TokenValidator
	logger    hclog.Logger
}

// NewAuthenticate creates the authentication step.
func NewAuthenticate(validator authentication.TokenValidator, logger hclog.Logger) *Authenticate {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Authenticate{
		validator: validator,
		logger:    logger.Named("jwt-authentication"),
	}
}

// Name implements pipeline.Step.
func (s *Authenticate) Name() string { return "jwt-authentication" }

// Execute implements pipeline.Step.
func (s *Authenticate) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	header, _ := requestInfo.FrontendRequest.Header("Authorization")
	token, found := bearerToken(header)
	if !found {
		s.fail(requestInfo, `Bearer`, "Authorization header is missing or is not a bearer token")
		return nil
	}

	principal, client, err := s.validator.Validate(ctx, token)
	if err != nil {
		return err
	}
	if principal == nil || client == nil {
		s.fail(requestInfo, `Bearer error="invalid_token"`, "Invalid token")
		return nil
	}

	requestInfo.FrontendRequest.ClientAuthorizations = client
	s.logger.Debug("caller authenticated",
		"trace_id", requestInfo.TraceID(),
		"subject", principal.Subject,
		"claim_set", client.ClaimSetName,
	)
	return next(ctx)
}

func (s *Authenticate) fail(requestInfo *pipeline.RequestInfo, challenge, message string) {
	problem := response.Unauthenticated(requestInfo.TraceID(), message)
	requestInfo.SetResponse(&pipeline.Response{
		StatusCode:  problem.Status,
		ContentType: response.ContentTypeProblemJSON,
		Body:        response.Marshal(problem),
		Headers:     map[string]string{"WWW-Authenticate": challenge},
	})
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
