package middleware

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-hclog"

	"github.com/edforge/trellis/pkg/jsonpath"
	"github.com/edforge/trellis/pkg/models"
	"github.com/edforge/trellis/pkg/pipeline"
)

// ExtractSecurityElements pulls the document's security-relevant values
// from the resource's configured path groups. Absent paths or categories
// yield empty lists, never errors.
type ExtractSecurityElements struct {
	logger hclog.Logger
}

// NewExtractSecurityElements creates the security element extraction step.
func NewExtractSecurityElements(logger hclog.Logger) *ExtractSecurityElements {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ExtractSecurityElements{logger: logger.Named("extract-security-elements")}
}

// Name implements pipeline.Step.
func (s *ExtractSecurityElements) Name() string { return "extract-security-elements" }

// Execute implements pipeline.Step.
func (s *ExtractSecurityElements) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	body := requestInfo.ParsedBody
	if body == nil {
		return next(ctx)
	}

	paths := requestInfo.ResourceSchema.SecurityElements
	elements := models.DocumentSecurityElements{
		Namespaces:       resolveAll(paths.Namespace, body),
		StudentUniqueIDs: resolveAll(paths.Student, body),
		ContactUniqueIDs: resolveAll(paths.Contact, body),
		StaffUniqueIDs:   resolveAll(paths.Staff, body),
	}

	for _, edOrg := range paths.EducationOrganization {
		for _, value := range edOrg.Path.Resolve(body) {
			id, ok := toInt64(value)
			if !ok {
				continue
			}
			elements.EducationOrganizations = append(elements.EducationOrganizations,
				models.EducationOrganizationElement{
					ResourceName: edOrg.ResourceName,
					ID:           id,
				})
		}
	}

	requestInfo.SecurityElements = elements
	return next(ctx)
}

func resolveAll(paths []jsonpath.Path, body map[string]any) []string {
	var out []string
	for _, path := range paths {
		out = append(out, path.ResolveStrings(body)...)
	}
	return out
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
