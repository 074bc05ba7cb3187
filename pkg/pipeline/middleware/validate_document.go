package middleware

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/edforge/trellis/pkg/pipeline"
)

// maxPruneRounds bounds the overpost strip-and-revalidate loop. Stripping
// is idempotent, so the loop converges; the bound guards a malformed
// schema from looping forever.
const maxPruneRounds = 8

// schemaCache holds compiled JSON-Schemas keyed by reload id, resource,
// and method so each schema compiles once per load.
type schemaCache struct {
	mu      sync.RWMutex
	entries map[string]*jsonschema.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{entries: make(map[string]*jsonschema.Schema)}
}

func (c *schemaCache) compiled(key string, raw map[string]any) (*jsonschema.Schema, error) {
	c.mu.RLock()
	schema, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return schema, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("resource.json", raw); err != nil {
		return nil, fmt.Errorf("invalid resource schema: %w", err)
	}
	schema, err := compiler.Compile("resource.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile resource schema: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = schema
	c.mu.Unlock()
	return schema, nil
}

// ValidateDocument validates the parsed body against the resource's
// method-appropriate JSON-Schema. Unknown properties are overposts: they
// are stripped from the body and validation re-runs, so clients that send
// extra fields succeed with the extras silently dropped. Missing required
// properties, type mismatches, and whitespace-pattern violations fail
// with per-path messages. Null values for optional properties pass.
type ValidateDocument struct {
	cache   *schemaCache
	printer *message.Printer
	logger  hclog.Logger
}

// NewValidateDocument creates the document validation step.
func NewValidateDocument(logger hclog.Logger) *ValidateDocument {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ValidateDocument{
		cache:   newSchemaCache(),
		printer: message.NewPrinter(language.English),
		logger:  logger.Named("validate-document"),
	}
}

// Name implements pipeline.Step.
func (s *ValidateDocument) Name() string { return "validate-document" }

// Execute implements pipeline.Step.
func (s *ValidateDocument) Execute(
	ctx context.Context, requestInfo *pipeline.RequestInfo, next func(context.Context) error,
) error {
	if !writesBody(requestInfo.Method) || requestInfo.ParsedBody == nil {
		return next(ctx)
	}

	resource := requestInfo.ResourceSchema
	raw := resource.SchemaForMethod(requestInfo.Method)
	if raw == nil {
		return next(ctx)
	}

	schemaKind := "insert"
	if requestInfo.Method == "PUT" {
		schemaKind = "update"
	}
	cacheKey := strings.Join([]string{
		requestInfo.SchemaDocument.ReloadID(),
		requestInfo.PathComponents.ProjectEndpointName,
		resource.EndpointName,
		schemaKind,
	}, "|")

	schema, err := s.cache.compiled(cacheKey, raw)
	if err != nil {
		return err
	}

	body := requestInfo.ParsedBody
	var leaves []*jsonschema.ValidationError
	for round := 0; round < maxPruneRounds; round++ {
		err := schema.Validate(body)
		if err == nil {
			leaves = nil
			break
		}
		validationError, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return fmt.Errorf("document validation faulted: %w", err)
		}
		leaves = flattenCauses(validationError)
		if !s.pruneOverposts(body, leaves) {
			break
		}
	}

	validationErrors := map[string][]string{}
	if requestInfo.Method == "PUT" {
		if _, hasID := body["id"]; !hasID {
			validationErrors["$.id"] = append(validationErrors["$.id"], "id is required.")
		}
	}
	for _, leaf := range leaves {
		s.describe(body, leaf, validationErrors)
	}

	if len(validationErrors) > 0 {
		failValidation(requestInfo, validationErrors)
		return nil
	}
	return next(ctx)
}

// pruneOverposts removes properties flagged as not allowed by the schema
// and reports whether anything was stripped.
func (s *ValidateDocument) pruneOverposts(
	body map[string]any, leaves []*jsonschema.ValidationError,
) bool {
	stripped := false
	for _, leaf := range leaves {
		switch k := leaf.ErrorKind.(type) {
		case *kind.AdditionalProperties:
			object, ok := valueAt(body, leaf.InstanceLocation).(map[string]any)
			if !ok {
				continue
			}
			for _, property := range k.Properties {
				if _, present := object[property]; present {
					delete(object, property)
					stripped = true
				}
			}
		case *kind.FalseSchema:
			location := leaf.InstanceLocation
			if len(location) == 0 {
				continue
			}
			parent, ok := valueAt(body, location[:len(location)-1]).(map[string]any)
			if !ok {
				continue
			}
			property := location[len(location)-1]
			if _, present := parent[property]; present {
				delete(parent, property)
				stripped = true
			}
		}
	}
	return stripped
}

// describe converts one remaining schema violation into a client-facing
// message keyed by JSON path.
func (s *ValidateDocument) describe(
	body map[string]any, leaf *jsonschema.ValidationError, out map[string][]string,
) {
	location := leaf.InstanceLocation
	path := instancePath(location)
	name := leafPropertyName(location)

	switch k := leaf.ErrorKind.(type) {
	case *kind.Required:
		for _, missing := range k.Missing {
			missingPath := instancePath(append(append([]string{}, location...), missing))
			out[missingPath] = append(out[missingPath], fmt.Sprintf("%s is required.", missing))
		}
	case *kind.Type:
		value := valueAt(body, location)
		if value == nil {
			// Optional properties may be explicitly null.
			return
		}
		out[path] = append(out[path], fmt.Sprintf(
			"%s Value is '%s', but expected type is %s.",
			name, renderScalar(value), strings.Join(k.Want, " or ")))
	case *kind.Pattern:
		out[path] = append(out[path], fmt.Sprintf(
			"%s cannot contain leading or trailing spaces.", name))
	case *kind.MinLength:
		out[path] = append(out[path], fmt.Sprintf(
			"%s is required and should not be left empty.", name))
	case *kind.AdditionalProperties, *kind.FalseSchema:
		// Consumed by the prune loop.
	default:
		out[path] = append(out[path], leaf.ErrorKind.LocalizedString(s.printer))
	}
}

// flattenCauses collects the leaf violations of a validation error tree.
func flattenCauses(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		leaves = append(leaves, flattenCauses(cause)...)
	}
	return leaves
}

// instancePath renders an instance location as "$.a.b[0].c".
func instancePath(location []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, segment := range location {
		if isIndexSegment(segment) {
			b.WriteString("[" + segment + "]")
		} else {
			b.WriteString("." + segment)
		}
	}
	return b.String()
}

// leafPropertyName returns the last property segment of a location, or
// "document" at the root.
func leafPropertyName(location []string) string {
	for i := len(location) - 1; i >= 0; i-- {
		if !isIndexSegment(location[i]) {
			return location[i]
		}
	}
	return "document"
}

func isIndexSegment(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// valueAt walks a parsed JSON tree by instance location segments.
func valueAt(body map[string]any, location []string) any {
	var current any = body
	for _, segment := range location {
		switch node := current.(type) {
		case map[string]any:
			current = node[segment]
		case []any:
			if !isIndexSegment(segment) {
				return nil
			}
			index := 0
			for _, r := range segment {
				index = index*10 + int(r-'0')
			}
			if index >= len(node) {
				return nil
			}
			current = node[index]
		default:
			return nil
		}
	}
	return current
}
