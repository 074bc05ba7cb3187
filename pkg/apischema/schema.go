// Package apischema holds the parsed API schema document: the per-project,
// per-resource metadata that drives every validation and transformation step
// in the request pipeline. A Document is immutable once constructed and is
// shared by all in-flight requests; reloads swap in a whole new Document.
package apischema

import (
	"strings"

	"github.com/edforge/trellis/pkg/jsonpath"
)

// Document is the root of a loaded API schema, keyed by project endpoint
// name (the first URL path segment, e.g. "ed-fi").
type Document struct {
	reloadID string
	projects map[string]*ProjectSchema
}

// ReloadID returns the opaque identifier of this schema load. Requests
// compare it against the reload signal to detect stale snapshots.
func (d *Document) ReloadID() string { return d.reloadID }

// ProjectByEndpointName looks up a project schema by its URL segment.
// Lookup is case-insensitive, matching URL routing behavior.
func (d *Document) ProjectByEndpointName(name string) (*ProjectSchema, bool) {
	p, ok := d.projects[strings.ToLower(name)]
	return p, ok
}

// Projects returns all project schemas in the document.
func (d *Document) Projects() []*ProjectSchema {
	out := make([]*ProjectSchema, 0, len(d.projects))
	for _, p := range d.projects {
		out = append(out, p)
	}
	return out
}

// ProjectSchema carries one project's (core or extension) resources.
type ProjectSchema struct {
	// ProjectName is the proper name, e.g. "Ed-Fi".
	ProjectName string

	// EndpointName is the URL segment, e.g. "ed-fi".
	EndpointName string

	// Version is the project's data standard version.
	Version string

	resources map[string]*ResourceSchema
}

// ResourceByEndpointName looks up a resource schema by its pluralized URL
// segment, e.g. "academicWeeks". Lookup is case-insensitive.
func (p *ProjectSchema) ResourceByEndpointName(name string) (*ResourceSchema, bool) {
	r, ok := p.resources[strings.ToLower(name)]
	return r, ok
}

// Resources returns all resource schemas in the project.
func (p *ProjectSchema) Resources() []*ResourceSchema {
	out := make([]*ResourceSchema, 0, len(p.resources))
	for _, r := range p.resources {
		out = append(out, r)
	}
	return out
}

// DecimalRule bounds a decimal-typed property by total digit count and
// digits after the decimal point.
type DecimalRule struct {
	Path          jsonpath.Path
	TotalDigits   int
	DecimalPlaces int
}

// EqualityConstraint names two or more paths whose resolved values must all
// be equal within one document.
type EqualityConstraint struct {
	Paths []jsonpath.Path
}

// ArrayUniquenessConstraint requires that the tuple of values at Paths
// (resolved relative to each array element) be unique across the elements of
// the array at BasePath.
type ArrayUniquenessConstraint struct {
	// BasePath locates the array, e.g. "$.performanceLevels". For
	// constraints nested inside another array's elements it carries a
	// wildcard, e.g. "$.scores[*].gradeLevels".
	BasePath jsonpath.Path

	// Paths identify each element, relative to the element itself.
	Paths []jsonpath.Path
}

// QueryField maps a query-parameter name onto document paths and a declared
// type for query-term coercion.
type QueryField struct {
	Name  string
	Paths []jsonpath.Path
	// Type is one of: string, boolean, number, date, date-time, time, uuid.
	Type string
}

// EducationOrganizationPath pairs a security-element path with the concrete
// education-organization resource it refers to.
type EducationOrganizationPath struct {
	ResourceName string
	Path         jsonpath.Path
}

// SecurityElementPaths configures where a resource's security-relevant
// values live. Any category may be empty.
type SecurityElementPaths struct {
	Namespace             []jsonpath.Path
	EducationOrganization []EducationOrganizationPath
	Student               []jsonpath.Path
	Contact               []jsonpath.Path
	Staff                 []jsonpath.Path
}

// SuperclassLink records subclass/superclass identity linkage, e.g.
// School (subclass) to EducationOrganization (superclass).
type SuperclassLink struct {
	ResourceName     string
	IdentityPath     jsonpath.Path
	SubclassIdentity jsonpath.Path
}

// ResourceSchema is the full validation/transformation metadata for one
// resource. All fields are read-only after construction.
type ResourceSchema struct {
	// ResourceName is the singular proper name, e.g. "AcademicWeek".
	ResourceName string

	// EndpointName is the pluralized URL segment, e.g. "academicWeeks".
	EndpointName string

	// IsDescriptor marks enumerated-value resources.
	IsDescriptor bool

	// InsertSchema and UpdateSchema are raw JSON-Schema trees for POST and
	// PUT validation respectively.
	InsertSchema map[string]any
	UpdateSchema map[string]any

	// IdentityPaths, in declaration order, uniquely identify a document.
	IdentityPaths []jsonpath.Path

	// BooleanPaths and NumericPaths are coerced from string form before
	// JSON-Schema validation.
	BooleanPaths []jsonpath.Path
	NumericPaths []jsonpath.Path

	// DatePaths and DateTimePaths are normalized to ISO-8601 before
	// JSON-Schema validation.
	DatePaths     []jsonpath.Path
	DateTimePaths []jsonpath.Path

	DecimalRules               []DecimalRule
	EqualityConstraints        []EqualityConstraint
	ArrayUniquenessConstraints []ArrayUniquenessConstraint

	// QueryFields is keyed by lowercased query-parameter name.
	QueryFields map[string]QueryField

	SecurityElements SecurityElementPaths

	// Superclass is non-nil when this resource subclasses another.
	Superclass *SuperclassLink

	// AuthorizationPathways name the pathways evaluated for this resource.
	AuthorizationPathways []string
}

// SchemaForMethod returns the JSON-Schema tree appropriate to the request
// method: the update schema for PUT, the insert schema otherwise.
func (r *ResourceSchema) SchemaForMethod(method string) map[string]any {
	if method == "PUT" && r.UpdateSchema != nil {
		return r.UpdateSchema
	}
	return r.InsertSchema
}

// IdentityPropertyNames returns the set of top-level property names that
// identity paths pass through. Profile filtering never strips these.
func (r *ResourceSchema) IdentityPropertyNames() map[string]struct{} {
	names := make(map[string]struct{}, len(r.IdentityPaths))
	for _, p := range r.IdentityPaths {
		if root := p.RootName(); root != "" {
			names[root] = struct{}{}
		}
	}
	return names
}
